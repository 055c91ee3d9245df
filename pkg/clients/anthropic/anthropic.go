// Package anthropic wraps the Claude messages API for structured document
// extraction from photographed or handwritten sales orders.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-5-sonnet-20241022"
	maxTokens  = 2048
)

// Client defines the document extraction interface.
type Client interface {
	ExtractSalesOrder(ctx context.Context, document []byte, mimeType string) (models.SalesOrderDraft, error)
}

type anthropicClient struct {
	httpClient *resty.Client
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string) Client {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(60 * time.Second)

	return &anthropicClient{httpClient: client}
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You are a data-entry assistant for a sales back office. You receive a photo or scan of a sales order, often handwritten, and must transcribe it into structured JSON.

RULES:
- Output ONLY a JSON object, no prose, no markdown fences.
- Escape newlines inside string values.
- Quantities are decimal numbers; strip units like "m" or "mtr".
- Leave a field empty ("" or 0) when it is not present on the document; never invent values.
- The JSON structure is:
  {
    "customer_name": "name exactly as written",
    "external_doc_no": "the customer's own order/reference number",
    "ship_to_name": "",
    "lines": [
      {"description": "item description as written", "quantity": 0, "discount_percent": 0}
    ],
    "comments": "any handwritten remarks or delivery instructions",
    "discount_amount": 0
  }`

func (c *anthropicClient) ExtractSalesOrder(ctx context.Context, document []byte, mimeType string) (models.SalesOrderDraft, error) {
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: mimeType,
							Data:      base64.StdEncoding.EncodeToString(document),
						},
					},
					{Type: "text", Text: "Transcribe this sales order."},
				},
			},
			// Prefill the assistant response to force JSON output.
			{Role: "assistant", Content: []contentBlock{{Type: "text", Text: "{"}}},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(apiURL)
	if err != nil {
		return models.SalesOrderDraft{}, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return models.SalesOrderDraft{}, fmt.Errorf("anthropic api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return models.SalesOrderDraft{}, fmt.Errorf("empty response from ai")
	}

	// Reconstruct the full JSON since we prefilled the opening brace.
	responseText := strings.TrimSpace("{" + respBody.Content[0].Text)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimSuffix(strings.TrimPrefix(responseText, "```"), "```")
	responseText = strings.TrimSpace(responseText)

	var draft models.SalesOrderDraft
	if err := json.Unmarshal([]byte(responseText), &draft); err != nil {
		return models.SalesOrderDraft{}, fmt.Errorf("unmarshal extraction response: %w; response was: %s", err, responseText)
	}

	return draft, nil
}
