// Package graph is a minimal Microsoft Graph client for the OneDrive
// folder that receives photographed sales orders.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/config"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope   = "https://graph.microsoft.com/.default"
)

// DriveItem is a file in the order-document inbox.
type DriveItem struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	MIMEType         string    `json:"mime_type"`
	LastModifiedTime time.Time `json:"last_modified"`
}

type driveItem struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	File                 *struct {
		MIMEType string `json:"mimeType"`
	} `json:"file"`
}

type childrenResponse struct {
	Value []driveItem `json:"value"`
}

// Client lists and downloads drive items through Microsoft Graph.
type Client struct {
	http    *resty.Client
	tokens  *tokenSource
	driveID string
	logger  *zap.Logger
}

// New builds a Graph client for the configured drive.
func New(cfg config.GraphConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)

	return &Client{
		http:    resty.New().SetBaseURL(graphBaseURL).SetTimeout(30 * time.Second),
		tokens:  newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, graphScope),
		driveID: cfg.DriveID,
		logger:  logger,
	}
}

// ListFolder returns the files directly under the given folder path. Child
// folders are skipped.
func (c *Client) ListFolder(ctx context.Context, folderPath string) ([]DriveItem, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body childrenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body).
		Get(fmt.Sprintf("/drives/%s/root:/%s:/children", c.driveID, strings.Trim(folderPath, "/")))
	if err != nil {
		return nil, fmt.Errorf("list drive folder %s: %w", folderPath, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list drive folder %s: status %d: %s", folderPath, resp.StatusCode(), resp.String())
	}

	items := make([]DriveItem, 0, len(body.Value))
	for _, it := range body.Value {
		if it.File == nil {
			continue
		}
		items = append(items, DriveItem{
			ID:               it.ID,
			Name:             it.Name,
			MIMEType:         it.File.MIMEType,
			LastModifiedTime: it.LastModifiedDateTime,
		})
	}

	c.logger.Debug("listed drive folder",
		zap.String("folder", folderPath),
		zap.Int("files", len(items)),
	)
	return items, nil
}

// Download fetches a drive item's content and reports its media type.
func (c *Client) Download(ctx context.Context, itemID string) ([]byte, string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(fmt.Sprintf("/drives/%s/items/%s/content", c.driveID, itemID))
	if err != nil {
		return nil, "", fmt.Errorf("download drive item %s: %w", itemID, err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("download drive item %s: status %d", itemID, resp.StatusCode())
	}

	mimeType := resp.Header().Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return resp.Body(), strings.TrimSpace(mimeType), nil
}
