// Package businesscentral is a resty-backed client for the Business Central
// REST and OData APIs: catalogue lookups, sales order creation, item ledger
// queries, and reservation entries.
package businesscentral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/config"
	"github.com/oms-labs/lotpilot/internal/domain/models"
)

const bcScope = "https://api.businesscentral.dynamics.com/.default"

// Client talks to one Business Central environment for one company. The
// environment is fixed at construction; switching environments means
// constructing another client, never mutating shared state.
type Client struct {
	http       *resty.Client
	tokens     *tokenSource
	restBase   string
	odataBase  string
	customBase string

	companyName string
	logger      *zap.Logger

	mu        sync.Mutex
	companyID string
}

// New builds a client for the configured tenant, environment and company.
func New(cfg config.BusinessCentralConfig, logger *zap.Logger) *Client {
	apiRoot := fmt.Sprintf("https://api.businesscentral.dynamics.com/v2.0/%s/%s", cfg.TenantID, cfg.Environment)
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)

	return newClient(
		apiRoot+"/api/v2.0",
		apiRoot+"/ODataV4",
		fmt.Sprintf("%s/api/%s/%s/v1.0", apiRoot, cfg.APIPublisher, cfg.APIGroup),
		newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, bcScope),
		cfg.CompanyName,
		logger,
	)
}

func newClient(restBase, odataBase, customBase string, tokens *tokenSource, companyName string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)

	return &Client{
		http:        httpClient,
		tokens:      tokens,
		restBase:    restBase,
		odataBase:   odataBase,
		customBase:  customBase,
		companyName: companyName,
		logger:      logger,
	}
}

// request prepares an authenticated resty request.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&apiError{}), nil
}

func responseError(op string, resp *resty.Response) error {
	msg := resp.String()
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), msg)
}

// odataQuote escapes a value for use inside single quotes in an OData filter.
func odataQuote(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// CompanyID resolves and caches the company ID for the configured company
// name.
func (c *Client) CompanyID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.companyID != "" {
		return c.companyID, nil
	}

	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	var body envelope[company]
	resp, err := req.SetResult(&body).Get(c.restBase + "/companies")
	if err != nil {
		return "", fmt.Errorf("list companies: %w", err)
	}
	if resp.IsError() {
		return "", responseError("list companies", resp)
	}

	for _, co := range body.Value {
		if co.Name == c.companyName {
			c.companyID = co.ID
			return co.ID, nil
		}
	}

	names := make([]string, 0, len(body.Value))
	for _, co := range body.Value {
		names = append(names, co.Name)
	}
	return "", fmt.Errorf("company %q not found, available: %s", c.companyName, strings.Join(names, ", "))
}

// LocationCode resolves a location record ID to its location code.
func (c *Client) LocationCode(ctx context.Context, locationID string) (string, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return "", err
	}

	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	var body location
	resp, err := req.SetResult(&body).
		Get(fmt.Sprintf("%s/companies(%s)/locations(%s)", c.restBase, companyID, locationID))
	if err != nil {
		return "", fmt.Errorf("fetch location %s: %w", locationID, err)
	}
	if resp.IsError() {
		return "", responseError("fetch location "+locationID, resp)
	}

	c.logger.Debug("resolved location",
		zap.String("location_id", locationID),
		zap.String("code", body.Code),
		zap.String("name", body.DisplayName),
	)
	return body.Code, nil
}

// OrderLines fetches the item lines of a sales order. Comment and other
// non-item lines are filtered out.
func (c *Client) OrderLines(ctx context.Context, orderID string) ([]models.SalesOrderLine, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var body envelope[salesOrderLine]
	resp, err := req.SetResult(&body).
		Get(fmt.Sprintf("%s/companies(%s)/salesOrders(%s)/salesOrderLines", c.restBase, companyID, orderID))
	if err != nil {
		return nil, fmt.Errorf("fetch sales order lines: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("fetch sales order lines", resp)
	}

	lines := make([]models.SalesOrderLine, 0, len(body.Value))
	for _, line := range body.Value {
		if line.LineType != "Item" {
			continue
		}
		lines = append(lines, models.SalesOrderLine{
			ID:         line.ID,
			Sequence:   line.Sequence,
			ItemNo:     line.LineObjectNumber,
			LocationID: line.LocationID,
			Quantity:   line.Quantity,
		})
	}
	return lines, nil
}

// LotLedgerEntries queries item ledger entries for an item at a location,
// filtered server-side to non-empty lot numbers with remaining quantity
// above zero. A malformed posting date fails the whole query; silently
// mis-ordering FIFO would be worse than failing fast.
func (c *Client) LotLedgerEntries(ctx context.Context, itemNo, locationCode string) ([]models.LotRecord, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf(
		"Item_No eq '%s' and Lot_No ne '' and Remaining_Quantity gt 0 and Location_Code eq '%s'",
		odataQuote(itemNo), odataQuote(locationCode),
	)

	var body envelope[ledgerEntry]
	resp, err := req.
		SetQueryParam("$filter", filter).
		SetQueryParam("$select", "Entry_No,Item_No,Lot_No,Location_Code,Posting_Date,Remaining_Quantity").
		SetResult(&body).
		Get(fmt.Sprintf("%s/Company('%s')/ItemLedgerEntries", c.odataBase, odataQuote(c.companyName)))
	if err != nil {
		return nil, fmt.Errorf("query item ledger entries: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("query item ledger entries", resp)
	}

	records := make([]models.LotRecord, 0, len(body.Value))
	for _, entry := range body.Value {
		postingDate, err := models.ParseDate(entry.PostingDate)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", entry.EntryNo, err)
		}
		records = append(records, models.LotRecord{
			LotNo:             entry.LotNo,
			ItemNo:            entry.ItemNo,
			LocationCode:      entry.LocationCode,
			RemainingQuantity: entry.RemainingQuantity,
			PostingDate:       postingDate,
		})
	}

	c.logger.Debug("fetched lot ledger entries",
		zap.String("item_no", itemNo),
		zap.String("location_code", locationCode),
		zap.Int("count", len(records)),
	)
	return records, nil
}

// RequestedQuantities fetches all reservation entries for the company and
// aggregates the signed quantity per lot number.
func (c *Client) RequestedQuantities(ctx context.Context) (map[string]decimal.Decimal, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var body envelope[reservationEntry]
	resp, err := req.SetResult(&body).
		Get(fmt.Sprintf("%s/companies(%s)/ReservationEntries", c.customBase, companyID))
	if err != nil {
		return nil, fmt.Errorf("fetch reservation entries: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("fetch reservation entries", resp)
	}

	requested := make(map[string]decimal.Decimal, len(body.Value))
	for _, entry := range body.Value {
		if entry.LotNo == "" {
			continue
		}
		requested[entry.LotNo] = requested[entry.LotNo].Add(entry.Quantity)
	}

	c.logger.Debug("built requested quantity map",
		zap.Int("entries", len(body.Value)),
		zap.Int("lots", len(requested)),
	)
	return requested, nil
}

// SearchCustomers finds customers whose display name contains the query,
// returning at most topK matches.
func (c *Client) SearchCustomers(ctx context.Context, query string, topK int) ([]models.CustomerMatch, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	var body envelope[customer]
	resp, err := req.
		SetQueryParam("$filter", fmt.Sprintf("contains(displayName,'%s')", odataQuote(query))).
		SetQueryParam("$top", fmt.Sprintf("%d", topK)).
		SetResult(&body).
		Get(fmt.Sprintf("%s/companies(%s)/customers", c.restBase, companyID))
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("search customers", resp)
	}

	matches := make([]models.CustomerMatch, 0, len(body.Value))
	for _, cu := range body.Value {
		matches = append(matches, models.CustomerMatch{
			Number:      cu.Number,
			DisplayName: cu.DisplayName,
			City:        cu.City,
			PhoneNumber: cu.PhoneNumber,
		})
	}
	return matches, nil
}

// SearchItems finds items in a category whose display name contains the
// query, returning at most topK matches.
func (c *Client) SearchItems(ctx context.Context, query, category string, topK int) ([]models.ItemMatch, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return nil, err
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("contains(displayName,'%s')", odataQuote(query))
	if category != "" {
		filter = fmt.Sprintf("itemCategoryCode eq '%s' and %s", odataQuote(category), filter)
	}

	var body envelope[item]
	resp, err := req.
		SetQueryParam("$filter", filter).
		SetQueryParam("$top", fmt.Sprintf("%d", topK)).
		SetResult(&body).
		Get(fmt.Sprintf("%s/companies(%s)/items", c.restBase, companyID))
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if resp.IsError() {
		return nil, responseError("search items", resp)
	}

	matches := make([]models.ItemMatch, 0, len(body.Value))
	for _, it := range body.Value {
		matches = append(matches, models.ItemMatch{
			Number:      it.Number,
			DisplayName: it.DisplayName,
			Category:    it.ItemCategoryCode,
			UnitPrice:   it.UnitPrice,
		})
	}
	return matches, nil
}

// CreateSalesOrder creates the order header, applies the shipping agent,
// inserts the item lines and optional comment line, and patches the order
// discount. Returns the created order's ID and human-readable number.
func (c *Client) CreateSalesOrder(ctx context.Context, draft models.SalesOrderDraft) (string, string, error) {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return "", "", err
	}

	orderID, orderNo, err := c.createOrderHeader(ctx, companyID, draft)
	if err != nil {
		return "", "", err
	}

	if draft.ShippingAgentCode != "" {
		if err := c.patchShippingAgent(ctx, companyID, orderNo, draft.ShippingAgentCode); err != nil {
			return "", "", err
		}
	}

	if err := c.insertOrderLines(ctx, companyID, orderID, draft.Lines); err != nil {
		return "", "", err
	}

	if draft.Comments != "" {
		if err := c.insertCommentLine(ctx, companyID, orderID, draft.Comments); err != nil {
			return "", "", err
		}
	}

	if draft.DiscountAmount.IsPositive() {
		if err := c.patchDiscountAmount(ctx, companyID, orderID, draft.DiscountAmount); err != nil {
			return "", "", err
		}
	}

	c.logger.Info("sales order created",
		zap.String("order_id", orderID),
		zap.String("order_no", orderNo),
		zap.String("customer_no", draft.CustomerNo),
		zap.Int("lines", len(draft.Lines)),
	)
	return orderID, orderNo, nil
}

func (c *Client) createOrderHeader(ctx context.Context, companyID string, draft models.SalesOrderDraft) (string, string, error) {
	payload := map[string]any{
		"customerNumber":         draft.CustomerNo,
		"externalDocumentNumber": draft.ExternalDocNo,
	}
	if draft.ShippingMethodID != "" {
		payload["shipmentMethodId"] = draft.ShippingMethodID
	}
	if draft.ShipToName != "" && draft.ShipToAddress != nil {
		payload["shipToName"] = draft.ShipToName
		payload["shipToAddressLine1"] = draft.ShipToAddress.AddressLine1
		payload["shipToAddressLine2"] = draft.ShipToAddress.AddressLine2
		payload["shipToCity"] = draft.ShipToAddress.City
		payload["shipToState"] = draft.ShipToAddress.State
		payload["shipToCountry"] = draft.ShipToAddress.Country
		payload["shipToPostCode"] = draft.ShipToAddress.PostalCode
	}

	req, err := c.request(ctx)
	if err != nil {
		return "", "", err
	}

	var body salesOrder
	resp, err := req.SetBody(payload).SetResult(&body).
		Post(fmt.Sprintf("%s/companies(%s)/salesOrders", c.restBase, companyID))
	if err != nil {
		return "", "", fmt.Errorf("create sales order: %w", err)
	}
	if resp.IsError() {
		return "", "", responseError("create sales order", resp)
	}
	if body.ID == "" {
		return "", "", errors.New("create sales order: no id in response")
	}
	return body.ID, body.Number, nil
}

func (c *Client) patchShippingAgent(ctx context.Context, companyID, orderNo, agentCode string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("If-Match", "*").
		SetBody(map[string]any{"shippingAgentCode": agentCode}).
		Patch(fmt.Sprintf("%s/companies(%s)/salesOrderShippings(documentType='Order',no='%s')",
			c.customBase, companyID, odataQuote(orderNo)))
	if err != nil {
		return fmt.Errorf("update shipping agent: %w", err)
	}
	if resp.IsError() {
		return responseError("update shipping agent", resp)
	}
	return nil
}

func (c *Client) insertOrderLines(ctx context.Context, companyID, orderID string, lines []models.DraftLine) error {
	endpoint := fmt.Sprintf("%s/companies(%s)/salesOrders(%s)/salesOrderLines", c.restBase, companyID, orderID)

	for _, line := range lines {
		req, err := c.request(ctx)
		if err != nil {
			return err
		}

		payload := map[string]any{
			"lineType":         "Item",
			"lineObjectNumber": line.ItemNo,
			"quantity":         line.Quantity,
		}
		if line.DiscountPercent.IsPositive() {
			payload["discountPercent"] = line.DiscountPercent
		}

		resp, err := req.SetBody(payload).Post(endpoint)
		if err != nil {
			return fmt.Errorf("insert order line for %s: %w", line.ItemNo, err)
		}
		if resp.IsError() {
			return responseError("insert order line for "+line.ItemNo, resp)
		}
	}
	return nil
}

func (c *Client) insertCommentLine(ctx context.Context, companyID, orderID, comments string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetBody(map[string]any{"lineType": "Comment", "description": comments}).
		Post(fmt.Sprintf("%s/companies(%s)/salesOrders(%s)/salesOrderLines", c.restBase, companyID, orderID))
	if err != nil {
		return fmt.Errorf("insert comment line: %w", err)
	}
	if resp.IsError() {
		return responseError("insert comment line", resp)
	}
	return nil
}

func (c *Client) patchDiscountAmount(ctx context.Context, companyID, orderID string, amount decimal.Decimal) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetHeader("If-Match", "*").
		SetBody(map[string]any{"discountAmount": amount}).
		Patch(fmt.Sprintf("%s/companies(%s)/salesOrders(%s)", c.restBase, companyID, orderID))
	if err != nil {
		return fmt.Errorf("update discount amount: %w", err)
	}
	if resp.IsError() {
		return responseError("update discount amount", resp)
	}
	return nil
}

// WriteReservations persists the allocation results as reservation entries.
// A positive selected quantity becomes a negative quantity at the sink:
// stock is being committed, reducing availability. Failures are per lot; a
// failed lot is logged and skipped so its siblings still land, and the
// collected failures are returned at the end.
func (c *Client) WriteReservations(ctx context.Context, orderNo string, results []models.AllocationResult) error {
	companyID, err := c.CompanyID(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/companies(%s)/ReservationEntries", c.customBase, companyID)
	var failures []error

	for _, result := range results {
		for _, lot := range result.SelectedLots {
			payload := map[string]any{
				"itemNo":            result.ItemNo,
				"locationCode":      result.LocationCode,
				"lotNo":             lot.LotNo,
				"quantityBase":      lot.SelectedQty.Neg(),
				"Quantity":          lot.SelectedQty.Neg(),
				"reservationStatus": "Prospect",
				"creationDate":      time.Now().UTC().Format("2006-01-02"),
				"sourceType":        37,  // 37 = Sales Line
				"sourceSubtype":     "1", // 1 = Order
				"sourceID":          orderNo,
				"sourceRefNo":       result.LineNo,
			}

			req, reqErr := c.request(ctx)
			if reqErr != nil {
				return reqErr
			}

			resp, postErr := req.SetBody(payload).Post(endpoint)
			switch {
			case postErr != nil:
				postErr = fmt.Errorf("reserve lot %s for %s line %d: %w", lot.LotNo, result.ItemNo, result.LineNo, postErr)
			case resp.IsError():
				postErr = responseError(fmt.Sprintf("reserve lot %s for %s line %d", lot.LotNo, result.ItemNo, result.LineNo), resp)
			}

			if postErr != nil {
				c.logger.Error("failed creating reservation entry",
					zap.String("order_no", orderNo),
					zap.String("lot_no", lot.LotNo),
					zap.String("item_no", result.ItemNo),
					zap.Error(postErr),
				)
				failures = append(failures, postErr)
				continue
			}

			c.logger.Info("reservation entry created",
				zap.String("order_no", orderNo),
				zap.String("lot_no", lot.LotNo),
				zap.String("item_no", result.ItemNo),
				zap.String("quantity", lot.SelectedQty.String()),
				zap.Int("line_no", result.LineNo),
			)
		}
	}

	return errors.Join(failures...)
}
