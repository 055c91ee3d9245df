package models

import "github.com/shopspring/decimal"

// SalesOrderLine is an item line on an existing Business Central sales
// order, as needed by the allocation orchestrator.
type SalesOrderLine struct {
	ID         string          `json:"id"`
	Sequence   int             `json:"sequence"`
	ItemNo     string          `json:"item_no"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// ShipToAddress holds the optional custom ship-to block of a sales order.
type ShipToAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
}

// DraftLine is one extracted order line. ItemNo is filled in during
// resolution against the Business Central item catalogue; Description keeps
// the raw extracted text for operator review.
type DraftLine struct {
	ItemNo          string          `json:"item_no"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// SalesOrderDraft is the structured result of extracting a photographed or
// handwritten sales order, ready to be pushed into Business Central once
// customer and item numbers are resolved.
type SalesOrderDraft struct {
	CustomerNo        string          `json:"customer_no"`
	CustomerName      string          `json:"customer_name"`
	ExternalDocNo     string          `json:"external_doc_no"`
	ShippingMethodID  string          `json:"shipping_method_id"`
	ShippingAgentCode string          `json:"shipping_agent_code"`
	ShipToName        string          `json:"ship_to_name"`
	ShipToAddress     *ShipToAddress  `json:"ship_to_address,omitempty"`
	Lines             []DraftLine     `json:"lines"`
	Comments          string          `json:"comments"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
}

// CustomerMatch is a catalogue hit from the customer search.
type CustomerMatch struct {
	Number      string `json:"number"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	PhoneNumber string `json:"phone_number"`
}

// ItemMatch is a catalogue hit from the item search.
type ItemMatch struct {
	Number      string          `json:"number"`
	DisplayName string          `json:"display_name"`
	Category    string          `json:"category"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}
