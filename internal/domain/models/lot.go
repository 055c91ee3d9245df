package models

import "github.com/shopspring/decimal"

// LotRecord is a single ledger-entry-derived row for a traceable inventory
// batch. Records are constructed fresh per ledger query and discarded after
// aggregation.
type LotRecord struct {
	LotNo             string          `json:"lot_no"`
	ItemNo            string          `json:"item_no"`
	LocationCode      string          `json:"location_code"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	PostingDate       Date            `json:"posting_date"`
}

// AggregatedLot is one row per distinct lot number within a line's lot set.
// RequestedQuantity is the signed reservation adjustment for the lot,
// conventionally negative because already-reserved stock reduces
// availability. AvailableQuantity may be negative for over-reserved lots;
// such lots contribute zero to allocation, never negative consumption.
type AggregatedLot struct {
	LotNo             string          `json:"lot_no"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	PostingDate       Date            `json:"posting_date"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
}

// LineAllocationRequest carries everything the allocator needs for one
// sales-order line.
type LineAllocationRequest struct {
	ItemNo           string          `json:"item_no"`
	LineNo           int             `json:"line_no"`
	LocationCode     string          `json:"location_code"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Lots             []AggregatedLot `json:"lots"`
}

// SelectedLot is one allocation decision: how much to take from which lot.
type SelectedLot struct {
	LotNo       string          `json:"lot_no"`
	POGroup     string          `json:"po_group"`
	PostingDate string          `json:"posting_date"`
	SelectedQty decimal.Decimal `json:"selected_qty"`
}

// AllocationResult is the allocator's output for one sales-order line.
// SelectedLots are in allocation order, not input order. UnfulfilledQty is a
// reported condition, never an error: it is positive when available stock
// could not cover the requested quantity.
type AllocationResult struct {
	ItemNo         string          `json:"item_no"`
	LineNo         int             `json:"line_no"`
	LocationCode   string          `json:"location_code"`
	RequestedQty   decimal.Decimal `json:"requested_qty"`
	SelectedLots   []SelectedLot   `json:"selected_lots"`
	UnfulfilledQty decimal.Decimal `json:"unfulfilled_qty"`
}

// LineLots is the raw per-line lot grouping produced before allocation, kept
// in the order report so callers can audit availability even for lines where
// allocation was skipped.
type LineLots struct {
	ItemNo       string          `json:"item_no"`
	LineNo       int             `json:"line_no"`
	LocationCode string          `json:"location_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	Lots         []AggregatedLot `json:"lots"`
}

// OrderAllocation is the per-order allocation report: the raw per-line lot
// groupings plus the final per-line allocation results.
type OrderAllocation struct {
	OrderID string             `json:"order_id"`
	LotList []LineLots         `json:"lot_list"`
	Results []AllocationResult `json:"selected_lots"`
}
