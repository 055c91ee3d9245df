package businesscentral

import "github.com/shopspring/decimal"

// envelope is the OData collection wrapper used by every list endpoint.
type envelope[T any] struct {
	Value []T `json:"value"`
}

type company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type location struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

type salesOrderLine struct {
	ID               string          `json:"id"`
	Sequence         int             `json:"sequence"`
	LineType         string          `json:"lineType"`
	LineObjectNumber string          `json:"lineObjectNumber"`
	LocationID       string          `json:"locationId"`
	Quantity         decimal.Decimal `json:"quantity"`
}

// ledgerEntry mirrors the ItemLedgerEntries OData page exposed by the
// warehouse extension, hence the Pascal_Snake field names.
type ledgerEntry struct {
	EntryNo           int             `json:"Entry_No"`
	ItemNo            string          `json:"Item_No"`
	LotNo             string          `json:"Lot_No"`
	LocationCode      string          `json:"Location_Code"`
	PostingDate       string          `json:"Posting_Date"`
	RemainingQuantity decimal.Decimal `json:"Remaining_Quantity"`
}

type reservationEntry struct {
	LotNo    string          `json:"lotNo"`
	Quantity decimal.Decimal `json:"quantity"`
}

type customer struct {
	Number      string `json:"number"`
	DisplayName string `json:"displayName"`
	City        string `json:"city"`
	PhoneNumber string `json:"phoneNumber"`
}

type item struct {
	Number           string          `json:"number"`
	DisplayName      string          `json:"displayName"`
	ItemCategoryCode string          `json:"itemCategoryCode"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
}

type salesOrder struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// apiError is the standard Business Central error payload.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
