package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// Quantities and dates are stored as strings. decimal.Decimal and
// models.Date keep their state in unexported fields, so the bson codec
// cannot round-trip them directly.

type reportDoc struct {
	ID        string        `bson:"_id"`
	OrderID   string        `bson:"order_id"`
	CreatedAt time.Time     `bson:"created_at"`
	LotList   []lineLotsDoc `bson:"lot_list"`
	Results   []resultDoc   `bson:"results"`
}

type lineLotsDoc struct {
	ItemNo       string             `bson:"item_no"`
	LineNo       int                `bson:"line_no"`
	LocationCode string             `bson:"location_code"`
	Quantity     string             `bson:"quantity"`
	Lots         []aggregatedLotDoc `bson:"lots"`
}

type aggregatedLotDoc struct {
	LotNo             string `bson:"lot_no"`
	RemainingQuantity string `bson:"remaining_quantity"`
	PostingDate       string `bson:"posting_date"`
	RequestedQuantity string `bson:"requested_quantity"`
	AvailableQuantity string `bson:"available_quantity"`
}

type resultDoc struct {
	ItemNo         string           `bson:"item_no"`
	LineNo         int              `bson:"line_no"`
	LocationCode   string           `bson:"location_code"`
	RequestedQty   string           `bson:"requested_qty"`
	SelectedLots   []selectedLotDoc `bson:"selected_lots"`
	UnfulfilledQty string           `bson:"unfulfilled_qty"`
}

type selectedLotDoc struct {
	LotNo       string `bson:"lot_no"`
	POGroup     string `bson:"po_group"`
	PostingDate string `bson:"posting_date"`
	SelectedQty string `bson:"selected_qty"`
}

func toReportDoc(report models.AllocationReport) reportDoc {
	doc := reportDoc{
		ID:        report.ID,
		OrderID:   report.OrderID,
		CreatedAt: report.CreatedAt,
	}
	for _, ll := range report.Allocation.LotList {
		lots := make([]aggregatedLotDoc, 0, len(ll.Lots))
		for _, lot := range ll.Lots {
			lots = append(lots, aggregatedLotDoc{
				LotNo:             lot.LotNo,
				RemainingQuantity: lot.RemainingQuantity.String(),
				PostingDate:       lot.PostingDate.String(),
				RequestedQuantity: lot.RequestedQuantity.String(),
				AvailableQuantity: lot.AvailableQuantity.String(),
			})
		}
		doc.LotList = append(doc.LotList, lineLotsDoc{
			ItemNo:       ll.ItemNo,
			LineNo:       ll.LineNo,
			LocationCode: ll.LocationCode,
			Quantity:     ll.Quantity.String(),
			Lots:         lots,
		})
	}
	for _, res := range report.Allocation.Results {
		selected := make([]selectedLotDoc, 0, len(res.SelectedLots))
		for _, sel := range res.SelectedLots {
			selected = append(selected, selectedLotDoc{
				LotNo:       sel.LotNo,
				POGroup:     sel.POGroup,
				PostingDate: sel.PostingDate,
				SelectedQty: sel.SelectedQty.String(),
			})
		}
		doc.Results = append(doc.Results, resultDoc{
			ItemNo:         res.ItemNo,
			LineNo:         res.LineNo,
			LocationCode:   res.LocationCode,
			RequestedQty:   res.RequestedQty.String(),
			SelectedLots:   selected,
			UnfulfilledQty: res.UnfulfilledQty.String(),
		})
	}
	return doc
}

func fromReportDoc(doc reportDoc) (models.AllocationReport, error) {
	report := models.AllocationReport{
		ID:        doc.ID,
		OrderID:   doc.OrderID,
		CreatedAt: doc.CreatedAt,
		Allocation: models.OrderAllocation{
			OrderID: doc.OrderID,
		},
	}
	for _, ll := range doc.LotList {
		qty, err := parseQty(ll.Quantity, "line quantity")
		if err != nil {
			return models.AllocationReport{}, err
		}
		lots := make([]models.AggregatedLot, 0, len(ll.Lots))
		for _, lot := range ll.Lots {
			parsed, err := fromAggregatedLotDoc(lot)
			if err != nil {
				return models.AllocationReport{}, err
			}
			lots = append(lots, parsed)
		}
		report.Allocation.LotList = append(report.Allocation.LotList, models.LineLots{
			ItemNo:       ll.ItemNo,
			LineNo:       ll.LineNo,
			LocationCode: ll.LocationCode,
			Quantity:     qty,
			Lots:         lots,
		})
	}
	for _, res := range doc.Results {
		requested, err := parseQty(res.RequestedQty, "requested quantity")
		if err != nil {
			return models.AllocationReport{}, err
		}
		unfulfilled, err := parseQty(res.UnfulfilledQty, "unfulfilled quantity")
		if err != nil {
			return models.AllocationReport{}, err
		}
		selected := make([]models.SelectedLot, 0, len(res.SelectedLots))
		for _, sel := range res.SelectedLots {
			selQty, err := parseQty(sel.SelectedQty, "selected quantity")
			if err != nil {
				return models.AllocationReport{}, err
			}
			selected = append(selected, models.SelectedLot{
				LotNo:       sel.LotNo,
				POGroup:     sel.POGroup,
				PostingDate: sel.PostingDate,
				SelectedQty: selQty,
			})
		}
		report.Allocation.Results = append(report.Allocation.Results, models.AllocationResult{
			ItemNo:         res.ItemNo,
			LineNo:         res.LineNo,
			LocationCode:   res.LocationCode,
			RequestedQty:   requested,
			SelectedLots:   selected,
			UnfulfilledQty: unfulfilled,
		})
	}
	return report, nil
}

func fromAggregatedLotDoc(doc aggregatedLotDoc) (models.AggregatedLot, error) {
	remaining, err := parseQty(doc.RemainingQuantity, "remaining quantity")
	if err != nil {
		return models.AggregatedLot{}, err
	}
	requested, err := parseQty(doc.RequestedQuantity, "requested quantity")
	if err != nil {
		return models.AggregatedLot{}, err
	}
	available, err := parseQty(doc.AvailableQuantity, "available quantity")
	if err != nil {
		return models.AggregatedLot{}, err
	}
	date, err := models.ParseDate(doc.PostingDate)
	if err != nil {
		return models.AggregatedLot{}, fmt.Errorf("stored posting date %q: %w", doc.PostingDate, err)
	}
	return models.AggregatedLot{
		LotNo:             doc.LotNo,
		RemainingQuantity: remaining,
		PostingDate:       date,
		RequestedQuantity: requested,
		AvailableQuantity: available,
	}, nil
}

func parseQty(s, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("stored %s %q: %w", what, s, err)
	}
	return d, nil
}
