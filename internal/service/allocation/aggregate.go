// Package allocation implements the lot allocation engine: aggregation of
// raw ledger rows into per-lot availability, PO-grouped FIFO lot selection,
// and the per-order orchestration that ties both to Business Central data.
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// availablePrecision is the scale of the per-lot available quantity;
// selections and the unfulfilled remainder use selectionPrecision. Rounding
// is decimal.Round, half away from zero.
const (
	availablePrecision int32 = 2
	selectionPrecision int32 = 4
)

// Engine implements the pure lot computations. It holds no mutable state;
// identical input always produces identical output.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs the allocation engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Aggregate groups raw ledger rows by lot number, sums remaining quantity,
// takes the latest posting date per lot, merges in the signed reservation
// adjustment from requested (absent keys imply zero), and computes the
// available quantity rounded to two decimals.
//
// Lots with negative availability are passed through, not filtered; the
// allocator neutralizes them. Rows with non-positive remaining quantity
// violate the upstream ledger filter and are logged and dropped rather than
// silently folded into the sums. The result is ordered by lot number so
// aggregation output is deterministic regardless of ledger row order.
func (e *Engine) Aggregate(records []models.LotRecord, requested map[string]decimal.Decimal) []models.AggregatedLot {
	type group struct {
		remaining decimal.Decimal
		latest    models.Date
	}

	groups := make(map[string]*group)
	for _, rec := range records {
		if !rec.RemainingQuantity.IsPositive() {
			e.logger.Warn("dropping ledger row with non-positive remaining quantity",
				zap.String("lot_no", rec.LotNo),
				zap.String("item_no", rec.ItemNo),
				zap.String("remaining_quantity", rec.RemainingQuantity.String()),
			)
			continue
		}

		g, ok := groups[rec.LotNo]
		if !ok {
			g = &group{}
			groups[rec.LotNo] = g
		}
		g.remaining = g.remaining.Add(rec.RemainingQuantity)
		// Latest activity stands in for the lot's FIFO position. Whether the
		// first receipt date would better reflect FIFO intent is a pending
		// business review; this matches current warehouse practice.
		if g.latest.IsZero() || rec.PostingDate.After(g.latest) {
			g.latest = rec.PostingDate
		}
	}

	lots := make([]models.AggregatedLot, 0, len(groups))
	for lotNo, g := range groups {
		adj := requested[lotNo]
		lots = append(lots, models.AggregatedLot{
			LotNo:             lotNo,
			RemainingQuantity: g.remaining,
			PostingDate:       g.latest,
			RequestedQuantity: adj,
			AvailableQuantity: g.remaining.Add(adj).Round(availablePrecision),
		})
	}

	sort.Slice(lots, func(i, j int) bool { return lots[i].LotNo < lots[j].LotNo })
	return lots
}
