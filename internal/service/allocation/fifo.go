package allocation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// ErrInvalidQuantity is returned when an allocation is requested for a
// non-positive quantity. It is fatal to the single call only.
var ErrInvalidQuantity = errors.New("required quantity must be positive")

// poPattern captures the purchase-order token encoded in a lot number: the
// first run of characters between a literal '#' and the following '-', e.g.
// "L1#24060015-1520" carries PO "24060015".
var poPattern = regexp.MustCompile(`#([^-\s#/]+)-`)

// poToken extracts the purchase-order token from a lot number. Lot numbers
// without a match return the empty string; all of them share one catch-all
// group rather than failing.
func poToken(lotNo string) string {
	m := poPattern.FindStringSubmatch(lotNo)
	if m == nil {
		return ""
	}
	return m[1]
}

// Allocate selects lots for a single sales-order line using FIFO with
// purchase-order grouping:
//
//  1. each lot is tagged with the PO token extracted from its lot number,
//  2. lots are grouped by token,
//  3. within a group, lots are ordered by posting date ascending, ties
//     broken by lexical lot number,
//  4. groups are ordered by their earliest posting date ascending, ties
//     broken by lexical group key,
//  5. the flattened sequence is consumed until the requirement is met or
//     stock runs out.
//
// Lots with non-positive availability contribute nothing. Selected
// quantities are rounded to four decimals, as is the unfulfilled remainder.
// Insufficient stock is reported through UnfulfilledQty, not an error.
func (e *Engine) Allocate(req models.LineAllocationRequest) (models.AllocationResult, error) {
	if !req.RequiredQuantity.IsPositive() {
		return models.AllocationResult{}, fmt.Errorf("%w: got %s for item %s", ErrInvalidQuantity, req.RequiredQuantity, req.ItemNo)
	}

	result := models.AllocationResult{
		ItemNo:       req.ItemNo,
		LineNo:       req.LineNo,
		LocationCode: req.LocationCode,
		RequestedQty: req.RequiredQuantity,
		SelectedLots: []models.SelectedLot{},
	}

	type taggedLot struct {
		po  string
		lot models.AggregatedLot
	}

	groups := make(map[string][]taggedLot)
	for _, lot := range req.Lots {
		po := poToken(lot.LotNo)
		groups[po] = append(groups[po], taggedLot{po: po, lot: lot})
	}

	for _, members := range groups {
		sort.SliceStable(members, func(i, j int) bool {
			di, dj := members[i].lot.PostingDate, members[j].lot.PostingDate
			if !di.Equal(dj) {
				return di.Before(dj)
			}
			return members[i].lot.LotNo < members[j].lot.LotNo
		})
	}

	keys := make([]string, 0, len(groups))
	for po := range groups {
		keys = append(keys, po)
	}
	sort.Slice(keys, func(i, j int) bool {
		// Group members are sorted, so index 0 holds the earliest date.
		di := groups[keys[i]][0].lot.PostingDate
		dj := groups[keys[j]][0].lot.PostingDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return keys[i] < keys[j]
	})

	ordered := make([]taggedLot, 0, len(req.Lots))
	for _, po := range keys {
		ordered = append(ordered, groups[po]...)
	}

	remaining := req.RequiredQuantity
	for _, entry := range ordered {
		if !remaining.IsPositive() {
			break
		}

		take := decimal.Min(entry.lot.AvailableQuantity, remaining)
		if !take.IsPositive() {
			continue
		}

		result.SelectedLots = append(result.SelectedLots, models.SelectedLot{
			LotNo:       entry.lot.LotNo,
			POGroup:     entry.po,
			PostingDate: entry.lot.PostingDate.String(),
			SelectedQty: take.Round(selectionPrecision),
		})
		remaining = remaining.Sub(take)

		e.logger.Debug("allocated from lot",
			zap.String("item_no", req.ItemNo),
			zap.String("lot_no", entry.lot.LotNo),
			zap.String("po_group", entry.po),
			zap.String("taken", take.String()),
			zap.String("remaining_need", remaining.String()),
		)
	}

	result.UnfulfilledQty = remaining.Round(selectionPrecision)

	if result.UnfulfilledQty.IsPositive() {
		e.logger.Warn("allocation incomplete",
			zap.String("item_no", req.ItemNo),
			zap.Int("line_no", req.LineNo),
			zap.String("unfulfilled_qty", result.UnfulfilledQty.String()),
		)
	} else {
		e.logger.Info("allocation complete",
			zap.String("item_no", req.ItemNo),
			zap.Int("line_no", req.LineNo),
			zap.Int("selected_lots", len(result.SelectedLots)),
		)
	}

	return result, nil
}
