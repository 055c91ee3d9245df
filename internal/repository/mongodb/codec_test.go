package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

func sampleReport() models.AllocationReport {
	return models.AllocationReport{
		ID:        "b2f4c9e0-0000-0000-0000-000000000001",
		OrderID:   "order-1",
		CreatedAt: time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC),
		Allocation: models.OrderAllocation{
			OrderID: "order-1",
			LotList: []models.LineLots{{
				ItemNo:       "ITEM-1",
				LineNo:       10000,
				LocationCode: "MAIN",
				Quantity:     decimal.RequireFromString("12"),
				Lots: []models.AggregatedLot{{
					LotNo:             "A#PO1-1",
					RemainingQuantity: decimal.RequireFromString("7.5"),
					PostingDate:       models.NewDate(2024, time.March, 1),
					RequestedQuantity: decimal.RequireFromString("-2.5"),
					AvailableQuantity: decimal.RequireFromString("5"),
				}},
			}},
			Results: []models.AllocationResult{{
				ItemNo:       "ITEM-1",
				LineNo:       10000,
				LocationCode: "MAIN",
				RequestedQty: decimal.RequireFromString("12"),
				SelectedLots: []models.SelectedLot{{
					LotNo:       "A#PO1-1",
					POGroup:     "PO1",
					PostingDate: "2024-03-01",
					SelectedQty: decimal.RequireFromString("5"),
				}},
				UnfulfilledQty: decimal.RequireFromString("7"),
			}},
		},
	}
}

func TestReportDocRoundTrip(t *testing.T) {
	original := sampleReport()

	doc := toReportDoc(original)
	assert.Equal(t, "7.5", doc.LotList[0].Lots[0].RemainingQuantity)
	assert.Equal(t, "2024-03-01", doc.LotList[0].Lots[0].PostingDate)

	restored, err := fromReportDoc(doc)
	require.NoError(t, err)

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.OrderID, restored.OrderID)
	assert.True(t, original.CreatedAt.Equal(restored.CreatedAt))

	require.Len(t, restored.Allocation.LotList, 1)
	gotLot := restored.Allocation.LotList[0].Lots[0]
	wantLot := original.Allocation.LotList[0].Lots[0]
	assert.Equal(t, wantLot.LotNo, gotLot.LotNo)
	assert.True(t, wantLot.RemainingQuantity.Equal(gotLot.RemainingQuantity))
	assert.True(t, wantLot.RequestedQuantity.Equal(gotLot.RequestedQuantity))
	assert.True(t, wantLot.AvailableQuantity.Equal(gotLot.AvailableQuantity))
	assert.True(t, wantLot.PostingDate.Equal(gotLot.PostingDate))

	require.Len(t, restored.Allocation.Results, 1)
	gotRes := restored.Allocation.Results[0]
	wantRes := original.Allocation.Results[0]
	assert.True(t, wantRes.RequestedQty.Equal(gotRes.RequestedQty))
	assert.True(t, wantRes.UnfulfilledQty.Equal(gotRes.UnfulfilledQty))
	require.Len(t, gotRes.SelectedLots, 1)
	assert.Equal(t, "PO1", gotRes.SelectedLots[0].POGroup)
	assert.True(t, wantRes.SelectedLots[0].SelectedQty.Equal(gotRes.SelectedLots[0].SelectedQty))
}

func TestFromReportDocRejectsCorruptQuantities(t *testing.T) {
	doc := toReportDoc(sampleReport())
	doc.Results[0].RequestedQty = "not-a-number"

	_, err := fromReportDoc(doc)
	assert.Error(t, err)
}

func TestFromReportDocRejectsCorruptDates(t *testing.T) {
	doc := toReportDoc(sampleReport())
	doc.LotList[0].Lots[0].PostingDate = "garbage"

	_, err := fromReportDoc(doc)
	assert.Error(t, err)
}
