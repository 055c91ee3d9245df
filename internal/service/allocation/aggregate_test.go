package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

func record(lotNo string, d models.Date, remaining string) models.LotRecord {
	return models.LotRecord{
		LotNo:             lotNo,
		ItemNo:            "ITEM-1",
		LocationCode:      "MAIN",
		RemainingQuantity: dec(remaining),
		PostingDate:       d,
	}
}

func TestAggregateSumsAndTakesLatestDate(t *testing.T) {
	engine := NewEngine(nil)

	lots := engine.Aggregate([]models.LotRecord{
		record("L1#PO1-1", date(2024, time.January, 5), "3"),
		record("L1#PO1-1", date(2024, time.March, 2), "4"),
		record("L2#PO2-1", date(2024, time.February, 1), "6"),
	}, nil)

	require.Len(t, lots, 2)
	assert.Equal(t, "L1#PO1-1", lots[0].LotNo)
	assert.True(t, lots[0].RemainingQuantity.Equal(dec("7")))
	assert.Equal(t, "2024-03-02", lots[0].PostingDate.String())
	assert.True(t, lots[0].AvailableQuantity.Equal(dec("7")))
	assert.Equal(t, "L2#PO2-1", lots[1].LotNo)
	assert.True(t, lots[1].AvailableQuantity.Equal(dec("6")))
}

func TestAggregateMergesReservationAdjustment(t *testing.T) {
	engine := NewEngine(nil)

	requested := map[string]decimal.Decimal{
		"L1": dec("-4"),
		// Keys for lots not in the ledger are simply unused.
		"L9": dec("-100"),
	}

	lots := engine.Aggregate([]models.LotRecord{
		record("L1", date(2024, time.January, 1), "10"),
		record("L2", date(2024, time.January, 2), "5"),
	}, requested)

	require.Len(t, lots, 2)
	assert.True(t, lots[0].RequestedQuantity.Equal(dec("-4")))
	assert.True(t, lots[0].AvailableQuantity.Equal(dec("6")))
	// Absent key implies a zero adjustment.
	assert.True(t, lots[1].RequestedQuantity.IsZero())
	assert.True(t, lots[1].AvailableQuantity.Equal(dec("5")))
}

func TestAggregateRoundsAvailabilityToTwoDecimals(t *testing.T) {
	engine := NewEngine(nil)

	lots := engine.Aggregate([]models.LotRecord{
		record("L1", date(2024, time.January, 1), "3.333"),
		record("L1", date(2024, time.January, 2), "3.333"),
	}, map[string]decimal.Decimal{"L1": dec("-0.001")})

	require.Len(t, lots, 1)
	// Raw sum 6.666 - 0.001 = 6.665, half away from zero at two decimals.
	assert.True(t, lots[0].AvailableQuantity.Equal(dec("6.67")), "got %s", lots[0].AvailableQuantity)
	// The unrounded sum is preserved for audit.
	assert.True(t, lots[0].RemainingQuantity.Equal(dec("6.666")))
}

func TestAggregateNegativeAvailabilityPassesThrough(t *testing.T) {
	engine := NewEngine(nil)

	lots := engine.Aggregate([]models.LotRecord{
		record("L1", date(2024, time.January, 1), "2"),
	}, map[string]decimal.Decimal{"L1": dec("-5")})

	require.Len(t, lots, 1)
	assert.True(t, lots[0].AvailableQuantity.Equal(dec("-3")))
}

func TestAggregateDropsNonPositiveRows(t *testing.T) {
	engine := NewEngine(nil)

	lots := engine.Aggregate([]models.LotRecord{
		record("L1", date(2024, time.January, 1), "0"),
		record("L1", date(2024, time.January, 2), "-2"),
		record("L2", date(2024, time.January, 3), "4"),
	}, nil)

	require.Len(t, lots, 1)
	assert.Equal(t, "L2", lots[0].LotNo)
}

func TestAggregateEmptyInput(t *testing.T) {
	engine := NewEngine(nil)

	lots := engine.Aggregate(nil, nil)
	assert.NotNil(t, lots)
	assert.Empty(t, lots)
}

func TestAggregateDeterministicOrder(t *testing.T) {
	engine := NewEngine(nil)

	forward := engine.Aggregate([]models.LotRecord{
		record("B", date(2024, time.January, 1), "1"),
		record("A", date(2024, time.January, 2), "2"),
		record("C", date(2024, time.January, 3), "3"),
	}, nil)
	reversed := engine.Aggregate([]models.LotRecord{
		record("C", date(2024, time.January, 3), "3"),
		record("A", date(2024, time.January, 2), "2"),
		record("B", date(2024, time.January, 1), "1"),
	}, nil)

	assert.Equal(t, forward, reversed)
	assert.Equal(t, "A", forward[0].LotNo)
	assert.Equal(t, "B", forward[1].LotNo)
	assert.Equal(t, "C", forward[2].LotNo)
}
