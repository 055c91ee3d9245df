package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// SalesOrderSource supplies the item lines of an existing sales order.
type SalesOrderSource interface {
	OrderLines(ctx context.Context, orderID string) ([]models.SalesOrderLine, error)
}

// LedgerSource supplies raw per-lot ledger facts for an item at a location.
// Implementations must return only rows with a non-empty lot number and a
// positive remaining quantity; the engine tolerates but logs violations.
type LedgerSource interface {
	LotLedgerEntries(ctx context.Context, itemNo, locationCode string) ([]models.LotRecord, error)
}

// ReservationSource supplies the aggregated signed reservation quantity per
// lot number. Absent keys imply a zero adjustment.
type ReservationSource interface {
	RequestedQuantities(ctx context.Context) (map[string]decimal.Decimal, error)
}

// LocationResolver maps a location record ID to its location code. An empty
// code signals an unresolvable location; the orchestrator skips the line.
type LocationResolver interface {
	LocationCode(ctx context.Context, locationID string) (string, error)
}

// ReportStore persists allocation reports for later audit.
type ReportStore interface {
	SaveAllocationReport(ctx context.Context, report models.AllocationReport) error
}

// Service orchestrates lot allocation across all lines of a sales order.
type Service struct {
	engine       *Engine
	orders       SalesOrderSource
	ledger       LedgerSource
	reservations ReservationSource
	locations    LocationResolver
	reports      ReportStore
	logger       *zap.Logger
}

// NewService wires the allocation orchestrator. reports may be nil, in which
// case no audit record is written.
func NewService(engine *Engine, orders SalesOrderSource, ledger LedgerSource, reservations ReservationSource, locations LocationResolver, reports ReportStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:       engine,
		orders:       orders,
		ledger:       ledger,
		reservations: reservations,
		locations:    locations,
		reports:      reports,
		logger:       logger,
	}
}

// AllocateOrder runs aggregation and FIFO allocation for every line of the
// order and returns both the raw per-line lot groupings and the final
// allocation results.
//
// A failure local to one line (unresolvable location, ledger fetch error,
// malformed lot data) is logged and excludes that line; it never aborts the
// siblings. Only failures fetching the order itself or the reservation map
// are fatal, since nothing can proceed without them.
func (s *Service) AllocateOrder(ctx context.Context, orderID string) (models.OrderAllocation, error) {
	lines, err := s.orders.OrderLines(ctx, orderID)
	if err != nil {
		return models.OrderAllocation{}, fmt.Errorf("fetch sales order lines: %w", err)
	}

	// One reservation snapshot per order, reused across all lines.
	requested, err := s.reservations.RequestedQuantities(ctx)
	if err != nil {
		return models.OrderAllocation{}, fmt.Errorf("fetch reservation entries: %w", err)
	}

	report := models.OrderAllocation{OrderID: orderID}

	for _, line := range lines {
		lineLogger := s.logger.With(
			zap.String("order_id", orderID),
			zap.String("item_no", line.ItemNo),
			zap.Int("line_no", line.Sequence),
		)

		locationCode, err := s.locations.LocationCode(ctx, line.LocationID)
		if err != nil {
			lineLogger.Error("failed resolving location, skipping line",
				zap.String("location_id", line.LocationID), zap.Error(err))
			continue
		}
		if locationCode == "" {
			lineLogger.Error("location resolved to empty code, skipping line",
				zap.String("location_id", line.LocationID))
			continue
		}

		records, err := s.ledger.LotLedgerEntries(ctx, line.ItemNo, locationCode)
		if err != nil {
			lineLogger.Error("failed querying lot ledger entries, skipping line", zap.Error(err))
			continue
		}

		lots := s.engine.Aggregate(records, requested)
		if len(lots) == 0 {
			lineLogger.Warn("no available lots for line", zap.String("location_code", locationCode))
			continue
		}

		report.LotList = append(report.LotList, models.LineLots{
			ItemNo:       line.ItemNo,
			LineNo:       line.Sequence,
			LocationCode: locationCode,
			Quantity:     line.Quantity,
			Lots:         lots,
		})

		result, err := s.engine.Allocate(models.LineAllocationRequest{
			ItemNo:           line.ItemNo,
			LineNo:           line.Sequence,
			LocationCode:     locationCode,
			RequiredQuantity: line.Quantity,
			Lots:             lots,
		})
		if err != nil {
			lineLogger.Error("failed allocating lots for line", zap.Error(err))
			continue
		}

		report.Results = append(report.Results, result)
	}

	s.logger.Info("order allocation completed",
		zap.String("order_id", orderID),
		zap.Int("lines_seen", len(lines)),
		zap.Int("lines_allocated", len(report.Results)),
	)

	if s.reports != nil {
		audit := models.AllocationReport{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			CreatedAt:  time.Now().UTC(),
			Allocation: report,
		}
		if err := s.reports.SaveAllocationReport(ctx, audit); err != nil {
			// Audit persistence is best effort; the allocation itself stands.
			s.logger.Error("failed saving allocation report", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	return report, nil
}
