// Package orders pushes extracted sales orders into Business Central and
// drives lot allocation with reservation write-back.
package orders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// ErrDraftIncomplete is returned when a draft cannot be submitted yet.
var ErrDraftIncomplete = errors.New("draft is not ready for submission")

// ERPClient is the Business Central surface this service needs.
type ERPClient interface {
	CreateSalesOrder(ctx context.Context, draft models.SalesOrderDraft) (string, string, error)
	WriteReservations(ctx context.Context, orderNo string, results []models.AllocationResult) error
}

// Allocator produces a lot allocation report for an order.
type Allocator interface {
	AllocateOrder(ctx context.Context, orderID string) (models.OrderAllocation, error)
}

// Service creates sales orders and commits their lot reservations.
type Service struct {
	erp       ERPClient
	allocator Allocator
	logger    *zap.Logger
}

// NewService wires the order service.
func NewService(erp ERPClient, allocator Allocator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{erp: erp, allocator: allocator, logger: logger}
}

// CreateFromDraft validates a draft and creates the sales order in Business
// Central, returning the new order's ID and number.
func (s *Service) CreateFromDraft(ctx context.Context, draft models.SalesOrderDraft) (string, string, error) {
	if err := validateDraft(draft); err != nil {
		return "", "", err
	}

	orderID, orderNo, err := s.erp.CreateSalesOrder(ctx, draft)
	if err != nil {
		return "", "", fmt.Errorf("create sales order: %w", err)
	}

	s.logger.Info("sales order submitted",
		zap.String("order_id", orderID),
		zap.String("order_no", orderNo),
		zap.String("customer_no", draft.CustomerNo),
	)
	return orderID, orderNo, nil
}

// AllocateAndReserve runs lot allocation for the order and writes the
// resulting selections back as reservation entries. The allocation report is
// returned even when the reservation write partially fails, so callers can
// see what was decided.
func (s *Service) AllocateAndReserve(ctx context.Context, orderID, orderNo string) (models.OrderAllocation, error) {
	allocation, err := s.allocator.AllocateOrder(ctx, orderID)
	if err != nil {
		return models.OrderAllocation{}, err
	}

	if len(allocation.Results) == 0 {
		s.logger.Warn("nothing to reserve for order", zap.String("order_id", orderID))
		return allocation, nil
	}

	if err := s.erp.WriteReservations(ctx, orderNo, allocation.Results); err != nil {
		return allocation, fmt.Errorf("write reservations: %w", err)
	}

	return allocation, nil
}

func validateDraft(draft models.SalesOrderDraft) error {
	if draft.CustomerNo == "" {
		return fmt.Errorf("%w: customer number is unresolved", ErrDraftIncomplete)
	}
	if len(draft.Lines) == 0 {
		return fmt.Errorf("%w: draft has no lines", ErrDraftIncomplete)
	}
	for i, line := range draft.Lines {
		if line.ItemNo == "" {
			return fmt.Errorf("%w: line %d has no item number (%q)", ErrDraftIncomplete, i+1, line.Description)
		}
		if !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d has non-positive quantity %s", ErrDraftIncomplete, i+1, line.Quantity)
		}
	}
	return nil
}
