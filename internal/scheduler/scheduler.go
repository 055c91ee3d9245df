// Package scheduler polls the order-document inbox on a cron schedule and
// pushes completed drafts through order creation and lot reservation.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
	"github.com/oms-labs/lotpilot/pkg/clients/graph"
)

// Inbox is the extraction pipeline surface the scheduler drives.
type Inbox interface {
	ListInbox(ctx context.Context) ([]graph.DriveItem, error)
	ExtractDocument(ctx context.Context, itemID string) (models.SalesOrderDraft, error)
}

// OrderSink submits drafts and commits their reservations.
type OrderSink interface {
	CreateFromDraft(ctx context.Context, draft models.SalesOrderDraft) (string, string, error)
	AllocateAndReserve(ctx context.Context, orderID, orderNo string) (models.OrderAllocation, error)
}

// Scheduler runs the intake poll loop.
type Scheduler struct {
	cron   *cron.Cron
	inbox  Inbox
	orders OrderSink
	logger *zap.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewScheduler creates a scheduler for the given intake services.
func NewScheduler(inbox Inbox, orders OrderSink, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		inbox:  inbox,
		orders: orders,
		logger: logger,
		seen:   make(map[string]time.Time),
	}
}

// Start registers the poll job and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.pollInbox(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("intake scheduler started", zap.String("schedule", schedule))
	return nil
}

// Stop stops the cron loop and waits for a running poll to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("intake scheduler stopped")
}

func (s *Scheduler) pollInbox(ctx context.Context) {
	items, err := s.inbox.ListInbox(ctx)
	if err != nil {
		s.logger.Error("failed to list inbox", zap.Error(err))
		return
	}

	for _, item := range items {
		if !s.markSeen(item.ID) {
			continue
		}
		if !processableMIME(item.MIMEType) {
			s.logger.Debug("skipping unsupported document",
				zap.String("name", item.Name),
				zap.String("mime_type", item.MIMEType),
			)
			continue
		}
		s.processDocument(ctx, item)
	}
}

// markSeen records the item as handled and reports whether it was new.
// Items are marked before processing starts so a failing document is not
// retried on every poll; operators re-upload after fixing the document.
func (s *Scheduler) markSeen(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[itemID]; ok {
		return false
	}
	s.seen[itemID] = time.Now()
	return true
}

func (s *Scheduler) processDocument(ctx context.Context, item graph.DriveItem) {
	log := s.logger.With(zap.String("document", item.Name), zap.String("item_id", item.ID))
	log.Info("processing inbox document")

	draft, err := s.inbox.ExtractDocument(ctx, item.ID)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return
	}

	if draft.CustomerNo == "" {
		log.Warn("customer unresolved, leaving draft for manual entry",
			zap.String("customer_name", draft.CustomerName),
		)
		return
	}

	orderID, orderNo, err := s.orders.CreateFromDraft(ctx, draft)
	if err != nil {
		log.Error("order creation failed", zap.Error(err))
		return
	}

	if _, err := s.orders.AllocateAndReserve(ctx, orderID, orderNo); err != nil {
		log.Error("lot reservation failed", zap.String("order_no", orderNo), zap.Error(err))
		return
	}

	log.Info("document processed", zap.String("order_no", orderNo))
}

func processableMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}
