// Package extraction turns photographed sales-order documents into
// structured drafts and resolves them against the Business Central
// catalogue.
package extraction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/domain/models"
	"github.com/oms-labs/lotpilot/pkg/clients/graph"
)

const searchTopK = 5

// DocumentStore lists and downloads the raw order documents.
type DocumentStore interface {
	ListFolder(ctx context.Context, folderPath string) ([]graph.DriveItem, error)
	Download(ctx context.Context, itemID string) ([]byte, string, error)
}

// Extractor transcribes a document into a sales order draft.
type Extractor interface {
	ExtractSalesOrder(ctx context.Context, document []byte, mimeType string) (models.SalesOrderDraft, error)
}

// Catalogue searches Business Central master data.
type Catalogue interface {
	SearchCustomers(ctx context.Context, query string, topK int) ([]models.CustomerMatch, error)
	SearchItems(ctx context.Context, query, category string, topK int) ([]models.ItemMatch, error)
}

// Service runs the extraction pipeline: download, transcribe, resolve.
type Service struct {
	store       DocumentStore
	ai          Extractor
	catalogue   Catalogue
	inboxFolder string
	logger      *zap.Logger
}

// NewService wires the extraction service.
func NewService(store DocumentStore, ai Extractor, catalogue Catalogue, inboxFolder string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		ai:          ai,
		catalogue:   catalogue,
		inboxFolder: inboxFolder,
		logger:      logger,
	}
}

// ListInbox returns the documents currently waiting in the inbox folder.
func (s *Service) ListInbox(ctx context.Context) ([]graph.DriveItem, error) {
	return s.store.ListFolder(ctx, s.inboxFolder)
}

// ExtractDocument downloads a document, transcribes it into a draft, and
// resolves customer and item numbers against the catalogue. Unresolved
// references are logged and left empty for operator review; they are not
// errors.
func (s *Service) ExtractDocument(ctx context.Context, itemID string) (models.SalesOrderDraft, error) {
	document, mimeType, err := s.store.Download(ctx, itemID)
	if err != nil {
		return models.SalesOrderDraft{}, fmt.Errorf("download document: %w", err)
	}

	draft, err := s.ai.ExtractSalesOrder(ctx, document, mimeType)
	if err != nil {
		return models.SalesOrderDraft{}, fmt.Errorf("extract sales order: %w", err)
	}

	s.resolveDraft(ctx, &draft)

	s.logger.Info("document extracted",
		zap.String("item_id", itemID),
		zap.String("customer_no", draft.CustomerNo),
		zap.Int("lines", len(draft.Lines)),
	)
	return draft, nil
}

func (s *Service) resolveDraft(ctx context.Context, draft *models.SalesOrderDraft) {
	if draft.CustomerNo == "" && draft.CustomerName != "" {
		matches, err := s.catalogue.SearchCustomers(ctx, draft.CustomerName, searchTopK)
		switch {
		case err != nil:
			s.logger.Warn("customer search failed", zap.String("query", draft.CustomerName), zap.Error(err))
		case len(matches) == 0:
			s.logger.Warn("no customer match", zap.String("query", draft.CustomerName))
		default:
			draft.CustomerNo = matches[0].Number
			if len(matches) > 1 {
				s.logger.Info("ambiguous customer match, using best hit",
					zap.String("query", draft.CustomerName),
					zap.String("chosen", matches[0].Number),
					zap.Int("candidates", len(matches)),
				)
			}
		}
	}

	for i := range draft.Lines {
		line := &draft.Lines[i]
		if line.ItemNo != "" || line.Description == "" {
			continue
		}

		matches, err := s.catalogue.SearchItems(ctx, line.Description, "", searchTopK)
		switch {
		case err != nil:
			s.logger.Warn("item search failed", zap.String("query", line.Description), zap.Error(err))
		case len(matches) == 0:
			s.logger.Warn("no item match", zap.String("query", line.Description))
		default:
			line.ItemNo = matches[0].Number
		}
	}
}
