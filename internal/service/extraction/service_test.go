package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oms-labs/lotpilot/internal/domain/models"
	"github.com/oms-labs/lotpilot/pkg/clients/graph"
)

type fakeStore struct {
	items    []graph.DriveItem
	document []byte
	mimeType string
	err      error
}

func (f *fakeStore) ListFolder(_ context.Context, _ string) ([]graph.DriveItem, error) {
	return f.items, f.err
}

func (f *fakeStore) Download(_ context.Context, _ string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.document, f.mimeType, nil
}

type fakeExtractor struct {
	draft models.SalesOrderDraft
	err   error
}

func (f *fakeExtractor) ExtractSalesOrder(_ context.Context, _ []byte, _ string) (models.SalesOrderDraft, error) {
	return f.draft, f.err
}

type fakeCatalogue struct {
	customers    []models.CustomerMatch
	customerErr  error
	itemsByQuery map[string][]models.ItemMatch
}

func (f *fakeCatalogue) SearchCustomers(_ context.Context, _ string, _ int) ([]models.CustomerMatch, error) {
	return f.customers, f.customerErr
}

func (f *fakeCatalogue) SearchItems(_ context.Context, query, _ string, _ int) ([]models.ItemMatch, error) {
	return f.itemsByQuery[query], nil
}

func TestExtractDocumentResolvesReferences(t *testing.T) {
	store := &fakeStore{document: []byte("img"), mimeType: "image/jpeg"}
	extractor := &fakeExtractor{draft: models.SalesOrderDraft{
		CustomerName: "Acme Textiles",
		Lines: []models.DraftLine{
			{Description: "blue denim 12oz", Quantity: decimal.RequireFromString("40")},
			{Description: "unknown fabric", Quantity: decimal.RequireFromString("5")},
		},
	}}
	catalogue := &fakeCatalogue{
		customers: []models.CustomerMatch{{Number: "CUST-7", DisplayName: "Acme Textiles Ltd"}},
		itemsByQuery: map[string][]models.ItemMatch{
			"blue denim 12oz": {{Number: "ITEM-12", DisplayName: "Denim Blue 12oz"}},
		},
	}

	svc := NewService(store, extractor, catalogue, "SalesOrders/Inbox", nil)

	draft, err := svc.ExtractDocument(context.Background(), "item-1")
	require.NoError(t, err)

	assert.Equal(t, "CUST-7", draft.CustomerNo)
	assert.Equal(t, "ITEM-12", draft.Lines[0].ItemNo)
	// Unmatched lines stay unresolved for operator review.
	assert.Empty(t, draft.Lines[1].ItemNo)
}

func TestExtractDocumentKeepsExistingNumbers(t *testing.T) {
	store := &fakeStore{document: []byte("img"), mimeType: "image/jpeg"}
	extractor := &fakeExtractor{draft: models.SalesOrderDraft{
		CustomerNo: "CUST-1",
		Lines: []models.DraftLine{
			{ItemNo: "ITEM-1", Description: "already resolved", Quantity: decimal.RequireFromString("1")},
		},
	}}
	catalogue := &fakeCatalogue{
		customers: []models.CustomerMatch{{Number: "CUST-OTHER"}},
		itemsByQuery: map[string][]models.ItemMatch{
			"already resolved": {{Number: "ITEM-OTHER"}},
		},
	}

	svc := NewService(store, extractor, catalogue, "SalesOrders/Inbox", nil)

	draft, err := svc.ExtractDocument(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "CUST-1", draft.CustomerNo)
	assert.Equal(t, "ITEM-1", draft.Lines[0].ItemNo)
}

func TestExtractDocumentSearchFailuresAreNotFatal(t *testing.T) {
	store := &fakeStore{document: []byte("img"), mimeType: "image/jpeg"}
	extractor := &fakeExtractor{draft: models.SalesOrderDraft{CustomerName: "Acme"}}
	catalogue := &fakeCatalogue{customerErr: errors.New("bc down")}

	svc := NewService(store, extractor, catalogue, "SalesOrders/Inbox", nil)

	draft, err := svc.ExtractDocument(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Empty(t, draft.CustomerNo)
}

func TestExtractDocumentDownloadFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("graph 404")}
	svc := NewService(store, &fakeExtractor{}, &fakeCatalogue{}, "SalesOrders/Inbox", nil)

	_, err := svc.ExtractDocument(context.Background(), "item-1")
	assert.Error(t, err)
}

func TestExtractDocumentExtractionFailure(t *testing.T) {
	store := &fakeStore{document: []byte("img"), mimeType: "image/jpeg"}
	extractor := &fakeExtractor{err: errors.New("model refused")}
	svc := NewService(store, extractor, &fakeCatalogue{}, "SalesOrders/Inbox", nil)

	_, err := svc.ExtractDocument(context.Background(), "item-1")
	assert.Error(t, err)
}
