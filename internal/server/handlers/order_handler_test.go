package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oms-labs/lotpilot/internal/domain/models"
	"github.com/oms-labs/lotpilot/internal/repository/mongodb"
	"github.com/oms-labs/lotpilot/internal/server/handlers"
	"github.com/oms-labs/lotpilot/internal/server/router"
	"github.com/oms-labs/lotpilot/internal/service/orders"
)

type fakeERP struct {
	createErr  error
	reserveErr error
}

func (f *fakeERP) CreateSalesOrder(_ context.Context, _ models.SalesOrderDraft) (string, string, error) {
	if f.createErr != nil {
		return "", "", f.createErr
	}
	return "ord-1", "SO-1001", nil
}

func (f *fakeERP) WriteReservations(_ context.Context, _ string, _ []models.AllocationResult) error {
	return f.reserveErr
}

type fakeAllocator struct {
	allocation models.OrderAllocation
	err        error
}

func (f *fakeAllocator) AllocateOrder(_ context.Context, orderID string) (models.OrderAllocation, error) {
	if f.err != nil {
		return models.OrderAllocation{}, f.err
	}
	alloc := f.allocation
	alloc.OrderID = orderID
	return alloc, nil
}

type fakeReports struct {
	reports []models.AllocationReport
	err     error
}

func (f *fakeReports) SaveAllocationReport(_ context.Context, report models.AllocationReport) error {
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeReports) AllocationsByOrder(_ context.Context, _ string) ([]models.AllocationReport, error) {
	return f.reports, f.err
}

func newTestServer(t *testing.T, erp *fakeERP, allocator *fakeAllocator, reports *fakeReports) *httptest.Server {
	t.Helper()

	orderSvc := orders.NewService(erp, allocator, nil)

	// A typed nil would defeat the handler's nil checks.
	var store mongodb.Repository
	if reports != nil {
		store = reports
	}
	handler := handlers.NewOrderHandler(allocator, orderSvc, nil, store, nil)

	srv := httptest.NewServer(router.New(handler, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateOrderEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	body := `{"customer_no":"CUST-1","lines":[{"item_no":"ITEM-1","quantity":3}]}`
	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateOrderRejectsIncompleteDraft(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	body := `{"customer_no":"","lines":[]}`
	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrderUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &fakeERP{createErr: errors.New("bc down")}, &fakeAllocator{}, nil)

	body := `{"customer_no":"CUST-1","lines":[{"item_no":"ITEM-1","quantity":3}]}`
	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAllocateEndpoint(t *testing.T) {
	allocator := &fakeAllocator{allocation: models.OrderAllocation{
		Results: []models.AllocationResult{{ItemNo: "ITEM-1", LineNo: 10000}},
	}}
	srv := newTestServer(t, &fakeERP{}, allocator, nil)

	resp, err := http.Post(srv.URL+"/orders/ord-1/allocate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAllocateEndpointFailure(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{err: errors.New("order not found")}, nil)

	resp, err := http.Post(srv.URL+"/orders/ord-1/allocate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestReserveEndpointRequiresOrderNo(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	resp, err := http.Post(srv.URL+"/orders/ord-1/reservations", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReserveEndpoint(t *testing.T) {
	allocator := &fakeAllocator{allocation: models.OrderAllocation{
		Results: []models.AllocationResult{{ItemNo: "ITEM-1"}},
	}}
	srv := newTestServer(t, &fakeERP{}, allocator, nil)

	resp, err := http.Post(srv.URL+"/orders/ord-1/reservations", "application/json",
		strings.NewReader(`{"order_no":"SO-1001"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAllocationHistoryEndpoint(t *testing.T) {
	reports := &fakeReports{reports: []models.AllocationReport{{
		ID:        "rep-1",
		OrderID:   "ord-1",
		CreatedAt: time.Now().UTC(),
	}}}
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, reports)

	resp, err := http.Get(srv.URL + "/orders/ord-1/allocations")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAllocationHistoryWithoutStore(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	resp, err := http.Get(srv.URL + "/orders/ord-1/allocations")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestExtractWithoutIntake(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	resp, err := http.Post(srv.URL+"/extract", "application/json", strings.NewReader(`{"item_id":"doc-1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeERP{}, &fakeAllocator{}, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
