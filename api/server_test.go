package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleettrack/core/assign"
	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/ledger"
	"github.com/kilianp07/fleettrack/core/model"
	"github.com/kilianp07/fleettrack/infra/logger"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *fleet.MemoryDirectory) {
	t.Helper()
	dir := fleet.NewMemoryDirectory()
	store := ledger.NewMemoryStore(dir)
	coord := ingest.NewCoordinator(dir, store, nil, nil, logger.NopLogger{})
	sel := assign.NewSelector(dir, nil, logger.NopLogger{})
	srv := NewServer(dir, store, coord, sel, assign.DefaultMinBattery, logger.NopLogger{})
	ts := httptest.NewServer(srv.Router(token))
	t.Cleanup(ts.Close)
	return ts, dir
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAndGetCart(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/carts", "", map[string]string{
		"identifier": "CART-01", "model": "club-car",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.Cart](t, resp)
	assert.Equal(t, model.StatusActive, created.Status)
	assert.Equal(t, float64(100), created.Battery)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/carts/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Cart](t, resp)
	assert.Equal(t, created.ID, got.ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/carts/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestTokenGuard(t *testing.T) {
	ts, _ := newTestServer(t, "sekret")
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/carts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/carts", "sekret", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// The device endpoint stays public.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/reports/device", "", map[string]any{
		"identifier": "GHOST", "latitude": 1.0, "longitude": 2.0,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode) // unauthenticated but resolved: cart unknown
	_ = resp.Body.Close()
}

func TestDeviceReportInheritsBattery(t *testing.T) {
	ts, dir := newTestServer(t, "")
	cart := fleet.NewCart("CART-02", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))
	require.NoError(t, dir.SetBattery(context.Background(), cart.ID, 55))

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/reports/device", "", map[string]any{
		"identifier": "CART-02", "latitude": 9.5, "longitude": -13.25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rep := decode[model.LocationReport](t, resp)
	assert.Equal(t, float64(55), rep.Battery)

	got, err := dir.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Position)
	assert.Equal(t, 9.5, got.Position.Latitude)
	assert.Equal(t, float64(55), got.Battery)
}

func TestReportValidationErrors(t *testing.T) {
	ts, dir := newTestServer(t, "")
	cart := fleet.NewCart("CART-03", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/reports", "", map[string]any{
		"cart_id": cart.ID, "latitude": 1.0, "longitude": 2.0, "battery": 101.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/reports", "", map[string]any{
		"cart_id": cart.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/reports/cart/"+cart.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hist := decode[[]model.LocationReport](t, resp)
	assert.Empty(t, hist, "rejected reports must not reach the ledger")
}

func TestHistoryAndDelete(t *testing.T) {
	ts, dir := newTestServer(t, "")
	cart := fleet.NewCart("CART-04", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/reports", "", map[string]any{
		"cart_id": cart.ID, "latitude": 1.0, "longitude": 2.0, "battery": 80.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rep := decode[model.LocationReport](t, resp)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/reports", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[[]model.AnnotatedReport](t, resp)
	require.Len(t, all, 1)
	assert.Equal(t, "CART-04", all[0].CartIdentifier)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/reports/"+rep.ID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/reports/"+rep.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/reports/cart/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAssignmentEndpoint(t *testing.T) {
	ts, dir := newTestServer(t, "")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/assignments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[assignmentResponse](t, resp)
	assert.False(t, empty.Assigned)
	assert.Nil(t, empty.Cart)

	a := model.Cart{ID: "1", Identifier: "A", Status: model.StatusActive, Battery: 40}
	b := model.Cart{ID: "2", Identifier: "B", Status: model.StatusActive, Battery: 40}
	require.NoError(t, dir.Create(context.Background(), a))
	require.NoError(t, dir.Create(context.Background(), b))

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/assignments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[assignmentResponse](t, resp)
	require.True(t, got.Assigned)
	assert.Equal(t, "A", got.Cart.Identifier)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/assignments?min_battery=40", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	excluded := decode[assignmentResponse](t, resp)
	assert.False(t, excluded.Assigned, "floor is exclusive")

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/assignments?min_battery=oops", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAssignmentConfiguredFloor(t *testing.T) {
	dir := fleet.NewMemoryDirectory()
	store := ledger.NewMemoryStore(dir)
	coord := ingest.NewCoordinator(dir, store, nil, nil, logger.NopLogger{})
	sel := assign.NewSelector(dir, nil, logger.NopLogger{})
	srv := NewServer(dir, store, coord, sel, 40, logger.NopLogger{})
	ts := httptest.NewServer(srv.Router(""))
	t.Cleanup(ts.Close)

	require.NoError(t, dir.Create(context.Background(), model.Cart{ID: "1", Identifier: "A", Status: model.StatusActive, Battery: 40}))

	// Without a query parameter the configured floor applies.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/assignments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[assignmentResponse](t, resp)
	assert.False(t, got.Assigned, "cart at the configured floor is excluded")

	// An explicit query parameter overrides the configured floor.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/assignments?min_battery=39", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[assignmentResponse](t, resp)
	require.True(t, got.Assigned)
	assert.Equal(t, "A", got.Cart.Identifier)
}

func TestAdminOverrideEndpoints(t *testing.T) {
	ts, dir := newTestServer(t, "")
	cart := fleet.NewCart("CART-05", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/carts/"+cart.ID+"/status", "", map[string]string{"status": "maintenance"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.Cart](t, resp)
	assert.Equal(t, model.StatusMaintenance, got.Status)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/carts/"+cart.ID+"/battery", "", map[string]float64{"battery": 64})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[model.Cart](t, resp)
	assert.Equal(t, float64(64), got.Battery)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/carts/"+cart.ID+"/status", "", map[string]string{"status": "warp"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestListCartsFilters(t *testing.T) {
	ts, dir := newTestServer(t, "")
	require.NoError(t, dir.Create(context.Background(), model.Cart{ID: "1", Identifier: "A", Status: model.StatusActive, Battery: 80}))
	require.NoError(t, dir.Create(context.Background(), model.Cart{ID: "2", Identifier: "B", Status: model.StatusInactive, Battery: 90}))

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/carts?status=active", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	carts := decode[[]model.Cart](t, resp)
	require.Len(t, carts, 1)
	assert.Equal(t, "A", carts[0].Identifier)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/carts?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
