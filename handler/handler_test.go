package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/franchise-admin/handler"
	"github.com/stevemurr/franchise-admin/metrics"
	"github.com/stevemurr/franchise-admin/store"
)

func setup(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	log, _ := test.NewNullLogger()
	h := handler.New(store.Static(s), handler.WithLogger(log), handler.WithMetrics(metrics.New()))
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func decodeJSONArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON(t, resp.Body)["status"])

	resp = do(t, http.MethodGet, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp.Body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["backend"])
}

func TestListFixtures(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decodeJSONArray(t, resp.Body)
	require.Len(t, users, 4)
	assert.Equal(t, "admin", users[0].(map[string]any)["username"])

	resp = do(t, http.MethodGet, ts.URL+"/api/companies", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeJSONArray(t, resp.Body))
}

func TestCreateLocationAppliesDefaults(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/locations", `{
		"locationName": "HQ", "locationType": "Office", "address": "1 Main St",
		"city": "Austin", "stateProvince": "TX", "zipPostalCode": "78701",
		"country": "United States of America", "currency": "USD"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeJSON(t, resp.Body)
	assert.Equal(t, float64(4), body["id"], "fixtures hold locations 1-3")
	assert.Nil(t, body["description"])
	assert.Equal(t, true, body["isActive"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotEmpty(t, body["updatedAt"])
}

func TestCreateIgnoresCallerID(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/products", `{"id": 1, "name": "Mug", "price": "9.00", "category": "Merch", "stock": 10}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(4), decodeJSON(t, resp.Body)["id"])

	resp = do(t, http.MethodGet, ts.URL+"/api/products/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "House Blend Coffee", decodeJSON(t, resp.Body)["name"])
}

func TestCreateValidation(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/users", `{"username": "x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, resp.Body)["detail"], "schema validation failed")

	resp = do(t, http.MethodPost, ts.URL+"/api/users", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/transactions", `{"storeId": 1, "amount": "5.00", "paymentMethod": "barter"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetUpdateDelete(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/users/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPatch, ts.URL+"/api/users/2", `{"role": "admin", "walletBalance": "175.00"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp.Body)
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, "175.00", body["walletBalance"])
	assert.Equal(t, "jsmith", body["username"], "fields outside the patch are kept")

	resp = do(t, http.MethodPatch, ts.URL+"/api/users/99", `{"role": "admin"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPatch, ts.URL+"/api/users/2", `{"role": "owner"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/users/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodDelete, ts.URL+"/api/users/2", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrdersAreJoined(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/orders/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON(t, resp.Body)
	assert.Equal(t, "#1001", body["orderNumber"])
	assert.Equal(t, "cdiaz", body["user"].(map[string]any)["username"])
	assert.Equal(t, "House Blend Coffee", body["product"].(map[string]any)["name"])

	// An order whose user does not exist still lists, with a placeholder.
	resp = do(t, http.MethodPost, ts.URL+"/api/orders", `{"orderNumber": "#2000", "userId": 42, "productId": 1, "amount": "1.00"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON(t, resp.Body)
	assert.Equal(t, "pending", created["status"])

	resp = do(t, http.MethodGet, ts.URL+"/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orders := decodeJSONArray(t, resp.Body)
	require.Len(t, orders, 4)
	last := orders[3].(map[string]any)
	assert.Equal(t, "Unknown User", last["user"].(map[string]any)["fullName"])
}

func TestSecondaryLookups(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/users/by-email/ben.wong@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), decodeJSON(t, resp.Body)["id"])

	resp = do(t, http.MethodGet, ts.URL+"/api/users/by-email/nobody@example.com", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/users/2/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSONArray(t, resp.Body), 1)

	resp = do(t, http.MethodPost, ts.URL+"/api/menus", `{"storeId": 7, "itemName": "Latte", "price": "4.50", "category": "Drinks"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/stores/7/menus", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSONArray(t, resp.Body), 1)
}

func TestDashboard(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/dashboard/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeJSON(t, resp.Body)
	assert.Equal(t, "47281.00", stats["totalRevenue"])
	assert.Equal(t, float64(2847), stats["activeUsers"])

	resp = do(t, http.MethodPatch, ts.URL+"/api/dashboard/stats", `{"totalOrders": 1300}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats = decodeJSON(t, resp.Body)
	assert.Equal(t, float64(1300), stats["totalOrders"])
	assert.Equal(t, "47281.00", stats["totalRevenue"])

	resp = do(t, http.MethodGet, ts.URL+"/api/dashboard/revenue", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSONArray(t, resp.Body), 7)

	resp = do(t, http.MethodGet, ts.URL+"/api/dashboard/activity", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decodeJSON(t, resp.Body), "pageViews")
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setup(t)

	do(t, http.MethodGet, ts.URL+"/api/users/1", "")
	do(t, http.MethodGet, ts.URL+"/api/coupons", "")
	do(t, http.MethodPost, ts.URL+"/api/dashboard/revenue", "")
	resp := do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := io.Copy(&buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `path="/api/users/{id}"`)
	assert.Contains(t, buf.String(), `method="GET",path="unmatched",status="404"`)
	assert.Contains(t, buf.String(), `method="POST",path="unmatched",status="405"`)
}

type unavailable struct{}

func (unavailable) Resolve(ctx context.Context) (store.Store, error) {
	return nil, errors.New("context canceled")
}

func TestStoreUnavailable(t *testing.T) {
	ts := httptest.NewServer(handler.New(unavailable{}))
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/api/users", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/coupons", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", decodeJSON(t, resp.Body)["detail"])
}
