package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestProductLifecycle(t *testing.T) {
	srv := NewServer()

	rec := do(t, srv, http.MethodPost, "/api/products", `{"name":"Lamp","description":"desk","price":19.5,"quantity":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[Product](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Lamp", created.Name)

	rec = do(t, srv, http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[Product](t, rec))

	rec = do(t, srv, http.MethodPut, "/api/products/1", `{"name":"Lamp XL","price":25,"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lamp XL", decode[Product](t, rec).Name)

	rec = do(t, srv, http.MethodGet, "/api/products/search?name=lamp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]Product](t, rec), 1)

	rec = do(t, srv, http.MethodDelete, "/api/products/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/products/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	logs := srv.Store().AuditLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, OpCreate, logs[0].Operation)
	assert.Equal(t, OpUpdate, logs[1].Operation)
	assert.Equal(t, OpDelete, logs[2].Operation)
	for _, l := range logs {
		assert.Equal(t, StatusSucceeded, l.Status)
		assert.Equal(t, "Product", l.EntityType)
		assert.NotEmpty(t, l.EventID)
	}
}

func TestCreateProduct_Invalid(t *testing.T) {
	srv := NewServer()

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"name":`},
		{"missing name", `{"price":1,"quantity":1}`},
		{"negative price", `{"name":"x","price":-1,"quantity":1}`},
		{"missing quantity", `{"name":"x","price":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/products", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	for _, l := range srv.Store().AuditLogs() {
		assert.Equal(t, StatusFailed, l.Status)
		assert.Equal(t, http.StatusBadRequest, l.HTTPStatusCode)
	}
}

func TestInvalidProductID(t *testing.T) {
	srv := NewServer()
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/products/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodDelete, "/api/products/0", "").Code)
}

func TestListAndDeleteAll(t *testing.T) {
	srv := NewServer()
	for _, name := range []string{"a", "b", "c"} {
		rec := do(t, srv, http.MethodPost, "/api/products", `{"name":"`+name+`","price":1,"quantity":1}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := decode[[]Product](t, do(t, srv, http.MethodGet, "/api/products", ""))
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "c", list[2].Name)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/products", "").Code)
	assert.Empty(t, decode[[]Product](t, do(t, srv, http.MethodGet, "/api/products", "")))
}

func TestAuditLogsEndpoint(t *testing.T) {
	srv := NewServer()

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"a","price":1,"quantity":1}`))
	req.Header.Set("X-Request-ID", "req-42")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	logs := decode[[]AuditLog](t, do(t, srv, http.MethodGet, "/api/audit-logs", ""))
	require.Len(t, logs, 1)
	assert.Equal(t, "req-42", logs[0].RequestID)
	require.NotNil(t, logs[0].EntityID)
	assert.Equal(t, int64(1), *logs[0].EntityID)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/audit-logs/all", "").Code)
	assert.Empty(t, srv.Store().AuditLogs())
}

func TestHealth(t *testing.T) {
	srv := NewServer(WithFaults(Faults{ErrorRate: 1}))
	rec := do(t, srv, http.MethodGet, "/actuator/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", decode[map[string]string](t, rec)["status"])
}

func TestFaults(t *testing.T) {
	t.Run("error rate", func(t *testing.T) {
		srv := NewServer(WithFaults(Faults{ErrorRate: 1}))
		rec := do(t, srv, http.MethodGet, "/api/products", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("latency", func(t *testing.T) {
		srv := NewServer(WithFaults(Faults{Latency: 30 * time.Millisecond}))
		start := time.Now()
		rec := do(t, srv, http.MethodGet, "/api/products", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})
}
