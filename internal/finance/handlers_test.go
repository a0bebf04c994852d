package finance_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/common"
	"github.com/noah-isme/toko-finance/internal/finance"
)

type settingsResponse struct {
	Data finance.Settings `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string                   `json:"code"`
		Details []common.ValidationError `json:"details"`
	} `json:"error"`
}

func newFinanceRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	svc := newTestService(t, repo, nil)
	r := chi.NewRouter()
	h := finance.NewHandler(svc)
	r.Route("/api/v1/admin/finance", func(r chi.Router) { h.Routes(r) })
	return r, repo
}

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSettingsHandlers(t *testing.T) {
	router, repo := newFinanceRouter(t)

	rec := send(t, router, http.MethodGet, "/api/v1/admin/finance/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, finance.DefaultSettings(), got.Data)

	rec = send(t, router, http.MethodPut, "/api/v1/admin/finance/settings",
		`{"platform_commission_rate":7,"shipping_seller_percentage":70,"shipping_max_seller_percentage":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.saved, 1)

	rec = send(t, router, http.MethodGet, "/api/v1/admin/finance/settings", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 7.0, got.Data.PlatformCommissionRate)
}

func TestSettingsHandlersValidation(t *testing.T) {
	router, repo := newFinanceRouter(t)

	rec := send(t, router, http.MethodPut, "/api/v1/admin/finance/settings",
		`{"platform_commission_rate":10,"shipping_seller_percentage":80,"shipping_max_seller_percentage":90}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.Equal(t, "shipping_max_seller_percentage", env.Error.Details[0].Field)
	require.Empty(t, repo.saved)

	rec = send(t, router, http.MethodPost, "/api/v1/admin/finance/settings/validate",
		`{"platform_commission_rate":10,"shipping_seller_percentage":80,"shipping_max_seller_percentage":40}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, router, http.MethodPost, "/api/v1/admin/finance/settings/validate",
		`{"platform_commission_rate":70,"shipping_seller_percentage":80,"shipping_max_seller_percentage":40}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = send(t, router, http.MethodPut, "/api/v1/admin/finance/settings", `{"platform_commission_rate":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.saved)
}
