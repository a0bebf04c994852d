package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-finance/internal/common"
)

type envelope struct {
	Error common.ErrorBody `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.9:1234", want: "203.0.113.7"},
		{name: "garbage forwarded falls back to real ip", headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.2"}, remote: "10.0.0.9:1234", want: "198.51.100.2"},
		{name: "socket peer", remote: "10.0.0.9:1234", want: "10.0.0.9"},
		{name: "ipv6 peer", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, common.ClientIP(req))
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?quantity=12&bad=x", nil)

	n, err := common.QueryInt(req, "quantity", 1)
	require.NoError(t, err)
	require.Equal(t, 12, n)

	n, err = common.QueryInt(req, "missing", 7)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	n, err = common.QueryInt(req, "bad", 3)
	require.Error(t, err)
	require.Equal(t, 3, n)
}

func TestWriteErrorAppError(t *testing.T) {
	errs := common.ValidationErrors{}
	errs.Add("quantity", common.CodeInvalidQuantity, "must be at least 1, got %d", 0)
	appErr := common.NewAppError("VALIDATION_ERROR", "invalid input", http.StatusUnprocessableEntity, errs).WithDetails(errs)

	rr := httptest.NewRecorder()
	common.WriteError(rr, appErr)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "VALIDATION_ERROR", body.Code)
	require.NotNil(t, body.Details)
	require.ErrorAs(t, appErr, &errs)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "INTERNAL", body.Code)
	require.NotContains(t, rr.Body.String(), "connection refused")
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity": `))
	var dst map[string]any
	err := common.DecodeJSON(req, &dst, 0)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, "INVALID_JSON", appErr.Code)
}
