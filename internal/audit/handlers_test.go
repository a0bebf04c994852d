package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerList(t *testing.T) {
	store := &stubStore{rows: []Entry{{Action: "settings.update", Method: http.MethodPut}}}
	h := Handler{Store: store, ResourceType: "finance.settings"}

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/history?limit=25&offset=10&resource=other", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ListParams{ResourceType: "finance.settings", Limit: 25, Offset: 10}, store.params)

	var payload struct {
		Data []Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
}

func TestHandlerListClampsPaging(t *testing.T) {
	store := &stubStore{}
	h := Handler{Store: store}

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/audit?limit=1000&offset=-4&resource=finance.settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ListParams{ResourceType: "finance.settings", Limit: 50, Offset: 0}, store.params)
	require.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestHandlerListWithoutStore(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler{}.List(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
