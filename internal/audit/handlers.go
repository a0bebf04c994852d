package audit

import (
	"net/http"

	"github.com/noah-isme/toko-finance/internal/common"
)

// Handler exposes HTTP endpoints for working with audit logs.
type Handler struct {
	Store Store
	// ResourceType pins the listing to one resource; empty honours ?resource=.
	ResourceType string
}

// List returns a page of audit logs, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	limit, _ := common.QueryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := common.QueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	resource := h.ResourceType
	if resource == "" {
		resource = r.URL.Query().Get("resource")
	}

	rows, err := h.Store.ListAuditLogs(r.Context(), ListParams{ResourceType: resource, Limit: limit, Offset: offset})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	if rows == nil {
		rows = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
