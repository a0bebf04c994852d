package pricing

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-finance/internal/common"
)

const maxRequestBody = 1 << 20

// TierSource loads a product's volume discount table.
type TierSource interface {
	VolumeTiers(ctx context.Context, productID uuid.UUID) ([]VolumeTier, error)
}

// Handler exposes the pricing engine over HTTP.
type Handler struct {
	engine *Engine
	tiers  TierSource
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Engine *Engine
	Tiers  TierSource
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{engine: cfg.Engine, tiers: cfg.Tiers}
}

// Routes mounts the handler under /api/v1/pricing.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/lines", h.PriceLines)
	r.Post("/orders/summary", h.Summary)
	r.Post("/orders/breakdown", h.Breakdown)
	r.Get("/products/{productID}/volume-tiers", h.VolumeTiers)
}

// PriceLinesRequest is the body of POST /lines.
type PriceLinesRequest struct {
	Items            []LineItem `json:"items"`
	CouponPercentage float64    `json:"coupon_percentage"`
}

// SummaryRequest is the body of POST /orders/summary.
type SummaryRequest struct {
	Subtotal     Money    `json:"subtotal"`
	ShippingCost Money    `json:"shipping_cost"`
	SellerIDs    []string `json:"seller_ids"`
}

// BreakdownRequest is the body of POST /orders/breakdown.
type BreakdownRequest struct {
	Items    []PersistedLineItem `json:"items"`
	Metadata OrderMetadata       `json:"metadata"`
}

// VolumeTiersResponse describes a product's tiers relative to a quantity.
type VolumeTiersResponse struct {
	ProductID   string        `json:"product_id"`
	Quantity    int           `json:"quantity"`
	Tiers       []VolumeTier  `json:"tiers"`
	AppliedTier *VolumeTier   `json:"applied_tier,omitempty"`
	NextTier    *TierProgress `json:"next_tier,omitempty"`
}

// PriceLines handles POST /lines.
func (h *Handler) PriceLines(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req PriceLinesRequest
	if err := common.DecodeJSON(r, &req, maxRequestBody); err != nil {
		common.WriteError(w, err)
		return
	}
	if len(req.Items) == 0 {
		writeValidation(w, common.ValidationErrors{{Field: "items", Code: common.CodeRequired, Message: "at least one item is required"}})
		return
	}
	priced, err := h.engine.PriceOrder(req.Items, req.CouponPercentage)
	if err != nil {
		writeValidation(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": priced})
}

// Summary handles POST /orders/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req SummaryRequest
	if err := common.DecodeJSON(r, &req, maxRequestBody); err != nil {
		common.WriteError(w, err)
		return
	}
	summary, err := h.engine.SummarizeOrder(r.Context(), req.Subtotal, req.ShippingCost, req.SellerIDs)
	if err != nil {
		writeValidation(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// Breakdown handles POST /orders/breakdown.
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req BreakdownRequest
	if err := common.DecodeJSON(r, &req, maxRequestBody); err != nil {
		common.WriteError(w, err)
		return
	}
	errs := ValidateBreakdownInput(req.Items, req.Metadata)
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}
	out := make([]ItemDiscountBreakdown, 0, len(req.Items))
	for _, item := range req.Items {
		out = append(out, h.engine.ReconstructBreakdown(item, req.Metadata))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// VolumeTiers handles GET /products/{productID}/volume-tiers?quantity=N.
func (h *Handler) VolumeTiers(w http.ResponseWriter, r *http.Request) {
	if h.tiers == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "volume tiers not configured", nil)
		return
	}
	productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "productID")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "product id must be a UUID", nil)
		return
	}
	quantity, err := common.QueryInt(r, "quantity", 1)
	if err != nil || quantity < 1 {
		writeValidation(w, common.ValidationErrors{{Field: "quantity", Code: common.CodeInvalidQuantity, Message: "must be a positive integer"}})
		return
	}
	tiers, err := h.tiers.VolumeTiers(r.Context(), productID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	resp := VolumeTiersResponse{
		ProductID: productID.String(),
		Quantity:  quantity,
		Tiers:     tiers,
	}
	if tier, ok := ResolveTier(tiers, quantity); ok {
		resp.AppliedTier = &tier
	}
	if next, ok := NextTier(tiers, quantity); ok {
		resp.NextTier = &next
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

func writeValidation(w http.ResponseWriter, err error) {
	var errs common.ValidationErrors
	if errors.As(err, &errs) {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid pricing input", errs)
		return
	}
	common.WriteError(w, err)
}
