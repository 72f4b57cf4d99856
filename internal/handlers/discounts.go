package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/platform/httpx"
	"github.com/cars2u/pos/internal/services"
)

// DiscountHandlers exposes the back-office discount endpoints plus the
// register's "which codes apply to this cart" lookup.
type DiscountHandlers struct {
	discounts services.DiscountService
	carts     services.CartService
}

const maxDiscountBodySize = 16 * 1024

const discountDateLayout = "2006-01-02"

// NewDiscountHandlers constructs handlers backed by the provided services.
func NewDiscountHandlers(discounts services.DiscountService, carts services.CartService) *DiscountHandlers {
	return &DiscountHandlers{discounts: discounts, carts: carts}
}

// Routes wires the /discounts endpoints onto the provided router.
func (h *DiscountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listDiscounts)
	r.Post("/", h.createDiscount)
	r.Delete("/{discountID}", h.deleteDiscount)
	r.Get("/applicable/{sessionID}", h.listApplicable)
}

type discountPayload struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	Description    string  `json:"description,omitempty"`
	Level          string  `json:"level"`
	Type           string  `json:"type"`
	Percentage     float64 `json:"percentage,omitempty"`
	DollarValue    int64   `json:"dollarValue,omitempty"`
	TargetItemID   string  `json:"targetItemId,omitempty"`
	StartDate      string  `json:"startDate"`
	ExpirationDate string  `json:"expirationDate"`
}

type createDiscountRequest struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	Level          string  `json:"level"`
	Type           string  `json:"type"`
	Percentage     float64 `json:"percentage"`
	DollarValue    int64   `json:"dollarValue"`
	TargetItemID   string  `json:"targetItemId"`
	StartDate      string  `json:"startDate"`
	ExpirationDate string  `json:"expirationDate"`
}

func (h *DiscountHandlers) listDiscounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeDiscountUnavailable(ctx, w)
		return
	}

	discounts, err := h.discounts.ListAll(ctx)
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"discounts": buildDiscountPayloads(discounts)})
}

func (h *DiscountHandlers) createDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeDiscountUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxDiscountBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req createDiscountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd, err := buildCreateDiscountCommand(req)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	discount, err := h.discounts.Create(ctx, cmd)
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"discount": buildDiscountPayload(discount)})
}

func (h *DiscountHandlers) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		writeDiscountUnavailable(ctx, w)
		return
	}

	discountID := strings.TrimSpace(chi.URLParam(r, "discountID"))
	if err := h.discounts.Delete(ctx, discountID); err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DiscountHandlers) listApplicable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil || h.carts == nil {
		writeDiscountUnavailable(ctx, w)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.View(ctx, sessionID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to read cart", http.StatusInternalServerError))
		return
	}

	discounts, err := h.discounts.ListApplicable(ctx, view.Lines)
	if err != nil {
		h.writeDiscountError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"discounts": buildDiscountPayloads(discounts)})
}

func (h *DiscountHandlers) writeDiscountError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrDiscountInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountConflict):
		httpx.WriteError(ctx, w, httpx.NewError("discount_conflict", "discount code already exists", http.StatusConflict))
	case errors.Is(err, services.ErrDiscountUnavailable):
		writeDiscountUnavailable(ctx, w)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("discount_error", "discount operation failed", http.StatusInternalServerError))
	}
}

func writeDiscountUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("discount_service_unavailable", "discount service is unavailable", http.StatusServiceUnavailable))
}

func buildCreateDiscountCommand(req createDiscountRequest) (services.CreateDiscountCommand, error) {
	cmd := services.CreateDiscountCommand{
		Code:         req.Code,
		Description:  req.Description,
		Percentage:   req.Percentage,
		DollarValue:  req.DollarValue,
		TargetItemID: req.TargetItemID,
	}

	switch strings.ToLower(strings.TrimSpace(req.Level)) {
	case "cart":
		cmd.Level = domain.DiscountLevelCart
	case "item":
		cmd.Level = domain.DiscountLevelItem
	default:
		return cmd, errors.New("level must be cart or item")
	}

	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "percentage":
		cmd.Type = domain.DiscountTypePercentage
	case "fixed_amount":
		cmd.Type = domain.DiscountTypeFixedAmount
	default:
		return cmd, errors.New("type must be percentage or fixed_amount")
	}

	start, err := time.Parse(discountDateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return cmd, errors.New("startDate must be formatted YYYY-MM-DD")
	}
	expiration, err := time.Parse(discountDateLayout, strings.TrimSpace(req.ExpirationDate))
	if err != nil {
		return cmd, errors.New("expirationDate must be formatted YYYY-MM-DD")
	}
	cmd.StartDate = start
	cmd.ExpirationDate = expiration
	return cmd, nil
}

func buildDiscountPayloads(discounts []domain.Discount) []discountPayload {
	payloads := make([]discountPayload, 0, len(discounts))
	for _, discount := range discounts {
		payloads = append(payloads, buildDiscountPayload(discount))
	}
	return payloads
}

func buildDiscountPayload(discount domain.Discount) discountPayload {
	return discountPayload{
		ID:             discount.ID,
		Code:           discount.Code,
		Description:    discount.Description,
		Level:          discount.Level.String(),
		Type:           discount.Type.String(),
		Percentage:     discount.Percentage,
		DollarValue:    discount.DollarValue,
		TargetItemID:   discount.TargetItemID,
		StartDate:      discount.StartDate.Format(discountDateLayout),
		ExpirationDate: discount.ExpirationDate.Format(discountDateLayout),
	}
}
