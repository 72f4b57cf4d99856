package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/platform/httpx"
	"github.com/cars2u/pos/internal/services"
)

// CartHandlers exposes the per-session cart endpoints used by the register.
type CartHandlers struct {
	carts services.CartService
}

const maxCartBodySize = 16 * 1024

// NewCartHandlers constructs handlers backed by the provided cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/{sessionID}", func(session chi.Router) {
		session.Get("/", h.getCart)
		session.Delete("/", h.clearCart)
		session.Post("/lines", h.addLine)
		session.Put("/lines", h.setQuantity)
		session.Delete("/lines/{itemID}", h.removeLine)
		session.Post("/discount", h.applyDiscount)
		session.Delete("/discount", h.removeDiscount)
	})
}

type cartLineRequest struct {
	ItemID       string `json:"itemId"`
	PackageLabel string `json:"packageLabel"`
	Quantity     int    `json:"quantity"`
}

type cartLinePayload struct {
	ItemID        string `json:"itemId"`
	PackageLabel  string `json:"packageLabel"`
	Description   string `json:"description"`
	UnitPrice     int64  `json:"unitPrice"`
	Quantity      int    `json:"quantity"`
	Available     int    `json:"available"`
	ExtendedPrice int64  `json:"extendedPrice"`
}

type totalsPayload struct {
	Subtotal        int64 `json:"subtotal"`
	Discount        int64 `json:"discount"`
	Tax             int64 `json:"tax"`
	Total           int64 `json:"total"`
	DiscountClamped bool  `json:"discountClamped,omitempty"`
}

type cartResponse struct {
	Lines    []cartLinePayload `json:"lines"`
	Discount *discountPayload  `json:"discount,omitempty"`
	Totals   totalsPayload     `json:"totals"`
}

type cartMutationResponse struct {
	Line    cartLinePayload `json:"line"`
	Clamped bool            `json:"clamped"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	view, err := h.carts.View(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartResponse(view))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, sessionID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) addLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	req, ok := h.decodeLineRequest(ctx, w, r)
	if !ok {
		return
	}

	mutation, err := h.carts.AddLine(ctx, sessionID, req.ItemID, req.PackageLabel, req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMutationResponse(mutation))
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	req, ok := h.decodeLineRequest(ctx, w, r)
	if !ok {
		return
	}

	mutation, err := h.carts.SetQuantity(ctx, sessionID, req.ItemID, req.PackageLabel, req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMutationResponse(mutation))
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	packageLabel := strings.TrimSpace(r.URL.Query().Get("package"))

	if err := h.carts.RemoveLine(ctx, sessionID, itemID, packageLabel); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) applyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req applyDiscountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	discount, err := h.carts.ApplyDiscount(ctx, sessionID, req.Code)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	payload := buildDiscountPayload(discount)
	writeJSONResponse(w, http.StatusOK, map[string]any{"discount": payload})
}

func (h *CartHandlers) removeDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w, r)
	if !ok {
		return
	}

	if err := h.carts.RemoveDiscount(ctx, sessionID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) requireSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return "", false
	}
	return sessionID, true
}

func (h *CartHandlers) decodeLineRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (cartLineRequest, bool) {
	var req cartLineRequest
	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return req, false
	}
	if strings.TrimSpace(req.ItemID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "itemId is required", http.StatusBadRequest))
		return req, false
	}
	return req, true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_quantity", "quantity must be a positive integer", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("item_unavailable", "item is not for sale", http.StatusConflict))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("line_not_found", "cart line not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartNoDiscount):
		httpx.WriteError(ctx, w, httpx.NewError("no_discount_applied", "no discount is applied to the cart", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("discount_not_found", "discount code is not valid for this cart", http.StatusNotFound))
	case errors.Is(err, services.ErrDiscountUnavailable), errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func buildCartResponse(view services.CartView) cartResponse {
	resp := cartResponse{
		Lines:  make([]cartLinePayload, 0, len(view.Lines)),
		Totals: buildTotalsPayload(view.Totals),
	}
	for _, line := range view.Lines {
		resp.Lines = append(resp.Lines, buildLinePayload(line))
	}
	if view.Discount != nil {
		payload := buildDiscountPayload(*view.Discount)
		resp.Discount = &payload
	}
	return resp
}

func buildMutationResponse(mutation services.CartMutation) cartMutationResponse {
	return cartMutationResponse{
		Line:    buildLinePayload(mutation.Line),
		Clamped: mutation.Clamped,
	}
}

func buildLinePayload(line domain.CartLine) cartLinePayload {
	return cartLinePayload{
		ItemID:        line.ItemID,
		PackageLabel:  line.PackageLabel,
		Description:   line.Description,
		UnitPrice:     line.UnitPrice,
		Quantity:      line.Quantity,
		Available:     line.Available,
		ExtendedPrice: line.ExtendedPrice(),
	}
}

func buildTotalsPayload(totals domain.Totals) totalsPayload {
	return totalsPayload{
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		Tax:             totals.Tax,
		Total:           totals.Total,
		DiscountClamped: totals.DiscountClamped,
	}
}
