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

// CheckoutHandlers turns a session's cart into an order.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

const maxCheckoutBodySize = 16 * 1024

// NewCheckoutHandlers constructs handlers backed by the provided checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{sessionID}", h.submit)
	r.Post("/validate-card", h.validateCard)
}

type cardRequest struct {
	Number string `json:"number"`
	CCV    string `json:"ccv"`
	Expiry string `json:"expiry"`
}

type checkoutRequest struct {
	CustomerID string      `json:"customerId"`
	EmployeeID string      `json:"employeeId"`
	Card       cardRequest `json:"card"`
}

type orderLinePayload struct {
	ItemID        string `json:"itemId"`
	PackageLabel  string `json:"packageLabel"`
	Description   string `json:"description"`
	UnitPrice     int64  `json:"unitPrice"`
	Quantity      int    `json:"quantity"`
	ExtendedPrice int64  `json:"extendedPrice"`
}

type receiptPayload struct {
	OrderID          string             `json:"orderId"`
	CustomerID       string             `json:"customerId"`
	EmployeeID       string             `json:"employeeId,omitempty"`
	DiscountCode     string             `json:"discountCode,omitempty"`
	CardNumberMasked string             `json:"cardNumberMasked"`
	Lines            []orderLinePayload `json:"lines"`
	Totals           totalsPayload      `json:"totals"`
	PlacedAt         string             `json:"placedAt"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "session id is required", http.StatusBadRequest))
		return
	}

	req, ok := h.decodeCheckoutRequest(ctx, w, r)
	if !ok {
		return
	}

	snapshot, err := h.checkout.Submit(ctx, services.CheckoutCommand{
		SessionID:  sessionID,
		CustomerID: req.CustomerID,
		EmployeeID: req.EmployeeID,
		Card: services.PaymentCard{
			Number: req.Card.Number,
			CCV:    req.Card.CCV,
			Expiry: req.Card.Expiry,
		},
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"receipt": buildReceiptPayload(snapshot)})
}

func (h *CheckoutHandlers) validateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req cardRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	if err := h.checkout.ValidateCard(ctx, services.PaymentCard{Number: req.Number, CCV: req.CCV, Expiry: req.Expiry}); err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"valid": true})
}

func (h *CheckoutHandlers) decodeCheckoutRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (checkoutRequest, bool) {
	var req checkoutRequest
	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return req, false
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "customerId is required", http.StatusBadRequest))
		return req, false
	}
	return req, true
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidCard):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_card_number", "card number must match ####-####-####-####", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidCCV):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_ccv", "ccv must be three digits", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutExpiryTooFar):
		httpx.WriteError(ctx, w, httpx.NewError("expiry_too_far", "expiration date is too far in the future", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutCardExpired):
		httpx.WriteError(ctx, w, httpx.NewError("card_expired", "card is expired", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidExpiry):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_expiry", "expiration date must be formatted MM/YY or MM/YYYY", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no lines to check out", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "stock changed while checking out; review the cart and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		writeCheckoutUnavailable(ctx, w)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout failed", http.StatusInternalServerError))
	}
}

func writeCheckoutUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
}

func buildReceiptPayload(snapshot domain.ReceiptSnapshot) receiptPayload {
	payload := receiptPayload{
		OrderID:          snapshot.OrderID,
		CustomerID:       snapshot.CustomerID,
		EmployeeID:       snapshot.EmployeeID,
		DiscountCode:     snapshot.DiscountCode,
		CardNumberMasked: snapshot.CardNumberMasked,
		Lines:            make([]orderLinePayload, 0, len(snapshot.Lines)),
		Totals:           buildTotalsPayload(snapshot.Totals),
		PlacedAt:         snapshot.PlacedAt.UTC().Format(time.RFC3339),
	}
	for _, line := range snapshot.Lines {
		payload.Lines = append(payload.Lines, orderLinePayload{
			ItemID:        line.ItemID,
			PackageLabel:  line.PackageLabel,
			Description:   line.Description,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			ExtendedPrice: line.UnitPrice * int64(line.Quantity),
		})
	}
	return payload
}
