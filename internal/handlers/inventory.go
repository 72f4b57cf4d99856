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

// InventoryHandlers exposes the back-office stock and item management endpoints.
type InventoryHandlers struct {
	inventory services.InventoryService
}

const maxInventoryBodySize = 16 * 1024

// NewInventoryHandlers constructs handlers backed by the provided inventory service.
func NewInventoryHandlers(inventory services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{inventory: inventory}
}

// Routes wires the /inventory endpoints onto the provided router.
func (h *InventoryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/low-stock", h.listLowStock)
	r.Post("/items", h.addItem)
	r.Put("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.retireItem)
	r.Get("/items/{itemID}/availability", h.availability)
	r.Post("/items/{itemID}/restock", h.restock)
}

type upsertItemRequest struct {
	Description      string `json:"description"`
	PackageLabel     string `json:"packageLabel"`
	Price            int64  `json:"price"`
	Quantity         int    `json:"quantity"`
	ReorderThreshold int    `json:"reorderThreshold"`
	ForSale          bool   `json:"forSale"`
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

type inventoryItemPayload struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	PackageLabel     string `json:"packageLabel"`
	Price            int64  `json:"price"`
	Quantity         int    `json:"quantity"`
	ReorderThreshold int    `json:"reorderThreshold"`
	ForSale          bool   `json:"forSale"`
	NeedsRestock     bool   `json:"needsRestock"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

func (h *InventoryHandlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	items, err := h.inventory.ListLowStock(ctx)
	if err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	payloads := make([]inventoryItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, buildInventoryItemPayload(item))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": payloads})
}

func (h *InventoryHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	req, ok := h.decodeUpsertRequest(ctx, w, r)
	if !ok {
		return
	}

	item, err := h.inventory.AddItem(ctx, services.UpsertItemCommand{
		Description:      req.Description,
		PackageLabel:     req.PackageLabel,
		Price:            req.Price,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		ForSale:          req.ForSale,
	})
	if err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"item": buildInventoryItemPayload(item)})
}

func (h *InventoryHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	req, ok := h.decodeUpsertRequest(ctx, w, r)
	if !ok {
		return
	}

	item, err := h.inventory.UpdateItem(ctx, services.UpsertItemCommand{
		ID:               itemID,
		Description:      req.Description,
		PackageLabel:     req.PackageLabel,
		Price:            req.Price,
		Quantity:         req.Quantity,
		ReorderThreshold: req.ReorderThreshold,
		ForSale:          req.ForSale,
	})
	if err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"item": buildInventoryItemPayload(item)})
}

func (h *InventoryHandlers) retireItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if err := h.inventory.Retire(ctx, itemID); err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InventoryHandlers) availability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	available, err := h.inventory.Availability(ctx, itemID)
	if err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"itemId": itemID, "available": available})
}

func (h *InventoryHandlers) restock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		writeInventoryUnavailable(ctx, w)
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	body, err := readLimitedBody(r, maxInventoryBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req restockRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	item, err := h.inventory.Restock(ctx, itemID, req.Quantity)
	if err != nil {
		h.writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"item": buildInventoryItemPayload(item)})
}

func (h *InventoryHandlers) decodeUpsertRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (upsertItemRequest, bool) {
	var req upsertItemRequest
	body, err := readLimitedBody(r, maxInventoryBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return req, false
	}
	return req, true
}

func (h *InventoryHandlers) writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryConflict):
		httpx.WriteError(ctx, w, httpx.NewError("inventory_conflict", "inventory state changed; retry", http.StatusConflict))
	case errors.Is(err, services.ErrInventoryUnavailable):
		writeInventoryUnavailable(ctx, w)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "inventory operation failed", http.StatusInternalServerError))
	}
}

func writeInventoryUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
}

func buildInventoryItemPayload(item domain.CatalogItem) inventoryItemPayload {
	payload := inventoryItemPayload{
		ID:               item.ID,
		Description:      item.Description,
		PackageLabel:     item.PackageLabel,
		Price:            item.Price,
		Quantity:         item.Quantity,
		ReorderThreshold: item.ReorderThreshold,
		ForSale:          item.ForSale,
		NeedsRestock:     item.NeedsRestock(),
	}
	if !item.CreatedAt.IsZero() {
		payload.CreatedAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !item.UpdatedAt.IsZero() {
		payload.UpdatedAt = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return payload
}
