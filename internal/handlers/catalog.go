package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/platform/httpx"
	"github.com/cars2u/pos/internal/services"
)

// CatalogHandlers serves the customer-facing browse and search endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs handlers backed by the provided catalog service.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.browse)
	r.Get("/search", h.search)
	r.Get("/{itemID}", h.getItem)
}

type catalogItemPayload struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	PackageLabel string `json:"packageLabel"`
	Price        int64  `json:"price"`
	Available    int    `json:"available"`
	ForSale      bool   `json:"forSale"`
}

type catalogPagePayload struct {
	Items    []catalogItemPayload `json:"items"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Total    int                  `json:"total"`
}

func (h *CatalogHandlers) browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	page, err := queryPage(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	listing, err := h.catalog.Browse(ctx, page)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogPage(listing))
}

func (h *CatalogHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "q is required", http.StatusBadRequest))
		return
	}

	page, err := queryPage(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	listing, err := h.catalog.Search(ctx, term, page)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogPage(listing))
}

func (h *CatalogHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	item, err := h.catalog.Item(ctx, itemID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"item": buildCatalogItemPayload(item)})
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("item_not_found", "item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		writeCatalogUnavailable(ctx, w)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalog operation failed", http.StatusInternalServerError))
	}
}

func writeCatalogUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
}

func buildCatalogPage(page domain.Page[domain.CatalogItem]) catalogPagePayload {
	payload := catalogPagePayload{
		Items:    make([]catalogItemPayload, 0, len(page.Items)),
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
	}
	for _, item := range page.Items {
		payload.Items = append(payload.Items, buildCatalogItemPayload(item))
	}
	return payload
}

func buildCatalogItemPayload(item domain.CatalogItem) catalogItemPayload {
	return catalogItemPayload{
		ID:           item.ID,
		Description:  item.Description,
		PackageLabel: item.PackageLabel,
		Price:        item.Price,
		Available:    item.Quantity,
		ForSale:      item.ForSale,
	}
}
