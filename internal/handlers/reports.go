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

// ReportHandlers triggers sales and inventory report runs.
type ReportHandlers struct {
	reports services.ReportService
}

const maxReportBodySize = 16 * 1024

// NewReportHandlers constructs handlers backed by the provided report service.
func NewReportHandlers(reports services.ReportService) *ReportHandlers {
	return &ReportHandlers{reports: reports}
}

// Routes wires the /reports endpoints onto the provided router.
func (h *ReportHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sales", h.salesReport)
	r.Post("/inventory", h.inventoryReport)
}

type salesReportRequest struct {
	Granularity string `json:"granularity"`
	Date        string `json:"date"`
}

type inventoryReportRequest struct {
	Scope string `json:"scope"`
}

type salesRowPayload struct {
	ItemID      string `json:"itemId"`
	Description string `json:"description"`
	Units       int    `json:"units"`
	Gross       int64  `json:"gross"`
}

type salesReportPayload struct {
	PeriodLabel string            `json:"periodLabel"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Orders      int               `json:"orders"`
	Rows        []salesRowPayload `json:"rows"`
	Gross       int64             `json:"gross"`
	Discounts   int64             `json:"discounts"`
	Tax         int64             `json:"tax"`
	Net         int64             `json:"net"`
	Path        string            `json:"path"`
}

func (h *ReportHandlers) salesReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reports == nil {
		writeReportUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxReportBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req salesReportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	ref := time.Now().UTC()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "date must be formatted YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		ref = parsed
	}

	granularity := services.ReportGranularity(strings.ToLower(strings.TrimSpace(req.Granularity)))
	report, path, err := h.reports.SalesReport(ctx, granularity, ref)
	if err != nil {
		h.writeReportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"report": buildSalesReportPayload(report, path)})
}

func (h *ReportHandlers) inventoryReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reports == nil {
		writeReportUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxReportBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req inventoryReportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	scope := services.InventoryScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	path, err := h.reports.InventoryReport(ctx, scope)
	if err != nil {
		h.writeReportError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"path": path})
}

func (h *ReportHandlers) writeReportError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrReportInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReportUnavailable):
		writeReportUnavailable(ctx, w)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("report_error", "report generation failed", http.StatusInternalServerError))
	}
}

func writeReportUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("report_service_unavailable", "report service is unavailable", http.StatusServiceUnavailable))
}

func buildSalesReportPayload(report domain.SalesReport, path string) salesReportPayload {
	payload := salesReportPayload{
		PeriodLabel: report.PeriodLabel,
		From:        report.From.Format("2006-01-02"),
		To:          report.To.Format("2006-01-02"),
		Orders:      report.Orders,
		Rows:        make([]salesRowPayload, 0, len(report.Rows)),
		Gross:       report.Gross,
		Discounts:   report.Discounts,
		Tax:         report.Tax,
		Net:         report.Net,
		Path:        path,
	}
	for _, row := range report.Rows {
		payload.Rows = append(payload.Rows, salesRowPayload{
			ItemID:      row.ItemID,
			Description: row.Description,
			Units:       row.Units,
			Gross:       row.Gross,
		})
	}
	return payload
}
