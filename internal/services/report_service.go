package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/repositories"
)

var (
	// ErrReportInvalidInput indicates a malformed request.
	ErrReportInvalidInput = errors.New("report service: invalid input")
	// ErrReportUnavailable indicates the backing store or filesystem failed.
	ErrReportUnavailable = errors.New("report service: unavailable")
)

// ReportServiceDeps wires the report service dependencies.
type ReportServiceDeps struct {
	Orders    repositories.OrderRepository
	Catalog   repositories.CatalogRepository
	OutputDir string
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type reportService struct {
	orders    repositories.OrderRepository
	catalog   repositories.CatalogRepository
	outputDir string
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewReportService validates dependencies and constructs a ReportService.
func NewReportService(deps ReportServiceDeps) (ReportService, error) {
	if deps.Orders == nil {
		return nil, errors.New("report service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("report service: catalog repository is required")
	}
	if strings.TrimSpace(deps.OutputDir) == "" {
		return nil, errors.New("report service: output directory is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &reportService{
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		outputDir: deps.OutputDir,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

func (s *reportService) SalesReport(ctx context.Context, granularity ReportGranularity, ref time.Time) (domain.SalesReport, string, error) {
	if ref.IsZero() {
		ref = s.clock()
	}
	from, to, label, err := salesWindow(granularity, ref)
	if err != nil {
		return domain.SalesReport{}, "", err
	}

	orders, err := s.orders.ListPlacedBetween(ctx, from, to)
	if err != nil {
		return domain.SalesReport{}, "", s.translateRepoError(err)
	}

	report := domain.SalesReport{PeriodLabel: label, From: from, To: to, Orders: len(orders)}
	byItem := make(map[string]*domain.SalesRow)
	for _, order := range orders {
		report.Gross += order.Subtotal
		report.Discounts += order.Discount
		report.Tax += order.Tax
		report.Net += order.Total

		lines, err := s.orders.ListLines(ctx, order.ID)
		if err != nil {
			return domain.SalesReport{}, "", s.translateRepoError(err)
		}
		for _, line := range lines {
			row, ok := byItem[line.ItemID]
			if !ok {
				row = &domain.SalesRow{ItemID: line.ItemID, Description: line.Description}
				byItem[line.ItemID] = row
			}
			row.Units += line.Quantity
			row.Gross += line.UnitPrice * int64(line.Quantity)
		}
	}
	for _, row := range byItem {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Description < report.Rows[j].Description })

	path, err := s.render(fmt.Sprintf("sales_%s_%s.html", granularity, label), salesReportTemplate, report)
	if err != nil {
		return domain.SalesReport{}, "", err
	}
	s.logger(ctx, "report_sales_generated", map[string]any{"period": label, "orders": report.Orders, "path": path})
	return report, path, nil
}

func (s *reportService) InventoryReport(ctx context.Context, scope InventoryScope) (string, error) {
	var (
		items []domain.CatalogItem
		err   error
	)
	switch scope {
	case InventoryScopeForSale:
		items, _, err = s.catalog.ListForSale(ctx, 0, -1)
	case InventoryScopeRestock:
		items, err = s.catalog.ListRestock(ctx)
	case InventoryScopeAll:
		items, err = s.catalog.ListAll(ctx)
	default:
		return "", fmt.Errorf("%w: unknown inventory scope %q", ErrReportInvalidInput, scope)
	}
	if err != nil {
		return "", s.translateRepoError(err)
	}

	data := struct {
		Scope       InventoryScope
		GeneratedAt time.Time
		Items       []domain.CatalogItem
	}{Scope: scope, GeneratedAt: s.clock(), Items: items}

	name := fmt.Sprintf("inventory_%s_%s.html", scope, s.clock().Format("20060102T150405"))
	path, err := s.render(name, inventoryReportTemplate, data)
	if err != nil {
		return "", err
	}
	s.logger(ctx, "report_inventory_generated", map[string]any{"scope": string(scope), "items": len(items), "path": path})
	return path, nil
}

func (s *reportService) RenderReceipt(ctx context.Context, snapshot domain.ReceiptSnapshot) (string, error) {
	if strings.TrimSpace(snapshot.OrderID) == "" {
		return "", fmt.Errorf("%w: order id is required", ErrReportInvalidInput)
	}
	path, err := s.render(fmt.Sprintf("receipt_%s.html", snapshot.OrderID), receiptTemplate, snapshot)
	if err != nil {
		return "", err
	}
	s.logger(ctx, "receipt_rendered", map[string]any{"order_id": snapshot.OrderID, "path": path})
	return path, nil
}

func (s *reportService) render(name string, tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: render %s: %v", ErrReportUnavailable, name, err)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	return path, nil
}

// salesWindow returns the half-open [from, to) interval covering ref at the
// requested granularity, plus a filename-safe label. Weeks start on Monday.
func salesWindow(granularity ReportGranularity, ref time.Time) (time.Time, time.Time, string, error) {
	day := domain.DateOnly(ref)
	switch granularity {
	case ReportGranularityDay:
		return day, day.AddDate(0, 0, 1), day.Format("2006-01-02"), nil
	case ReportGranularityWeek:
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := day.AddDate(0, 0, 1-weekday)
		year, week := start.ISOWeek()
		return start, start.AddDate(0, 0, 7), fmt.Sprintf("%04d-W%02d", year, week), nil
	case ReportGranularityMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), start.Format("2006-01"), nil
	default:
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: unknown granularity %q", ErrReportInvalidInput, granularity)
	}
}

func (s *reportService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrReportUnavailable, err)
}

var reportFuncs = template.FuncMap{
	"usd": domain.FormatUSD,
	"extended": func(line domain.OrderLine) int64 {
		return line.UnitPrice * int64(line.Quantity)
	},
}

var salesReportTemplate = template.Must(template.New("sales").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html>
<head><title>Cars2U Sales Report {{.PeriodLabel}}</title></head>
<body>
<h1>Cars2U Sales Report</h1>
<p>Period: {{.PeriodLabel}} ({{.From.Format "2006-01-02"}} to {{.To.Format "2006-01-02"}})</p>
<p>Orders: {{.Orders}}</p>
<table border="1">
<tr><th>Item</th><th>Description</th><th>Units</th><th>Gross</th></tr>
{{range .Rows}}<tr><td>{{.ItemID}}</td><td>{{.Description}}</td><td>{{.Units}}</td><td>{{usd .Gross}}</td></tr>
{{end}}</table>
<p>Gross: {{usd .Gross}}<br>
Discounts: {{usd .Discounts}}<br>
Tax: {{usd .Tax}}<br>
Net: {{usd .Net}}</p>
</body>
</html>
`))

var inventoryReportTemplate = template.Must(template.New("inventory").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html>
<head><title>Cars2U Inventory Report</title></head>
<body>
<h1>Cars2U Inventory Report ({{.Scope}})</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>
<table border="1">
<tr><th>Item</th><th>Description</th><th>Package</th><th>Price</th><th>On hand</th><th>Reorder at</th><th>For sale</th></tr>
{{range .Items}}<tr><td>{{.ID}}</td><td>{{.Description}}</td><td>{{.PackageLabel}}</td><td>{{usd .Price}}</td><td>{{.Quantity}}</td><td>{{.ReorderThreshold}}</td><td>{{.ForSale}}</td></tr>
{{end}}</table>
</body>
</html>
`))

var receiptTemplate = template.Must(template.New("receipt").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html>
<head><title>Cars2U Receipt {{.OrderID}}</title></head>
<body>
<h1>Cars2U</h1>
<p>Order {{.OrderID}}<br>
Date: {{.PlacedAt.Format "2006-01-02 15:04"}}<br>
Customer: {{.CustomerID}}{{if .EmployeeID}}<br>
Rung up by: {{.EmployeeID}}{{end}}<br>
Card: {{.CardNumberMasked}}</p>
<table border="1">
<tr><th>Description</th><th>Package</th><th>Qty</th><th>Unit price</th><th>Amount</th></tr>
{{range .Lines}}<tr><td>{{.Description}}</td><td>{{.PackageLabel}}</td><td>{{.Quantity}}</td><td>{{usd .UnitPrice}}</td><td>{{usd (extended .)}}</td></tr>
{{end}}</table>
<p>Subtotal: {{usd .Totals.Subtotal}}<br>
{{if .DiscountCode}}Discount ({{.DiscountCode}}): -{{usd .Totals.Discount}}<br>{{end}}
Tax: {{usd .Totals.Tax}}<br>
<b>Total: {{usd .Totals.Total}}</b></p>
<p>Thank you for shopping at Cars2U!</p>
</body>
</html>
`))
