package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cars2u/pos/internal/domain"
)

func newTestReportService(t *testing.T, orders *stubOrderRepo, catalog *stubCatalogRepo) ReportService {
	t.Helper()
	if orders == nil {
		orders = &stubOrderRepo{}
	}
	if catalog == nil {
		catalog = testCatalog()
	}
	svc, err := NewReportService(ReportServiceDeps{
		Orders:    orders,
		Catalog:   catalog,
		OutputDir: t.TempDir(),
		Clock:     testClock,
	})
	if err != nil {
		t.Fatalf("NewReportService returned error: %v", err)
	}
	return svc
}

func TestRenderReceiptWritesFile(t *testing.T) {
	svc := newTestReportService(t, nil, nil)

	snapshot := domain.ReceiptSnapshot{
		OrderID:          "ord_test",
		CustomerID:       "cust_42",
		DiscountCode:     "SAVE10",
		CardNumberMasked: "****-****-****-1234",
		Lines: []domain.OrderLine{{
			OrderID: "ord_test", ItemID: "F150", Description: "Ford F-150",
			PackageLabel: "XLT", UnitPrice: 3_000_000, Quantity: 1,
		}},
		Totals: domain.Totals{
			Subtotal: 3_000_000, Discount: 300_000, Tax: 222_750, Total: 2_922_750,
		},
		PlacedAt: testClock(),
	}

	path, err := svc.RenderReceipt(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("RenderReceipt returned error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("receipt file unreadable: %v", err)
	}
	html := string(content)
	for _, want := range []string{"ord_test", "Ford F-150", "$29,227.50", "SAVE10", "****-****-****-1234"} {
		if !strings.Contains(html, want) {
			t.Fatalf("receipt missing %q:\n%s", want, html)
		}
	}
}

func TestSalesReportAggregatesByItem(t *testing.T) {
	placed := testClock()
	orders := &stubOrderRepo{
		orders: []domain.Order{
			{ID: "ord_1", CustomerID: "c1", Subtotal: 3_000_000, Tax: 247_500, Total: 3_247_500, PlacedAt: placed},
			{ID: "ord_2", CustomerID: "c2", Subtotal: 6_000_000, Discount: 600_000, Tax: 445_500, Total: 5_845_500, PlacedAt: placed.Add(2 * time.Hour)},
		},
	}
	linesByOrder := map[string][]domain.OrderLine{
		"ord_1": {{OrderID: "ord_1", ItemID: "F150", Description: "Ford F-150", UnitPrice: 3_000_000, Quantity: 1}},
		"ord_2": {{OrderID: "ord_2", ItemID: "F150", Description: "Ford F-150", UnitPrice: 3_000_000, Quantity: 2}},
	}
	orders.linesFn = func(orderID string) []domain.OrderLine { return linesByOrder[orderID] }

	svc := newTestReportService(t, orders, nil)
	report, path, err := svc.SalesReport(context.Background(), ReportGranularityDay, placed)
	if err != nil {
		t.Fatalf("SalesReport returned error: %v", err)
	}
	if report.Orders != 2 {
		t.Fatalf("expected 2 orders, got %d", report.Orders)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected one aggregated row, got %+v", report.Rows)
	}
	row := report.Rows[0]
	if row.Units != 3 || row.Gross != 9_000_000 {
		t.Fatalf("unexpected row %+v", row)
	}
	if report.Net != 9_093_000 {
		t.Fatalf("unexpected net %d", report.Net)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if !strings.Contains(path, "2026-03-15") {
		t.Fatalf("unexpected report path %q", path)
	}
}

func TestSalesWindowBoundaries(t *testing.T) {
	ref := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC) // a Sunday

	from, to, label, err := salesWindow(ReportGranularityDay, ref)
	if err != nil {
		t.Fatalf("day window error: %v", err)
	}
	if !from.Equal(time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day window %s..%s", from, to)
	}
	if label != "2026-03-15" {
		t.Fatalf("unexpected label %q", label)
	}

	from, to, label, err = salesWindow(ReportGranularityWeek, ref)
	if err != nil {
		t.Fatalf("week window error: %v", err)
	}
	// Weeks run Monday through Sunday.
	if !from.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week window %s..%s", from, to)
	}
	if label != "2026-W11" {
		t.Fatalf("unexpected label %q", label)
	}

	from, to, _, err = salesWindow(ReportGranularityMonth, ref)
	if err != nil {
		t.Fatalf("month window error: %v", err)
	}
	if !from.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month window %s..%s", from, to)
	}

	if _, _, _, err := salesWindow(ReportGranularity("quarter"), ref); err == nil {
		t.Fatal("expected error for unknown granularity")
	}
}

func TestInventoryReportScopes(t *testing.T) {
	svc := newTestReportService(t, nil, testCatalog())

	path, err := svc.InventoryReport(context.Background(), InventoryScopeAll)
	if err != nil {
		t.Fatalf("InventoryReport returned error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file unreadable: %v", err)
	}
	if !strings.Contains(string(content), "Ford Edsel") {
		t.Fatal("all-items report should include retired items")
	}

	if _, err := svc.InventoryReport(context.Background(), InventoryScope("bogus")); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}
