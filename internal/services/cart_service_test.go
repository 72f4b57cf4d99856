package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cars2u/pos/internal/domain"
)

type stubCatalogRepo struct {
	items       map[string]domain.CatalogItem
	findErr     error
	adjustments []adjustment
	adjustErr   error
}

type adjustment struct {
	itemID string
	delta  int
}

func (s *stubCatalogRepo) FindByID(_ context.Context, itemID string) (domain.CatalogItem, error) {
	if s.findErr != nil {
		return domain.CatalogItem{}, s.findErr
	}
	item, ok := s.items[itemID]
	if !ok {
		return domain.CatalogItem{}, &stubRepoError{notFound: true}
	}
	return item, nil
}

func (s *stubCatalogRepo) ListForSale(context.Context, int, int) ([]domain.CatalogItem, int, error) {
	var items []domain.CatalogItem
	for _, item := range s.items {
		if item.ForSale {
			items = append(items, item)
		}
	}
	return items, len(items), nil
}

func (s *stubCatalogRepo) Search(context.Context, string, int, int) ([]domain.CatalogItem, int, error) {
	return nil, 0, nil
}

func (s *stubCatalogRepo) ListAll(context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	for _, item := range s.items {
		items = append(items, item)
	}
	return items, nil
}

func (s *stubCatalogRepo) ListRestock(context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	for _, item := range s.items {
		if item.ForSale && item.NeedsRestock() {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *stubCatalogRepo) Insert(_ context.Context, item domain.CatalogItem) error {
	if _, exists := s.items[item.ID]; exists {
		return &stubRepoError{conflict: true}
	}
	if s.items == nil {
		s.items = map[string]domain.CatalogItem{}
	}
	s.items[item.ID] = item
	return nil
}

func (s *stubCatalogRepo) Update(_ context.Context, item domain.CatalogItem) error {
	if _, exists := s.items[item.ID]; !exists {
		return &stubRepoError{notFound: true}
	}
	s.items[item.ID] = item
	return nil
}

func (s *stubCatalogRepo) AdjustQuantity(_ context.Context, itemID string, delta int, _ time.Time) error {
	if s.adjustErr != nil {
		return s.adjustErr
	}
	item, ok := s.items[itemID]
	if !ok {
		return &stubRepoError{notFound: true}
	}
	if item.Quantity+delta < 0 {
		return &stubRepoError{conflict: true}
	}
	item.Quantity += delta
	s.items[itemID] = item
	s.adjustments = append(s.adjustments, adjustment{itemID: itemID, delta: delta})
	return nil
}

func (s *stubCatalogRepo) SetForSale(_ context.Context, itemID string, forSale bool, _ time.Time) error {
	item, ok := s.items[itemID]
	if !ok {
		return &stubRepoError{notFound: true}
	}
	item.ForSale = forSale
	s.items[itemID] = item
	return nil
}

func testCatalog() *stubCatalogRepo {
	return &stubCatalogRepo{items: map[string]domain.CatalogItem{
		"F150": {
			ID: "F150", Description: "Ford F-150", PackageLabel: "XLT",
			Price: 3_000_000, Quantity: 3, ForSale: true, ReorderThreshold: 1,
		},
		"MUST": {
			ID: "MUST", Description: "Ford Mustang", PackageLabel: "GT",
			Price: 4_500_000, Quantity: 2, ForSale: true, ReorderThreshold: 1,
		},
		"EDSEL": {
			ID: "EDSEL", Description: "Ford Edsel", PackageLabel: "",
			Price: 1_000_000, Quantity: 4, ForSale: false,
		},
	}}
}

func newTestCartService(t *testing.T, catalog *stubCatalogRepo, discounts *stubDiscountRepo) CartService {
	t.Helper()
	if discounts == nil {
		discounts = &stubDiscountRepo{}
	}
	discountSvc := newTestDiscountService(t, discounts)
	pricing := newTestPricingEngine(t)
	svc, err := NewCartService(CartServiceDeps{
		Catalog:   catalog,
		Discounts: discountSvc,
		Pricing:   pricing,
		Clock:     testClock,
	})
	if err != nil {
		t.Fatalf("NewCartService returned error: %v", err)
	}
	return svc
}

func TestAddLineMergesByItemAndPackage(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("first AddLine returned error: %v", err)
	}
	mutation, err := svc.AddLine(ctx, "s1", "F150", "XLT", 1)
	if err != nil {
		t.Fatalf("second AddLine returned error: %v", err)
	}
	if mutation.Line.Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %d", mutation.Line.Quantity)
	}

	view, err := svc.View(ctx, "s1")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(view.Lines))
	}
}

func TestAddLineDistinctPackagesStaySeparate(t *testing.T) {
	catalog := testCatalog()
	catalog.items["F150"] = domain.CatalogItem{
		ID: "F150", Description: "Ford F-150", PackageLabel: "XLT",
		Price: 3_000_000, Quantity: 5, ForSale: true,
	}
	svc := newTestCartService(t, catalog, nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "XLT", 1); err != nil {
		t.Fatalf("AddLine XLT returned error: %v", err)
	}
	if _, err := svc.AddLine(ctx, "s1", "F150", "Lariat", 1); err != nil {
		t.Fatalf("AddLine Lariat returned error: %v", err)
	}

	view, err := svc.View(ctx, "s1")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(view.Lines))
	}
}

func TestAddLineDoesNotCheckStock(t *testing.T) {
	catalog := testCatalog()
	item := catalog.items["MUST"]
	item.Quantity = 0
	catalog.items["MUST"] = item
	svc := newTestCartService(t, catalog, nil)
	ctx := context.Background()

	mutation, err := svc.AddLine(ctx, "s1", "F150", "", 10)
	if err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	if mutation.Line.Quantity != 10 {
		t.Fatalf("expected requested quantity 10, got %d", mutation.Line.Quantity)
	}
	if mutation.Clamped {
		t.Fatal("adds must not clamp to stock")
	}

	if _, err := svc.AddLine(ctx, "s1", "MUST", "", 1); err != nil {
		t.Fatalf("zero-stock item must still be addable: %v", err)
	}
}

func TestSetQuantityKeepsUnitPriceSnapshot(t *testing.T) {
	catalog := testCatalog()
	svc := newTestCartService(t, catalog, nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	item := catalog.items["F150"]
	item.Price = 3_500_000
	catalog.items["F150"] = item

	mutation, err := svc.SetQuantity(ctx, "s1", "F150", "XLT", 2)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if mutation.Line.UnitPrice != 3_000_000 {
		t.Fatalf("expected add-time price 3000000, got %d", mutation.Line.UnitPrice)
	}
}

func TestSetQuantityClampsToStock(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	mutation, err := svc.SetQuantity(ctx, "s1", "F150", "XLT", 10)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if !mutation.Clamped {
		t.Fatal("expected clamp notification")
	}
	if mutation.Line.Quantity != 3 {
		t.Fatalf("expected quantity clamped to 3, got %d", mutation.Line.Quantity)
	}
}

func TestSetQuantityRejectsNonPositive(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	for _, quantity := range []int{0, -1} {
		if _, err := svc.SetQuantity(ctx, "s1", "F150", "XLT", quantity); !errors.Is(err, ErrCartInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrCartInvalidQuantity, got %v", quantity, err)
		}
	}
}

func TestAddLineRejectsRetiredAndUnknownItems(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "EDSEL", "", 1); !errors.Is(err, ErrCartItemUnavailable) {
		t.Fatalf("expected ErrCartItemUnavailable, got %v", err)
	}
	if _, err := svc.AddLine(ctx, "s1", "DELOREAN", "", 1); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestApplyDiscountReplacesPrevious(t *testing.T) {
	start, end := activeWindow()
	discounts := &stubDiscountRepo{byCode: map[string]domain.Discount{
		"SAVE10": {
			ID: "dsc_1", Code: "SAVE10", Level: domain.DiscountLevelCart,
			Type: domain.DiscountTypePercentage, Percentage: 0.10,
			StartDate: start, ExpirationDate: end,
		},
		"SAVE20": {
			ID: "dsc_2", Code: "SAVE20", Level: domain.DiscountLevelCart,
			Type: domain.DiscountTypePercentage, Percentage: 0.20,
			StartDate: start, ExpirationDate: end,
		},
	}}
	svc := newTestCartService(t, testCatalog(), discounts)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	if _, err := svc.ApplyDiscount(ctx, "s1", "SAVE10"); err != nil {
		t.Fatalf("first ApplyDiscount returned error: %v", err)
	}
	if _, err := svc.ApplyDiscount(ctx, "s1", "SAVE20"); err != nil {
		t.Fatalf("second ApplyDiscount returned error: %v", err)
	}

	view, err := svc.View(ctx, "s1")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if view.Discount == nil || view.Discount.Code != "SAVE20" {
		t.Fatalf("expected SAVE20 applied, got %+v", view.Discount)
	}
	// 3,000,000 - 20% = 2,400,000; tax 198,000.
	if view.Totals.Total != 2_598_000 {
		t.Fatalf("unexpected total %d", view.Totals.Total)
	}
}

func TestRemovingTargetLineDropsItemDiscount(t *testing.T) {
	start, end := activeWindow()
	discounts := &stubDiscountRepo{byCode: map[string]domain.Discount{
		"F150SAVE": {
			ID: "dsc_3", Code: "F150SAVE", Level: domain.DiscountLevelItem,
			Type: domain.DiscountTypeFixedAmount, DollarValue: 100_000,
			TargetItemID: "F150", StartDate: start, ExpirationDate: end,
		},
	}}
	svc := newTestCartService(t, testCatalog(), discounts)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 2); err != nil {
		t.Fatalf("AddLine F150 returned error: %v", err)
	}
	if _, err := svc.AddLine(ctx, "s1", "MUST", "", 1); err != nil {
		t.Fatalf("AddLine MUST returned error: %v", err)
	}
	if _, err := svc.ApplyDiscount(ctx, "s1", "F150SAVE"); err != nil {
		t.Fatalf("ApplyDiscount returned error: %v", err)
	}
	if err := svc.RemoveLine(ctx, "s1", "F150", "XLT"); err != nil {
		t.Fatalf("RemoveLine returned error: %v", err)
	}

	view, err := svc.View(ctx, "s1")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if view.Discount != nil {
		t.Fatalf("expected discount dropped, got %+v", view.Discount)
	}
	if view.Totals.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", view.Totals.Discount)
	}
}

func TestRemoveDiscountWithoutOne(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	if err := svc.RemoveDiscount(context.Background(), "s1"); !errors.Is(err, ErrCartNoDiscount) {
		t.Fatalf("expected ErrCartNoDiscount, got %v", err)
	}
}

func TestCartsAreIsolatedBySession(t *testing.T) {
	svc := newTestCartService(t, testCatalog(), nil)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	view, err := svc.View(ctx, "s2")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart for other session, got %d lines", len(view.Lines))
	}
}

func TestClearEmptiesCartAndDiscount(t *testing.T) {
	start, end := activeWindow()
	discounts := &stubDiscountRepo{byCode: map[string]domain.Discount{
		"SAVE10": {
			ID: "dsc_1", Code: "SAVE10", Level: domain.DiscountLevelCart,
			Type: domain.DiscountTypePercentage, Percentage: 0.10,
			StartDate: start, ExpirationDate: end,
		},
	}}
	svc := newTestCartService(t, testCatalog(), discounts)
	ctx := context.Background()

	if _, err := svc.AddLine(ctx, "s1", "F150", "", 1); err != nil {
		t.Fatalf("AddLine returned error: %v", err)
	}
	if _, err := svc.ApplyDiscount(ctx, "s1", "SAVE10"); err != nil {
		t.Fatalf("ApplyDiscount returned error: %v", err)
	}
	if err := svc.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	view, err := svc.View(ctx, "s1")
	if err != nil {
		t.Fatalf("View returned error: %v", err)
	}
	if len(view.Lines) != 0 || view.Discount != nil || view.Totals.Total != 0 {
		t.Fatalf("expected empty cart, got %+v", view)
	}
}
