package services

import (
	"context"
	"testing"
	"time"

	"github.com/cars2u/pos/internal/domain"
)

func newTestPricingEngine(t *testing.T) PricingEngine {
	t.Helper()
	engine, err := NewCartPricingEngine(CartPricingEngineDeps{})
	if err != nil {
		t.Fatalf("NewCartPricingEngine returned error: %v", err)
	}
	return engine
}

func truckLine(quantity int) domain.CartLine {
	return domain.CartLine{
		ItemID:       "F150",
		PackageLabel: "XLT",
		Description:  "Ford F-150",
		UnitPrice:    3_000_000,
		Quantity:     quantity,
		Available:    5,
	}
}

func TestPriceNoDiscount(t *testing.T) {
	engine := newTestPricingEngine(t)

	totals := engine.Price(context.Background(), []domain.CartLine{truckLine(1)}, nil)
	if totals.Subtotal != 3_000_000 {
		t.Fatalf("unexpected subtotal %d", totals.Subtotal)
	}
	if totals.Discount != 0 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
	if totals.Tax != 247_500 {
		t.Fatalf("unexpected tax %d", totals.Tax)
	}
	if totals.Total != 3_247_500 {
		t.Fatalf("unexpected total %d", totals.Total)
	}
}

func TestPriceCartPercentage(t *testing.T) {
	engine := newTestPricingEngine(t)
	discount := &domain.Discount{
		ID:         "dsc_save10",
		Code:       "SAVE10",
		Level:      domain.DiscountLevelCart,
		Type:       domain.DiscountTypePercentage,
		Percentage: 0.10,
	}

	totals := engine.Price(context.Background(), []domain.CartLine{truckLine(1)}, discount)
	if totals.Discount != 300_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
	if totals.Tax != 222_750 {
		t.Fatalf("unexpected tax %d", totals.Tax)
	}
	if totals.Total != 2_922_750 {
		t.Fatalf("unexpected total %d", totals.Total)
	}
	if totals.DiscountClamped {
		t.Fatal("discount should not be clamped")
	}
}

func TestPriceItemFixedPerUnit(t *testing.T) {
	engine := newTestPricingEngine(t)
	discount := &domain.Discount{
		ID:           "dsc_f150save",
		Code:         "F150SAVE",
		Level:        domain.DiscountLevelItem,
		Type:         domain.DiscountTypeFixedAmount,
		DollarValue:  100_000,
		TargetItemID: "F150",
	}

	totals := engine.Price(context.Background(), []domain.CartLine{truckLine(2)}, discount)
	if totals.Subtotal != 6_000_000 {
		t.Fatalf("unexpected subtotal %d", totals.Subtotal)
	}
	// The fixed value deducts once per unit.
	if totals.Discount != 200_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
	if totals.Total != 6_278_500 {
		t.Fatalf("unexpected total %d", totals.Total)
	}
}

func TestPriceItemPercentageOnlyMatchingLines(t *testing.T) {
	engine := newTestPricingEngine(t)
	discount := &domain.Discount{
		ID:           "dsc_f150pct",
		Code:         "F150PCT",
		Level:        domain.DiscountLevelItem,
		Type:         domain.DiscountTypePercentage,
		Percentage:   0.05,
		TargetItemID: "F150",
	}
	lines := []domain.CartLine{
		truckLine(2),
		{ItemID: "MUST", PackageLabel: "GT", Description: "Ford Mustang", UnitPrice: 4_500_000, Quantity: 1, Available: 2},
	}

	totals := engine.Price(context.Background(), lines, discount)
	if totals.Subtotal != 10_500_000 {
		t.Fatalf("unexpected subtotal %d", totals.Subtotal)
	}
	if totals.Discount != 300_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
}

func TestPriceCartFixedClampedToSubtotal(t *testing.T) {
	engine := newTestPricingEngine(t)
	discount := &domain.Discount{
		ID:          "dsc_bigcut",
		Code:        "BIGCUT",
		Level:       domain.DiscountLevelCart,
		Type:        domain.DiscountTypeFixedAmount,
		DollarValue: 5_000_000,
	}

	totals := engine.Price(context.Background(), []domain.CartLine{truckLine(1)}, discount)
	if totals.Discount != 3_000_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
	if totals.Tax != 0 {
		t.Fatalf("unexpected tax %d", totals.Tax)
	}
	if totals.Total != 0 {
		t.Fatalf("unexpected total %d", totals.Total)
	}
	if !totals.DiscountClamped {
		t.Fatal("expected clamped discount")
	}
}

func TestPriceItemFixedClampedToLine(t *testing.T) {
	engine := newTestPricingEngine(t)
	discount := &domain.Discount{
		ID:           "dsc_floor",
		Code:         "FLOOR",
		Level:        domain.DiscountLevelItem,
		Type:         domain.DiscountTypeFixedAmount,
		DollarValue:  3_500_000,
		TargetItemID: "F150",
	}

	totals := engine.Price(context.Background(), []domain.CartLine{truckLine(2)}, discount)
	if totals.Discount != 6_000_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
	if !totals.DiscountClamped {
		t.Fatal("expected clamped discount")
	}
}

func TestPriceIsPure(t *testing.T) {
	engine := newTestPricingEngine(t)
	lines := []domain.CartLine{truckLine(2)}
	discount := &domain.Discount{
		ID:         "dsc_save10",
		Code:       "SAVE10",
		Level:      domain.DiscountLevelCart,
		Type:       domain.DiscountTypePercentage,
		Percentage: 0.10,
		StartDate:  time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}

	first := engine.Price(context.Background(), lines, discount)
	second := engine.Price(context.Background(), lines, discount)
	if first != second {
		t.Fatalf("repeated pricing diverged: %+v vs %+v", first, second)
	}
}
