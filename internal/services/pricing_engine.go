package services

import (
	"context"
	"math"

	"github.com/cars2u/pos/internal/domain"
)

// Sales tax applied at the register, matching the store's home county rate.
const taxRate = 0.0825

// CartPricingEngineDeps configures the pricing engine.
type CartPricingEngineDeps struct {
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type cartPricingEngine struct {
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewCartPricingEngine constructs the engine used for every totals
// computation in the terminal.
func NewCartPricingEngine(deps CartPricingEngineDeps) (PricingEngine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartPricingEngine{logger: logger}, nil
}

// Price recomputes the full breakdown from scratch. Lines with non-positive
// quantities contribute nothing.
func (e *cartPricingEngine) Price(ctx context.Context, lines []domain.CartLine, discount *domain.Discount) domain.Totals {
	var subtotal int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal += line.ExtendedPrice()
	}

	totals := domain.Totals{Subtotal: subtotal}
	if discount != nil {
		amount, clamped := discountAmount(lines, subtotal, *discount)
		totals.Discount = amount
		totals.DiscountClamped = clamped
		if clamped {
			e.logger(ctx, "pricing_discount_clamped", map[string]any{
				"discount_id": discount.ID,
				"code":        discount.Code,
				"subtotal":    subtotal,
				"amount":      amount,
			})
		}
	}

	net := subtotal - totals.Discount
	totals.Tax = roundCents(float64(net) * taxRate)
	totals.Total = net + totals.Tax
	return totals
}

// discountAmount computes the deduction for one discount, clamping it so the
// taxable base never goes negative.
//
// Fixed item discounts deduct the dollar value once per unit of the matching
// lines, while fixed cart discounts deduct the value once for the whole cart.
// The asymmetry is long-standing register behaviour that printed receipts and
// historic orders rely on.
func discountAmount(lines []domain.CartLine, subtotal int64, discount domain.Discount) (int64, bool) {
	var amount int64
	clamped := false

	switch discount.Level {
	case domain.DiscountLevelCart:
		switch discount.Type {
		case domain.DiscountTypePercentage:
			amount = roundCents(float64(subtotal) * discount.Percentage)
		case domain.DiscountTypeFixedAmount:
			amount = discount.DollarValue
		}
	case domain.DiscountLevelItem:
		for _, line := range lines {
			if line.Quantity <= 0 || line.ItemID != discount.TargetItemID {
				continue
			}
			extended := line.ExtendedPrice()
			var lineAmount int64
			switch discount.Type {
			case domain.DiscountTypePercentage:
				lineAmount = roundCents(float64(extended) * discount.Percentage)
			case domain.DiscountTypeFixedAmount:
				lineAmount = discount.DollarValue * int64(line.Quantity)
			}
			if lineAmount > extended {
				lineAmount = extended
				clamped = true
			}
			amount += lineAmount
		}
	}

	if amount < 0 {
		amount = 0
	}
	if amount > subtotal {
		amount = subtotal
		clamped = true
	}
	return amount, clamped
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
