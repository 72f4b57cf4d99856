package domain

import "time"

// DiscountLevel states which part of the cart a discount applies to.
type DiscountLevel int

const (
	// DiscountLevelCart discounts the cart subtotal as a whole.
	DiscountLevelCart DiscountLevel = iota
	// DiscountLevelItem discounts only the lines matching the target item.
	DiscountLevelItem
)

// String returns the stable wire name of the level.
func (l DiscountLevel) String() string {
	switch l {
	case DiscountLevelCart:
		return "cart"
	case DiscountLevelItem:
		return "item"
	default:
		return "unknown"
	}
}

// DiscountType states how a discount amount is computed.
type DiscountType int

const (
	// DiscountTypePercentage deducts a fraction of the discounted base.
	DiscountTypePercentage DiscountType = iota
	// DiscountTypeFixedAmount deducts a fixed dollar amount.
	DiscountTypeFixedAmount
)

// String returns the stable wire name of the type.
func (t DiscountType) String() string {
	switch t {
	case DiscountTypePercentage:
		return "percentage"
	case DiscountTypeFixedAmount:
		return "fixed_amount"
	default:
		return "unknown"
	}
}

// Discount is a promotional code redeemable at the register.
//
// Percentage is a fraction (0.10 means ten percent) and DollarValue is in
// cents, as is every monetary amount in this package. TargetItemID is set only
// for item level discounts.
type Discount struct {
	ID             string
	Code           string
	Description    string
	Level          DiscountLevel
	Type           DiscountType
	Percentage     float64
	DollarValue    int64
	TargetItemID   string
	StartDate      time.Time
	ExpirationDate time.Time
}

// ActiveOn reports whether the discount window covers the given calendar day.
// The window bounds are inclusive on both ends.
func (d Discount) ActiveOn(day time.Time) bool {
	day = DateOnly(day)
	return !day.Before(DateOnly(d.StartDate)) && !day.After(DateOnly(d.ExpirationDate))
}

// DateOnly truncates a timestamp to its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CartLine is one priced row of a cart, keyed by (ItemID, PackageLabel).
type CartLine struct {
	ItemID       string
	PackageLabel string
	Description  string
	UnitPrice    int64
	Quantity     int
	Available    int
}

// ExtendedPrice returns the line price before any discount.
func (l CartLine) ExtendedPrice() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Totals is the cart pricing breakdown. Amounts are in cents.
// DiscountClamped reports that the applied discount exceeded the base it
// deducts from and was reduced to keep the totals non negative.
type Totals struct {
	Subtotal        int64
	Discount        int64
	Tax             int64
	Total           int64
	DiscountClamped bool
}

// CatalogItem is a sellable (or retired) vehicle package in local inventory.
type CatalogItem struct {
	ID               string
	Description      string
	PackageLabel     string
	Price            int64
	Quantity         int
	ForSale          bool
	ReorderThreshold int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NeedsRestock reports whether on-hand stock is at or below the reorder point.
func (i CatalogItem) NeedsRestock() bool {
	return i.Quantity <= i.ReorderThreshold
}

// Order is a persisted sale. EmployeeID is empty for self-service checkouts
// and DiscountID is empty when no code was applied. The card number is stored
// masked; the full number is never persisted.
type Order struct {
	ID               string
	CustomerID       string
	EmployeeID       string
	DiscountID       string
	CardNumberMasked string
	CardExpiry       string
	Subtotal         int64
	Discount         int64
	Tax              int64
	Total            int64
	PlacedAt         time.Time
}

// OrderLine is one purchased row of an order. DiscountID mirrors the order's
// applied discount so lines remain self-describing; empty when none applied.
type OrderLine struct {
	OrderID      string
	ItemID       string
	Description  string
	PackageLabel string
	DiscountID   string
	UnitPrice    int64
	Quantity     int
}

// ReceiptSnapshot carries everything a receipt renderer needs, captured at the
// moment the order was committed.
type ReceiptSnapshot struct {
	OrderID          string
	CustomerID       string
	EmployeeID       string
	DiscountCode     string
	CardNumberMasked string
	Lines            []OrderLine
	Totals           Totals
	PlacedAt         time.Time
}

// SalesRow aggregates sold units of one item over a reporting period.
type SalesRow struct {
	ItemID      string
	Description string
	Units       int
	Gross       int64
}

// SalesReport is the aggregate output of one sales reporting run.
type SalesReport struct {
	PeriodLabel string
	From        time.Time
	To          time.Time
	Orders      int
	Rows        []SalesRow
	Gross       int64
	Discounts   int64
	Tax         int64
	Net         int64
}

// Page is one fixed-size slice of a larger listing.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}
