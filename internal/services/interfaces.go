package services

import (
	"context"
	"time"

	"github.com/cars2u/pos/internal/domain"
)

// CartMutation describes the outcome of a cart write. Clamped reports that a
// quantity change exceeded available stock and was reduced; adds never clamp.
type CartMutation struct {
	Line    domain.CartLine
	Clamped bool
}

// CartView is a consistent snapshot of one session's cart.
type CartView struct {
	Lines    []domain.CartLine
	Discount *domain.Discount
	Totals   domain.Totals
}

// CartService manages the per-session carts held by the terminal.
type CartService interface {
	AddLine(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (CartMutation, error)
	SetQuantity(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (CartMutation, error)
	RemoveLine(ctx context.Context, sessionID, itemID, packageLabel string) error
	Clear(ctx context.Context, sessionID string) error
	View(ctx context.Context, sessionID string) (CartView, error)
	ApplyDiscount(ctx context.Context, sessionID, code string) (domain.Discount, error)
	RemoveDiscount(ctx context.Context, sessionID string) error
}

// CreateDiscountCommand carries the fields needed to register a new code.
type CreateDiscountCommand struct {
	Code           string
	Description    string
	Level          domain.DiscountLevel
	Type           domain.DiscountType
	Percentage     float64
	DollarValue    int64
	TargetItemID   string
	StartDate      time.Time
	ExpirationDate time.Time
}

// DiscountService resolves promotional codes against a cart and manages the
// stored codes.
type DiscountService interface {
	Resolve(ctx context.Context, code string, lines []domain.CartLine) (domain.Discount, error)
	ListApplicable(ctx context.Context, lines []domain.CartLine) ([]domain.Discount, error)
	ListAll(ctx context.Context) ([]domain.Discount, error)
	Create(ctx context.Context, cmd CreateDiscountCommand) (domain.Discount, error)
	Delete(ctx context.Context, discountID string) error
}

// PricingEngine computes cart totals from a snapshot of lines and the applied
// discount, if any. The computation is pure; repeated calls with the same
// inputs yield the same breakdown.
type PricingEngine interface {
	Price(ctx context.Context, lines []domain.CartLine, discount *domain.Discount) domain.Totals
}

// PaymentCard is the card data collected at the register. Only a masked form
// of the number ever reaches storage.
type PaymentCard struct {
	Number string
	CCV    string
	Expiry string
}

// CheckoutCommand describes one checkout attempt. EmployeeID is set when a
// manager rings up the sale on a customer's behalf.
type CheckoutCommand struct {
	SessionID  string
	CustomerID string
	EmployeeID string
	Card       PaymentCard
}

// CheckoutService validates payment details and turns a cart into a
// persisted order.
type CheckoutService interface {
	ValidateCard(ctx context.Context, card PaymentCard) error
	Submit(ctx context.Context, cmd CheckoutCommand) (domain.ReceiptSnapshot, error)
}

// UpsertItemCommand carries the catalog fields managed from the back office.
type UpsertItemCommand struct {
	ID               string
	Description      string
	PackageLabel     string
	Price            int64
	Quantity         int
	ReorderThreshold int
	ForSale          bool
}

// InventoryService exposes stock levels and back-office item management.
type InventoryService interface {
	Availability(ctx context.Context, itemID string) (int, error)
	Restock(ctx context.Context, itemID string, quantity int) (domain.CatalogItem, error)
	ListLowStock(ctx context.Context) ([]domain.CatalogItem, error)
	AddItem(ctx context.Context, cmd UpsertItemCommand) (domain.CatalogItem, error)
	UpdateItem(ctx context.Context, cmd UpsertItemCommand) (domain.CatalogItem, error)
	Retire(ctx context.Context, itemID string) error
}

// CatalogService serves the customer-facing browse and search screens.
type CatalogService interface {
	Item(ctx context.Context, itemID string) (domain.CatalogItem, error)
	Browse(ctx context.Context, page int) (domain.Page[domain.CatalogItem], error)
	Search(ctx context.Context, term string, page int) (domain.Page[domain.CatalogItem], error)
}

// ReportGranularity selects the window of a sales report.
type ReportGranularity string

const (
	ReportGranularityDay   ReportGranularity = "day"
	ReportGranularityWeek  ReportGranularity = "week"
	ReportGranularityMonth ReportGranularity = "month"
)

// InventoryScope selects which items an inventory report covers.
type InventoryScope string

const (
	InventoryScopeForSale InventoryScope = "for_sale"
	InventoryScopeRestock InventoryScope = "restock"
	InventoryScopeAll     InventoryScope = "all"
)

// ReportService aggregates sales and inventory data and renders the results,
// plus receipts, as local HTML files.
type ReportService interface {
	SalesReport(ctx context.Context, granularity ReportGranularity, ref time.Time) (domain.SalesReport, string, error)
	InventoryReport(ctx context.Context, scope InventoryScope) (string, error)
	RenderReceipt(ctx context.Context, snapshot domain.ReceiptSnapshot) (string, error)
}
