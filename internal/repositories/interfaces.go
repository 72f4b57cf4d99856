package repositories

import (
	"context"
	"time"

	"github.com/cars2u/pos/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogRepository persists the sellable inventory.
type CatalogRepository interface {
	FindByID(ctx context.Context, itemID string) (domain.CatalogItem, error)
	ListForSale(ctx context.Context, offset, limit int) ([]domain.CatalogItem, int, error)
	Search(ctx context.Context, term string, offset, limit int) ([]domain.CatalogItem, int, error)
	ListAll(ctx context.Context) ([]domain.CatalogItem, error)
	ListRestock(ctx context.Context) ([]domain.CatalogItem, error)
	Insert(ctx context.Context, item domain.CatalogItem) error
	Update(ctx context.Context, item domain.CatalogItem) error
	// AdjustQuantity shifts on-hand stock by delta. Driving the quantity
	// below zero surfaces as a conflict error.
	AdjustQuantity(ctx context.Context, itemID string, delta int, at time.Time) error
	SetForSale(ctx context.Context, itemID string, forSale bool, at time.Time) error
}

// DiscountRepository persists promotional codes.
type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Discount, error)
	ListActive(ctx context.Context, day time.Time) ([]domain.Discount, error)
	ListAll(ctx context.Context) ([]domain.Discount, error)
	Insert(ctx context.Context, discount domain.Discount) error
	Delete(ctx context.Context, discountID string) error
}

// OrderRepository persists completed sales and their lines.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order domain.Order) error
	InsertLine(ctx context.Context, line domain.OrderLine) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	// ListPlacedBetween returns orders with from <= PlacedAt < to.
	ListPlacedBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error)
}
