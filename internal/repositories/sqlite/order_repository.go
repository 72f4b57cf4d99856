package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cars2u/pos/internal/domain"
	psqlite "github.com/cars2u/pos/internal/platform/sqlite"
)

// OrderRepository persists completed sales in the local database.
type OrderRepository struct {
	provider *psqlite.Provider
}

// NewOrderRepository constructs an OrderRepository backed by the provider.
func NewOrderRepository(provider *psqlite.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires sqlite provider")
	}
	return &OrderRepository{provider: provider}, nil
}

const orderColumns = "id, customer_id, employee_id, discount_id, card_number_masked, card_expiry, subtotal_cents, discount_cents, tax_cents, total_cents, placed_at"

// InsertOrder stores the order header.
func (r *OrderRepository) InsertOrder(ctx context.Context, order domain.Order) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		order.ID, order.CustomerID,
		nullableString(order.EmployeeID), nullableString(order.DiscountID),
		order.CardNumberMasked, order.CardExpiry,
		order.Subtotal, order.Discount, order.Tax, order.Total,
		order.PlacedAt.UTC().Format(timestampLayout),
	)
	return psqlite.WrapError("order insert", err)
}

// InsertLine stores one purchased row of an order.
func (r *OrderRepository) InsertLine(ctx context.Context, line domain.OrderLine) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO order_lines (order_id, item_id, description, package_label, discount_id, unit_price_cents, quantity) VALUES (?, ?, ?, ?, ?, ?, ?)",
		line.OrderID, line.ItemID, line.Description, line.PackageLabel, nullableString(line.DiscountID), line.UnitPrice, line.Quantity,
	)
	return psqlite.WrapError("order line insert", err)
}

// FindByID returns the order with the given identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	row := q.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", strings.TrimSpace(orderID))
	order, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, psqlite.WrapError("order find by id", err)
	}
	return order, nil
}

// ListLines returns the stored lines of an order.
func (r *OrderRepository) ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		"SELECT order_id, item_id, description, package_label, discount_id, unit_price_cents, quantity FROM order_lines WHERE order_id = ? ORDER BY item_id, package_label",
		strings.TrimSpace(orderID),
	)
	if err != nil {
		return nil, psqlite.WrapError("order lines list", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line       domain.OrderLine
			discountID sql.NullString
		)
		if err := rows.Scan(&line.OrderID, &line.ItemID, &line.Description, &line.PackageLabel, &discountID, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, psqlite.WrapError("order lines scan", err)
		}
		line.DiscountID = discountID.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, psqlite.WrapError("order lines rows", err)
	}
	return lines, nil
}

// ListPlacedBetween returns orders with from <= PlacedAt < to.
func (r *OrderRepository) ListPlacedBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE placed_at >= ? AND placed_at < ? ORDER BY placed_at",
		from.UTC().Format(timestampLayout), to.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, psqlite.WrapError("order list between", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, psqlite.WrapError("order list scan", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, psqlite.WrapError("order list rows", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order      domain.Order
		employeeID sql.NullString
		discountID sql.NullString
		placedAt   string
	)
	if err := row.Scan(&order.ID, &order.CustomerID, &employeeID, &discountID, &order.CardNumberMasked, &order.CardExpiry, &order.Subtotal, &order.Discount, &order.Tax, &order.Total, &placedAt); err != nil {
		return domain.Order{}, err
	}
	order.EmployeeID = employeeID.String
	order.DiscountID = discountID.String
	order.PlacedAt = parseTimestamp(placedAt)
	return order, nil
}

func nullableString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
