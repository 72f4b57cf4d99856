package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cars2u/pos/internal/domain"
	psqlite "github.com/cars2u/pos/internal/platform/sqlite"
)

const dateLayout = "2006-01-02"

// DiscountRepository persists promotional codes in the local database.
type DiscountRepository struct {
	provider *psqlite.Provider
}

// NewDiscountRepository constructs a DiscountRepository backed by the provider.
func NewDiscountRepository(provider *psqlite.Provider) (*DiscountRepository, error) {
	if provider == nil {
		return nil, errors.New("discount repository requires sqlite provider")
	}
	return &DiscountRepository{provider: provider}, nil
}

const discountColumns = "id, code, description, level, type, percentage, dollar_value_cents, target_item_id, start_date, expiration_date"

// FindByCode returns the discount whose code matches exactly as stored.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (domain.Discount, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return domain.Discount{}, err
	}
	row := q.QueryRowContext(ctx, "SELECT "+discountColumns+" FROM discounts WHERE code = ?", strings.TrimSpace(code))
	discount, err := scanDiscount(row)
	if err != nil {
		return domain.Discount{}, psqlite.WrapError("discount find by code", err)
	}
	return discount, nil
}

// ListActive returns discounts whose window covers the given calendar day.
func (r *DiscountRepository) ListActive(ctx context.Context, day time.Time) ([]domain.Discount, error) {
	date := domain.DateOnly(day).Format(dateLayout)
	return r.list(ctx, "WHERE start_date <= ? AND expiration_date >= ?", date, date)
}

// ListAll returns every stored discount.
func (r *DiscountRepository) ListAll(ctx context.Context) ([]domain.Discount, error) {
	return r.list(ctx, "")
}

func (r *DiscountRepository) list(ctx context.Context, where string, args ...any) ([]domain.Discount, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, "SELECT "+discountColumns+" FROM discounts "+where+" ORDER BY code", args...)
	if err != nil {
		return nil, psqlite.WrapError("discount list", err)
	}
	defer rows.Close()

	var discounts []domain.Discount
	for rows.Next() {
		discount, err := scanDiscount(rows)
		if err != nil {
			return nil, psqlite.WrapError("discount list scan", err)
		}
		discounts = append(discounts, discount)
	}
	if err := rows.Err(); err != nil {
		return nil, psqlite.WrapError("discount list rows", err)
	}
	return discounts, nil
}

// Insert stores a new discount. A duplicate code surfaces as a conflict.
func (r *DiscountRepository) Insert(ctx context.Context, discount domain.Discount) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO discounts ("+discountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		discount.ID, discount.Code, discount.Description,
		int(discount.Level), int(discount.Type),
		discount.Percentage, discount.DollarValue, discount.TargetItemID,
		domain.DateOnly(discount.StartDate).Format(dateLayout),
		domain.DateOnly(discount.ExpirationDate).Format(dateLayout),
	)
	return psqlite.WrapError("discount insert", err)
}

// Delete removes a discount by identifier.
func (r *DiscountRepository) Delete(ctx context.Context, discountID string) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, "DELETE FROM discounts WHERE id = ?", strings.TrimSpace(discountID))
	if err != nil {
		return psqlite.WrapError("discount delete", err)
	}
	return requireRowAffected("discount delete", res)
}

func scanDiscount(row rowScanner) (domain.Discount, error) {
	var (
		discount   domain.Discount
		level      int
		kind       int
		startDate  string
		expiration string
	)
	if err := row.Scan(&discount.ID, &discount.Code, &discount.Description, &level, &kind, &discount.Percentage, &discount.DollarValue, &discount.TargetItemID, &startDate, &expiration); err != nil {
		return domain.Discount{}, err
	}
	discount.Level = domain.DiscountLevel(level)
	discount.Type = domain.DiscountType(kind)
	discount.StartDate = parseDate(startDate)
	discount.ExpirationDate = parseDate(expiration)
	return discount, nil
}

func parseDate(value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
