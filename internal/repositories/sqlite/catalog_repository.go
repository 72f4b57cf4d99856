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

const timestampLayout = time.RFC3339

// CatalogRepository persists catalog items in the local database.
type CatalogRepository struct {
	provider *psqlite.Provider
}

// NewCatalogRepository constructs a CatalogRepository backed by the provider.
func NewCatalogRepository(provider *psqlite.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires sqlite provider")
	}
	return &CatalogRepository{provider: provider}, nil
}

const catalogColumns = "id, description, package_label, price_cents, quantity, for_sale, reorder_threshold, created_at, updated_at"

// FindByID returns the item with the given identifier.
func (r *CatalogRepository) FindByID(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	row := q.QueryRowContext(ctx, "SELECT "+catalogColumns+" FROM catalog_items WHERE id = ?", strings.TrimSpace(itemID))
	item, err := scanCatalogItem(row)
	if err != nil {
		return domain.CatalogItem{}, psqlite.WrapError("catalog find by id", err)
	}
	return item, nil
}

// ListForSale returns one page of sellable items plus the total count.
func (r *CatalogRepository) ListForSale(ctx context.Context, offset, limit int) ([]domain.CatalogItem, int, error) {
	return r.list(ctx, "WHERE for_sale = 1", "", offset, limit)
}

// Search returns one page of sellable items whose description matches the term.
func (r *CatalogRepository) Search(ctx context.Context, term string, offset, limit int) ([]domain.CatalogItem, int, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	return r.list(ctx, "WHERE for_sale = 1 AND description LIKE ? COLLATE NOCASE", pattern, offset, limit)
}

// ListAll returns every item, sellable or not.
func (r *CatalogRepository) ListAll(ctx context.Context) ([]domain.CatalogItem, error) {
	items, _, err := r.list(ctx, "", "", 0, -1)
	return items, err
}

// ListRestock returns sellable items at or below their reorder threshold.
func (r *CatalogRepository) ListRestock(ctx context.Context) ([]domain.CatalogItem, error) {
	items, _, err := r.list(ctx, "WHERE for_sale = 1 AND quantity <= reorder_threshold", "", 0, -1)
	return items, err
}

func (r *CatalogRepository) list(ctx context.Context, where, pattern string, offset, limit int) ([]domain.CatalogItem, int, error) {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return nil, 0, err
	}

	args := []any{}
	if pattern != "" {
		args = append(args, pattern)
	}

	total := 0
	countRow := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_items "+where, args...)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, psqlite.WrapError("catalog count", err)
	}

	query := "SELECT " + catalogColumns + " FROM catalog_items " + where + " ORDER BY description, id"
	if limit >= 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, psqlite.WrapError("catalog list", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, 0, psqlite.WrapError("catalog list scan", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, psqlite.WrapError("catalog list rows", err)
	}
	return items, total, nil
}

// Insert stores a new item. A duplicate identifier surfaces as a conflict.
func (r *CatalogRepository) Insert(ctx context.Context, item domain.CatalogItem) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		"INSERT INTO catalog_items ("+catalogColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.Description, item.PackageLabel, item.Price, item.Quantity,
		boolToInt(item.ForSale), item.ReorderThreshold,
		item.CreatedAt.UTC().Format(timestampLayout), item.UpdatedAt.UTC().Format(timestampLayout),
	)
	return psqlite.WrapError("catalog insert", err)
}

// Update rewrites the mutable fields of an existing item.
func (r *CatalogRepository) Update(ctx context.Context, item domain.CatalogItem) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE catalog_items SET description = ?, package_label = ?, price_cents = ?, quantity = ?, for_sale = ?, reorder_threshold = ?, updated_at = ? WHERE id = ?",
		item.Description, item.PackageLabel, item.Price, item.Quantity,
		boolToInt(item.ForSale), item.ReorderThreshold,
		item.UpdatedAt.UTC().Format(timestampLayout), item.ID,
	)
	if err != nil {
		return psqlite.WrapError("catalog update", err)
	}
	return requireRowAffected("catalog update", res)
}

// AdjustQuantity shifts on-hand stock by delta. The schema's CHECK constraint
// rejects negative quantities, which surfaces as a conflict.
func (r *CatalogRepository) AdjustQuantity(ctx context.Context, itemID string, delta int, at time.Time) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE catalog_items SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
		delta, at.UTC().Format(timestampLayout), strings.TrimSpace(itemID),
	)
	if err != nil {
		return psqlite.WrapError("catalog adjust quantity", err)
	}
	return requireRowAffected("catalog adjust quantity", res)
}

// SetForSale flips whether an item is listed for sale.
func (r *CatalogRepository) SetForSale(ctx context.Context, itemID string, forSale bool, at time.Time) error {
	q, err := r.provider.Querier(ctx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE catalog_items SET for_sale = ?, updated_at = ? WHERE id = ?",
		boolToInt(forSale), at.UTC().Format(timestampLayout), strings.TrimSpace(itemID),
	)
	if err != nil {
		return psqlite.WrapError("catalog set for sale", err)
	}
	return requireRowAffected("catalog set for sale", res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (domain.CatalogItem, error) {
	var (
		item      domain.CatalogItem
		forSale   int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&item.ID, &item.Description, &item.PackageLabel, &item.Price, &item.Quantity, &forSale, &item.ReorderThreshold, &createdAt, &updatedAt); err != nil {
		return domain.CatalogItem{}, err
	}
	item.ForSale = forSale != 0
	item.CreatedAt = parseTimestamp(createdAt)
	item.UpdatedAt = parseTimestamp(updatedAt)
	return item, nil
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowAffected(op string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return psqlite.WrapError(op, err)
	}
	if affected == 0 {
		return psqlite.WrapError(op, sql.ErrNoRows)
	}
	return nil
}
