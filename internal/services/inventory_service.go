package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/repositories"
)

var (
	// ErrInventoryInvalidInput indicates a malformed request.
	ErrInventoryInvalidInput = errors.New("inventory service: invalid input")
	// ErrInventoryItemNotFound indicates no such item exists.
	ErrInventoryItemNotFound = errors.New("inventory service: item not found")
	// ErrInventoryConflict indicates a duplicate item or a rejected adjustment.
	ErrInventoryConflict = errors.New("inventory service: conflict")
	// ErrInventoryUnavailable indicates the backing store failed.
	ErrInventoryUnavailable = errors.New("inventory service: storage unavailable")
)

// InventoryServiceDeps wires the inventory service dependencies.
type InventoryServiceDeps struct {
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
	// NewID overrides item ID generation, used by tests.
	NewID func() string
}

type inventoryService struct {
	catalog repositories.CatalogRepository
	clock   func() time.Time
	logger  func(ctx context.Context, event string, fields map[string]any)
	newID   func() string
}

// NewInventoryService validates dependencies and constructs an InventoryService.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("inventory service: catalog repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return "itm_" + ulid.Make().String() }
	}
	return &inventoryService{
		catalog: deps.Catalog,
		clock:   func() time.Time { return clock().UTC() },
		logger:  logger,
		newID:   newID,
	}, nil
}

func (s *inventoryService) Availability(ctx context.Context, itemID string) (int, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return 0, fmt.Errorf("%w: item id is required", ErrInventoryInvalidInput)
	}
	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return 0, s.translateRepoError(err)
	}
	return item.Quantity, nil
}

func (s *inventoryService) Restock(ctx context.Context, itemID string, quantity int) (domain.CatalogItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: item id is required", ErrInventoryInvalidInput)
	}
	if quantity <= 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: restock quantity must be positive", ErrInventoryInvalidInput)
	}
	if err := s.catalog.AdjustQuantity(ctx, itemID, quantity, s.clock()); err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	s.logger(ctx, "inventory_restocked", map[string]any{
		"item_id":  itemID,
		"quantity": quantity,
		"on_hand":  item.Quantity,
	})
	return item, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := s.catalog.ListRestock(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return items, nil
}

func (s *inventoryService) AddItem(ctx context.Context, cmd UpsertItemCommand) (domain.CatalogItem, error) {
	item, err := s.itemFromCommand(cmd, true)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	now := s.clock()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.catalog.Insert(ctx, item); err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	s.logger(ctx, "inventory_item_added", map[string]any{"item_id": item.ID})
	return item, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, cmd UpsertItemCommand) (domain.CatalogItem, error) {
	if strings.TrimSpace(cmd.ID) == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: item id is required", ErrInventoryInvalidInput)
	}
	item, err := s.itemFromCommand(cmd, false)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	existing, err := s.catalog.FindByID(ctx, item.ID)
	if err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.clock()
	if err := s.catalog.Update(ctx, item); err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	s.logger(ctx, "inventory_item_updated", map[string]any{"item_id": item.ID})
	return item, nil
}

func (s *inventoryService) Retire(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", ErrInventoryInvalidInput)
	}
	if err := s.catalog.SetForSale(ctx, itemID, false, s.clock()); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "inventory_item_retired", map[string]any{"item_id": itemID})
	return nil
}

func (s *inventoryService) itemFromCommand(cmd UpsertItemCommand, generateID bool) (domain.CatalogItem, error) {
	description := strings.TrimSpace(cmd.Description)
	if description == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: description is required", ErrInventoryInvalidInput)
	}
	if cmd.Price < 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: price must not be negative", ErrInventoryInvalidInput)
	}
	if cmd.Quantity < 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: quantity must not be negative", ErrInventoryInvalidInput)
	}
	if cmd.ReorderThreshold < 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: reorder threshold must not be negative", ErrInventoryInvalidInput)
	}
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		if !generateID {
			return domain.CatalogItem{}, fmt.Errorf("%w: item id is required", ErrInventoryInvalidInput)
		}
		id = s.newID()
	}
	return domain.CatalogItem{
		ID:               id,
		Description:      description,
		PackageLabel:     strings.TrimSpace(cmd.PackageLabel),
		Price:            cmd.Price,
		Quantity:         cmd.Quantity,
		ForSale:          cmd.ForSale,
		ReorderThreshold: cmd.ReorderThreshold,
	}, nil
}

func (s *inventoryService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrInventoryItemNotFound
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrInventoryConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
}
