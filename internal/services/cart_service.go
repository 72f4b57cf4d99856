package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates a malformed request.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartInvalidQuantity indicates a non-positive requested quantity.
	ErrCartInvalidQuantity = errors.New("cart service: quantity must be positive")
	// ErrCartItemNotFound indicates the catalog has no such item.
	ErrCartItemNotFound = errors.New("cart service: item not found")
	// ErrCartItemUnavailable indicates the item is retired or out of stock.
	ErrCartItemUnavailable = errors.New("cart service: item unavailable")
	// ErrCartLineNotFound indicates the cart holds no matching line.
	ErrCartLineNotFound = errors.New("cart service: line not found")
	// ErrCartNoDiscount indicates no discount is applied to the cart.
	ErrCartNoDiscount = errors.New("cart service: no discount applied")
	// ErrCartUnavailable indicates the backing store failed.
	ErrCartUnavailable = errors.New("cart service: storage unavailable")
)

// CartServiceDeps wires the cart service dependencies.
type CartServiceDeps struct {
	Catalog   repositories.CatalogRepository
	Discounts DiscountService
	Pricing   PricingEngine
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

// cartState is one session's cart. Lines keep insertion order so the register
// screen stays stable while quantities change.
type cartState struct {
	lines    []domain.CartLine
	discount *domain.Discount
}

type cartService struct {
	catalog   repositories.CatalogRepository
	discounts DiscountService
	pricing   PricingEngine
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)

	mu    sync.Mutex
	carts map[string]*cartState
}

// NewCartService validates dependencies and constructs a CartService. Carts
// live in process memory; the terminal is the single writer.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog repository is required")
	}
	if deps.Discounts == nil {
		return nil, errors.New("cart service: discount service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("cart service: pricing engine is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		catalog:   deps.Catalog,
		discounts: deps.Discounts,
		pricing:   deps.Pricing,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
		carts:     make(map[string]*cartState),
	}, nil
}

func (s *cartService) AddLine(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (CartMutation, error) {
	sessionID = strings.TrimSpace(sessionID)
	itemID = strings.TrimSpace(itemID)
	if sessionID == "" || itemID == "" {
		return CartMutation{}, fmt.Errorf("%w: session and item ids are required", ErrCartInvalidInput)
	}
	if quantity <= 0 {
		return CartMutation{}, ErrCartInvalidQuantity
	}

	// Stock is not checked here; availability is enforced on quantity
	// changes and at checkout.
	item, err := s.forSaleItem(ctx, itemID)
	if err != nil {
		return CartMutation{}, err
	}
	label := strings.TrimSpace(packageLabel)
	if label == "" {
		label = item.PackageLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart(sessionID)
	idx := findLine(cart.lines, itemID, label)
	desired := quantity
	if idx >= 0 {
		desired += cart.lines[idx].Quantity
	}

	line := domain.CartLine{
		ItemID:       item.ID,
		PackageLabel: label,
		Description:  item.Description,
		UnitPrice:    item.Price,
		Quantity:     desired,
		Available:    item.Quantity,
	}
	if idx >= 0 {
		line.UnitPrice = cart.lines[idx].UnitPrice
		cart.lines[idx] = line
	} else {
		cart.lines = append(cart.lines, line)
	}

	return CartMutation{Line: line}, nil
}

func (s *cartService) SetQuantity(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (CartMutation, error) {
	sessionID = strings.TrimSpace(sessionID)
	itemID = strings.TrimSpace(itemID)
	if sessionID == "" || itemID == "" {
		return CartMutation{}, fmt.Errorf("%w: session and item ids are required", ErrCartInvalidInput)
	}
	if quantity <= 0 {
		return CartMutation{}, ErrCartInvalidQuantity
	}

	item, err := s.sellableItem(ctx, itemID)
	if err != nil {
		return CartMutation{}, err
	}
	label := strings.TrimSpace(packageLabel)
	if label == "" {
		label = item.PackageLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart(sessionID)
	idx := findLine(cart.lines, itemID, label)
	if idx < 0 {
		return CartMutation{}, ErrCartLineNotFound
	}

	// UnitPrice keeps its add-time snapshot; only quantity and the
	// availability hint are refreshed.
	desired, clamped := clampToStock(quantity, item.Quantity)
	line := cart.lines[idx]
	line.Quantity = desired
	line.Available = item.Quantity
	cart.lines[idx] = line

	if clamped {
		s.logger(ctx, "cart_quantity_clamped", map[string]any{
			"session_id": sessionID,
			"item_id":    item.ID,
			"quantity":   desired,
		})
	}
	return CartMutation{Line: line, Clamped: clamped}, nil
}

func (s *cartService) RemoveLine(ctx context.Context, sessionID, itemID, packageLabel string) error {
	sessionID = strings.TrimSpace(sessionID)
	itemID = strings.TrimSpace(itemID)
	label := strings.TrimSpace(packageLabel)
	if sessionID == "" || itemID == "" {
		return fmt.Errorf("%w: session and item ids are required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart(sessionID)
	idx := findLine(cart.lines, itemID, label)
	if idx < 0 && label == "" {
		// Single-package items are usually removed without naming the label.
		for i, line := range cart.lines {
			if line.ItemID == itemID {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return ErrCartLineNotFound
	}
	cart.lines = append(cart.lines[:idx], cart.lines[idx+1:]...)
	s.dropStaleDiscount(ctx, sessionID, cart)
	return nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

func (s *cartService) View(ctx context.Context, sessionID string) (CartView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return CartView{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	cart := s.cart(sessionID)
	s.dropStaleDiscount(ctx, sessionID, cart)
	lines := make([]domain.CartLine, len(cart.lines))
	copy(lines, cart.lines)
	var discount *domain.Discount
	if cart.discount != nil {
		copied := *cart.discount
		discount = &copied
	}
	s.mu.Unlock()

	return CartView{
		Lines:    lines,
		Discount: discount,
		Totals:   s.pricing.Price(ctx, lines, discount),
	}, nil
}

func (s *cartService) ApplyDiscount(ctx context.Context, sessionID, code string) (domain.Discount, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Discount{}, fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}

	s.mu.Lock()
	cart := s.cart(sessionID)
	lines := make([]domain.CartLine, len(cart.lines))
	copy(lines, cart.lines)
	s.mu.Unlock()

	discount, err := s.discounts.Resolve(ctx, code, lines)
	if err != nil {
		return domain.Discount{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart = s.cart(sessionID)
	if cart.discount != nil && cart.discount.ID != discount.ID {
		s.logger(ctx, "cart_discount_replaced", map[string]any{
			"session_id": sessionID,
			"previous":   cart.discount.Code,
			"code":       discount.Code,
		})
	}
	// One discount per cart; a later apply replaces, never stacks.
	cart.discount = &discount
	return discount, nil
}

func (s *cartService) RemoveDiscount(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cart(sessionID)
	if cart.discount == nil {
		return ErrCartNoDiscount
	}
	cart.discount = nil
	return nil
}

// cart returns the session's cart, creating it on first touch. Callers must
// hold the mutex.
func (s *cartService) cart(sessionID string) *cartState {
	cart, ok := s.carts[sessionID]
	if !ok {
		cart = &cartState{}
		s.carts[sessionID] = cart
	}
	return cart
}

// dropStaleDiscount clears an applied discount the cart no longer qualifies
// for, either because its window lapsed or its target line was removed.
// Callers must hold the mutex.
func (s *cartService) dropStaleDiscount(ctx context.Context, sessionID string, cart *cartState) {
	if cart.discount == nil {
		return
	}
	if cart.discount.ActiveOn(s.clock()) && discountApplies(*cart.discount, cart.lines) {
		return
	}
	s.logger(ctx, "cart_discount_dropped", map[string]any{
		"session_id": sessionID,
		"code":       cart.discount.Code,
	})
	cart.discount = nil
}

func (s *cartService) forSaleItem(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	if !item.ForSale {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s is not for sale", ErrCartItemUnavailable, item.ID)
	}
	return item, nil
}

func (s *cartService) sellableItem(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	item, err := s.forSaleItem(ctx, itemID)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	if item.Quantity <= 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s is out of stock", ErrCartItemUnavailable, item.ID)
	}
	return item, nil
}

func clampToStock(desired, available int) (int, bool) {
	if desired > available {
		return available, true
	}
	return desired, false
}

func findLine(lines []domain.CartLine, itemID, packageLabel string) int {
	for i, line := range lines {
		if line.ItemID == itemID && line.PackageLabel == packageLabel {
			return i
		}
	}
	return -1
}

func (s *cartService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartItemNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}
