package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates a malformed request.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutEmptyCart indicates the session has nothing to buy.
	ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")
	// ErrCheckoutInvalidCard indicates a malformed card number.
	ErrCheckoutInvalidCard = errors.New("checkout service: invalid card number")
	// ErrCheckoutInvalidCCV indicates a malformed card verification code.
	ErrCheckoutInvalidCCV = errors.New("checkout service: invalid ccv")
	// ErrCheckoutInvalidExpiry indicates a malformed expiration date.
	ErrCheckoutInvalidExpiry = errors.New("checkout service: invalid expiration date")
	// ErrCheckoutCardExpired indicates the card expired before this month.
	ErrCheckoutCardExpired = errors.New("checkout service: card expired")
	// ErrCheckoutExpiryTooFar indicates an implausible expiration year.
	ErrCheckoutExpiryTooFar = errors.New("checkout service: expiration too far in the future")
	// ErrCheckoutInsufficientStock indicates stock ran out while submitting.
	ErrCheckoutInsufficientStock = errors.New("checkout service: insufficient stock")
	// ErrCheckoutUnavailable indicates the backing store failed.
	ErrCheckoutUnavailable = errors.New("checkout service: storage unavailable")
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{4}$`)
	cardCCVPattern    = regexp.MustCompile(`^\d{3}$`)
)

// Cards dated more than this many years out are treated as typos.
const maxExpiryYearsAhead = 5

// CheckoutServiceDeps wires the checkout service dependencies.
type CheckoutServiceDeps struct {
	Cart    CartService
	Orders  repositories.OrderRepository
	Catalog repositories.CatalogRepository
	Tx      repositories.UnitOfWork
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
	// Receipts renders the receipt after a successful submit. Optional; a
	// rendering failure never fails the sale.
	Receipts interface {
		RenderReceipt(ctx context.Context, snapshot domain.ReceiptSnapshot) (string, error)
	}
	// NewID overrides order ID generation, used by tests.
	NewID func() string
}

type checkoutService struct {
	deps  CheckoutServiceDeps
	clock func() time.Time
	log   func(ctx context.Context, event string, fields map[string]any)
	newID func() string
}

// NewCheckoutService validates dependencies and constructs a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout service: catalog repository is required")
	}
	if deps.Tx == nil {
		return nil, errors.New("checkout service: unit of work is required")
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
		newID = func() string { return "ord_" + ulid.Make().String() }
	}
	return &checkoutService{
		deps:  deps,
		clock: func() time.Time { return clock().UTC() },
		log:   logger,
		newID: newID,
	}, nil
}

// ValidateCard checks the card data without contacting any processor. The
// register accepts the number format ####-####-####-####, a three digit CCV
// and an expiry written MM/YY or MM/YYYY.
func (s *checkoutService) ValidateCard(ctx context.Context, card PaymentCard) error {
	if !cardNumberPattern.MatchString(strings.TrimSpace(card.Number)) {
		return ErrCheckoutInvalidCard
	}
	if !cardCCVPattern.MatchString(strings.TrimSpace(card.CCV)) {
		return ErrCheckoutInvalidCCV
	}
	_, _, err := s.parseExpiry(card.Expiry)
	return err
}

// parseExpiry returns the expiry month and four digit year. Two digit years
// are interpreted as 2000-based.
func (s *checkoutService) parseExpiry(expiry string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 {
		return 0, 0, ErrCheckoutInvalidExpiry
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, ErrCheckoutInvalidExpiry
	}
	yearDigits := parts[1]
	year, err := strconv.Atoi(yearDigits)
	if err != nil || year < 0 {
		return 0, 0, ErrCheckoutInvalidExpiry
	}
	switch len(yearDigits) {
	case 2:
		year += 2000
	case 4:
	default:
		return 0, 0, ErrCheckoutInvalidExpiry
	}

	now := s.clock()
	if year > now.Year()+maxExpiryYearsAhead {
		return 0, 0, ErrCheckoutExpiryTooFar
	}
	// A card is good through the last day of its expiry month.
	if year < now.Year() || (year == now.Year() && time.Month(month) < now.Month()) {
		return 0, 0, ErrCheckoutCardExpired
	}
	return month, year, nil
}

// Submit turns the session's cart into a persisted order. The order header,
// its lines and the matching stock decrements commit in one transaction, so a
// failure at any point leaves the store untouched.
func (s *checkoutService) Submit(ctx context.Context, cmd CheckoutCommand) (domain.ReceiptSnapshot, error) {
	sessionID := strings.TrimSpace(cmd.SessionID)
	customerID := strings.TrimSpace(cmd.CustomerID)
	employeeID := strings.TrimSpace(cmd.EmployeeID)
	if sessionID == "" {
		return domain.ReceiptSnapshot{}, fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}
	if customerID == "" {
		return domain.ReceiptSnapshot{}, fmt.Errorf("%w: customer id is required", ErrCheckoutInvalidInput)
	}
	if err := s.ValidateCard(ctx, cmd.Card); err != nil {
		return domain.ReceiptSnapshot{}, err
	}

	view, err := s.deps.Cart.View(ctx, sessionID)
	if err != nil {
		return domain.ReceiptSnapshot{}, err
	}
	if len(view.Lines) == 0 {
		return domain.ReceiptSnapshot{}, ErrCheckoutEmptyCart
	}

	now := s.clock()
	order := domain.Order{
		ID:               s.newID(),
		CustomerID:       customerID,
		EmployeeID:       employeeID,
		CardNumberMasked: maskCardNumber(cmd.Card.Number),
		CardExpiry:       strings.TrimSpace(cmd.Card.Expiry),
		Subtotal:         view.Totals.Subtotal,
		Discount:         view.Totals.Discount,
		Tax:              view.Totals.Tax,
		Total:            view.Totals.Total,
		PlacedAt:         now,
	}
	discountCode := ""
	if view.Discount != nil {
		order.DiscountID = view.Discount.ID
		discountCode = view.Discount.Code
	}

	lines := make([]domain.OrderLine, 0, len(view.Lines))
	for _, cartLine := range view.Lines {
		lines = append(lines, domain.OrderLine{
			OrderID:      order.ID,
			ItemID:       cartLine.ItemID,
			Description:  cartLine.Description,
			PackageLabel: cartLine.PackageLabel,
			DiscountID:   order.DiscountID,
			UnitPrice:    cartLine.UnitPrice,
			Quantity:     cartLine.Quantity,
		})
	}

	err = s.deps.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.deps.Orders.InsertOrder(txCtx, order); err != nil {
			return err
		}
		for _, line := range lines {
			if err := s.deps.Orders.InsertLine(txCtx, line); err != nil {
				return err
			}
			if err := s.deps.Catalog.AdjustQuantity(txCtx, line.ItemID, -line.Quantity, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ReceiptSnapshot{}, s.translateRepoError(err)
	}

	_ = s.deps.Cart.Clear(ctx, sessionID)
	s.log(ctx, "checkout_order_submitted", map[string]any{
		"order_id":    order.ID,
		"customer_id": customerID,
		"total":       order.Total,
		"lines":       len(lines),
	})

	snapshot := domain.ReceiptSnapshot{
		OrderID:          order.ID,
		CustomerID:       customerID,
		EmployeeID:       employeeID,
		DiscountCode:     discountCode,
		CardNumberMasked: order.CardNumberMasked,
		Lines:            lines,
		Totals:           view.Totals,
		PlacedAt:         now,
	}
	if s.deps.Receipts != nil {
		if _, err := s.deps.Receipts.RenderReceipt(ctx, snapshot); err != nil {
			s.log(ctx, "checkout_receipt_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
	return snapshot, nil
}

func maskCardNumber(number string) string {
	number = strings.TrimSpace(number)
	if len(number) < 4 {
		return "****"
	}
	return "****-****-****-" + number[len(number)-4:]
}

func (s *checkoutService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCheckoutInsufficientStock, err)
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCheckoutInsufficientStock, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
}
