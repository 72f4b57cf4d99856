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
	// ErrDiscountInvalidInput indicates a malformed request.
	ErrDiscountInvalidInput = errors.New("discount service: invalid input")
	// ErrDiscountNotFound covers unknown codes, codes outside their date
	// window and item codes whose target is not in the cart. Callers cannot
	// tell the cases apart; the register shows one message for all three.
	ErrDiscountNotFound = errors.New("discount service: discount not found")
	// ErrDiscountConflict indicates a duplicate code.
	ErrDiscountConflict = errors.New("discount service: discount already exists")
	// ErrDiscountUnavailable indicates the backing store failed.
	ErrDiscountUnavailable = errors.New("discount service: storage unavailable")
)

// DiscountServiceDeps wires the discount service dependencies.
type DiscountServiceDeps struct {
	Discounts repositories.DiscountRepository
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
	// NewID overrides discount ID generation, used by tests.
	NewID func() string
}

type discountService struct {
	discounts repositories.DiscountRepository
	clock     func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
	newID     func() string
}

// NewDiscountService validates dependencies and constructs a DiscountService.
func NewDiscountService(deps DiscountServiceDeps) (DiscountService, error) {
	if deps.Discounts == nil {
		return nil, errors.New("discount service: discount repository is required")
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
		newID = func() string { return "dsc_" + ulid.Make().String() }
	}
	return &discountService{
		discounts: deps.Discounts,
		clock:     func() time.Time { return clock().UTC() },
		logger:    logger,
		newID:     newID,
	}, nil
}

func (s *discountService) Resolve(ctx context.Context, code string, lines []domain.CartLine) (domain.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Discount{}, fmt.Errorf("%w: code is required", ErrDiscountInvalidInput)
	}

	discount, err := s.discounts.FindByCode(ctx, code)
	if err != nil {
		return domain.Discount{}, s.translateRepoError(err)
	}
	if !discount.ActiveOn(s.clock()) {
		s.logger(ctx, "discount_rejected", map[string]any{"code": code, "reason": "inactive"})
		return domain.Discount{}, ErrDiscountNotFound
	}
	if !discountApplies(discount, lines) {
		s.logger(ctx, "discount_rejected", map[string]any{"code": code, "reason": "not_applicable"})
		return domain.Discount{}, ErrDiscountNotFound
	}
	return discount, nil
}

func (s *discountService) ListApplicable(ctx context.Context, lines []domain.CartLine) ([]domain.Discount, error) {
	active, err := s.discounts.ListActive(ctx, s.clock())
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	applicable := make([]domain.Discount, 0, len(active))
	for _, discount := range active {
		if discountApplies(discount, lines) {
			applicable = append(applicable, discount)
		}
	}
	return applicable, nil
}

func (s *discountService) ListAll(ctx context.Context) ([]domain.Discount, error) {
	discounts, err := s.discounts.ListAll(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return discounts, nil
}

func (s *discountService) Create(ctx context.Context, cmd CreateDiscountCommand) (domain.Discount, error) {
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return domain.Discount{}, fmt.Errorf("%w: code is required", ErrDiscountInvalidInput)
	}
	if cmd.StartDate.IsZero() || cmd.ExpirationDate.IsZero() {
		return domain.Discount{}, fmt.Errorf("%w: start and expiration dates are required", ErrDiscountInvalidInput)
	}
	if domain.DateOnly(cmd.ExpirationDate).Before(domain.DateOnly(cmd.StartDate)) {
		return domain.Discount{}, fmt.Errorf("%w: expiration precedes start", ErrDiscountInvalidInput)
	}
	switch cmd.Type {
	case domain.DiscountTypePercentage:
		if cmd.Percentage <= 0 || cmd.Percentage >= 1 {
			return domain.Discount{}, fmt.Errorf("%w: percentage must be a fraction between 0 and 1", ErrDiscountInvalidInput)
		}
	case domain.DiscountTypeFixedAmount:
		if cmd.DollarValue <= 0 {
			return domain.Discount{}, fmt.Errorf("%w: dollar value must be positive", ErrDiscountInvalidInput)
		}
	default:
		return domain.Discount{}, fmt.Errorf("%w: unknown discount type", ErrDiscountInvalidInput)
	}
	targetItemID := strings.TrimSpace(cmd.TargetItemID)
	switch cmd.Level {
	case domain.DiscountLevelCart:
		if targetItemID != "" {
			return domain.Discount{}, fmt.Errorf("%w: cart discounts cannot target an item", ErrDiscountInvalidInput)
		}
	case domain.DiscountLevelItem:
		if targetItemID == "" {
			return domain.Discount{}, fmt.Errorf("%w: item discounts require a target item", ErrDiscountInvalidInput)
		}
	default:
		return domain.Discount{}, fmt.Errorf("%w: unknown discount level", ErrDiscountInvalidInput)
	}

	discount := domain.Discount{
		ID:             s.newID(),
		Code:           code,
		Description:    strings.TrimSpace(cmd.Description),
		Level:          cmd.Level,
		Type:           cmd.Type,
		Percentage:     cmd.Percentage,
		DollarValue:    cmd.DollarValue,
		TargetItemID:   targetItemID,
		StartDate:      domain.DateOnly(cmd.StartDate),
		ExpirationDate: domain.DateOnly(cmd.ExpirationDate),
	}
	if err := s.discounts.Insert(ctx, discount); err != nil {
		return domain.Discount{}, s.translateRepoError(err)
	}
	s.logger(ctx, "discount_created", map[string]any{"discount_id": discount.ID, "code": discount.Code})
	return discount, nil
}

func (s *discountService) Delete(ctx context.Context, discountID string) error {
	discountID = strings.TrimSpace(discountID)
	if discountID == "" {
		return fmt.Errorf("%w: discount id is required", ErrDiscountInvalidInput)
	}
	if err := s.discounts.Delete(ctx, discountID); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "discount_deleted", map[string]any{"discount_id": discountID})
	return nil
}

// discountApplies reports whether the cart satisfies the discount's targeting
// rule. Cart level discounts apply to any non-empty cart.
func discountApplies(discount domain.Discount, lines []domain.CartLine) bool {
	if discount.Level == domain.DiscountLevelCart {
		return true
	}
	for _, line := range lines {
		if line.ItemID == discount.TargetItemID && line.Quantity > 0 {
			return true
		}
	}
	return false
}

func (s *discountService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrDiscountNotFound
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrDiscountConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrDiscountUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrDiscountUnavailable, err)
}
