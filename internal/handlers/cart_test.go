package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/services"
)

type stubCartService struct {
	addLineFunc        func(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error)
	setQuantityFunc    func(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error)
	removeLineFunc     func(ctx context.Context, sessionID, itemID, packageLabel string) error
	clearFunc          func(ctx context.Context, sessionID string) error
	viewFunc           func(ctx context.Context, sessionID string) (services.CartView, error)
	applyDiscountFunc  func(ctx context.Context, sessionID, code string) (domain.Discount, error)
	removeDiscountFunc func(ctx context.Context, sessionID string) error
}

func (s *stubCartService) AddLine(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error) {
	if s.addLineFunc == nil {
		return services.CartMutation{}, nil
	}
	return s.addLineFunc(ctx, sessionID, itemID, packageLabel, quantity)
}

func (s *stubCartService) SetQuantity(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error) {
	if s.setQuantityFunc == nil {
		return services.CartMutation{}, nil
	}
	return s.setQuantityFunc(ctx, sessionID, itemID, packageLabel, quantity)
}

func (s *stubCartService) RemoveLine(ctx context.Context, sessionID, itemID, packageLabel string) error {
	if s.removeLineFunc == nil {
		return nil
	}
	return s.removeLineFunc(ctx, sessionID, itemID, packageLabel)
}

func (s *stubCartService) Clear(ctx context.Context, sessionID string) error {
	if s.clearFunc == nil {
		return nil
	}
	return s.clearFunc(ctx, sessionID)
}

func (s *stubCartService) View(ctx context.Context, sessionID string) (services.CartView, error) {
	if s.viewFunc == nil {
		return services.CartView{}, nil
	}
	return s.viewFunc(ctx, sessionID)
}

func (s *stubCartService) ApplyDiscount(ctx context.Context, sessionID, code string) (domain.Discount, error) {
	if s.applyDiscountFunc == nil {
		return domain.Discount{}, nil
	}
	return s.applyDiscountFunc(ctx, sessionID, code)
}

func (s *stubCartService) RemoveDiscount(ctx context.Context, sessionID string) error {
	if s.removeDiscountFunc == nil {
		return nil
	}
	return s.removeDiscountFunc(ctx, sessionID)
}

func newCartRouter(service services.CartService) chi.Router {
	handler := NewCartHandlers(service)
	router := chi.NewRouter()
	router.Route("/cart", handler.Routes)
	return router
}

func TestCartHandlersGetCart(t *testing.T) {
	service := &stubCartService{
		viewFunc: func(ctx context.Context, sessionID string) (services.CartView, error) {
			if sessionID != "term-1" {
				t.Fatalf("unexpected session id %q", sessionID)
			}
			return services.CartView{
				Lines: []domain.CartLine{
					{ItemID: "F150", PackageLabel: "XLT", Description: "Ford F-150", UnitPrice: 3_000_000, Quantity: 1, Available: 3},
				},
				Discount: &domain.Discount{
					ID:             "dsc_1",
					Code:           "SAVE10",
					Level:          domain.DiscountLevelCart,
					Type:           domain.DiscountTypePercentage,
					Percentage:     0.10,
					StartDate:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
					ExpirationDate: time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
				},
				Totals: domain.Totals{Subtotal: 3_000_000, Discount: 300_000, Tax: 222_750, Total: 2_922_750},
			}, nil
		},
	}

	router := newCartRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/cart/term-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(body.Lines))
	}
	if body.Lines[0].ExtendedPrice != 3_000_000 {
		t.Fatalf("expected extended price 3000000, got %d", body.Lines[0].ExtendedPrice)
	}
	if body.Discount == nil || body.Discount.Code != "SAVE10" {
		t.Fatalf("expected SAVE10 discount, got %+v", body.Discount)
	}
	if body.Totals.Total != 2_922_750 {
		t.Fatalf("expected total 2922750, got %d", body.Totals.Total)
	}
}

func TestCartHandlersSetQuantityClamped(t *testing.T) {
	service := &stubCartService{
		setQuantityFunc: func(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error) {
			if itemID != "F150" || packageLabel != "XLT" || quantity != 5 {
				t.Fatalf("unexpected update %q %q %d", itemID, packageLabel, quantity)
			}
			return services.CartMutation{
				Line:    domain.CartLine{ItemID: "F150", PackageLabel: "XLT", UnitPrice: 3_000_000, Quantity: 3, Available: 3},
				Clamped: true,
			}, nil
		},
	}

	router := newCartRouter(service)
	payload := `{"itemId":"F150","packageLabel":"XLT","quantity":5}`
	req := httptest.NewRequest(http.MethodPut, "/cart/term-1/lines", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body cartMutationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !body.Clamped {
		t.Fatalf("expected clamped mutation")
	}
	if body.Line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", body.Line.Quantity)
	}
}

func TestCartHandlersAddLineMissingItem(t *testing.T) {
	router := newCartRouter(&stubCartService{})
	req := httptest.NewRequest(http.MethodPost, "/cart/term-1/lines", strings.NewReader(`{"quantity":1}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersSetQuantityRejectsZero(t *testing.T) {
	service := &stubCartService{
		setQuantityFunc: func(ctx context.Context, sessionID, itemID, packageLabel string, quantity int) (services.CartMutation, error) {
			return services.CartMutation{}, services.ErrCartInvalidQuantity
		},
	}

	router := newCartRouter(service)
	payload := `{"itemId":"F150","packageLabel":"XLT","quantity":0}`
	req := httptest.NewRequest(http.MethodPut, "/cart/term-1/lines", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "invalid_quantity" {
		t.Fatalf("expected invalid_quantity error, got %v", body["error"])
	}
}

func TestCartHandlersRemoveLine(t *testing.T) {
	var gotItem, gotLabel string
	service := &stubCartService{
		removeLineFunc: func(ctx context.Context, sessionID, itemID, packageLabel string) error {
			gotItem = itemID
			gotLabel = packageLabel
			return nil
		},
	}

	router := newCartRouter(service)
	req := httptest.NewRequest(http.MethodDelete, "/cart/term-1/lines/F150?package=XLT", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if gotItem != "F150" || gotLabel != "XLT" {
		t.Fatalf("unexpected remove %q %q", gotItem, gotLabel)
	}
}

func TestCartHandlersApplyUnknownDiscount(t *testing.T) {
	service := &stubCartService{
		applyDiscountFunc: func(ctx context.Context, sessionID, code string) (domain.Discount, error) {
			return domain.Discount{}, services.ErrDiscountNotFound
		},
	}

	router := newCartRouter(service)
	req := httptest.NewRequest(http.MethodPost, "/cart/term-1/discount", strings.NewReader(`{"code":"NOPE"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "discount_not_found" {
		t.Fatalf("expected discount_not_found error, got %v", body["error"])
	}
}

func TestCartHandlersRemoveDiscountNoneApplied(t *testing.T) {
	service := &stubCartService{
		removeDiscountFunc: func(ctx context.Context, sessionID string) error {
			return services.ErrCartNoDiscount
		},
	}

	router := newCartRouter(service)
	req := httptest.NewRequest(http.MethodDelete, "/cart/term-1/discount", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
