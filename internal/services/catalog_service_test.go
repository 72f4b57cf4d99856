package services

import (
	"context"
	"errors"
	"testing"
)

func newTestCatalogService(t *testing.T, catalog *stubCatalogRepo) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: catalog, PageSize: 10})
	if err != nil {
		t.Fatalf("NewCatalogService returned error: %v", err)
	}
	return svc
}

func TestBrowseListsForSaleItems(t *testing.T) {
	svc := newTestCatalogService(t, testCatalog())

	page, err := svc.Browse(context.Background(), 1)
	if err != nil {
		t.Fatalf("Browse returned error: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	for _, item := range page.Items {
		if !item.ForSale {
			t.Fatalf("retired item listed: %+v", item)
		}
	}
}

func TestBrowseRejectsBadPageNumbers(t *testing.T) {
	svc := newTestCatalogService(t, testCatalog())
	for _, page := range []int{0, -1} {
		if _, err := svc.Browse(context.Background(), page); !errors.Is(err, ErrCatalogInvalidInput) {
			t.Fatalf("page %d: expected ErrCatalogInvalidInput, got %v", page, err)
		}
	}
}

func TestSearchRequiresTerm(t *testing.T) {
	svc := newTestCatalogService(t, testCatalog())
	if _, err := svc.Search(context.Background(), "   ", 1); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

func TestItemLookup(t *testing.T) {
	svc := newTestCatalogService(t, testCatalog())

	item, err := svc.Item(context.Background(), " F150 ")
	if err != nil {
		t.Fatalf("Item returned error: %v", err)
	}
	if item.ID != "F150" {
		t.Fatalf("unexpected item %+v", item)
	}
	if _, err := svc.Item(context.Background(), "DELOREAN"); !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("expected ErrCatalogItemNotFound, got %v", err)
	}
}
