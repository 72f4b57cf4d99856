package services

import (
	"context"
	"errors"
	"testing"
)

func newTestInventoryService(t *testing.T, catalog *stubCatalogRepo) InventoryService {
	t.Helper()
	svc, err := NewInventoryService(InventoryServiceDeps{
		Catalog: catalog,
		Clock:   testClock,
		NewID:   func() string { return "itm_test" },
	})
	if err != nil {
		t.Fatalf("NewInventoryService returned error: %v", err)
	}
	return svc
}

func TestRestockIncreasesStock(t *testing.T) {
	catalog := testCatalog()
	svc := newTestInventoryService(t, catalog)

	item, err := svc.Restock(context.Background(), "F150", 5)
	if err != nil {
		t.Fatalf("Restock returned error: %v", err)
	}
	if item.Quantity != 8 {
		t.Fatalf("expected on-hand 8, got %d", item.Quantity)
	}
}

func TestRestockRejectsNonPositive(t *testing.T) {
	svc := newTestInventoryService(t, testCatalog())
	for _, quantity := range []int{0, -3} {
		if _, err := svc.Restock(context.Background(), "F150", quantity); !errors.Is(err, ErrInventoryInvalidInput) {
			t.Fatalf("quantity %d: expected ErrInventoryInvalidInput, got %v", quantity, err)
		}
	}
}

func TestListLowStock(t *testing.T) {
	catalog := testCatalog()
	item := catalog.items["MUST"]
	item.Quantity = 1
	catalog.items["MUST"] = item
	svc := newTestInventoryService(t, catalog)

	low, err := svc.ListLowStock(context.Background())
	if err != nil {
		t.Fatalf("ListLowStock returned error: %v", err)
	}
	if len(low) != 1 || low[0].ID != "MUST" {
		t.Fatalf("unexpected low stock set %+v", low)
	}
}

func TestAddItemGeneratesIDAndTimestamps(t *testing.T) {
	catalog := testCatalog()
	svc := newTestInventoryService(t, catalog)

	item, err := svc.AddItem(context.Background(), UpsertItemCommand{
		Description:      "Ford Bronco",
		PackageLabel:     "Badlands",
		Price:            4_200_000,
		Quantity:         2,
		ReorderThreshold: 1,
		ForSale:          true,
	})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if item.ID != "itm_test" {
		t.Fatalf("unexpected id %q", item.ID)
	}
	if !item.CreatedAt.Equal(testClock()) || !item.UpdatedAt.Equal(testClock()) {
		t.Fatalf("timestamps not stamped: %+v", item)
	}
	if _, ok := catalog.items["itm_test"]; !ok {
		t.Fatal("item not stored")
	}
}

func TestAddItemValidation(t *testing.T) {
	svc := newTestInventoryService(t, testCatalog())
	cases := []UpsertItemCommand{
		{Description: "", Price: 100},
		{Description: "Truck", Price: -1},
		{Description: "Truck", Quantity: -1},
		{Description: "Truck", ReorderThreshold: -1},
	}
	for i, cmd := range cases {
		if _, err := svc.AddItem(context.Background(), cmd); !errors.Is(err, ErrInventoryInvalidInput) {
			t.Fatalf("case %d: expected ErrInventoryInvalidInput, got %v", i, err)
		}
	}
}

func TestUpdateItemPreservesCreatedAt(t *testing.T) {
	catalog := testCatalog()
	created := catalog.items["F150"].CreatedAt
	svc := newTestInventoryService(t, catalog)

	item, err := svc.UpdateItem(context.Background(), UpsertItemCommand{
		ID:               "F150",
		Description:      "Ford F-150",
		PackageLabel:     "XLT",
		Price:            3_100_000,
		Quantity:         3,
		ReorderThreshold: 1,
		ForSale:          true,
	})
	if err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	if item.Price != 3_100_000 {
		t.Fatalf("price not updated: %+v", item)
	}
	if !item.CreatedAt.Equal(created) {
		t.Fatalf("created timestamp changed: %+v", item)
	}
}

func TestRetireRemovesFromSale(t *testing.T) {
	catalog := testCatalog()
	svc := newTestInventoryService(t, catalog)

	if err := svc.Retire(context.Background(), "F150"); err != nil {
		t.Fatalf("Retire returned error: %v", err)
	}
	if catalog.items["F150"].ForSale {
		t.Fatal("item still for sale")
	}
	if err := svc.Retire(context.Background(), "DELOREAN"); !errors.Is(err, ErrInventoryItemNotFound) {
		t.Fatalf("expected ErrInventoryItemNotFound, got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	svc := newTestInventoryService(t, testCatalog())
	available, err := svc.Availability(context.Background(), "F150")
	if err != nil {
		t.Fatalf("Availability returned error: %v", err)
	}
	if available != 3 {
		t.Fatalf("expected 3, got %d", available)
	}
}
