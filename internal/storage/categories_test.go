package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"smartspend/internal/common"
)

func TestGetCategoriesSorted(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	categories, err := store.GetCategories(context.Background())
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}

	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("Categories not sorted by name: %v", names)
	}
}

func TestCreateCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	created, err := store.CreateCategory(ctx, "Travel", "Flights and hotels")
	if err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected category ID to be assigned")
	}

	got, err := store.GetCategoryByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}
	if got.Name != "Travel" || got.Description != "Flights and hotels" {
		t.Errorf("Got %+v, want Travel / Flights and hotels", got)
	}
	if !got.IsActive {
		t.Error("Expected new category to be active")
	}
}

func TestCategoryExists(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	dining := categoryID(t, store, "Dining")
	exists, err := store.CategoryExists(ctx, dining)
	if err != nil {
		t.Fatalf("Failed to check category: %v", err)
	}
	if !exists {
		t.Error("Expected seeded category to exist")
	}

	exists, err = store.CategoryExists(ctx, 99999)
	if err != nil {
		t.Fatalf("Failed to check category: %v", err)
	}
	if exists {
		t.Error("Expected unknown category to not exist")
	}
}

func TestGetCategoryByIDNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetCategoryByID(context.Background(), 99999)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetCategoryByID error = %v, want %v", err, common.ErrNotFound)
	}
}
