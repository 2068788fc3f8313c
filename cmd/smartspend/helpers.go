package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"smartspend/internal/model"
	"smartspend/internal/service"
	"smartspend/internal/storage"
)

// initStorage initializes the storage service with proper path expansion and
// runs any pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/smartspend/smartspend.db"
	}
	dbPath = expandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// expandPath expands ~ and environment variables in a filesystem path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// currentOwner resolves the owner profile for this invocation.
func currentOwner() string {
	owner := viper.GetString("owner")
	if owner == "" {
		owner = "local"
	}
	return owner
}

// loadCategoryNames fetches categories and builds an ID-to-name lookup.
func loadCategoryNames(ctx context.Context, store service.Storage) (map[int64]string, error) {
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categoryNames(categories), nil
}

// categoryNames builds an ID-to-name lookup for display.
func categoryNames(categories []model.Category) map[int64]string {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// truncateString shortens a string for table display.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
