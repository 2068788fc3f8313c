// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"smartspend/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	IDs       []string
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	ListRules(ctx context.Context, ownerID string) ([]model.Rule, error)
	ListActiveRules(ctx context.Context, ownerID string) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	IncrementRuleUsage(ctx context.Context, id int64, appliedAt time.Time) error

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]model.Transaction, error)
	GetCategorizedTransactions(ctx context.Context, ownerID string) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, transactionID string, categoryID int64) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
