package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartspend/internal/common"
	"smartspend/internal/model"
	"smartspend/internal/rules"
)

const ruleColumns = `id, owner_id, category_id, match_field, match_type, pattern,
	secondary_amount, priority, is_active, use_count, last_applied_at,
	created_at, updated_at`

// Rules are returned in evaluation order: priority high before medium before
// low, ties by use count, then by most recent application, then by creation.
const ruleOrder = `ORDER BY
	CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END,
	use_count DESC,
	last_applied_at DESC,
	created_at DESC`

// CreateRule validates and persists a new categorization rule. The target
// category must exist and be active.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := rules.ValidateRule(rule); err != nil {
		return err
	}
	if err := s.verifyCategory(ctx, rule.CategoryID); err != nil {
		return err
	}

	query := `
		INSERT INTO rules (
			owner_id, category_id, match_field, match_type, pattern,
			secondary_amount, priority, is_active, use_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.OwnerID, rule.CategoryID, rule.MatchField, rule.MatchType, rule.Pattern,
		rule.SecondaryAmount, rule.Priority, rule.IsActive, rule.UseCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	rule.ID = id
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// ListRules retrieves all rules owned by the given owner, in evaluation order.
func (s *SQLiteStorage) ListRules(ctx context.Context, ownerID string) ([]model.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE owner_id = ? ` + ruleOrder
	return s.queryRules(ctx, ownerID, query)
}

// ListActiveRules retrieves the active rules for an owner as a consistent
// ordered snapshot for one apply pass.
func (s *SQLiteStorage) ListActiveRules(ctx context.Context, ownerID string) ([]model.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE owner_id = ? AND is_active = 1 ` + ruleOrder
	return s.queryRules(ctx, ownerID, query)
}

func (s *SQLiteStorage) queryRules(ctx context.Context, ownerID, query string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		ruleSet = append(ruleSet, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return ruleSet, nil
}

// UpdateRule validates and persists changes to an existing rule. Usage stats
// are deliberately not updatable here; only IncrementRuleUsage touches them.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := rules.ValidateRule(rule); err != nil {
		return err
	}
	if err := s.verifyCategory(ctx, rule.CategoryID); err != nil {
		return err
	}

	query := `
		UPDATE rules SET
			category_id = ?, match_field = ?, match_type = ?, pattern = ?,
			secondary_amount = ?, priority = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.CategoryID, rule.MatchField, rule.MatchType, rule.Pattern,
		rule.SecondaryAmount, rule.Priority, rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowsAffected(result, rule.ID)
}

// DeleteRule permanently removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireRowsAffected(result, id)
}

// IncrementRuleUsage records a rule firing as a single atomic update, so
// concurrent apply passes never lose increments.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, id int64, appliedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	query := `UPDATE rules SET use_count = use_count + 1, last_applied_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, appliedAt, id)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}

	return requireRowsAffected(result, id)
}

// verifyCategory ensures the referenced category exists and is active.
func (s *SQLiteStorage) verifyCategory(ctx context.Context, categoryID int64) error {
	exists, err := s.CategoryExists(ctx, categoryID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("category %d: %w", categoryID, common.ErrUnknownCategory)
	}
	return nil
}

func requireRowsAffected(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanRule.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*model.Rule, error) {
	var rule model.Rule
	var secondaryAmount sql.NullFloat64
	var lastAppliedAt sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.OwnerID, &rule.CategoryID,
		&rule.MatchField, &rule.MatchType, &rule.Pattern,
		&secondaryAmount, &rule.Priority, &rule.IsActive, &rule.UseCount,
		&lastAppliedAt, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if secondaryAmount.Valid {
		rule.SecondaryAmount = &secondaryAmount.Float64
	}
	if lastAppliedAt.Valid {
		rule.LastAppliedAt = &lastAppliedAt.Time
	}

	return &rule, nil
}
