package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"smartspend/internal/common"
	"smartspend/internal/model"
	"smartspend/internal/service"
)

// SaveTransactions inserts a batch of transactions, ignoring duplicates by ID.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (id, owner_id, date, merchant, description, amount, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		var categoryID any
		if txn.CategoryID != 0 {
			categoryID = txn.CategoryID
		}
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.OwnerID, txn.Date, txn.Merchant, txn.Description,
			txn.Amount, categoryID); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

// GetTransactions retrieves an owner's transactions, newest first, applying
// the optional filter.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, ownerID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	query := `SELECT id, owner_id, date, merchant, description, amount, category_id
		FROM transactions WHERE owner_id = ?`
	args := []any{ownerID}

	if len(filter.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.IDs)), ",")
		query += ` AND id IN (` + placeholders + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.EndDate)
	}

	query += ` ORDER BY date DESC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	return s.queryTransactions(ctx, query, args...)
}

// GetCategorizedTransactions retrieves an owner's transactions that carry a
// category assignment, as input for pattern mining. Default-bucket filtering
// happens in the miner, which knows the reserved category set.
func (s *SQLiteStorage) GetCategorizedTransactions(ctx context.Context, ownerID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	query := `SELECT id, owner_id, date, merchant, description, amount, category_id
		FROM transactions
		WHERE owner_id = ? AND category_id IS NOT NULL
		ORDER BY date DESC, id ASC`

	return s.queryTransactions(ctx, query, ownerID)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var categoryID sql.NullInt64
		err := rows.Scan(&txn.ID, &txn.OwnerID, &txn.Date, &txn.Merchant,
			&txn.Description, &txn.Amount, &categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if categoryID.Valid {
			txn.CategoryID = categoryID.Int64
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// UpdateTransactionCategory assigns a category to a single transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, transactionID string, categoryID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`,
		categoryID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, common.ErrNotFound)
	}
	return nil
}
