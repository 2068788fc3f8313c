package model

import "time"

// UncategorizedName is the reserved category that means "no real
// categorization yet". Transactions in this bucket are treated as
// uncategorized by both the matcher's skip logic and the pattern miner.
const UncategorizedName = "Uncategorized"

// Category represents a spending category that rules assign to transactions.
type Category struct {
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ID          int64     `json:"id"`
	IsActive    bool      `json:"is_active"`
}

// IsDefaultBucket reports whether the category is a reserved default bucket
// rather than a real user categorization.
func (c Category) IsDefaultBucket() bool {
	return c.Name == UncategorizedName
}

// DefaultBucketIDs returns the IDs of the reserved default categories in the
// given set, for use as the matcher's skip set. Category ID 0 (unassigned)
// is always implied and never part of the returned set.
func DefaultBucketIDs(categories []Category) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, c := range categories {
		if c.IsDefaultBucket() {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}
