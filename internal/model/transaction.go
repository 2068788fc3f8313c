package model

import "time"

// Transaction is the projection of a financial transaction that the rule
// engine reads and categorizes. The engine never creates or deletes
// transactions; it only assigns CategoryID.
type Transaction struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Merchant    string    `json:"merchant"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CategoryID  int64     `json:"category_id"` // 0 = unassigned
}
