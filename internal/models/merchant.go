package models

import "time"

// Merchant is the database shape of a merchant row.
type Merchant struct {
	MerchantID     string    `db:"merchant_id"`
	NormalizedName string    `db:"normalized_name"`
	DisplayName    *string   `db:"display_name"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
