package models

// Tag is the database shape of a tag row.
type Tag struct {
	TagID string `db:"tag_id"`
	Name  string `db:"name"`
}

// TransactionTag is one row of the many-to-many link table.
type TransactionTag struct {
	TransactionID string `db:"transaction_id"`
	TagID         string `db:"tag_id"`
}
