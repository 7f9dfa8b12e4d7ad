package models

// Category is the database shape of a taxonomy node.
type Category struct {
	CategoryID  string   `db:"category_id"`
	ParentID    *string  `db:"parent_id"`
	Key         string   `db:"key"`
	Name        string   `db:"name"`
	Description *string  `db:"description"`
	Rules       []string `db:"rules"`
	ParentKey   *string  `db:"parent_key"` // joined in by the loader query
}
