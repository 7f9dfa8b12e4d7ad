package domain

// Tag is a globally-unique label attachable to transactions. Tagging is the
// one mutation allowed on verified rows.
type Tag struct {
	TagID string `json:"tagID"`
	Name  string `json:"name"`
}
