package domain

// Merchant is a deduplicated merchant identity. NormalizedName is the unique
// key, derived deterministically from raw descriptors; see utils/merchantnorm.
type Merchant struct {
	MerchantID     string  `json:"merchantID"`
	NormalizedName string  `json:"normalizedName"`
	DisplayName    *string `json:"displayName,omitempty"`
	AuditFields
}
