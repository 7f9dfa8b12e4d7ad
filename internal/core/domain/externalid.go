package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// CanonicalExternalID derives a stable external id for sources that do not
// supply one. Equal inputs hash identically across processes and runs.
func CanonicalExternalID(postedAt time.Time, amountCents int64, currency, normalizedDescriptor, accountID, institution string, source Source) string {
	payload := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s",
		postedAt.UTC().Format("2006-01-02"),
		amountCents,
		currency,
		normalizedDescriptor,
		accountID,
		institution,
		source,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
