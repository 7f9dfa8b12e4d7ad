package mapping

import (
	"time"

	"github.com/finagent/finagent/internal/core/domain"
)

// ToDomainAuditFields builds domain audit fields from row timestamps.
func ToDomainAuditFields(createdAt, updatedAt time.Time) domain.AuditFields {
	return domain.AuditFields{CreatedAt: createdAt, UpdatedAt: updatedAt}
}
