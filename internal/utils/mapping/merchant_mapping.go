package mapping

import (
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/models"
)

// ToDomainMerchant converts a database row to a domain Merchant.
func ToDomainMerchant(m models.Merchant) domain.Merchant {
	return domain.Merchant{
		MerchantID:     m.MerchantID,
		NormalizedName: m.NormalizedName,
		DisplayName:    m.DisplayName,
		AuditFields:    ToDomainAuditFields(m.CreatedAt, m.UpdatedAt),
	}
}

// ToDomainCategory converts a database row to a domain taxonomy node.
func ToDomainCategory(m models.Category) domain.Category {
	node := domain.Category{
		CategoryID: m.CategoryID,
		Key:        m.Key,
		Name:       m.Name,
		ParentKey:  m.ParentKey,
		Rules:      m.Rules,
	}
	if m.Description != nil {
		node.Description = *m.Description
	}
	return node
}

// ToDomainTag converts a database row to a domain Tag.
func ToDomainTag(m models.Tag) domain.Tag {
	return domain.Tag{TagID: m.TagID, Name: m.Name}
}
