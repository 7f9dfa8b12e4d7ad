package mapping

import (
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/models"
)

// ToDomainAggregatorItem converts a database row to a domain item.
func ToDomainAggregatorItem(m models.AggregatorItem) domain.AggregatorItem {
	return domain.AggregatorItem{
		ItemID:                   m.ItemID,
		AccessToken:              m.AccessToken,
		SyncCursor:               m.SyncCursor,
		InvestmentsSyncedThrough: m.InvestmentsSyncedThrough,
		InstitutionID:            m.InstitutionID,
		InstitutionName:          m.InstitutionName,
		AuditFields:              ToDomainAuditFields(m.CreatedAt, m.UpdatedAt),
	}
}

// ToModelAggregatorItem converts a domain item to its database shape.
func ToModelAggregatorItem(d domain.AggregatorItem) models.AggregatorItem {
	return models.AggregatorItem{
		ItemID:                   d.ItemID,
		AccessToken:              d.AccessToken,
		SyncCursor:               d.SyncCursor,
		InvestmentsSyncedThrough: d.InvestmentsSyncedThrough,
		InstitutionID:            d.InstitutionID,
		InstitutionName:          d.InstitutionName,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
}

// ToDomainAggregatorAccount converts a database row to a domain account.
func ToDomainAggregatorAccount(m models.AggregatorAccount) domain.AggregatorAccount {
	return domain.AggregatorAccount{
		AccountID:     m.AccountID,
		ItemID:        m.ItemID,
		Mask:          m.Mask,
		Type:          m.Type,
		Subtype:       m.Subtype,
		InstitutionID: m.InstitutionID,
	}
}

// ToModelAggregatorAccount converts a domain account to its database shape.
func ToModelAggregatorAccount(d domain.AggregatorAccount) models.AggregatorAccount {
	return models.AggregatorAccount{
		AccountID:     d.AccountID,
		ItemID:        d.ItemID,
		Mask:          d.Mask,
		Type:          d.Type,
		Subtype:       d.Subtype,
		InstitutionID: d.InstitutionID,
	}
}
