package mapping

import (
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/models"
)

// ToModelTransaction converts a domain Transaction to its database shape.
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:      d.TransactionID,
		ExternalID:         d.ExternalID,
		Source:             string(d.Source),
		AccountID:          d.AccountID,
		PostedAt:           d.PostedAt,
		AmountCents:        d.AmountCents,
		Currency:           d.Currency,
		MerchantDescriptor: d.MerchantDescriptor,
		MerchantID:         d.MerchantID,
		CategoryID:         d.CategoryID,
		Institution:        d.Institution,
		IsVerified:         d.IsVerified,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// ToDomainTransaction converts a database row to a domain Transaction.
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:      m.TransactionID,
		ExternalID:         m.ExternalID,
		Source:             domain.Source(m.Source),
		AccountID:          m.AccountID,
		PostedAt:           m.PostedAt,
		AmountCents:        m.AmountCents,
		Currency:           m.Currency,
		MerchantDescriptor: m.MerchantDescriptor,
		MerchantID:         m.MerchantID,
		CategoryID:         m.CategoryID,
		Institution:        m.Institution,
		IsVerified:         m.IsVerified,
		AuditFields:        ToDomainAuditFields(m.CreatedAt, m.UpdatedAt),
	}
}

// ToDomainDerivedTransaction converts a database row to the domain projection.
func ToDomainDerivedTransaction(m models.DerivedTransaction) domain.DerivedTransaction {
	var mode *domain.ReportingMode
	if m.ReportingMode != nil {
		rm := domain.ReportingMode(*m.ReportingMode)
		mode = &rm
	}
	return domain.DerivedTransaction{
		TransactionID:      m.TransactionID,
		CategoryKey:        m.CategoryKey,
		CategoryModel:      m.CategoryModel,
		CategoryMethod:     domain.CategoryMethod(m.CategoryMethod),
		CategoryAssignedAt: m.CategoryAssignedAt,
		ReportingMode:      mode,
		MerchantSummary:    m.MerchantSummary,
	}
}

// ToModelDerivedTransaction converts the domain projection to its database shape.
func ToModelDerivedTransaction(d domain.DerivedTransaction) models.DerivedTransaction {
	var mode *string
	if d.ReportingMode != nil {
		s := string(*d.ReportingMode)
		mode = &s
	}
	return models.DerivedTransaction{
		TransactionID:      d.TransactionID,
		CategoryKey:        d.CategoryKey,
		CategoryModel:      d.CategoryModel,
		CategoryMethod:     string(d.CategoryMethod),
		CategoryAssignedAt: d.CategoryAssignedAt,
		ReportingMode:      mode,
		MerchantSummary:    d.MerchantSummary,
	}
}

// ToModelCategoryEvent converts a domain category event to its database shape.
func ToModelCategoryEvent(d domain.CategoryEvent) models.CategoryEvent {
	return models.CategoryEvent{
		EventID:       d.EventID,
		TransactionID: d.TransactionID,
		CategoryKey:   d.CategoryKey,
		Method:        string(d.Method),
		Model:         d.Model,
		Rationale:     d.Rationale,
		AssignedAt:    d.AssignedAt,
	}
}

// ToDomainCategoryEvent converts a database row to a domain category event.
func ToDomainCategoryEvent(m models.CategoryEvent) domain.CategoryEvent {
	return domain.CategoryEvent{
		EventID:       m.EventID,
		TransactionID: m.TransactionID,
		CategoryKey:   m.CategoryKey,
		Method:        domain.CategoryMethod(m.Method),
		Model:         m.Model,
		Rationale:     m.Rationale,
		AssignedAt:    m.AssignedAt,
	}
}
