package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/finagent/finagent/internal/core/domain"
	"github.com/finagent/finagent/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testCategoryRows() []domain.Category {
	return []domain.Category{
		{CategoryID: "c-food", Key: "FOOD", Name: "Food"},
		{CategoryID: "c-coffee", Key: "FOOD.COFFEE", Name: "Coffee", ParentKey: strPtr("FOOD")},
		{CategoryID: "c-groceries", Key: "FOOD.GROCERIES", Name: "Groceries", ParentKey: strPtr("FOOD")},
		{CategoryID: "c-transfer", Key: "TRANSFER", Name: "Transfers"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTaxonomyLoad(t *testing.T) {
	cats := new(MockCategoryReader)
	cats.On("ListCategories", mock.Anything).Return(testCategoryRows(), nil).Once()

	svc := services.NewTaxonomyService(cats, discardLogger())
	tax, lookup, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, tax.Len())
	assert.True(t, tax.IsValidKey("FOOD.COFFEE"))
	assert.False(t, tax.IsValidKey("NOPE"))

	id, ok := lookup("FOOD.COFFEE")
	require.True(t, ok)
	assert.Equal(t, "c-coffee", id)

	_, ok = lookup("NOPE")
	assert.False(t, ok)

	cats.AssertExpectations(t)
}

func TestTaxonomyLoadEmptyFails(t *testing.T) {
	cats := new(MockCategoryReader)
	cats.On("ListCategories", mock.Anything).Return([]domain.Category{}, nil).Once()

	svc := services.NewTaxonomyService(cats, discardLogger())
	_, _, err := svc.Load(context.Background())
	assert.Error(t, err)
}
