package domain_test

import (
	"testing"

	"github.com/finagent/finagent/internal/apperrors"
	"github.com/finagent/finagent/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testNodes() []domain.Category {
	return []domain.Category{
		{CategoryID: "c4", Key: "TRANSPORT", Name: "Transport"},
		{CategoryID: "c1", Key: "FOOD", Name: "Food"},
		{CategoryID: "c3", Key: "FOOD.COFFEE_SHOPS", Name: "Coffee Shops", ParentKey: strPtr("FOOD"), Rules: []string{"coffee", "espresso"}},
		{CategoryID: "c2", Key: "FOOD.GROCERIES", Name: "Groceries", ParentKey: strPtr("FOOD")},
		{CategoryID: "c5", Key: "TRANSPORT.RIDESHARE", Name: "Rideshare", ParentKey: strPtr("TRANSPORT")},
	}
}

func TestTaxonomyLookups(t *testing.T) {
	tax := domain.NewTaxonomy(testNodes())

	assert.True(t, tax.IsValidKey("FOOD.GROCERIES"))
	assert.True(t, tax.IsValidKey("FOOD"))
	assert.False(t, tax.IsValidKey("FOOD.IMAGINARY"))

	node, err := tax.Get("FOOD.COFFEE_SHOPS")
	require.NoError(t, err)
	assert.Equal(t, "Coffee Shops", node.Name)

	_, err = tax.Get("NOPE")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTaxonomyChildrenAreOrdered(t *testing.T) {
	tax := domain.NewTaxonomy(testNodes())

	children := tax.Children("FOOD")
	require.Len(t, children, 2)
	assert.Equal(t, "FOOD.COFFEE_SHOPS", children[0].Key)
	assert.Equal(t, "FOOD.GROCERIES", children[1].Key)
}

func TestTaxonomyParent(t *testing.T) {
	tax := domain.NewTaxonomy(testNodes())

	parent, err := tax.Parent("FOOD.GROCERIES")
	require.NoError(t, err)
	assert.Equal(t, "FOOD", parent.Key)

	_, err = tax.Parent("FOOD")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTaxonomyPathString(t *testing.T) {
	tax := domain.NewTaxonomy(testNodes())

	path, err := tax.PathString("FOOD.GROCERIES", " > ")
	require.NoError(t, err)
	assert.Equal(t, "Food > Groceries", path)

	path, err = tax.PathString("TRANSPORT", " > ")
	require.NoError(t, err)
	assert.Equal(t, "Transport", path)
}

func TestTaxonomyDigestIsStable(t *testing.T) {
	a := domain.NewTaxonomy(testNodes())

	// Same nodes in a different input order produce the same digest.
	nodes := testNodes()
	nodes[0], nodes[3] = nodes[3], nodes[0]
	b := domain.NewTaxonomy(nodes)

	assert.Equal(t, a.Digest(), b.Digest())

	// Removing a node changes the digest.
	c := domain.NewTaxonomy(nodes[:3])
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestRenderForPrompt(t *testing.T) {
	tax := domain.NewTaxonomy(testNodes())

	rendered := tax.RenderForPrompt(nil, true)
	require.Len(t, rendered, 2)
	assert.Equal(t, "FOOD", rendered[0].Key)
	require.Len(t, rendered[0].Children, 2)
	assert.Equal(t, []string{"coffee", "espresso"}, rendered[0].Children[0].Rules)

	// Subset restricts to named roots; rules can be suppressed.
	subset := tax.RenderForPrompt([]string{"TRANSPORT"}, false)
	require.Len(t, subset, 1)
	assert.Equal(t, "TRANSPORT", subset[0].Key)
	require.Len(t, subset[0].Children, 1)
	assert.Nil(t, subset[0].Children[0].Rules)
}
