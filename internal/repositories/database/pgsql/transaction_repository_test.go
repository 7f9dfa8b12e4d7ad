package pgsql

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The manual recategorization statement rewrites the override columns only.
// category_model must survive so the prior LLM attribution stays readable on
// manually reclassified rows.
func TestRecategorizeDerivedStatementPreservesModel(t *testing.T) {
	setStart := strings.Index(recategorizeDerivedSQL, "SET ")
	fromStart := strings.Index(recategorizeDerivedSQL, "FROM ")
	require.Greater(t, setStart, -1)
	require.Greater(t, fromStart, setStart)
	setClause := recategorizeDerivedSQL[setStart:fromStart]

	assert.Contains(t, setClause, "category_key")
	assert.Contains(t, setClause, "category_method")
	assert.Contains(t, setClause, "category_assigned_at")
	assert.NotContains(t, setClause, "category_model")
}

func TestQueueManualEventsOnePerRowWithNullModel(t *testing.T) {
	ids := []string{"t-1", "t-2", "t-3"}
	batch := &pgx.Batch{}
	queueManualEvents(batch, ids, "FOOD.GROCERIES", "bulk recategorize by merchant", time.Now().UTC())

	require.Equal(t, len(ids), batch.Len())

	// The event statement pins the model column to NULL; only six bind
	// parameters exist and none of them is a model value.
	assert.Contains(t, manualEventSQL, "NULL")
	assert.NotContains(t, manualEventSQL, "$7")
	for i, q := range batch.QueuedQueries {
		require.Len(t, q.Arguments, 6)
		assert.Equal(t, ids[i], q.Arguments[1])
		assert.Equal(t, "FOOD.GROCERIES", q.Arguments[2])
		assert.Equal(t, "MANUAL", q.Arguments[3])
	}
}
