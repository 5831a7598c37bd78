package methods

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTableName(t *testing.T) {
	assert.Equal(t, "vector_abc123", BuildTableName("abc-123!!", "vector_"))
	assert.Equal(t, "vector_resource", BuildTableName("!!--!!", "vector_"))
	assert.Equal(t, "vector_resource", BuildTableName("", "vector_"))
	assert.Equal(t, "vector_deadbeef", BuildTableName("DEAD-BEEF", "vector_"))
}

func TestBuildTableNameIdempotent(t *testing.T) {
	ids := []string{
		"abc-123!!",
		"550e8400-e29b-41d4-a716-446655440000",
		"",
		strings.Repeat("a1b2-", 40),
	}
	for _, id := range ids {
		once := BuildTableName(id, "vector_")
		twice := BuildTableName(once, "vector_")
		assert.Equal(t, once, twice, "id %q", id)
	}
}

func TestBuildTableNameShape(t *testing.T) {
	ids := []string{
		strings.Repeat("x", 200),
		"550e8400-e29b-41d4-a716-446655440000",
		"UPPER.case.id",
	}
	for _, id := range ids {
		table := BuildTableName(id, "vector_")
		assert.LessOrEqual(t, len(table), 60)
		_, err := SafeIdentifier(table, "table")
		assert.NoError(t, err, "derived name %q must be a safe identifier", table)
		assert.Equal(t, strings.ToLower(table), table)
	}
}
