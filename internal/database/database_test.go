package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateQuery(short))

	long := strings.Repeat("x", 250)
	got := truncateQuery(long)
	assert.Len(t, got, 203)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSchema_CoversEngineTables(t *testing.T) {
	joined := strings.Join(schema, "\n")
	for _, table := range []string{"technicians", "jobs", "time_off", "vehicles", "assignment_plans"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
