package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Row timestamps must come from the wall clock at statement time. now() is
// frozen at BEGIN, which runs before the advisory lock wait.
func TestTimestampsUseStatementClock(t *testing.T) {
	for i, stmt := range schemaStatements {
		assert.NotContains(t, stmt, "now()", "schema statement %d", i+1)
	}
	assert.Contains(t, schemaStatements[0], "created_at      TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()")

	var alters int
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "SET DEFAULT clock_timestamp()") {
			alters++
		}
	}
	assert.Equal(t, 2, alters, "existing tables get the new defaults")
}
