package db

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// tableColumns extracts the column names of one CREATE TABLE block
// from the initial migration.
func tableColumns(t *testing.T, schema, table string) map[string]bool {
	t.Helper()

	re := regexp.MustCompile(`(?s)CREATE TABLE ` + table + ` \((.*?)\n\);`)
	m := re.FindStringSubmatch(schema)
	require.NotNil(t, m, "table %s not found in migration", table)

	cols := map[string]bool{}
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "CONSTRAINT" {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

// The stores write these columns; a schema that lacks any of them
// fails every insert on a freshly migrated database.
func TestSchemaMatchesStoreColumns(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	expected := map[string][]string{
		"context_spaces": {
			"id", "organization_id", "parent_id", "name", "description",
			"space_type", "created_by", "created_at", "updated_at",
		},
		"feature_requests": {
			"id", "context_space_id", "title", "description", "status",
			"priority", "effort", "source", "tags", "created_by",
			"created_at", "updated_at",
		},
		"embeddings": {
			"id", "context_space_id", "source_type", "source_id", "content",
			"embedding", "model", "created_at", "updated_at",
		},
		"ai_conversations": {
			"id", "organization_id", "user_id", "kind", "context_space_id",
			"title", "created_at", "updated_at",
		},
		"ai_messages": {
			"id", "conversation_id", "role", "content", "created_at",
		},
		"ai_usage_log": {
			"id", "user_id", "organization_id", "vendor", "model",
			"capability", "credential_source", "conversation_id",
			"tokens_input", "tokens_output", "cost_usd", "created_at",
		},
	}

	for table, columns := range expected {
		cols := tableColumns(t, schema, table)
		for _, col := range columns {
			require.True(t, cols[col], "table %s missing column %s", table, col)
		}
	}
}
