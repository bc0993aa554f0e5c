package database

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

func readMigrations(t *testing.T) map[string]string {
	t.Helper()

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)

	files := map[string]string{}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		require.NoError(t, err)
		files[entry.Name()] = string(content)
	}
	require.NotEmpty(t, files)
	return files
}

func TestMigrations_CarryGooseMarkers(t *testing.T) {
	for name, content := range readMigrations(t) {
		assert.Contains(t, content, "-- +goose Up", name)
		assert.Contains(t, content, "-- +goose Down", name)
	}
}

func TestMigrations_AreSequentiallyNumbered(t *testing.T) {
	files := readMigrations(t)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "0000"), name)
		assert.Contains(t, name, "_", name)
	}
}

func TestMigrations_DefineCoreTables(t *testing.T) {
	all := strings.Builder{}
	for _, content := range readMigrations(t) {
		all.WriteString(content)
	}
	schema := all.String()

	for _, table := range []string{
		"users", "refresh_tokens", "brands", "categories", "products",
		"product_images", "product_specifications", "orders", "order_items",
		"checkout_handoffs",
	} {
		assert.Contains(t, schema, "CREATE TABLE "+table+" (", table)
	}

	// Guards the schema half of the stock and status invariants.
	assert.Contains(t, schema, "stock_quantity >= 0")
	assert.Contains(t, schema, "'pending'")
	assert.Contains(t, schema, "'cancelled'")
}
