package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

func TestMigrationsAreEmbeddedInOrder(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "migrations/0001_inventory_import.sql", names[0])

	body, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	for _, table := range []string{"inventory_items", "store_inventory_levels", "store_product_purchase_units", "inventory_categories"} {
		require.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table)
	}

	// Multipliers are stored at the scale the importer computes them with.
	require.Contains(t, string(body), fmt.Sprintf("multiplier     NUMERIC(30,%d)", catalog.MultiplierScale))
}
