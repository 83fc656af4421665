package importer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Item{
		{ID: uuid.New(), Name: "Gel Polish", Category: "Nails", Brand: "OPI", Kind: catalog.KindMaster},
		{ID: uuid.New(), Name: "Shampoo", Category: "Haircare", Kind: catalog.KindStandalone},
	})
}

func TestClassifyCatalogRows(t *testing.T) {
	snap := testSnapshot()
	c := NewClassifier(SchemaCatalog, []string{"Skincare", "Nails"})

	cases := []struct {
		name string
		row  Row
		want any
	}{
		{"missing name", Row{ItemName: "  "}, Skipped{Reason: reasonMissingName}},
		{"bad quantity", Row{ItemName: "Toner", Quantity: "ten"}, Skipped{Reason: `invalid quantity "ten"`}},
		{"bad item type", Row{ItemName: "Toner", ItemType: "kit"}, Skipped{Reason: `invalid item type "kit"`}},
		{"matched ignores category", Row{ItemName: "shampoo", Category: "Haircare"}, Matched{}},
		{"unknown parent", Row{ItemName: "Gel Polish - Red", ParentName: "Acrylic"}, Skipped{Reason: `parent "Acrylic" not found`}},
		{"parent must be master", Row{ItemName: "Shampoo Mini", ParentName: "Shampoo"}, Skipped{Reason: `parent "Shampoo" not found`}},
		{"sub without parent", Row{ItemName: "Red", ItemType: "sub", Category: "Nails"}, Skipped{Reason: reasonSubNeedsParent}},
		{"master with parent", Row{ItemName: "Shade", Category: "Nails", ItemType: "master", ParentName: "Gel Polish"}, Skipped{Reason: `item_type "master" cannot have a parent`}},
		{"standalone with parent", Row{ItemName: "Shade", ItemType: "Standalone", ParentName: "Gel Polish"}, Skipped{Reason: `item_type "standalone" cannot have a parent`}},
		{"missing category", Row{ItemName: "Toner"}, Skipped{Reason: reasonMissingCategory}},
		{"invalid category", Row{ItemName: "Toner", Category: "Haircare"}, Skipped{Reason: `invalid category "Haircare"`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.row, snap)
			switch want := tc.want.(type) {
			case Skipped:
				require.Equal(t, want, got)
			case Matched:
				require.IsType(t, Matched{}, got)
			}
		})
	}
}

func TestClassifyNeedsCreation(t *testing.T) {
	snap := testSnapshot()
	c := NewClassifier(SchemaCatalog, []string{"Skincare", "Nails"})

	got := c.Classify(Row{ItemName: "Toner", Category: "skincare", ItemType: "Master"}, snap)
	require.Equal(t, NeedsCreation{Kind: catalog.KindMaster, Category: "Skincare"}, got)

	got = c.Classify(Row{ItemName: "Gel Polish - Red", ParentName: "gel polish"}, snap)
	nc, ok := got.(NeedsCreation)
	require.True(t, ok)
	require.Equal(t, catalog.KindSub, nc.Kind)
	require.Equal(t, "Gel Polish", nc.Parent.Name)
	require.Equal(t, "Nails", nc.Category)
}

func TestClassifyTransactionRows(t *testing.T) {
	snap := testSnapshot()
	c := NewClassifier(SchemaTransactions, nil)

	require.Equal(t, Skipped{Reason: reasonInvalidQuantity}, c.Classify(Row{ItemName: "Shampoo", Quantity: "0"}, snap))
	require.Equal(t, Skipped{Reason: `invalid purchase qty "two"`}, c.Classify(Row{ItemName: "Shampoo", PurchaseQty: "two"}, snap))
	require.Equal(t, Skipped{Reason: reasonNotFound}, c.Classify(Row{ItemName: "Toner", Quantity: "3"}, snap))
	require.IsType(t, Matched{}, c.Classify(Row{ItemName: "SHAMPOO", PurchaseQty: "2"}, snap))

	got := c.Classify(Row{ItemName: "Gel Polish - Blue", ParentName: "Gel Polish", Quantity: "4"}, snap)
	require.IsType(t, NeedsCreation{}, got)

	require.Equal(t, Skipped{Reason: reasonMasterNoStock}, c.Classify(Row{ItemName: "gel polish", Quantity: "6"}, snap))
}

func TestParseAmount(t *testing.T) {
	d, ok := parseAmount(" $1,250.50 ")
	require.True(t, ok)
	require.Equal(t, "1250.5", d.String())

	d, ok = parseAmount("")
	require.True(t, ok)
	require.True(t, d.IsZero())

	_, ok = parseAmount("n/a")
	require.False(t, ok)
	require.True(t, amount("n/a").IsZero())
	require.Nil(t, optionalAmount(" "))
	require.Nil(t, optionalAmount("abc"))
	require.Equal(t, "2.5", optionalAmount("2.50").String())
}
