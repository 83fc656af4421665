package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

const (
	reasonMissingName     = "Missing item name"
	reasonInvalidQuantity = "invalid quantity"
	reasonNotFound        = "not found"
	reasonSubNeedsParent  = "parent name is required for sub items"
	reasonMissingCategory = "category is required for new items"
	reasonDuplicateName   = "duplicate name conflict"
	reasonMasterNoStock   = "master items do not hold stock"
)

// categorySet matches category names case-insensitively and returns the
// configured spelling.
type categorySet map[string]string

func newCategorySet(names []string) categorySet {
	set := make(categorySet, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		set[catalog.FoldName(name)] = strings.TrimSpace(name)
	}
	return set
}

func (c categorySet) canonical(raw string) (string, bool) {
	name, ok := c[catalog.FoldName(raw)]
	return name, ok
}

// Classifier assigns a disposition to each row. It only reads the snapshot.
type Classifier struct {
	schema     Schema
	categories categorySet
}

// NewClassifier builds a classifier. Categories only matter for the catalog schema.
func NewClassifier(schema Schema, categories []string) *Classifier {
	return &Classifier{schema: schema, categories: newCategorySet(categories)}
}

// Classify runs the validation chain; the first failing check decides.
func (c *Classifier) Classify(row Row, snap *catalog.Snapshot) Disposition {
	if strings.TrimSpace(row.ItemName) == "" {
		return Skipped{Reason: reasonMissingName}
	}

	kind := catalog.KindStandalone
	switch c.schema {
	case SchemaCatalog:
		k, ok := catalog.ParseKind(row.ItemType)
		if !ok {
			return Skipped{Reason: fmt.Sprintf("invalid item type %q", row.ItemType)}
		}
		kind = k
		if _, ok := parseAmount(row.Quantity); !ok {
			return Skipped{Reason: fmt.Sprintf("invalid quantity %q", row.Quantity)}
		}
	case SchemaTransactions:
		qty, ok := parseAmount(row.Quantity)
		if !ok {
			return Skipped{Reason: fmt.Sprintf("invalid quantity %q", row.Quantity)}
		}
		purchaseQty, ok := parseAmount(row.PurchaseQty)
		if !ok {
			return Skipped{Reason: fmt.Sprintf("invalid purchase qty %q", row.PurchaseQty)}
		}
		if !qty.IsPositive() && !purchaseQty.IsPositive() {
			return Skipped{Reason: reasonInvalidQuantity}
		}
	}

	if item, ok := snap.Lookup(row.ItemName); ok {
		if c.schema == SchemaTransactions && !item.Kind.Stocking() {
			return Skipped{Reason: reasonMasterNoStock}
		}
		return Matched{Item: item}
	}

	if parentName := strings.TrimSpace(row.ParentName); parentName != "" {
		if c.schema == SchemaCatalog && strings.TrimSpace(row.ItemType) != "" && kind != catalog.KindSub {
			return Skipped{Reason: fmt.Sprintf("item_type %q cannot have a parent", string(kind))}
		}
		parent, ok := snap.Master(parentName)
		if !ok {
			return Skipped{Reason: fmt.Sprintf("parent %q not found", parentName)}
		}
		return NeedsCreation{Kind: catalog.KindSub, Parent: &parent, Category: parent.Category}
	}

	if c.schema != SchemaCatalog {
		return Skipped{Reason: reasonNotFound}
	}
	if kind == catalog.KindSub {
		return Skipped{Reason: reasonSubNeedsParent}
	}
	if strings.TrimSpace(row.Category) == "" {
		return Skipped{Reason: reasonMissingCategory}
	}
	category, ok := c.categories.canonical(row.Category)
	if !ok {
		return Skipped{Reason: fmt.Sprintf("invalid category %q", row.Category)}
	}
	return NeedsCreation{Kind: kind, Category: category}
}

// parseAmount parses a numeric cell. Empty cells are zero; a leading "$" and
// thousands separators are accepted.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, true
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// amount parses a cell leniently: anything unparseable is zero.
func amount(raw string) decimal.Decimal {
	d, _ := parseAmount(raw)
	return d
}

// optionalAmount returns nil for empty or unparseable cells.
func optionalAmount(raw string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, ok := parseAmount(raw)
	if !ok {
		return nil
	}
	return &d
}
