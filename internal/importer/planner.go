package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

// Planner turns NeedsCreation rows into catalog items, in file order, and
// applies catalog updates to matched rows.
//
// Rows must be fed in file order: a master created by an earlier row is
// visible to later rows through the snapshot, but a sub listed before its new
// master has already been skipped by the classifier.
type Planner struct {
	store      Store
	storeID    uuid.UUID
	schema     Schema
	categories categorySet
}

// NewPlanner builds a planner writing through store.
func NewPlanner(store Store, storeID uuid.UUID, schema Schema, categories []string) *Planner {
	return &Planner{store: store, storeID: storeID, schema: schema, categories: newCategorySet(categories)}
}

// Apply executes the disposition of one row and returns the final one, which
// is Matched or Skipped. created is true when a catalog item was inserted.
// A non-nil error is a store failure for this row; created may still be true
// when the failure happened after the insert.
func (p *Planner) Apply(ctx context.Context, row Row, d Disposition, snap *catalog.Snapshot) (Disposition, bool, error) {
	switch d := d.(type) {
	case Matched:
		return d, false, p.update(ctx, row, d.Item)
	case NeedsCreation:
		if item, ok := snap.Lookup(row.ItemName); ok {
			return Matched{Item: item}, false, p.update(ctx, row, item)
		}
		return p.create(ctx, row, d, snap)
	case Skipped:
		return d, false, nil
	}
	return Skipped{Reason: "unclassified row"}, false, nil
}

func (p *Planner) create(ctx context.Context, row Row, d NeedsCreation, snap *catalog.Snapshot) (Disposition, bool, error) {
	attrs := catalog.NewItem{
		Name:     strings.TrimSpace(row.ItemName),
		Brand:    row.Brand,
		Category: d.Category,
		Size:     row.Size,
		Kind:     d.Kind,
	}
	if d.Parent != nil {
		attrs.ParentID = d.Parent.ID
		if d.Parent.Category != "" {
			attrs.Category = d.Parent.Category
		} else if category, ok := p.categories.canonical(row.Category); ok {
			attrs.Category = category
		}
		if attrs.Brand == "" {
			attrs.Brand = d.Parent.Brand
		}
	}

	item, err := p.store.CreateItem(ctx, attrs)
	if errors.Is(err, catalog.ErrDuplicateName) {
		return p.adopt(ctx, row, d, snap)
	}
	if err != nil {
		return d, false, err
	}
	snap.Put(item)

	if item.Kind.Stocking() {
		level := catalog.StockLevel{StoreID: p.storeID, ItemID: item.ID, Quantity: decimal.Zero}
		if p.schema == SchemaCatalog {
			level.Quantity = amount(row.Quantity)
			level.UnitCost = optionalAmount(row.UnitCost)
			level.ReorderLevel = optionalAmount(row.ReorderLevel)
		}
		if err := p.store.UpsertStockLevel(ctx, level); err != nil {
			return Matched{Item: item}, true, err
		}
	}
	return Matched{Item: item}, true, nil
}

// adopt handles a name that exists globally but was missing from the snapshot:
// the existing record is reused and pulled into the intended hierarchy.
func (p *Planner) adopt(ctx context.Context, row Row, d NeedsCreation, snap *catalog.Snapshot) (Disposition, bool, error) {
	existing, err := p.store.FindItemByName(ctx, row.ItemName)
	if err != nil {
		return Skipped{Reason: reasonDuplicateName}, false, nil
	}

	var update catalog.ItemUpdate
	if d.Parent != nil {
		kind := catalog.KindSub
		parentID := d.Parent.ID
		update.Kind = &kind
		update.ParentID = &parentID
		if d.Parent.Category != "" {
			category := d.Parent.Category
			update.Category = &category
		}
		if d.Parent.Brand != "" {
			brand := d.Parent.Brand
			update.Brand = &brand
		}
	}
	if !update.IsEmpty() {
		if err := p.store.UpdateItem(ctx, existing.ID, update); err != nil {
			snap.Put(existing)
			return Matched{Item: existing}, false, err
		}
		existing = applyUpdate(existing, update)
	}
	snap.Put(existing)

	if existing.Kind.Stocking() {
		level := catalog.StockLevel{StoreID: p.storeID, ItemID: existing.ID, Quantity: decimal.Zero}
		if err := p.store.UpsertStockLevel(ctx, level); err != nil {
			return Matched{Item: existing}, false, err
		}
	}
	return Matched{Item: existing}, false, nil
}

// update applies catalog-schema attribute changes to a matched item.
// Quantities are never overwritten here; stock moves go through receiving.
func (p *Planner) update(ctx context.Context, row Row, item catalog.Item) error {
	if p.schema != SchemaCatalog {
		return nil
	}
	var update catalog.ItemUpdate
	if brand := strings.TrimSpace(row.Brand); brand != "" && brand != item.Brand {
		update.Brand = &brand
	}
	if size := strings.TrimSpace(row.Size); size != "" && size != item.Size {
		update.Size = &size
	}
	if category, ok := p.categories.canonical(row.Category); ok && category != item.Category {
		update.Category = &category
	}
	if !update.IsEmpty() {
		if err := p.store.UpdateItem(ctx, item.ID, update); err != nil {
			return err
		}
	}

	unitCost := optionalAmount(row.UnitCost)
	reorder := optionalAmount(row.ReorderLevel)
	if !item.Kind.Stocking() || (unitCost == nil && reorder == nil) {
		return nil
	}
	return p.store.UpsertStockLevel(ctx, catalog.StockLevel{
		StoreID:      p.storeID,
		ItemID:       item.ID,
		Quantity:     decimal.Zero,
		UnitCost:     unitCost,
		ReorderLevel: reorder,
	})
}

func applyUpdate(item catalog.Item, update catalog.ItemUpdate) catalog.Item {
	if update.Brand != nil {
		item.Brand = *update.Brand
	}
	if update.Category != nil {
		item.Category = *update.Category
	}
	if update.Size != nil {
		item.Size = *update.Size
	}
	if update.Kind != nil {
		item.Kind = *update.Kind
	}
	if update.ParentID != nil {
		item.ParentID = *update.ParentID
	}
	return item
}

func errorLine(row Row, err error) string {
	return fmt.Sprintf("%s: %v", strings.TrimSpace(row.ItemName), err)
}
