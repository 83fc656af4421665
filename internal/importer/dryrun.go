package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

// dryRunStore reads through to the real store and fakes every write.
// Fabricated items are remembered so duplicate detection still works.
type dryRunStore struct {
	Store
	created map[string]catalog.Item
	units   map[uuid.UUID][]catalog.PurchaseUnit
}

func newDryRunStore(store Store) *dryRunStore {
	return &dryRunStore{
		Store:   store,
		created: make(map[string]catalog.Item),
		units:   make(map[uuid.UUID][]catalog.PurchaseUnit),
	}
}

func (d *dryRunStore) FindItemByName(ctx context.Context, name string) (catalog.Item, error) {
	if item, ok := d.created[catalog.FoldName(name)]; ok {
		return item, nil
	}
	return d.Store.FindItemByName(ctx, name)
}

func (d *dryRunStore) CreateItem(ctx context.Context, in catalog.NewItem) (catalog.Item, error) {
	_, err := d.FindItemByName(ctx, in.Name)
	switch {
	case err == nil:
		return catalog.Item{}, fmt.Errorf("%w: %q", catalog.ErrDuplicateName, in.Name)
	case !errors.Is(err, catalog.ErrItemNotFound):
		return catalog.Item{}, err
	}
	item := catalog.Item{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(in.Name),
		Brand:    in.Brand,
		Category: in.Category,
		Size:     in.Size,
		Kind:     in.Kind,
		ParentID: in.ParentID,
	}
	d.created[catalog.FoldName(item.Name)] = item
	return item, nil
}

func (d *dryRunStore) UpdateItem(context.Context, uuid.UUID, catalog.ItemUpdate) error {
	return nil
}

func (d *dryRunStore) UpsertStockLevel(context.Context, catalog.StockLevel) error {
	return nil
}

func (d *dryRunStore) FindPurchaseUnits(ctx context.Context, storeID, itemID uuid.UUID) ([]catalog.PurchaseUnit, error) {
	units, err := d.Store.FindPurchaseUnits(ctx, storeID, itemID)
	if err != nil && !errors.Is(err, catalog.ErrItemNotFound) {
		return nil, err
	}
	return append(units, d.units[itemID]...), nil
}

func (d *dryRunStore) CreatePurchaseUnit(ctx context.Context, in catalog.NewPurchaseUnit) (catalog.PurchaseUnit, error) {
	if !in.Multiplier.IsPositive() {
		return catalog.PurchaseUnit{}, catalog.ErrInvalidMultiplier
	}
	unit := catalog.PurchaseUnit{
		ID:           uuid.New(),
		StoreID:      in.StoreID,
		ItemID:       in.ItemID,
		UnitName:     strings.TrimSpace(in.UnitName),
		Multiplier:   in.Multiplier,
		IsDefault:    in.IsDefault,
		DisplayOrder: in.DisplayOrder,
	}
	d.units[in.ItemID] = append(d.units[in.ItemID], unit)
	return unit, nil
}
