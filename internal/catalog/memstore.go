package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stockKey struct {
	store uuid.UUID
	item  uuid.UUID
}

// MemoryStore is an in-process catalog used by tests and local previews.
// It enforces the same uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu         sync.Mutex
	items      map[uuid.UUID]Item
	stock      map[stockKey]StockLevel
	units      map[stockKey][]PurchaseUnit
	categories []string

	// FailCreate, when set, is returned by CreateItem for the named item.
	FailCreate map[string]error
	// Creates counts successful CreateItem calls.
	Creates int
}

// NewMemoryStore builds an empty store with the given categories.
func NewMemoryStore(categories ...string) *MemoryStore {
	return &MemoryStore{
		items:      make(map[uuid.UUID]Item),
		stock:      make(map[stockKey]StockLevel),
		units:      make(map[stockKey][]PurchaseUnit),
		categories: categories,
		FailCreate: make(map[string]error),
	}
}

// SeedItem inserts item and gives it a zero stock row in each listed store.
func (m *MemoryStore) SeedItem(item Item, storeIDs ...uuid.UUID) Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Kind == "" {
		item.Kind = KindStandalone
	}
	m.items[item.ID] = item
	for _, storeID := range storeIDs {
		m.stock[stockKey{storeID, item.ID}] = StockLevel{StoreID: storeID, ItemID: item.ID, Quantity: decimal.Zero}
	}
	return item
}

// SeedUnit inserts a purchase unit directly.
func (m *MemoryStore) SeedUnit(unit PurchaseUnit) PurchaseUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	key := stockKey{unit.StoreID, unit.ItemID}
	m.units[key] = append(m.units[key], unit)
	return unit
}

// ItemByName returns the stored item with name, ignoring case.
func (m *MemoryStore) ItemByName(name string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byName(name)
	return item, ok
}

// Items returns all stored items sorted by name.
func (m *MemoryStore) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// Stock returns the stock row of item in store.
func (m *MemoryStore) Stock(storeID, itemID uuid.UUID) (StockLevel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level, ok := m.stock[stockKey{storeID, itemID}]
	return level, ok
}

// Units returns the purchase units hanging off itemID in store.
func (m *MemoryStore) Units(storeID, itemID uuid.UUID) []PurchaseUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PurchaseUnit(nil), m.units[stockKey{storeID, itemID}]...)
}

func (m *MemoryStore) byName(name string) (Item, bool) {
	key := FoldName(name)
	for _, item := range m.items {
		if FoldName(item.Name) == key {
			return item, true
		}
	}
	return Item{}, false
}

// ListItems returns masters plus items stocked in storeID.
func (m *MemoryStore) ListItems(ctx context.Context, storeID uuid.UUID) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []Item
	for _, item := range m.items {
		_, stocked := m.stock[stockKey{storeID, item.ID}]
		if item.Kind == KindMaster || stocked {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// FindItemByName looks an item up across all stores.
func (m *MemoryStore) FindItemByName(ctx context.Context, name string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.byName(name)
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

// CreateItem inserts an item; names are globally unique.
func (m *MemoryStore) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := strings.TrimSpace(in.Name)
	if err, ok := m.FailCreate[FoldName(name)]; ok {
		return Item{}, err
	}
	if _, ok := m.byName(name); ok {
		return Item{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	item := Item{
		ID:       uuid.New(),
		Name:     name,
		Brand:    in.Brand,
		Category: in.Category,
		Size:     in.Size,
		Kind:     in.Kind,
		ParentID: in.ParentID,
	}
	m.items[item.ID] = item
	m.Creates++
	return item, nil
}

// UpdateItem applies the non-nil fields of update.
func (m *MemoryStore) UpdateItem(ctx context.Context, id uuid.UUID, update ItemUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
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
	m.items[id] = item
	return nil
}

// UpsertStockLevel inserts a stock row or updates cost and reorder level of
// an existing one. The stored quantity is kept.
func (m *MemoryStore) UpsertStockLevel(ctx context.Context, level StockLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stockKey{level.StoreID, level.ItemID}
	current, ok := m.stock[key]
	if !ok {
		m.stock[key] = level
		return nil
	}
	if level.UnitCost != nil {
		current.UnitCost = level.UnitCost
	}
	if level.ReorderLevel != nil {
		current.ReorderLevel = level.ReorderLevel
	}
	m.stock[key] = current
	return nil
}

// FindPurchaseUnits lists the units of itemID in display order.
func (m *MemoryStore) FindPurchaseUnits(ctx context.Context, storeID, itemID uuid.UUID) ([]PurchaseUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	units := append([]PurchaseUnit(nil), m.units[stockKey{storeID, itemID}]...)
	sort.SliceStable(units, func(i, j int) bool { return units[i].DisplayOrder < units[j].DisplayOrder })
	return units, nil
}

// CreatePurchaseUnit inserts a unit; names are unique per store and item.
func (m *MemoryStore) CreatePurchaseUnit(ctx context.Context, in NewPurchaseUnit) (PurchaseUnit, error) {
	in.Multiplier = RoundMultiplier(in.Multiplier)
	if !in.Multiplier.IsPositive() {
		return PurchaseUnit{}, ErrInvalidMultiplier
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stockKey{in.StoreID, in.ItemID}
	if _, ok := FindUnit(m.units[key], in.UnitName); ok {
		return PurchaseUnit{}, fmt.Errorf("%w: unit %q", ErrDuplicateName, in.UnitName)
	}
	unit := PurchaseUnit{
		ID:           uuid.New(),
		StoreID:      in.StoreID,
		ItemID:       in.ItemID,
		UnitName:     strings.TrimSpace(in.UnitName),
		Multiplier:   in.Multiplier,
		IsDefault:    in.IsDefault,
		DisplayOrder: in.DisplayOrder,
	}
	m.units[key] = append(m.units[key], unit)
	return unit, nil
}

// ListCategories returns the configured categories.
func (m *MemoryStore) ListCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.categories...), nil
}
