// Package catalog models the salon item catalog, store stock rows and purchase units.
package catalog

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind enumerates catalog item roles.
type ItemKind string

const (
	// KindMaster is a non-stocking parent grouping variants.
	KindMaster ItemKind = "master"
	// KindSub is a variant of a master; it shares the master's purchase units.
	KindSub ItemKind = "sub"
	// KindStandalone holds its own stock with no hierarchy.
	KindStandalone ItemKind = "standalone"
)

// ParseKind maps a CSV item_type value to a kind. Empty defaults to standalone.
func ParseKind(raw string) (ItemKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(KindStandalone):
		return KindStandalone, true
	case string(KindMaster):
		return KindMaster, true
	case string(KindSub):
		return KindSub, true
	}
	return "", false
}

// Stocking reports whether items of this kind carry store stock rows.
func (k ItemKind) Stocking() bool {
	return k != KindMaster
}

// Item is a sellable or stockable catalog entry.
type Item struct {
	ID       uuid.UUID
	Name     string
	Brand    string
	Category string
	Size     string
	Kind     ItemKind
	ParentID uuid.UUID
}

// UnitScopeID is the id purchase units hang off: the master for subs, the item itself otherwise.
func (i Item) UnitScopeID() uuid.UUID {
	if i.Kind == KindSub && i.ParentID != uuid.Nil {
		return i.ParentID
	}
	return i.ID
}

// NewItem carries the attributes of an item to create.
type NewItem struct {
	Name     string
	Brand    string
	Category string
	Size     string
	Kind     ItemKind
	ParentID uuid.UUID
}

// ItemUpdate lists the attributes to change; nil fields are left untouched.
type ItemUpdate struct {
	Brand    *string
	Category *string
	Size     *string
	Kind     *ItemKind
	ParentID *uuid.UUID
}

// IsEmpty reports whether the update changes nothing.
func (u ItemUpdate) IsEmpty() bool {
	return u.Brand == nil && u.Category == nil && u.Size == nil && u.Kind == nil && u.ParentID == nil
}

// StockLevel is the per-store stock row of an item.
// Upserts never overwrite Quantity of an existing row; nil UnitCost or
// ReorderLevel keep the stored value.
type StockLevel struct {
	StoreID      uuid.UUID
	ItemID       uuid.UUID
	Quantity     decimal.Decimal
	UnitCost     *decimal.Decimal
	ReorderLevel *decimal.Decimal
}

// PurchaseUnit is a named multiplier converting purchased packs into stock units.
type PurchaseUnit struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	ItemID       uuid.UUID
	UnitName     string
	Multiplier   decimal.Decimal
	IsDefault    bool
	DisplayOrder int
}

// NewPurchaseUnit carries the attributes of a purchase unit to create.
type NewPurchaseUnit struct {
	StoreID      uuid.UUID
	ItemID       uuid.UUID
	UnitName     string
	Multiplier   decimal.Decimal
	IsDefault    bool
	DisplayOrder int
}

// FindUnit returns the unit whose name matches case-insensitively.
func FindUnit(units []PurchaseUnit, name string) (PurchaseUnit, bool) {
	key := FoldName(name)
	for _, u := range units {
		if FoldName(u.UnitName) == key {
			return u, true
		}
	}
	return PurchaseUnit{}, false
}

// MultiplierScale is the number of fractional digits a stored multiplier keeps.
const MultiplierScale = 16

// RoundMultiplier rounds m to the stored scale.
func RoundMultiplier(m decimal.Decimal) decimal.Decimal {
	return m.Round(MultiplierScale)
}

var (
	// ErrItemNotFound indicates no item with the requested name.
	ErrItemNotFound = errors.New("catalog: item not found")
	// ErrDuplicateName indicates a unique-name conflict on create.
	ErrDuplicateName = errors.New("catalog: duplicate name")
	// ErrInvalidMultiplier indicates a non-positive purchase unit multiplier.
	ErrInvalidMultiplier = errors.New("catalog: multiplier must be > 0")
)
