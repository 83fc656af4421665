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

// UnitResolver converts purchase quantities into stock quantities using the
// store's purchase units. Units are shared by all subs of a master.
//
// Units loaded or created during a run are cached per scope, so a unit created
// by one row serves the following rows. When two rows imply different
// multipliers for the same unit name, the first one wins.
type UnitResolver struct {
	store   Store
	storeID uuid.UUID
	units   map[uuid.UUID][]catalog.PurchaseUnit
}

// NewUnitResolver builds a resolver for one run.
func NewUnitResolver(store Store, storeID uuid.UUID) *UnitResolver {
	return &UnitResolver{store: store, storeID: storeID, units: make(map[uuid.UUID][]catalog.PurchaseUnit)}
}

// Resolve computes the receipt line of a matched transaction row.
func (r *UnitResolver) Resolve(ctx context.Context, row Row, item catalog.Item) (ReceiptLine, error) {
	qty := amount(row.Quantity)
	purchaseQty := amount(row.PurchaseQty)
	price := amount(row.PurchaseUnitPrice)
	line := ReceiptLine{
		Line:        row.Line,
		ItemID:      item.ID,
		ItemName:    item.Name,
		PurchaseQty: purchaseQty,
		Notes:       row.Notes,
	}

	unitName := strings.TrimSpace(row.PurchaseUnit)
	if unitName == "" {
		line.StockQuantity = qty
		if !qty.IsPositive() {
			line.StockQuantity = purchaseQty
		}
		line.UnitCost = optionalAmount(row.UnitCost)
		if line.UnitCost == nil {
			line.UnitCost = optionalAmount(row.PurchaseUnitPrice)
		}
		return line, nil
	}
	line.PurchaseUnitName = unitName

	scope := item.UnitScopeID()
	units, err := r.scopeUnits(ctx, scope)
	if err != nil {
		return line, err
	}
	unit, ok := catalog.FindUnit(units, unitName)
	if !ok {
		if !qty.IsPositive() || !purchaseQty.IsPositive() {
			line.NeedsMultiplier = true
			return line, nil
		}
		unit, line.UnitCreated, err = r.createUnit(ctx, scope, unitName, qty.DivRound(purchaseQty, catalog.MultiplierScale))
		if err != nil {
			return line, err
		}
	}

	line.PurchaseUnitID = unit.ID
	line.PurchaseUnitName = unit.UnitName
	line.StockQuantity = purchaseQty.Mul(unit.Multiplier)
	if line.UnitCreated {
		// The multiplier was derived from this row, which states the received quantity.
		line.StockQuantity = qty
	}
	if line.StockQuantity.IsZero() {
		return line, nil
	}
	if !price.IsPositive() {
		line.UnitCost = optionalAmount(row.UnitCost)
		return line, nil
	}
	cost := price.Mul(purchaseQty).DivRound(line.StockQuantity, 16)
	line.UnitCost = &cost
	return line, nil
}

func (r *UnitResolver) scopeUnits(ctx context.Context, scope uuid.UUID) ([]catalog.PurchaseUnit, error) {
	if units, ok := r.units[scope]; ok {
		return units, nil
	}
	units, err := r.store.FindPurchaseUnits(ctx, r.storeID, scope)
	if err != nil {
		return nil, err
	}
	r.units[scope] = units
	return units, nil
}

// createUnit inserts a unit, or returns the one a concurrent writer created
// under the same name. created is false in the latter case.
func (r *UnitResolver) createUnit(ctx context.Context, scope uuid.UUID, name string, multiplier decimal.Decimal) (catalog.PurchaseUnit, bool, error) {
	existing := r.units[scope]
	unit, err := r.store.CreatePurchaseUnit(ctx, catalog.NewPurchaseUnit{
		StoreID:      r.storeID,
		ItemID:       scope,
		UnitName:     name,
		Multiplier:   multiplier,
		IsDefault:    len(existing) == 0,
		DisplayOrder: len(existing),
	})
	if errors.Is(err, catalog.ErrDuplicateName) {
		units, err := r.store.FindPurchaseUnits(ctx, r.storeID, scope)
		if err != nil {
			return catalog.PurchaseUnit{}, false, err
		}
		r.units[scope] = units
		found, ok := catalog.FindUnit(units, name)
		if !ok {
			return catalog.PurchaseUnit{}, false, fmt.Errorf("importer: purchase unit %q conflicts but cannot be found", name)
		}
		return found, false, nil
	}
	if err != nil {
		return catalog.PurchaseUnit{}, false, err
	}
	r.units[scope] = append(existing, unit)
	return unit, true, nil
}
