package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
)

// racingUnitStore simulates another import creating the same unit first.
type racingUnitStore struct {
	*catalog.MemoryStore
	lost bool
}

func (r *racingUnitStore) CreatePurchaseUnit(ctx context.Context, in catalog.NewPurchaseUnit) (catalog.PurchaseUnit, error) {
	if !r.lost {
		r.lost = true
		winner := in
		winner.Multiplier = decimal.NewFromInt(12)
		if _, err := r.MemoryStore.CreatePurchaseUnit(ctx, winner); err != nil {
			return catalog.PurchaseUnit{}, err
		}
	}
	return r.MemoryStore.CreatePurchaseUnit(ctx, in)
}

func TestResolverFirstMultiplierWins(t *testing.T) {
	store := catalog.NewMemoryStore()
	storeID := uuid.New()
	item := store.SeedItem(catalog.Item{Name: "Foil"}, storeID)
	r := NewUnitResolver(store, storeID)

	first, err := r.Resolve(context.Background(), Row{Line: 2, Quantity: "20", PurchaseUnit: "Roll", PurchaseQty: "2"}, item)
	require.NoError(t, err)
	require.True(t, first.UnitCreated)

	second, err := r.Resolve(context.Background(), Row{Line: 3, Quantity: "90", PurchaseUnit: "roll", PurchaseQty: "3"}, item)
	require.NoError(t, err)
	require.False(t, second.UnitCreated)
	require.True(t, second.StockQuantity.Equal(decimal.NewFromInt(30)))
	require.Len(t, store.Units(storeID, item.ID), 1)
}

func TestResolverRefetchesOnDuplicateUnit(t *testing.T) {
	store := &racingUnitStore{MemoryStore: catalog.NewMemoryStore()}
	storeID := uuid.New()
	item := store.SeedItem(catalog.Item{Name: "Foil"}, storeID)
	r := NewUnitResolver(store, storeID)

	line, err := r.Resolve(context.Background(), Row{Quantity: "20", PurchaseUnit: "Roll", PurchaseQty: "2"}, item)
	require.NoError(t, err)
	require.False(t, line.UnitCreated)
	require.True(t, line.StockQuantity.Equal(decimal.NewFromInt(24)))
}

func TestResolverSecondUnitIsNotDefault(t *testing.T) {
	store := catalog.NewMemoryStore()
	storeID := uuid.New()
	item := store.SeedItem(catalog.Item{Name: "Gloves"}, storeID)
	store.SeedUnit(catalog.PurchaseUnit{StoreID: storeID, ItemID: item.ID, UnitName: "Box", Multiplier: decimal.NewFromInt(100), IsDefault: true})
	r := NewUnitResolver(store, storeID)

	_, err := r.Resolve(context.Background(), Row{Quantity: "1000", PurchaseUnit: "Case", PurchaseQty: "1"}, item)
	require.NoError(t, err)
	units := store.Units(storeID, item.ID)
	require.Len(t, units, 2)
	require.False(t, units[1].IsDefault)
	require.Equal(t, 1, units[1].DisplayOrder)
}

func TestResolverFallsBackToRowCost(t *testing.T) {
	store := catalog.NewMemoryStore()
	storeID := uuid.New()
	item := store.SeedItem(catalog.Item{Name: "Towels"}, storeID)
	store.SeedUnit(catalog.PurchaseUnit{StoreID: storeID, ItemID: item.ID, UnitName: "Bale", Multiplier: decimal.NewFromInt(50)})
	r := NewUnitResolver(store, storeID)

	line, err := r.Resolve(context.Background(), Row{PurchaseUnit: "Bale", PurchaseQty: "2", UnitCost: "1.10"}, item)
	require.NoError(t, err)
	require.True(t, line.StockQuantity.Equal(decimal.NewFromInt(100)))
	require.Equal(t, "1.1", line.UnitCost.String())

	line, err = r.Resolve(context.Background(), Row{PurchaseUnit: "Bale", PurchaseQty: "0", Quantity: "5", PurchaseUnitPrice: "40"}, item)
	require.NoError(t, err)
	require.True(t, line.StockQuantity.IsZero())
	require.Nil(t, line.UnitCost)
}

func TestResolverLegacyFallbacks(t *testing.T) {
	r := NewUnitResolver(catalog.NewMemoryStore(), uuid.New())
	item := catalog.Item{ID: uuid.New(), Name: "Clips"}

	line, err := r.Resolve(context.Background(), Row{PurchaseQty: "6", PurchaseUnitPrice: "2"}, item)
	require.NoError(t, err)
	require.True(t, line.StockQuantity.Equal(decimal.NewFromInt(6)))
	require.Equal(t, "2", line.UnitCost.String())
}

type brokenUnitStore struct {
	*catalog.MemoryStore
}

func (brokenUnitStore) FindPurchaseUnits(context.Context, uuid.UUID, uuid.UUID) ([]catalog.PurchaseUnit, error) {
	return nil, errors.New("db down")
}

func TestResolverSurfacesStoreErrors(t *testing.T) {
	store := brokenUnitStore{catalog.NewMemoryStore()}
	storeID := uuid.New()
	store.SeedItem(catalog.Item{Name: "Razor"}, storeID)
	svc := NewService(store, ServiceConfig{}, nil, nil, nil)

	res, err := svc.ImportTransactions(context.Background(), NewTextRequest(storeID, "", "item_name,purchase_unit,purchase_qty\nRazor,Pack,2"))
	require.NoError(t, err)
	require.Equal(t, 0, res.Updated)
	require.Equal(t, []string{"Razor: db down"}, res.Errors)
	require.Empty(t, res.Lines)
}

func TestResultSummary(t *testing.T) {
	res := newResult(uuid.New(), SchemaCatalog)
	require.True(t, res.Clean())
	require.Equal(t, "Created 0, updated 0, skipped 0", res.Summary())

	res.record(Row{Line: 2, ItemName: " Toner "}, Skipped{Reason: "bad"}, false, nil)
	res.record(Row{Line: 3, ItemName: "Oil"}, Matched{Item: catalog.Item{ID: uuid.New()}}, true, nil)
	res.record(Row{Line: 4, ItemName: "Wax"}, Matched{}, false, errors.New("boom"))
	res.addLine(ReceiptLine{NeedsMultiplier: true})

	require.False(t, res.Clean())
	require.Equal(t, []RowIssue{{Line: 2, Name: "Toner", Reason: "bad"}}, res.Skipped)
	require.Equal(t, []string{"Wax: boom"}, res.Errors)
	require.Equal(t, StatusError, res.Rows[2].Status)
	require.Equal(t, "Created 1, updated 0, skipped 1, 1 error(s); 1 row(s) need a purchase unit multiplier", res.Summary())
}
