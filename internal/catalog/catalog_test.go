package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCaseInsensitiveLookup(t *testing.T) {
	master := Item{ID: uuid.New(), Name: "Gel Polish", Kind: KindMaster}
	sub := Item{ID: uuid.New(), Name: "Gel Polish - Red", Kind: KindSub, ParentID: master.ID}
	snap := NewSnapshot([]Item{master, sub})

	got, ok := snap.Lookup("  gel POLISH - red ")
	require.True(t, ok)
	require.Equal(t, sub.ID, got.ID)

	_, ok = snap.Master("GEL POLISH")
	require.True(t, ok)
	_, ok = snap.Master("gel polish - red")
	require.False(t, ok)
	require.Equal(t, 2, snap.Len())
}

func TestSnapshotPutReplacesMaster(t *testing.T) {
	snap := NewSnapshot([]Item{{ID: uuid.New(), Name: "Wax", Kind: KindMaster}})
	snap.Put(Item{ID: uuid.New(), Name: "wax", Kind: KindStandalone})
	_, ok := snap.Master("Wax")
	require.False(t, ok)
	require.Equal(t, 1, snap.Len())
}

func TestFoldNameHandlesUnicode(t *testing.T) {
	require.Equal(t, FoldName("CRÈME"), FoldName("crème"))
	require.Equal(t, FoldName("ΣΟΦΙΑ"), FoldName("σοφια"))
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind("")
	require.True(t, ok)
	require.Equal(t, KindStandalone, kind)
	kind, ok = ParseKind(" Master ")
	require.True(t, ok)
	require.Equal(t, KindMaster, kind)
	_, ok = ParseKind("bundle")
	require.False(t, ok)
	require.False(t, KindMaster.Stocking())
}

func TestUnitScopeID(t *testing.T) {
	master := uuid.New()
	sub := Item{ID: uuid.New(), Kind: KindSub, ParentID: master}
	require.Equal(t, master, sub.UnitScopeID())
	solo := Item{ID: uuid.New(), Kind: KindStandalone}
	require.Equal(t, solo.ID, solo.UnitScopeID())
}

func TestFindUnit(t *testing.T) {
	units := []PurchaseUnit{{UnitName: "Case of 24", Multiplier: decimal.NewFromInt(24)}}
	u, ok := FindUnit(units, "case OF 24")
	require.True(t, ok)
	require.True(t, u.Multiplier.Equal(decimal.NewFromInt(24)))
	_, ok = FindUnit(units, "Box")
	require.False(t, ok)
}

type stubRow struct {
	err    error
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		}
	}
	return nil
}

type stubDB struct {
	rowErr error
	row    []any
	args   []any
}

func (s *stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (s *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *stubDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	s.args = args
	return stubRow{err: s.rowErr, values: s.row}
}

func TestCreateItemMapsUniqueViolation(t *testing.T) {
	repo := &Repository{db: &stubDB{rowErr: &pgconn.PgError{Code: "23505"}}}
	_, err := repo.CreateItem(context.Background(), NewItem{Name: "Shampoo", Kind: KindStandalone})
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = repo.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{UnitName: "Case", Multiplier: decimal.NewFromInt(12)})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestFindItemByNameMapsNoRows(t *testing.T) {
	repo := &Repository{db: &stubDB{rowErr: pgx.ErrNoRows}}
	_, err := repo.FindItemByName(context.Background(), "Ghost")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestCreatePurchaseUnitRejectsNonPositiveMultiplier(t *testing.T) {
	repo := &Repository{db: &stubDB{}}
	_, err := repo.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{UnitName: "Case", Multiplier: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestCreatePurchaseUnitReturnsStoredMultiplier(t *testing.T) {
	id := uuid.New()
	db := &stubDB{row: []any{id, "3.3333333333333333"}}
	repo := &Repository{db: db}

	third := decimal.NewFromInt(10).DivRound(decimal.NewFromInt(3), 20)
	unit, err := repo.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{UnitName: "Box", Multiplier: third})
	require.NoError(t, err)
	require.Equal(t, id, unit.ID)
	require.Equal(t, "3.3333333333333333", db.args[3])
	require.Equal(t, "3.3333333333333333", unit.Multiplier.String())
}

func TestMultiplierRoundsToStoredScale(t *testing.T) {
	store := NewMemoryStore()
	storeID, itemID := uuid.New(), uuid.New()

	third := decimal.NewFromInt(10).DivRound(decimal.NewFromInt(3), 20)
	unit, err := store.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{StoreID: storeID, ItemID: itemID, UnitName: "Box", Multiplier: third})
	require.NoError(t, err)
	require.Equal(t, "3.3333333333333333", unit.Multiplier.String())
	require.True(t, store.Units(storeID, itemID)[0].Multiplier.Equal(unit.Multiplier))

	small := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(30000), MultiplierScale)
	unit, err = store.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{StoreID: storeID, ItemID: itemID, UnitName: "Pallet", Multiplier: small})
	require.NoError(t, err)
	require.True(t, unit.Multiplier.IsPositive())

	_, err = store.CreatePurchaseUnit(context.Background(), NewPurchaseUnit{StoreID: storeID, ItemID: itemID, UnitName: "Dust", Multiplier: decimal.New(1, -20)})
	require.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestUpdateItemSkipsEmptyUpdate(t *testing.T) {
	repo := &Repository{db: &stubDB{}}
	require.NoError(t, repo.UpdateItem(context.Background(), uuid.New(), ItemUpdate{}))
	brand := "OPI"
	require.NoError(t, repo.UpdateItem(context.Background(), uuid.New(), ItemUpdate{Brand: &brand}))
}
