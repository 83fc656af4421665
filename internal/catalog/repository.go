package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	db dbtx
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// ListItems returns the catalog view of a store: every active master plus the
// items that already have a stock row in the store.
func (r *Repository) ListItems(ctx context.Context, storeID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT i.id, i.name, COALESCE(i.brand,''), COALESCE(i.category,''), COALESCE(i.size,''), i.item_type, i.parent_id
FROM inventory_items i
WHERE i.is_active AND (i.item_type = 'master' OR EXISTS (
	SELECT 1 FROM store_inventory_levels l WHERE l.item_id = i.id AND l.store_id = $1))
ORDER BY i.name`, storeID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list items: %w", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindItemByName looks an item up by exact name, ignoring case.
func (r *Repository) FindItemByName(ctx context.Context, name string) (Item, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, COALESCE(brand,''), COALESCE(category,''), COALESCE(size,''), item_type, parent_id
FROM inventory_items WHERE lower(name) = lower($1) LIMIT 1`, strings.TrimSpace(name))
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return item, err
}

// CreateItem inserts a catalog item. A name clash yields ErrDuplicateName.
func (r *Repository) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	item := Item{
		Name:     strings.TrimSpace(in.Name),
		Brand:    in.Brand,
		Category: in.Category,
		Size:     in.Size,
		Kind:     in.Kind,
		ParentID: in.ParentID,
	}
	err := r.db.QueryRow(ctx, `INSERT INTO inventory_items (name, brand, category, size, item_type, parent_id, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,NOW(),NOW()) RETURNING id`,
		item.Name, nullString(item.Brand), nullString(item.Category), nullString(item.Size), string(item.Kind), nullUUID(item.ParentID)).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Item{}, fmt.Errorf("%w: %q", ErrDuplicateName, item.Name)
		}
		return Item{}, fmt.Errorf("catalog: create item: %w", err)
	}
	return item, nil
}

// UpdateItem applies the non-nil fields of update.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, update ItemUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if update.Brand != nil {
		add("brand", nullString(*update.Brand))
	}
	if update.Category != nil {
		add("category", nullString(*update.Category))
	}
	if update.Size != nil {
		add("size", nullString(*update.Size))
	}
	if update.Kind != nil {
		add("item_type", string(*update.Kind))
	}
	if update.ParentID != nil {
		add("parent_id", nullUUID(*update.ParentID))
	}
	args = append(args, id)
	query := `UPDATE inventory_items SET ` + strings.Join(sets, ", ") + `, updated_at = NOW() WHERE id = $` + strconv.Itoa(len(args))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("catalog: update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpsertStockLevel makes sure the store row exists. Existing quantities are kept.
func (r *Repository) UpsertStockLevel(ctx context.Context, level StockLevel) error {
	_, err := r.db.Exec(ctx, `INSERT INTO store_inventory_levels (store_id, item_id, quantity_on_hand, unit_cost, reorder_level, updated_at)
VALUES ($1,$2,$3,COALESCE($4::numeric,0),COALESCE($5::numeric,0),NOW())
ON CONFLICT (store_id, item_id) DO UPDATE SET
	unit_cost = COALESCE($4::numeric, store_inventory_levels.unit_cost),
	reorder_level = COALESCE($5::numeric, store_inventory_levels.reorder_level),
	updated_at = NOW()`,
		level.StoreID, level.ItemID, level.Quantity.String(), nullDecimal(level.UnitCost), nullDecimal(level.ReorderLevel))
	if err != nil {
		return fmt.Errorf("catalog: upsert stock level: %w", err)
	}
	return nil
}

// FindPurchaseUnits lists the purchase units of an item in a store.
func (r *Repository) FindPurchaseUnits(ctx context.Context, storeID, itemID uuid.UUID) ([]PurchaseUnit, error) {
	rows, err := r.db.Query(ctx, `SELECT id, store_id, master_item_id, unit_name, multiplier::text, is_default, display_order
FROM store_product_purchase_units
WHERE store_id = $1 AND master_item_id = $2
ORDER BY display_order, unit_name`, storeID, itemID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list purchase units: %w", err)
	}
	defer rows.Close()
	units := []PurchaseUnit{}
	for rows.Next() {
		var (
			u          PurchaseUnit
			multiplier string
		)
		if err := rows.Scan(&u.ID, &u.StoreID, &u.ItemID, &u.UnitName, &multiplier, &u.IsDefault, &u.DisplayOrder); err != nil {
			return nil, err
		}
		u.Multiplier, err = decimal.NewFromString(multiplier)
		if err != nil {
			return nil, fmt.Errorf("catalog: purchase unit %s multiplier: %w", u.ID, err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// CreatePurchaseUnit inserts a purchase unit. A (store, item, name) clash yields ErrDuplicateName.
// The returned multiplier is the stored value.
func (r *Repository) CreatePurchaseUnit(ctx context.Context, in NewPurchaseUnit) (PurchaseUnit, error) {
	in.Multiplier = RoundMultiplier(in.Multiplier)
	if !in.Multiplier.IsPositive() {
		return PurchaseUnit{}, ErrInvalidMultiplier
	}
	unit := PurchaseUnit{
		StoreID:      in.StoreID,
		ItemID:       in.ItemID,
		UnitName:     strings.TrimSpace(in.UnitName),
		Multiplier:   in.Multiplier,
		IsDefault:    in.IsDefault,
		DisplayOrder: in.DisplayOrder,
	}
	var stored string
	err := r.db.QueryRow(ctx, `INSERT INTO store_product_purchase_units (store_id, master_item_id, unit_name, multiplier, is_default, display_order, created_at)
VALUES ($1,$2,$3,$4::numeric,$5,$6,NOW()) RETURNING id, multiplier::text`,
		unit.StoreID, unit.ItemID, unit.UnitName, unit.Multiplier.String(), unit.IsDefault, unit.DisplayOrder).Scan(&unit.ID, &stored)
	if err != nil {
		if isUniqueViolation(err) {
			return PurchaseUnit{}, fmt.Errorf("%w: unit %q", ErrDuplicateName, unit.UnitName)
		}
		return PurchaseUnit{}, fmt.Errorf("catalog: create purchase unit: %w", err)
	}
	if unit.Multiplier, err = decimal.NewFromString(stored); err != nil {
		return PurchaseUnit{}, fmt.Errorf("catalog: purchase unit %s multiplier: %w", unit.ID, err)
	}
	return unit, nil
}

// ListCategories returns the configured category names.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM inventory_categories WHERE is_active ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		item     Item
		kind     string
		parentID pgtype.UUID
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Brand, &item.Category, &item.Size, &kind, &parentID); err != nil {
		return Item{}, err
	}
	item.Kind = ItemKind(kind)
	if parentID.Valid {
		item.ParentID = uuid.UUID(parentID.Bytes)
	}
	return item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
