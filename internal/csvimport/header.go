package csvimport

import (
	"errors"
	"strings"
)

// Canonical column keys.
const (
	ColItemName          = "item_name"
	ColParentName        = "parent_name"
	ColQuantity          = "quantity"
	ColUnitCost          = "unit_cost"
	ColNotes             = "notes"
	ColPurchaseUnit      = "purchase_unit"
	ColPurchaseQty       = "purchase_qty"
	ColPurchaseUnitPrice = "purchase_unit_price"
	ColCategory          = "category"
	ColSize              = "size"
	ColBrand             = "brand"
	ColReorderLevel      = "reorder_level"
	ColItemType          = "item_type"
)

var (
	// ErrMissingNameColumn is returned when no header maps to item_name.
	ErrMissingNameColumn = errors.New("csvimport: missing required column \"name\"")
	// ErrTooFewLines is returned when the input has no data row after the header.
	ErrTooFewLines = errors.New("csvimport: file must contain a header row and at least one data row")
)

var headerAliases = map[string]string{
	"item name":    ColItemName,
	"item_name":    ColItemName,
	"name":         ColItemName,
	"item":         ColItemName,
	"product":      ColItemName,
	"product name": ColItemName,

	"parent":      ColParentName,
	"parent name": ColParentName,
	"parent_name": ColParentName,
	"parent item": ColParentName,
	"master":      ColParentName,
	"master item": ColParentName,

	"quantity": ColQuantity,
	"qty":      ColQuantity,
	"stock":    ColQuantity,
	"units":    ColQuantity,

	"unit cost":     ColUnitCost,
	"unit_cost":     ColUnitCost,
	"cost":          ColUnitCost,
	"price":         ColUnitCost,
	"cost per unit": ColUnitCost,
	"unit price":    ColUnitCost,

	"notes":    ColNotes,
	"note":     ColNotes,
	"comment":  ColNotes,
	"comments": ColNotes,

	"purchase unit": ColPurchaseUnit,
	"purchase_unit": ColPurchaseUnit,
	"unit":          ColPurchaseUnit,
	"pack":          ColPurchaseUnit,
	"pack size":     ColPurchaseUnit,

	"purchase qty":      ColPurchaseQty,
	"purchase_qty":      ColPurchaseQty,
	"purchase quantity": ColPurchaseQty,
	"packs":             ColPurchaseQty,

	"purchase unit price": ColPurchaseUnitPrice,
	"purchase_unit_price": ColPurchaseUnitPrice,
	"pack price":          ColPurchaseUnitPrice,

	"category":      ColCategory,
	"type category": ColCategory,

	"size": ColSize,

	"brand":          ColBrand,
	"supplier brand": ColBrand,

	"reorder level": ColReorderLevel,
	"reorder_level": ColReorderLevel,
	"reorder":       ColReorderLevel,
	"min stock":     ColReorderLevel,

	"item type": ColItemType,
	"item_type": ColItemType,
	"type":      ColItemType,
	"kind":      ColItemType,
}

// NormalizeHeader maps a human header spelling to its canonical key.
// Unknown headers come back lower-cased and trimmed.
func NormalizeHeader(raw string) string {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if canonical, ok := headerAliases[key]; ok {
		return canonical
	}
	return key
}

// Header holds the canonical keys of a header row in column order.
type Header struct {
	keys []string
}

// NewHeader normalises every cell of a header record.
func NewHeader(record []string) Header {
	keys := make([]string, len(record))
	for i, cell := range record {
		keys[i] = NormalizeHeader(cell)
	}
	return Header{keys: keys}
}

// Keys returns the canonical keys in column order.
func (h Header) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Index returns the column position of key, or -1.
func (h Header) Index(key string) int {
	for i, k := range h.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	return h.Index(key) >= 0
}

// Value returns the trimmed cell for key, or "" when the column is absent or short.
func (h Header) Value(record []string, key string) string {
	idx := h.Index(key)
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Split validates the record set and separates the header from the data rows.
func Split(records [][]string) (Header, [][]string, error) {
	if len(records) < 2 {
		return Header{}, nil, ErrTooFewLines
	}
	header := NewHeader(records[0])
	if !header.Has(ColItemName) {
		return Header{}, nil, ErrMissingNameColumn
	}
	return header, records[1:], nil
}
