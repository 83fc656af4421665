// Package importer reconciles uploaded catalog and receiving CSVs against the
// inventory catalog: it classifies rows, creates missing items in dependency
// order, resolves purchase units and reports partial success.
//
// A run is best effort. Rows already written stay written when a later row
// fails; callers retry by re-submitting the corrected rows only.
package importer

import (
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
	"github.com/onglesrivieres/salon360-sub000/internal/csvimport"
)

// Schema identifies the CSV layout of an import.
type Schema string

const (
	// SchemaCatalog creates or updates catalog items.
	SchemaCatalog Schema = "catalog"
	// SchemaTransactions resolves receiving lines against existing items.
	SchemaTransactions Schema = "transactions"
)

// ParseSchema validates a schema name.
func ParseSchema(raw string) (Schema, error) {
	switch Schema(raw) {
	case SchemaCatalog, SchemaTransactions:
		return Schema(raw), nil
	}
	return "", ErrUnknownSchema
}

var (
	// ErrUnknownSchema indicates an unsupported schema name.
	ErrUnknownSchema = errors.New("importer: unknown schema")
	// ErrStoreRequired indicates a request without store.
	ErrStoreRequired = errors.New("importer: store id required")
	// ErrTooManyRows indicates the upload exceeds the configured row limit.
	ErrTooManyRows = errors.New("importer: too many rows")
)

// IsFatal reports whether err rejected the whole batch before any row ran.
func IsFatal(err error) bool {
	return errors.Is(err, csvimport.ErrMissingNameColumn) ||
		errors.Is(err, csvimport.ErrTooFewLines) ||
		errors.Is(err, ErrTooManyRows)
}

// Request is one import invocation.
type Request struct {
	RunID   uuid.UUID
	StoreID uuid.UUID
	Schema  Schema
	Records [][]string
}

// NewTextRequest tokenizes CSV text into a request.
func NewTextRequest(storeID uuid.UUID, schema Schema, text string) Request {
	return Request{StoreID: storeID, Schema: schema, Records: csvimport.Records(text)}
}

// NewUploadRequest reads an uploaded file, treating it as XLSX when xlsx is set.
func NewUploadRequest(storeID uuid.UUID, schema Schema, r io.Reader, xlsx bool) (Request, error) {
	if xlsx {
		records, err := csvimport.ReadXLSX(r)
		if err != nil {
			return Request{}, err
		}
		return Request{StoreID: storeID, Schema: schema, Records: records}, nil
	}
	text, err := csvimport.Decode(r)
	if err != nil {
		return Request{}, err
	}
	return NewTextRequest(storeID, schema, text), nil
}

// Row is one data line of an upload with its raw cell values.
type Row struct {
	Line              int
	ItemName          string
	ParentName        string
	Quantity          string
	UnitCost          string
	Notes             string
	PurchaseUnit      string
	PurchaseQty       string
	PurchaseUnitPrice string
	Category          string
	Size              string
	Brand             string
	ReorderLevel      string
	ItemType          string
}

func rowFromRecord(header csvimport.Header, record []string, line int) Row {
	return Row{
		Line:              line,
		ItemName:          header.Value(record, csvimport.ColItemName),
		ParentName:        header.Value(record, csvimport.ColParentName),
		Quantity:          header.Value(record, csvimport.ColQuantity),
		UnitCost:          header.Value(record, csvimport.ColUnitCost),
		Notes:             header.Value(record, csvimport.ColNotes),
		PurchaseUnit:      header.Value(record, csvimport.ColPurchaseUnit),
		PurchaseQty:       header.Value(record, csvimport.ColPurchaseQty),
		PurchaseUnitPrice: header.Value(record, csvimport.ColPurchaseUnitPrice),
		Category:          header.Value(record, csvimport.ColCategory),
		Size:              header.Value(record, csvimport.ColSize),
		Brand:             header.Value(record, csvimport.ColBrand),
		ReorderLevel:      header.Value(record, csvimport.ColReorderLevel),
		ItemType:          header.Value(record, csvimport.ColItemType),
	}
}

// Disposition is the classification of a row. It is one of Matched,
// NeedsCreation or Skipped.
type Disposition interface {
	disposition()
}

// Matched rows resolved to an existing catalog item.
type Matched struct {
	Item catalog.Item
}

// NeedsCreation rows name an item that does not exist yet.
type NeedsCreation struct {
	Kind catalog.ItemKind
	// Parent is set for sub items.
	Parent *catalog.Item
	// Category is the configured spelling of the row category.
	Category string
}

// Skipped rows failed validation.
type Skipped struct {
	Reason string
}

func (Matched) disposition()       {}
func (NeedsCreation) disposition() {}
func (Skipped) disposition()       {}

// Row outcome statuses.
const (
	StatusMatched = "matched"
	StatusCreated = "created"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// RowOutcome reports what happened to one row.
type RowOutcome struct {
	Line   int       `json:"line"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Reason string    `json:"reason,omitempty"`
	ItemID uuid.UUID `json:"item_id,omitempty"`
}

// RowIssue is a skipped row with its reason.
type RowIssue struct {
	Line   int    `json:"line"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ReceiptLine is a transaction row converted to stock units.
type ReceiptLine struct {
	Line             int              `json:"line"`
	ItemID           uuid.UUID        `json:"item_id"`
	ItemName         string           `json:"item_name"`
	PurchaseUnitID   uuid.UUID        `json:"purchase_unit_id,omitempty"`
	PurchaseUnitName string           `json:"purchase_unit_name,omitempty"`
	PurchaseQty      decimal.Decimal  `json:"purchase_qty"`
	StockQuantity    decimal.Decimal  `json:"stock_quantity"`
	UnitCost         *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	UnitCreated      bool             `json:"unit_created,omitempty"`
	// NeedsMultiplier marks a purchase unit that must be defined before submission.
	NeedsMultiplier bool `json:"needs_multiplier,omitempty"`
}
