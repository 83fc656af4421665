package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
	"github.com/onglesrivieres/salon360-sub000/internal/csvimport"
)

// Store is the catalog backend an import reads and writes.
type Store interface {
	ListItems(ctx context.Context, storeID uuid.UUID) ([]catalog.Item, error)
	FindItemByName(ctx context.Context, name string) (catalog.Item, error)
	CreateItem(ctx context.Context, in catalog.NewItem) (catalog.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, update catalog.ItemUpdate) error
	UpsertStockLevel(ctx context.Context, level catalog.StockLevel) error
	FindPurchaseUnits(ctx context.Context, storeID, itemID uuid.UUID) ([]catalog.PurchaseUnit, error)
	CreatePurchaseUnit(ctx context.Context, in catalog.NewPurchaseUnit) (catalog.PurchaseUnit, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// Recorder receives import metrics.
type Recorder interface {
	ObserveImport(schema string, duration time.Duration)
	CountRow(schema, outcome string)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// MaxRows caps data rows per run; zero means unlimited.
	MaxRows int
}

// Service runs imports.
type Service struct {
	store    Store
	cfg      ServiceConfig
	notifier Notifier
	metrics  Recorder
	logger   *slog.Logger
}

// NewService builds Service. notifier, metrics and logger may be nil.
func NewService(store Store, cfg ServiceConfig, notifier Notifier, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cfg: cfg, notifier: notifier, metrics: metrics, logger: logger}
}

// ImportCatalog creates or updates catalog items from a catalog CSV.
func (s *Service) ImportCatalog(ctx context.Context, req Request) (Result, error) {
	req.Schema = SchemaCatalog
	return s.Run(ctx, req)
}

// ImportTransactions resolves receiving rows to stock quantities and costs,
// creating missing sub items and purchase units on the way.
func (s *Service) ImportTransactions(ctx context.Context, req Request) (Result, error) {
	req.Schema = SchemaTransactions
	return s.Run(ctx, req)
}

// Run executes req against the catalog and notifies the outcome.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, s.store, req, true)
}

// Preview runs req against a store that writes nothing, so the caller can
// review dispositions and undefined purchase units before submitting.
func (s *Service) Preview(ctx context.Context, req Request) (Result, error) {
	return s.run(ctx, newDryRunStore(s.store), req, false)
}

func (s *Service) run(ctx context.Context, store Store, req Request, notify bool) (Result, error) {
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	if _, err := ParseSchema(string(req.Schema)); err != nil {
		return Result{}, err
	}
	if req.StoreID == uuid.Nil {
		return Result{}, ErrStoreRequired
	}
	logger := s.logger.With(
		slog.String("run_id", req.RunID.String()),
		slog.String("schema", string(req.Schema)),
		slog.String("store_id", req.StoreID.String()))

	start := time.Now()
	res := newResult(req.RunID, req.Schema)

	header, records, err := csvimport.Split(req.Records)
	if err == nil && s.cfg.MaxRows > 0 && len(records) > s.cfg.MaxRows {
		err = fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(records), s.cfg.MaxRows)
	}
	if err != nil {
		logger.Warn("import rejected", slog.Any("error", err))
		if notify {
			s.notify(ctx, logger, Notification{RunID: req.RunID, Message: err.Error(), Severity: SeverityError})
		}
		return res, err
	}

	snap, categories, err := s.load(ctx, store, req)
	if err != nil {
		logger.Error("load catalog snapshot", slog.Any("error", err))
		if notify {
			s.notify(ctx, logger, Notification{RunID: req.RunID, Message: "Import failed: could not load catalog", Severity: SeverityError})
		}
		return res, err
	}

	classifier := NewClassifier(req.Schema, categories)
	planner := NewPlanner(store, req.StoreID, req.Schema, categories)
	resolver := NewUnitResolver(store, req.StoreID)

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			res.Message = res.Summary()
			logger.Warn("import interrupted", slog.Int("processed", i), slog.Any("error", err))
			return res, err
		}
		row := rowFromRecord(header, record, i+2)
		final, created, err := planner.Apply(ctx, row, classifier.Classify(row, snap), snap)
		var line *ReceiptLine
		if m, ok := final.(Matched); ok && err == nil && req.Schema == SchemaTransactions {
			resolved, lineErr := resolver.Resolve(ctx, row, m.Item)
			if lineErr != nil {
				err = lineErr
			} else {
				line = &resolved
			}
		}
		res.record(row, final, created, err)
		if line != nil {
			res.addLine(*line)
		}
		if s.metrics != nil {
			s.metrics.CountRow(string(req.Schema), res.Rows[len(res.Rows)-1].Status)
		}
		if err != nil {
			logger.Warn("import row failed", slog.Int("line", row.Line), slog.String("item", row.ItemName), slog.Any("error", err))
		}
	}

	res.Message = res.Summary()
	if s.metrics != nil {
		s.metrics.ObserveImport(string(req.Schema), time.Since(start))
	}
	logger.Info("import finished",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("errors", len(res.Errors)),
		slog.Int("pending_units", res.PendingUnits),
		slog.Duration("elapsed", time.Since(start)))
	if notify {
		severity := SeveritySuccess
		if !res.Clean() {
			severity = SeverityWarning
		}
		s.notify(ctx, logger, Notification{RunID: req.RunID, Message: res.Message, Severity: severity})
	}
	return res, nil
}

// load fetches the catalog view and, for catalog imports, the category list.
func (s *Service) load(ctx context.Context, store Store, req Request) (*catalog.Snapshot, []string, error) {
	var (
		items      []catalog.Item
		categories []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = store.ListItems(gctx, req.StoreID)
		return err
	})
	if req.Schema == SchemaCatalog {
		g.Go(func() error {
			var err error
			categories, err = store.ListCategories(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return catalog.NewSnapshot(items), categories, nil
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Warn("import notify", slog.Any("error", err))
	}
}
