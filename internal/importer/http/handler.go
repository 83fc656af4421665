// Package importhttp exposes inventory imports over HTTP.
package importhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/onglesrivieres/salon360-sub000/internal/importer"
	"github.com/onglesrivieres/salon360-sub000/internal/platform/httpx"
	"github.com/onglesrivieres/salon360-sub000/jobs"
)

// Importer runs imports synchronously.
type Importer interface {
	Run(ctx context.Context, req importer.Request) (importer.Result, error)
	Preview(ctx context.Context, req importer.Request) (importer.Result, error)
}

// Statuses tracks asynchronous runs.
type Statuses interface {
	Save(ctx context.Context, status importer.RunStatus) error
	Get(ctx context.Context, runID uuid.UUID) (importer.RunStatus, error)
}

// Enqueuer submits asynchronous runs.
type Enqueuer interface {
	EnqueueInventoryImport(ctx context.Context, payload jobs.InventoryImportPayload) (*asynq.TaskInfo, error)
}

// Config tunes the handler.
type Config struct {
	MaxUploadBytes int64
	RatePerMinute  int
}

// Handler wires inventory import endpoints.
type Handler struct {
	logger    *slog.Logger
	importer  Importer
	statuses  Statuses
	enqueuer  Enqueuer
	validator *validator.Validate
	maxUpload int64
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the handler. statuses and enqueuer may be nil, in
// which case asynchronous endpoints answer 503.
func NewHandler(logger *slog.Logger, imp Importer, statuses Statuses, enqueuer Enqueuer, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 20
	}
	limiter := httprate.Limit(rate, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "import rate limit reached")
		}),
	)
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		logger:    logger,
		importer:  imp,
		statuses:  statuses,
		enqueuer:  enqueuer,
		validator: validate,
		maxUpload: maxUpload,
		rateLimit: limiter,
	}
}

// MountRoutes registers the import routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/runs/{runID}", h.handleRunStatus)
	r.Group(func(gr chi.Router) {
		gr.Use(h.rateLimit)
		gr.Post("/{schema}", h.handleRun)
		gr.Post("/{schema}/preview", h.handlePreview)
		gr.Post("/{schema}/async", h.handleAsync)
	})
}

type importPayload struct {
	StoreID string `json:"store_id" validate:"required,uuid"`
	CSV     string `json:"csv" validate:"required"`
}

type asyncResponse struct {
	RunID string            `json:"run_id"`
	State importer.RunState `json:"state"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	h.serveImport(w, r, h.importer.Run)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	h.serveImport(w, r, h.importer.Preview)
}

func (h *Handler) serveImport(w http.ResponseWriter, r *http.Request, run func(context.Context, importer.Request) (importer.Result, error)) {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := run(r.Context(), req)
	if err != nil {
		if !importer.IsFatal(err) {
			h.logger.Error("inventory import", slog.String("schema", string(req.Schema)), slog.Any("error", err))
		}
		httpx.RespondError(w, mapImportError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleAsync(w http.ResponseWriter, r *http.Request) {
	if h.statuses == nil || h.enqueuer == nil {
		httpx.RespondError(w, fmt.Errorf("%w: async imports disabled", httpx.ErrUnavailable))
		return
	}
	req, err := h.decodeRequest(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.RunID = uuid.New()
	status := importer.RunStatus{RunID: req.RunID, Schema: req.Schema, StoreID: req.StoreID, State: importer.RunQueued}
	if err := h.statuses.Save(r.Context(), status); err != nil {
		h.logger.Error("save import status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	_, err = h.enqueuer.EnqueueInventoryImport(r.Context(), jobs.InventoryImportPayload{
		RunID:   req.RunID.String(),
		StoreID: req.StoreID.String(),
		Schema:  string(req.Schema),
		Records: req.Records,
	})
	if err != nil {
		h.logger.Error("enqueue inventory import", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: queue unavailable", httpx.ErrUnavailable))
		return
	}
	httpx.JSON(w, http.StatusAccepted, asyncResponse{RunID: req.RunID.String(), State: importer.RunQueued})
}

func (h *Handler) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	if h.statuses == nil {
		httpx.RespondError(w, fmt.Errorf("%w: async imports disabled", httpx.ErrUnavailable))
		return
	}
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid run id", httpx.ErrValidation))
		return
	}
	status, err := h.statuses.Get(r.Context(), runID)
	if errors.Is(err, importer.ErrRunNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	}
	if err != nil {
		h.logger.Error("load import status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

// decodeRequest reads either a multipart upload (field "file", plus
// "store_id") or a JSON body carrying the CSV text.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (importer.Request, error) {
	schema, err := importer.ParseSchema(chi.URLParam(r, "schema"))
	if err != nil {
		return importer.Request{}, fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.decodeUpload(r, schema)
	}

	var payload importPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		return importer.Request{}, bodyError(err)
	}
	if err := h.validator.Struct(payload); err != nil {
		return importer.Request{}, fmt.Errorf("%w: %s", httpx.ErrValidation, describe(err))
	}
	return importer.NewTextRequest(uuid.MustParse(payload.StoreID), schema, payload.CSV), nil
}

func (h *Handler) decodeUpload(r *http.Request, schema importer.Schema) (importer.Request, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return importer.Request{}, bodyError(err)
	}
	storeID, err := uuid.Parse(strings.TrimSpace(r.FormValue("store_id")))
	if err != nil {
		return importer.Request{}, fmt.Errorf("%w: store_id must be a uuid", httpx.ErrValidation)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return importer.Request{}, fmt.Errorf("%w: file is required", httpx.ErrValidation)
	}
	defer file.Close()

	xlsx := strings.EqualFold(filepath.Ext(header.Filename), ".xlsx")
	req, err := importer.NewUploadRequest(storeID, schema, file, xlsx)
	if err != nil {
		return importer.Request{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return req, nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", httpx.ErrTooLarge, maxErr.Limit)
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty body", httpx.ErrValidation)
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func mapImportError(err error) error {
	switch {
	case importer.IsFatal(err):
		return fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err)
	case errors.Is(err, importer.ErrUnknownSchema):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, importer.ErrStoreRequired):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return err
}
