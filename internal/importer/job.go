package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/onglesrivieres/salon360-sub000/internal/jobs"
	"github.com/onglesrivieres/salon360-sub000/jobs"
)

// Job executes queued imports and publishes their status.
type Job struct {
	service  *Service
	statuses *StatusStore
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate
}

// NewJob wires the asynq handler. metrics may be nil.
func NewJob(service *Service, statuses *StatusStore, metrics *jobmetrics.Metrics, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{service: service, statuses: statuses, metrics: metrics, logger: logger, validate: validator.New()}
}

// Handle processes a jobs.TaskInventoryImport task.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.service == nil || j.statuses == nil {
		return errors.New("inventory import: dependencies not configured")
	}
	var payload jobs.InventoryImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("inventory import: decode payload: %w", asynq.SkipRetry)
	}
	if err := j.validate.Struct(payload); err != nil {
		j.logger.Warn("inventory import payload rejected", slog.Any("error", err))
		return fmt.Errorf("inventory import: %v: %w", err, asynq.SkipRetry)
	}
	req := Request{
		RunID:   uuid.MustParse(payload.RunID),
		StoreID: uuid.MustParse(payload.StoreID),
		Schema:  Schema(payload.Schema),
		Records: payload.Records,
	}

	tracker := j.metrics.Track(jobs.TaskInventoryImport)
	defer func() {
		err = tracker.End(err)
	}()

	status := RunStatus{RunID: req.RunID, Schema: req.Schema, StoreID: req.StoreID, State: RunRunning}
	if err := j.statuses.Save(ctx, status); err != nil {
		j.logger.Warn("inventory import status", slog.Any("error", err))
	}

	res, runErr := j.service.Run(ctx, req)
	if current, getErr := j.statuses.Get(ctx, req.RunID); getErr == nil {
		status = current
	}
	status.Schema = req.Schema
	status.StoreID = req.StoreID
	status.State = RunDone
	status.Result = &res
	if runErr != nil {
		status.State = RunFailed
		status.Error = runErr.Error()
	}
	if err := j.statuses.Save(ctx, status); err != nil {
		j.logger.Warn("inventory import status", slog.Any("error", err))
	}
	if runErr != nil && IsFatal(runErr) {
		return fmt.Errorf("inventory import: %v: %w", runErr, asynq.SkipRetry)
	}
	return runErr
}
