package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryImport is the task type for queued inventory imports.
	TaskInventoryImport = "inventory:import"
)

// InventoryImportPayload carries an already tokenized upload.
type InventoryImportPayload struct {
	RunID   string     `json:"run_id" validate:"required,uuid"`
	StoreID string     `json:"store_id" validate:"required,uuid"`
	Schema  string     `json:"schema" validate:"required,oneof=catalog transactions"`
	Records [][]string `json:"records" validate:"required,min=2"`
}

// NewInventoryImportTask constructs an Asynq task. Imports run at most once.
func NewInventoryImportTask(payload InventoryImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryImport, data, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}
