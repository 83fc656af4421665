package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunState is the lifecycle state of an asynchronous run.
type RunState string

const (
	RunQueued  RunState = "queued"
	RunRunning RunState = "running"
	RunDone    RunState = "done"
	RunFailed  RunState = "failed"
)

// ErrRunNotFound indicates an unknown or expired run id.
var ErrRunNotFound = errors.New("importer: run not found")

// RunStatus is what pollers see of an asynchronous run.
type RunStatus struct {
	RunID     uuid.UUID `json:"run_id"`
	Schema    Schema    `json:"schema,omitempty"`
	StoreID   uuid.UUID `json:"store_id,omitempty"`
	State     RunState  `json:"state"`
	Result    *Result   `json:"result,omitempty"`
	Message   string    `json:"message,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore keeps run statuses in Redis for a limited time.
type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStatusStore builds a store; ttl defaults to 24h.
func NewStatusStore(client *redis.Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusStore{client: client, ttl: ttl, now: time.Now}
}

func statusKey(runID uuid.UUID) string {
	return "import:run:" + runID.String()
}

// Save writes status, refreshing its expiry.
func (s *StatusStore) Save(ctx context.Context, status RunStatus) error {
	status.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("importer: encode status: %w", err)
	}
	if err := s.client.Set(ctx, statusKey(status.RunID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("importer: save status: %w", err)
	}
	return nil
}

// Get loads the status of runID.
func (s *StatusStore) Get(ctx context.Context, runID uuid.UUID) (RunStatus, error) {
	payload, err := s.client.Get(ctx, statusKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RunStatus{}, ErrRunNotFound
	}
	if err != nil {
		return RunStatus{}, fmt.Errorf("importer: load status: %w", err)
	}
	var status RunStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return RunStatus{}, fmt.Errorf("importer: decode status: %w", err)
	}
	return status, nil
}

// Notify implements Notifier by attaching the message to the run status.
func (s *StatusStore) Notify(ctx context.Context, n Notification) error {
	status, err := s.Get(ctx, n.RunID)
	if errors.Is(err, ErrRunNotFound) {
		status = RunStatus{RunID: n.RunID, State: RunRunning}
	} else if err != nil {
		return err
	}
	status.Message = n.Message
	status.Severity = n.Severity
	return s.Save(ctx, status)
}
