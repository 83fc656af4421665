package importer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Severity grades a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is the user-facing message of a run.
type Notification struct {
	RunID    uuid.UUID `json:"run_id"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// Notifier delivers run notifications, typically as a toast.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	if l.Logger == nil {
		return nil
	}
	level := slog.LevelInfo
	switch n.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	l.Logger.Log(ctx, level, "import notification",
		slog.String("run_id", n.RunID.String()),
		slog.String("severity", string(n.Severity)),
		slog.String("message", n.Message))
	return nil
}

// Notifiers fans a notification out to several sinks.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range ns {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
