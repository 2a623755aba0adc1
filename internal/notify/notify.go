// Package notify delivers user-facing notices about scripts and runs: the
// console's "toasts". Sinks include the log, Slack and Discord.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Severity levels.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Event is a single notice.
type Event struct {
	Title    string  `json:"title"`            // e.g. "Script Created"
	Body     string  `json:"body"`             // e.g. `Successfully created "Login Test"`
	Severity string  `json:"severity"`         // info, success, warning, error
	Fields   []Field `json:"fields,omitempty"` // optional key-value metadata
}

// Field is a key-value pair attached to an event.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"` // hint: render side-by-side with another field
}

// Color returns the sidebar color for the event's severity.
func (e Event) Color() string {
	return severityColor(e.Severity)
}

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, evt Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch evt.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	args := []any{"body", evt.Body}
	for _, f := range evt.Fields {
		args = append(args, f.Name, f.Value)
	}
	logger.Log(ctx, level, evt.Title, args...)
	return nil
}

// Recorder keeps events in memory. It is used in tests and by the
// dashboard's recent-notifications endpoint.
type Recorder struct {
	// Limit, when positive, keeps only the most recent Limit events.
	Limit int

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, evt Event) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	if r.Limit > 0 && len(r.events) > r.Limit {
		r.events = append(r.events[:0], r.events[len(r.events)-r.Limit:]...)
	}
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Titles returns the recorded event titles in order.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Title
	}
	return out
}
