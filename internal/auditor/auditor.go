// Package auditor creates and runs accessibility scans. A scan is an
// ordinary script whose body is a generated WCAG audit and whose name marks
// it as a scan.
package auditor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"text/template"

	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/scripts"
	"github.com/zulandar/scriptyard/internal/stats"
)

// ErrInvalidURL is returned for a target that is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("auditor: invalid url")

//go:embed scripts/audit.py.tmpl
var auditSource string

var auditTmpl = template.Must(template.New("audit").Parse(auditSource))

// ValidateURL checks that raw is an absolute http or https URL with a host
// and returns it trimmed.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return raw, nil
}

// GenerateScript returns the audit script body for target.
func GenerateScript(target string) (string, error) {
	var buf bytes.Buffer
	if err := auditTmpl.Execute(&buf, struct{ URL string }{target}); err != nil {
		return "", fmt.Errorf("auditor: render script: %w", err)
	}
	return buf.String(), nil
}

// ScanName and ScanDescription label the script created for target.
func ScanName(target string) string {
	return "Accessibility Scan - " + target
}

func ScanDescription(target string) string {
	return fmt.Sprintf("Web accessibility audit for %s based on WCAG standards", target)
}

// Auditor runs scans through the script service.
type Auditor struct {
	svc      *scripts.Service
	notifier notify.Notifier
	logger   *slog.Logger
}

// New returns an Auditor. A nil notifier or logger uses a no-op notifier or
// slog.Default.
func New(svc *scripts.Service, notifier notify.Notifier, logger *slog.Logger) *Auditor {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{svc: svc, notifier: notifier, logger: logger}
}

// Scan creates a scan script for target, quick-runs it and returns the
// finished record.
func (a *Auditor) Scan(ctx context.Context, target string) (*models.Script, error) {
	target, err := ValidateURL(target)
	if err != nil {
		return nil, err
	}
	body, err := GenerateScript(target)
	if err != nil {
		return nil, err
	}

	script, err := a.svc.AddScript(ctx, ScanName(target), ScanDescription(target), body)
	if err != nil {
		return nil, fmt.Errorf("auditor: create scan: %w", err)
	}
	a.logger.Info("scan created", "id", script.ID, "url", target)

	final, err := a.svc.RunScript(ctx, script.ID)
	if err != nil {
		return nil, fmt.Errorf("auditor: run scan: %w", err)
	}

	evt := notify.Event{
		Title:    "Scan Initiated",
		Body:     "Starting accessibility scan for " + target,
		Severity: notify.SeverityInfo,
		Fields:   []notify.Field{{Name: "id", Value: script.ID, Short: true}},
	}
	if err := a.notifier.Notify(ctx, evt); err != nil {
		a.logger.Warn("scan notification failed", "id", script.ID, "err", err)
	}
	return final, nil
}

// Rerun quick-runs an existing scan. It returns nil for an unknown id.
func (a *Auditor) Rerun(ctx context.Context, id string) (*models.Script, error) {
	return a.svc.RunScript(ctx, id)
}

// Recent returns the current scans, most recently updated first.
func (a *Auditor) Recent() []models.Script {
	return RecentScans(a.svc.List())
}

// Stats returns the scan counters for the current collection.
func (a *Auditor) Stats() stats.AccessibilitySummary {
	return stats.Accessibility(a.svc.List())
}

// RecentScans filters all down to accessibility scans sorted by UpdatedAt,
// newest first. Ties keep collection order.
func RecentScans(all []models.Script) []models.Script {
	var out []models.Script
	for _, s := range all {
		if stats.IsAccessibilityScan(s) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(x, y models.Script) int {
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})
	return out
}
