package models

import "time"

// RunStatus is the outcome of a script's most recent completed run.
type RunStatus string

const (
	StatusNotRun  RunStatus = "not_run"
	StatusSuccess RunStatus = "success"
	StatusFailed  RunStatus = "failed"
)

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusNotRun, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is the result of a completed run.
func (s RunStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Script is a user-authored automation script and its run history. The whole
// collection is persisted as a single JSON value.
type Script struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Code          string     `json:"code"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastRun       *time.Time `json:"lastRun,omitempty"`
	LastRunStatus RunStatus  `json:"lastRunStatus"`
	RunCount      int        `json:"runCount"`
	IsRunning     bool       `json:"isRunning,omitempty"`
}

// State returns the run-state machine position: "running" while a run is in
// flight, otherwise the last run status.
func (s Script) State() string {
	if s.IsRunning {
		return "running"
	}
	if s.LastRunStatus == "" {
		return string(StatusNotRun)
	}
	return string(s.LastRunStatus)
}
