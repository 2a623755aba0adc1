// Package stats derives dashboard counters from a snapshot of the script
// collection. Every function is pure: the same snapshot always yields the
// same result.
package stats

import (
	"strings"

	"github.com/zulandar/scriptyard/internal/models"
)

// Summary holds the dashboard counters.
type Summary struct {
	TotalScripts   int `json:"totalScripts"`
	SuccessfulRuns int `json:"successfulRuns"`
	FailedRuns     int `json:"failedRuns"`
	TotalRuns      int `json:"totalRuns"`
}

// Aggregate computes the Summary for scripts. SuccessfulRuns and FailedRuns
// count scripts by last run status; TotalRuns sums run counts.
func Aggregate(scripts []models.Script) Summary {
	s := Summary{TotalScripts: len(scripts)}
	for _, sc := range scripts {
		switch sc.LastRunStatus {
		case models.StatusSuccess:
			s.SuccessfulRuns++
		case models.StatusFailed:
			s.FailedRuns++
		}
		if sc.RunCount > 0 {
			s.TotalRuns += sc.RunCount
		}
	}
	return s
}

// AccessibilitySummary holds the accessibility auditor counters.
type AccessibilitySummary struct {
	TotalScans     int `json:"totalScans"`
	CompletedScans int `json:"completedScans"`
	FailedScans    int `json:"failedScans"`
	AverageScore   int `json:"averageScore"`
}

// Score constants for the accessibility estimate.
const (
	baseScore         = 75
	failedScanPenalty = 15
)

// IsAccessibilityScan reports whether a script belongs to the auditor: its
// name or description mentions "accessibility", case-insensitively.
func IsAccessibilityScan(s models.Script) bool {
	return strings.Contains(strings.ToLower(s.Name), "accessibility") ||
		strings.Contains(strings.ToLower(s.Description), "accessibility")
}

// Accessibility computes auditor counters over the accessibility scans in
// scripts. The average score is an estimate, 75 less 15 per failed scan,
// clamped to [0, 100]; it is 0 when there are no scans.
func Accessibility(scripts []models.Script) AccessibilitySummary {
	var a AccessibilitySummary
	for _, sc := range scripts {
		if !IsAccessibilityScan(sc) {
			continue
		}
		a.TotalScans++
		switch sc.LastRunStatus {
		case models.StatusSuccess:
			a.CompletedScans++
		case models.StatusFailed:
			a.FailedScans++
		}
	}
	if a.TotalScans > 0 {
		a.AverageScore = max(0, min(100, baseScore-a.FailedScans*failedScanPenalty))
	}
	return a
}
