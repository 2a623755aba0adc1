package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/zulandar/scriptyard/internal/models"
	"golang.org/x/term"
)

// setupColor turns colour on only when out is a terminal and --no-color is
// not set.
func setupColor(out io.Writer, disabled bool) {
	if disabled {
		color.NoColor = true
		return
	}
	f, ok := out.(*os.File)
	color.NoColor = !ok || !term.IsTerminal(int(f.Fd()))
}

var (
	runningBadge = color.New(color.FgBlue, color.Bold).SprintFunc()
	successBadge = color.New(color.FgGreen).SprintFunc()
	failedBadge  = color.New(color.FgRed).SprintFunc()
	notRunBadge  = color.New(color.Faint).SprintFunc()
)

// statusBadge renders a script's run state.
func statusBadge(s models.Script) string {
	if s.IsRunning {
		return runningBadge("Running")
	}
	switch s.LastRunStatus {
	case models.StatusSuccess:
		return successBadge("Success")
	case models.StatusFailed:
		return failedBadge("Failed")
	default:
		return notRunBadge("Not Run")
	}
}

// scanBadge renders an accessibility scan's state.
func scanBadge(s models.Script) string {
	if s.IsRunning {
		return runningBadge("Running")
	}
	switch s.LastRunStatus {
	case models.StatusSuccess:
		return successBadge("Completed")
	case models.StatusFailed:
		return failedBadge("Failed")
	default:
		return notRunBadge("Not Run")
	}
}

// formatLastRun renders a last-run timestamp relative to now.
func formatLastRun(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return formatAgo(now.Sub(*t))
}

// formatAgo renders a duration as a short "N units ago" string.
func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// printLine writes a console line, colouring the failure markers.
func printLine(out io.Writer, line string) {
	switch {
	case len(line) > 9 && line[3:9] == "Error:":
		fmt.Fprintln(out, color.RedString(line))
	default:
		fmt.Fprintln(out, line)
	}
}
