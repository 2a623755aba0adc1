// Package templates holds the starter script bodies offered when creating a
// script, and the sample collection shown on first run.
package templates

import (
	"embed"
	"fmt"
	"time"

	"github.com/zulandar/scriptyard/internal/models"
)

//go:embed scripts/*.py
var scriptsFS embed.FS

// Template is a named starter script.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

var catalog = []struct {
	id, name, description string
}{
	{"blank", "Blank Script", "A blank script to start from scratch."},
	{"login-test", "Login Form Test", "Tests a basic login form with error handling."},
	{"data-scraper", "Web Scraper", "Scrapes data from a web page and formats the results."},
	{"screenshot", "Take Screenshots", "Takes screenshots of web pages for visual testing."},
}

// All returns every template in display order.
func All() []Template {
	out := make([]Template, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, Template{
			ID:          c.id,
			Name:        c.name,
			Description: c.description,
			Code:        mustCode(c.id),
		})
	}
	return out
}

// Get returns the template with the given id.
func Get(id string) (Template, bool) {
	for _, t := range All() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Code returns a template body, or "" for an unknown id.
func Code(id string) string {
	t, _ := Get(id)
	return t.Code
}

func mustCode(id string) string {
	data, err := scriptsFS.ReadFile("scripts/" + id + ".py")
	if err != nil {
		panic(fmt.Sprintf("templates: missing embedded script %s: %v", id, err))
	}
	return string(data)
}

// Samples returns the collection shown to first-time users, with timestamps
// relative to now.
func Samples(now time.Time) []models.Script {
	day := 24 * time.Hour
	ago := func(d time.Duration) time.Time { return now.Add(-d) }
	lastLogin := ago(day)
	lastScreens := ago(12 * time.Hour)

	return []models.Script{
		{
			ID:            "1",
			Name:          "Login Automation",
			Description:   "Automates login for our application with proper error handling and reporting.",
			Code:          Code("login-test"),
			CreatedAt:     ago(7 * day),
			UpdatedAt:     ago(2 * day),
			LastRun:       &lastLogin,
			LastRunStatus: models.StatusSuccess,
			RunCount:      5,
		},
		{
			ID:            "2",
			Name:          "Product Data Scraper",
			Description:   "Scrapes product information from the catalog pages and exports to CSV.",
			Code:          Code("data-scraper"),
			CreatedAt:     ago(5 * day),
			UpdatedAt:     ago(5 * day),
			LastRunStatus: models.StatusNotRun,
		},
		{
			ID:            "3",
			Name:          "UI Screenshot Tester",
			Description:   "Takes screenshots of key pages for visual regression testing.",
			Code:          Code("screenshot"),
			CreatedAt:     ago(3 * day),
			UpdatedAt:     ago(day),
			LastRun:       &lastScreens,
			LastRunStatus: models.StatusFailed,
			RunCount:      3,
		},
	}
}
