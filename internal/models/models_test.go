package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestKVEntry_Fields(t *testing.T) {
	typ := reflect.TypeOf(KVEntry{})

	assertGormTag(t, typ, "Key", "primaryKey")
	assertGormTag(t, typ, "Key", "size:128")
	assertGormTag(t, typ, "Value", "type:longtext")

	assertFieldType(t, typ, "Key", "string")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")

	if got := (KVEntry{}).TableName(); got != "kv_entries" {
		t.Errorf("TableName() = %q, want %q", got, "kv_entries")
	}
}

func TestScript_Fields(t *testing.T) {
	typ := reflect.TypeOf(Script{})

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "LastRun", "*time.Time")
	assertFieldType(t, typ, "LastRunStatus", "models.RunStatus")
	assertFieldType(t, typ, "RunCount", "int")
	assertFieldType(t, typ, "IsRunning", "bool")
}

func TestScript_JSONKeys(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Script{
		ID:            "1",
		Name:          "Login",
		CreatedAt:     now,
		UpdatedAt:     now,
		LastRun:       &now,
		LastRunStatus: StatusSuccess,
		RunCount:      2,
		IsRunning:     true,
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "name", "description", "code", "createdAt", "updatedAt", "lastRun", "lastRunStatus", "runCount", "isRunning"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing JSON key %q in %s", key, data)
		}
	}
	if raw["lastRunStatus"] != "success" {
		t.Errorf("lastRunStatus = %v", raw["lastRunStatus"])
	}
}

func TestScript_OmitsUnsetRunFields(t *testing.T) {
	data, err := json.Marshal(Script{ID: "1", LastRunStatus: StatusNotRun})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"lastRun"`, `"isRunning"`} {
		if strings.Contains(string(data), key) {
			t.Errorf("%s present in %s", key, data)
		}
	}
}

func TestRunStatus_Valid(t *testing.T) {
	tests := []struct {
		s        RunStatus
		valid    bool
		terminal bool
	}{
		{StatusNotRun, true, false},
		{StatusSuccess, true, true},
		{StatusFailed, true, true},
		{"running", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := tt.s.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.s, got, tt.valid)
		}
		if got := tt.s.Terminal(); got != tt.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", tt.s, got, tt.terminal)
		}
	}
}

func TestScript_State(t *testing.T) {
	tests := []struct {
		name string
		s    Script
		want string
	}{
		{"running overrides status", Script{IsRunning: true, LastRunStatus: StatusFailed}, "running"},
		{"success", Script{LastRunStatus: StatusSuccess}, "success"},
		{"failed", Script{LastRunStatus: StatusFailed}, "failed"},
		{"empty reads as not run", Script{}, "not_run"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}
