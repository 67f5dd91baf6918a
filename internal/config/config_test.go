package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsdesk.yaml")
	data := `
port: "9090"
timezone: UTC
schedule:
  week_start: monday
  max_visible: 4
  sales_manual_entries: owner
metrics:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPSDESK_PORT", "7070")
	t.Setenv("OPSDESK_STRICT_LEAD_NAMES", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want env override %q", cfg.Port, "7070")
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false from file")
	}
	if cfg.DBPath != "opsdesk.db" {
		t.Errorf("DBPath = %q, want default", cfg.DBPath)
	}

	ec := cfg.EngineConfig()
	if ec.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", ec.Location)
	}
	if ec.WeekStart != time.Monday {
		t.Errorf("WeekStart = %v, want Monday", ec.WeekStart)
	}
	if ec.MaxVisible != 4 || !ec.StrictLeadNames {
		t.Errorf("MaxVisible/StrictLeadNames = %d/%v, want 4/true", ec.MaxVisible, ec.StrictLeadNames)
	}
	if ec.Views == nil || ec.Views["sales"] == nil {
		t.Error("EngineConfig has no sales view")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"week start", map[string]string{"OPSDESK_WEEK_START": "someday"}, "week_start"},
		{"max visible", map[string]string{"OPSDESK_MAX_VISIBLE": "0"}, "max_visible"},
		{"max visible not int", map[string]string{"OPSDESK_MAX_VISIBLE": "three"}, "OPSDESK_MAX_VISIBLE"},
		{"visibility", map[string]string{"OPSDESK_SALES_MANUAL_ENTRIES": "everyone"}, "sales_manual_entries"},
		{"timezone", map[string]string{"OPSDESK_TIMEZONE": "Mars/Olympus"}, "timezone"},
		{"bool", map[string]string{"OPSDESK_METRICS_ENABLED": "sometimes"}, "OPSDESK_METRICS_ENABLED"},
		{"log format", map[string]string{"OPSDESK_LOG_FORMAT": "xml"}, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil {
				t.Fatal("Load returned no error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEngineConfigOwnerVisibility(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "UTC"
	cfg.Schedule.SalesManualEntries = "owner"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	views := cfg.EngineConfig().Views
	v := views["sales"](schedule.Scope{ActorID: 1, Role: "sales"})
	if v.Entries == nil {
		t.Fatal("sales view hides manual entries")
	}
	if v.Entries(model.ScheduleEntry{OwnerID: 2}) {
		t.Error("owner visibility shows another user's entry")
	}
}
