package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yml := "work_file: /tmp/work.md\nparking_lot_cap: 10\nthresholds:\n  auto: 0.9\n  review: 0.7\ncalendar:\n  calendars:\n    Work: work@example.com\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASK_TRACKER_CONFIG", "")
	t.Setenv("TASK_TRACKER_WORK_FILE", filepath.Join(dir, "Weekly TODOs.md"))
	t.Setenv("PARKING_LOT_STALE_DAYS", "14")
	t.Setenv("STANDUP_CALENDARS", "{}")

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath, EnvFile: filepath.Join(dir, "missing.env")})
	if err == nil {
		t.Fatalf("expected explicit missing env file to fail")
	}

	cfg, err = Load(LoadOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkFile != filepath.Join(dir, "Weekly TODOs.md") {
		t.Fatalf("expected env to override file, got %q", cfg.WorkFile)
	}
	if cfg.ParkingLotCap != 10 || cfg.ParkingLotStaleDays != 14 {
		t.Fatalf("expected cap 10 / stale 14, got %d / %d", cfg.ParkingLotCap, cfg.ParkingLotStaleDays)
	}
	if cfg.Thresholds.Auto != 0.9 || cfg.Thresholds.Review != 0.7 {
		t.Fatalf("unexpected thresholds: %#v", cfg.Thresholds)
	}
	if len(cfg.Calendar.Calendars) != 0 {
		t.Fatalf("expected STANDUP_CALENDARS={} to clear calendars, got %v", cfg.Calendar.Calendars)
	}
	if got := cfg.ArchiveDirFor(); got != filepath.Join(dir, "Done Archive") {
		t.Fatalf("expected archive next to work file, got %q", got)
	}
	if cfg.Path != cfgPath {
		t.Fatalf("expected config path recorded, got %q", cfg.Path)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TASK_TRACKER_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(LoadOptions{}); err == nil {
		t.Fatalf("expected explicit missing config file to fail")
	}

	t.Setenv("TASK_TRACKER_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PARKING_LOT_CAP", "lots")
	if _, err := Load(LoadOptions{}); err == nil {
		t.Fatalf("expected non-numeric cap to fail")
	}
	t.Setenv("PARKING_LOT_CAP", "0")
	if _, err := Load(LoadOptions{}); err == nil {
		t.Fatalf("expected zero cap to fail validation")
	}
}

func TestDefaultsAndLogDir(t *testing.T) {
	cfg := Default()
	if cfg.ParkingLotCap != 25 || cfg.ParkingLotStaleDays != 30 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	cfg.DailyNotesDir = "/notes"
	if cfg.LogDir() != "/notes" {
		t.Fatalf("expected daily notes dir as log dir")
	}
	cfg.DoneLogDir = "/done"
	if cfg.LogDir() != "/done" {
		t.Fatalf("expected done log dir override")
	}
}
