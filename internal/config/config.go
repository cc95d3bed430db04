package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/task-tracker/internal/reconcile"
)

const (
	appName        = "task-tracker"
	configFileName = "config.yaml"
)

// Config is resolved once at start and passed to every layer.
type Config struct {
	WorkFile            string               `yaml:"work_file" json:"work_file"`
	PersonalFile        string               `yaml:"personal_file" json:"personal_file"`
	DailyNotesDir       string               `yaml:"daily_notes_dir" json:"daily_notes_dir"`
	DoneLogDir          string               `yaml:"done_log_dir" json:"done_log_dir,omitempty"`
	ArchiveDir          string               `yaml:"archive_dir" json:"archive_dir,omitempty"`
	DelegationFile      string               `yaml:"delegation_file" json:"delegation_file"`
	Format              string               `yaml:"format" json:"format"`
	ParkingLotCap       int                  `yaml:"parking_lot_cap" json:"parking_lot_cap"`
	ParkingLotStaleDays int                  `yaml:"parking_lot_stale_days" json:"parking_lot_stale_days"`
	DefaultOwner        string               `yaml:"default_owner" json:"default_owner"`
	Thresholds          reconcile.Thresholds `yaml:"thresholds" json:"thresholds"`
	Log                 Log                  `yaml:"log" json:"log"`
	Calendar            Calendar             `yaml:"calendar" json:"calendar"`

	// Path is the config file that was read, if any.
	Path string `yaml:"-" json:"path,omitempty"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text|json
	File   string `yaml:"file" json:"file,omitempty"`
}

type Calendar struct {
	// Calendars maps a display name to a Google calendar id.
	Calendars       map[string]string `yaml:"calendars" json:"calendars,omitempty"`
	CredentialsFile string            `yaml:"credentials_file" json:"credentials_file,omitempty"`
	TokenFile       string            `yaml:"token_file" json:"token_file,omitempty"`
}

// LoadOptions point Load at non-default files.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
}

// Default returns the built-in configuration.
func Default() Config {
	base := filepath.Join(homeDir(), "Obsidian", "01-TODOs")
	return Config{
		WorkFile:            filepath.Join(base, "Weekly TODOs.md"),
		PersonalFile:        filepath.Join(base, "Personal TODOs.md"),
		DailyNotesDir:       filepath.Join(base, "Daily"),
		DelegationFile:      filepath.Join(base, "Delegated.md"),
		Format:              "obsidian",
		ParkingLotCap:       25,
		ParkingLotStaleDays: 30,
		DefaultOwner:        "me",
		Thresholds:          reconcile.DefaultThresholds,
		Log:                 Log{Level: "info", Format: "text"},
	}
}

// Load resolves configuration: defaults, then the YAML file, then .env, then
// the process environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("TASK_TRACKER_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = filepath.Join(homeDir(), ".config", appName, configFileName)
	}
	if err := loadYAML(&cfg, ExpandHome(path)); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	} else {
		cfg.Path = ExpandHome(path)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil {
		if opts.EnvFile != "" || !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.expand()
	return cfg, cfg.Validate()
}

func loadYAML(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		name   string
		target *string
	}{
		{"TASK_TRACKER_WORK_FILE", &cfg.WorkFile},
		{"TASK_TRACKER_PERSONAL_FILE", &cfg.PersonalFile},
		{"TASK_TRACKER_DAILY_NOTES_DIR", &cfg.DailyNotesDir},
		{"TASK_TRACKER_DONE_LOG_DIR", &cfg.DoneLogDir},
		{"TASK_TRACKER_ARCHIVE_DIR", &cfg.ArchiveDir},
		{"TASK_TRACKER_DELEGATION_FILE", &cfg.DelegationFile},
		{"TASK_TRACKER_FORMAT", &cfg.Format},
		{"TASK_TRACKER_DEFAULT_OWNER", &cfg.DefaultOwner},
		{"TASK_TRACKER_LOG_LEVEL", &cfg.Log.Level},
		{"TASK_TRACKER_LOG_FORMAT", &cfg.Log.Format},
		{"TASK_TRACKER_LOG_FILE", &cfg.Log.File},
		{"TASK_TRACKER_GOOGLE_CREDENTIALS", &cfg.Calendar.CredentialsFile},
		{"TASK_TRACKER_GOOGLE_TOKEN", &cfg.Calendar.TokenFile},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.name)); v != "" {
			*s.target = v
		}
	}

	ints := []struct {
		name   string
		target *int
	}{
		{"PARKING_LOT_CAP", &cfg.ParkingLotCap},
		{"PARKING_LOT_STALE_DAYS", &cfg.ParkingLotStaleDays},
	}
	for _, n := range ints {
		v := strings.TrimSpace(os.Getenv(n.name))
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", n.name, err)
		}
		*n.target = i
	}

	if v := strings.TrimSpace(os.Getenv("STANDUP_CALENDARS")); v != "" {
		cals := map[string]string{}
		// JSON is a subset of YAML, so the same decoder reads both.
		if err := yaml.Unmarshal([]byte(v), &cals); err != nil {
			return fmt.Errorf("config: STANDUP_CALENDARS: %w", err)
		}
		cfg.Calendar.Calendars = cals
	}
	return nil
}

func (c *Config) expand() {
	for _, p := range []*string{
		&c.WorkFile, &c.PersonalFile, &c.DailyNotesDir, &c.DoneLogDir, &c.ArchiveDir,
		&c.DelegationFile, &c.Log.File, &c.Calendar.CredentialsFile, &c.Calendar.TokenFile,
	} {
		*p = ExpandHome(*p)
	}
}

// Validate rejects values no command can work with.
func (c Config) Validate() error {
	if c.ParkingLotCap <= 0 {
		return fmt.Errorf("config: parking_lot_cap must be positive, got %d", c.ParkingLotCap)
	}
	if c.ParkingLotStaleDays <= 0 {
		return fmt.Errorf("config: parking_lot_stale_days must be positive, got %d", c.ParkingLotStaleDays)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// BoardFile returns the work or personal board path.
func (c Config) BoardFile(personal bool) string {
	if personal {
		return c.PersonalFile
	}
	return c.WorkFile
}

// ArchiveDirFor defaults to "Done Archive" next to the work board.
func (c Config) ArchiveDirFor() string {
	if c.ArchiveDir != "" {
		return c.ArchiveDir
	}
	return filepath.Join(filepath.Dir(c.WorkFile), "Done Archive")
}

// LogDir is where completions are logged: the done-log dir, else daily notes.
func (c Config) LogDir() string {
	if c.DoneLogDir != "" {
		return c.DoneLogDir
	}
	return c.DailyNotesDir
}

// ExpandHome resolves a leading "~/".
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		if home := homeDir(); home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func homeDir() string {
	home, _ := os.UserHomeDir()
	return home
}
