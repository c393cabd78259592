package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // panels rarely ship a zoneinfo database

	"gopkg.in/yaml.v3"

	"github.com/danpilch/tramboard/internal/board"
)

type StationConfig struct {
	Name  string `yaml:"name"`  // header text, e.g. "T7 Roswiesen"
	Query string `yaml:"query"` // stationboard query, e.g. "Roswiesen"
}

type FeedConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Transportation string        `yaml:"transportation"`
	ResultLimit    int           `yaml:"result_limit"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
}

type BoardConfig struct {
	DisplayRows        int                  `yaml:"display_rows"`
	MaxIntake          int                  `yaml:"max_intake"`
	StalenessFilter    *bool                `yaml:"staleness_filter"`
	StalenessThreshold time.Duration        `yaml:"staleness_threshold"`
	LabelMaxLength     int                  `yaml:"label_max_length"`
	Abbreviations      []board.Abbreviation `yaml:"abbreviations"`
}

// Staleness returns the stale-prognosis threshold, 0 when the filter is off.
func (b BoardConfig) Staleness() time.Duration {
	if b.StalenessFilter != nil && !*b.StalenessFilter {
		return 0
	}
	return b.StalenessThreshold
}

type LifecycleConfig struct {
	Tick            time.Duration  `yaml:"tick"`
	RefreshInterval time.Duration  `yaml:"refresh_interval"`
	IdleTimeout     *time.Duration `yaml:"idle_timeout"` // 0s disables sleeping
	IdlePromptHold  time.Duration  `yaml:"idle_prompt_hold"`
}

// Idle returns the idle timeout, 0 when sleeping is disabled.
func (l LifecycleConfig) Idle() time.Duration {
	if l.IdleTimeout == nil {
		return 0
	}
	return *l.IdleTimeout
}

type BootConfig struct {
	ProbeURL       string        `yaml:"probe_url"`
	Attempts       int           `yaml:"attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	Backoff        time.Duration `yaml:"backoff"`
	RestartDelay   time.Duration `yaml:"restart_delay"`
	ClockPoll      time.Duration `yaml:"clock_poll"`
}

type DisplayConfig struct {
	Driver  string `yaml:"driver"` // png | waveshare
	PNGPath string `yaml:"png_path"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

type InputConfig struct {
	Driver string `yaml:"driver"` // signal | gt1151 | none
	I2CBus string `yaml:"i2c_bus"`
}

type BatteryConfig struct {
	Path string `yaml:"path"` // power_supply directory; empty autodetects
}

type PreviewConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type Config struct {
	Timezone  string          `yaml:"timezone"`
	Feed      FeedConfig      `yaml:"feed"`
	Stations  []StationConfig `yaml:"stations"`
	Board     BoardConfig     `yaml:"board"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Boot      BootConfig      `yaml:"boot"`
	Display   DisplayConfig   `yaml:"display"`
	Input     InputConfig     `yaml:"input"`
	Battery   BatteryConfig   `yaml:"battery"`
	Preview   PreviewConfig   `yaml:"preview"`
	Log       LogConfig       `yaml:"log"`

	location *time.Location
}

// Location returns the zone feed timestamps are interpreted in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with the values the board was tuned with.
func (c *Config) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Zurich"
	}

	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://transport.opendata.ch/v1"
	}
	if c.Feed.Transportation == "" {
		c.Feed.Transportation = "tram"
	}
	if c.Feed.ResultLimit == 0 {
		c.Feed.ResultLimit = 6
	}
	if c.Feed.FetchTimeout == 0 {
		c.Feed.FetchTimeout = 10 * time.Second
	}

	if len(c.Stations) == 0 {
		c.Stations = []StationConfig{
			{Name: "T7 Roswiesen", Query: "Roswiesen"},
			{Name: "T9 Heerenwiesen", Query: "Heerenwiesen"},
		}
	}
	for i := range c.Stations {
		if c.Stations[i].Name == "" {
			c.Stations[i].Name = c.Stations[i].Query
		}
	}

	if c.Board.DisplayRows == 0 {
		c.Board.DisplayRows = board.DefaultDisplayRows
	}
	if c.Board.MaxIntake == 0 {
		c.Board.MaxIntake = board.DefaultMaxIntake
	}
	if c.Board.StalenessThreshold == 0 {
		c.Board.StalenessThreshold = board.DefaultStaleness
	}
	if c.Board.LabelMaxLength == 0 {
		c.Board.LabelMaxLength = board.DefaultLabelLength
	}
	if c.Board.Abbreviations == nil {
		c.Board.Abbreviations = board.DefaultAbbreviations
	}

	if c.Lifecycle.Tick == 0 {
		c.Lifecycle.Tick = 100 * time.Millisecond
	}
	if c.Lifecycle.RefreshInterval == 0 {
		c.Lifecycle.RefreshInterval = 60 * time.Second
	}
	if c.Lifecycle.IdleTimeout == nil {
		idle := 2 * time.Minute
		c.Lifecycle.IdleTimeout = &idle
	}
	if c.Lifecycle.IdlePromptHold == 0 {
		c.Lifecycle.IdlePromptHold = time.Second
	}

	if c.Boot.ProbeURL == "" {
		c.Boot.ProbeURL = c.Feed.BaseURL + "/locations?query=Zurich"
	}
	if c.Boot.Attempts == 0 {
		c.Boot.Attempts = 3
	}
	if c.Boot.AttemptTimeout == 0 {
		c.Boot.AttemptTimeout = 10 * time.Second
	}
	if c.Boot.Backoff == 0 {
		c.Boot.Backoff = 3 * time.Second
	}
	if c.Boot.RestartDelay == 0 {
		c.Boot.RestartDelay = 60 * time.Second
	}
	if c.Boot.ClockPoll == 0 {
		c.Boot.ClockPoll = 500 * time.Millisecond
	}

	if c.Display.Driver == "" {
		c.Display.Driver = "png"
	}
	if c.Display.PNGPath == "" {
		c.Display.PNGPath = "frame.png"
	}
	if c.Display.Width == 0 {
		c.Display.Width = 960
	}
	if c.Display.Height == 0 {
		c.Display.Height = 540
	}

	if c.Input.Driver == "" {
		c.Input.Driver = "signal"
	}
	if c.Input.I2CBus == "" {
		c.Input.I2CBus = "1"
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 5
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
}

func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	if len(c.Stations) != 2 {
		return fmt.Errorf("stations: exactly two stations are required, got %d", len(c.Stations))
	}
	for i, s := range c.Stations {
		if s.Query == "" {
			return fmt.Errorf("stations[%d]: query is required", i)
		}
	}

	if c.Feed.ResultLimit < 1 {
		return fmt.Errorf("feed: result_limit must be positive")
	}
	if c.Feed.FetchTimeout < 0 {
		return fmt.Errorf("feed: fetch_timeout must not be negative")
	}
	if c.Board.DisplayRows < 1 || c.Board.MaxIntake < 1 {
		return fmt.Errorf("board: display_rows and max_intake must be positive")
	}
	if c.Board.LabelMaxLength < 1 {
		return fmt.Errorf("board: label_max_length must be positive")
	}

	if c.Lifecycle.Tick <= 0 || c.Lifecycle.RefreshInterval <= 0 {
		return fmt.Errorf("lifecycle: tick and refresh_interval must be positive")
	}
	if c.Lifecycle.Idle() < 0 {
		return fmt.Errorf("lifecycle: idle_timeout must not be negative")
	}

	if c.Boot.Attempts < 1 {
		return fmt.Errorf("boot: attempts must be at least 1")
	}

	switch strings.ToLower(c.Display.Driver) {
	case "png", "waveshare":
	default:
		return fmt.Errorf("display: unknown driver %q", c.Display.Driver)
	}
	if c.Display.Width < 1 || c.Display.Height < 1 {
		return fmt.Errorf("display: width and height must be positive")
	}

	switch strings.ToLower(c.Input.Driver) {
	case "signal", "gt1151", "none":
	default:
		return fmt.Errorf("input: unknown driver %q", c.Input.Driver)
	}

	return nil
}
