package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the top-level application configuration loaded from YAML.
type AppConfig struct {
	Data     DataConfig     `yaml:"data"`
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Report   ReportConfig   `yaml:"report"`
	LogLevel string         `yaml:"log_level"`
}

// DataConfig controls the market data client.
type DataConfig struct {
	BaseURL         string  `yaml:"base_url"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	RPS             float64 `yaml:"rps"`
	Burst           int     `yaml:"burst"`
}

// Timeout returns the HTTP timeout as a duration.
func (d DataConfig) Timeout() time.Duration { return time.Duration(d.TimeoutSeconds) * time.Second }

// CacheTTL returns the cache TTL as a duration.
func (d DataConfig) CacheTTL() time.Duration { return time.Duration(d.CacheTTLSeconds) * time.Second }

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// AnalysisConfig holds defaults applied to every analysis run.
type AnalysisConfig struct {
	PeriodsPerYear  float64   `yaml:"periods_per_year"`
	RiskFreeRate    float64   `yaml:"risk_free_rate"`
	VaRConfidences  []float64 `yaml:"var_confidences"`
	DefaultPeriod   string    `yaml:"default_period"`
	DefaultStrategy string    `yaml:"default_strategy"`
}

// ReportConfig controls the daily report generator and its schedule.
type ReportConfig struct {
	Tickers   []string `yaml:"tickers"`
	OutputDir string   `yaml:"output_dir"`
	Period    string   `yaml:"period"`
	Jobs      []Job    `yaml:"jobs"`
}

// Job is a recurring report job.
type Job struct {
	Name            string   `yaml:"name"`
	IntervalMinutes int      `yaml:"interval_minutes"`
	Enabled         bool     `yaml:"enabled"`
	Tickers         []string `yaml:"tickers"` // overrides ReportConfig.Tickers when set
}

// Interval returns the job cadence as a duration.
func (j Job) Interval() time.Duration { return time.Duration(j.IntervalMinutes) * time.Minute }

// Default returns the configuration used when no file is provided.
func Default() AppConfig {
	return AppConfig{
		Data: DataConfig{
			BaseURL:         "https://stooq.com/q/d/l/",
			TimeoutSeconds:  10,
			CacheTTLSeconds: 900,
			RPS:             2,
			Burst:           4,
		},
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 60,
			IdleTimeoutSeconds:  120,
		},
		Analysis: AnalysisConfig{
			PeriodsPerYear:  252,
			RiskFreeRate:    0,
			VaRConfidences:  []float64{0.95, 0.99},
			DefaultPeriod:   "1y",
			DefaultStrategy: "buy_hold",
		},
		Report: ReportConfig{
			Tickers:   []string{"spy.us", "qqq.us", "gld.us"},
			OutputDir: "reports",
			Period:    "3mo",
		},
		LogLevel: "info",
	}
}

// Load reads an AppConfig from path, filling unset fields with defaults.
// An empty path returns Default() unchanged.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Data.BaseURL == "" {
		cfg.Data.BaseURL = def.Data.BaseURL
	}
	if cfg.Data.TimeoutSeconds <= 0 {
		cfg.Data.TimeoutSeconds = def.Data.TimeoutSeconds
	}
	if cfg.Data.CacheTTLSeconds <= 0 {
		cfg.Data.CacheTTLSeconds = def.Data.CacheTTLSeconds
	}
	if cfg.Data.RPS <= 0 {
		cfg.Data.RPS = def.Data.RPS
	}
	if cfg.Data.Burst <= 0 {
		cfg.Data.Burst = def.Data.Burst
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = def.Server.ReadTimeoutSeconds
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = def.Server.WriteTimeoutSeconds
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = def.Server.IdleTimeoutSeconds
	}
	if cfg.Analysis.PeriodsPerYear <= 0 {
		cfg.Analysis.PeriodsPerYear = def.Analysis.PeriodsPerYear
	}
	if len(cfg.Analysis.VaRConfidences) == 0 {
		cfg.Analysis.VaRConfidences = def.Analysis.VaRConfidences
	}
	if cfg.Analysis.DefaultPeriod == "" {
		cfg.Analysis.DefaultPeriod = def.Analysis.DefaultPeriod
	}
	if cfg.Analysis.DefaultStrategy == "" {
		cfg.Analysis.DefaultStrategy = def.Analysis.DefaultStrategy
	}
	if len(cfg.Report.Tickers) == 0 {
		cfg.Report.Tickers = def.Report.Tickers
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = def.Report.OutputDir
	}
	if cfg.Report.Period == "" {
		cfg.Report.Period = def.Report.Period
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

func (c AppConfig) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	for _, conf := range c.Analysis.VaRConfidences {
		if conf <= 0 || conf >= 1 {
			return fmt.Errorf("var confidence must be in (0, 1): %v", conf)
		}
	}
	for _, job := range c.Report.Jobs {
		if job.Name == "" {
			return fmt.Errorf("report job missing name")
		}
		if job.IntervalMinutes <= 0 {
			return fmt.Errorf("report job %q: interval must be positive", job.Name)
		}
	}
	return nil
}
