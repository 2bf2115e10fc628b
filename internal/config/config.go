// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/logger"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers.
const (
	DriverBigQuery = "bigquery"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// HTTP
	Port string

	// Storage
	StoreDriver string
	GCPProject  string
	BQDataset   string
	SQLitePath  string
	GCSBucket   string

	// AI
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiModel  string

	// Notion export
	NotionToken      string
	NotionDatabaseID string

	// Logging
	LogLevel  string
	LogFormat string

	// Reporting
	ReportTolerance        string
	ReportBaseCurrency     string
	CashFlowBaseline       string
	CashFlowBaselineSince  string
	CashFlowOpeningBalance string
	AlertOverdueFraction   string
	AlertVendorShare       string
	AlertMinVendors        string
	AlertUpcomingDays      string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv reads the environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8080"),
		StoreDriver:            strings.ToLower(getEnv("STORE_DRIVER", DriverBigQuery)),
		GCPProject:             getEnv("GCP_PROJECT", ""),
		BQDataset:              getEnv("BQ_DATASET", "bilix"),
		SQLitePath:             getEnv("SQLITE_PATH", "data/bilix.db"),
		GCSBucket:              getEnv("GCS_BUCKET", ""),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		NotionToken:            getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID:       getEnv("NOTION_DATABASE_ID", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "console"),
		ReportTolerance:        getEnv("REPORT_TOLERANCE", ""),
		ReportBaseCurrency:     getEnv("REPORT_BASE_CURRENCY", ""),
		CashFlowBaseline:       getEnv("CASHFLOW_BASELINE", ""),
		CashFlowBaselineSince:  getEnv("CASHFLOW_BASELINE_SINCE", ""),
		CashFlowOpeningBalance: getEnv("CASHFLOW_OPENING_BALANCE", ""),
		AlertOverdueFraction:   getEnv("ALERT_OVERDUE_FRACTION", ""),
		AlertVendorShare:       getEnv("ALERT_VENDOR_CONCENTRATION", ""),
		AlertMinVendors:        getEnv("ALERT_MIN_VENDORS", ""),
		AlertUpcomingDays:      getEnv("ALERT_UPCOMING_DAYS", ""),
	}
}

// Validate checks the driver-specific settings and the reporting knobs.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverBigQuery:
		if c.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required for the bigquery store")
		}
		if c.BQDataset == "" {
			return fmt.Errorf("BQ_DATASET is required for the bigquery store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverBigQuery, DriverSQLite, c.StoreDriver)
	}

	if _, err := c.ReportingOptions(); err != nil {
		return err
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	}
}

// ReportingOptions builds reporting options, starting from the defaults and
// overriding every knob that is set.
func (c *Config) ReportingOptions() (reporting.Options, error) {
	opts := reporting.DefaultOptions()
	opts.BaseCurrency = strings.ToUpper(strings.TrimSpace(c.ReportBaseCurrency))

	var err error
	if opts.Tolerance, err = decimalOr(c.ReportTolerance, opts.Tolerance, "REPORT_TOLERANCE"); err != nil {
		return opts, err
	}

	if opts.Baseline.Mode, err = reporting.ParseBaseline(c.CashFlowBaseline); err != nil {
		return opts, fmt.Errorf("CASHFLOW_BASELINE: %w", err)
	}
	if c.CashFlowBaselineSince != "" {
		since, err := time.Parse("2006-01-02", c.CashFlowBaselineSince)
		if err != nil {
			return opts, fmt.Errorf("CASHFLOW_BASELINE_SINCE: %w", err)
		}
		opts.Baseline.Since = since
	}
	if opts.Baseline.OpeningBalance, err = decimalOr(c.CashFlowOpeningBalance, opts.Baseline.OpeningBalance, "CASHFLOW_OPENING_BALANCE"); err != nil {
		return opts, err
	}

	t := &opts.Thresholds
	if t.OverdueRevenueFraction, err = decimalOr(c.AlertOverdueFraction, t.OverdueRevenueFraction, "ALERT_OVERDUE_FRACTION"); err != nil {
		return opts, err
	}
	if t.VendorConcentration, err = decimalOr(c.AlertVendorShare, t.VendorConcentration, "ALERT_VENDOR_CONCENTRATION"); err != nil {
		return opts, err
	}
	if t.MinVendors, err = intOr(c.AlertMinVendors, t.MinVendors, "ALERT_MIN_VENDORS"); err != nil {
		return opts, err
	}
	if t.UpcomingDays, err = intOr(c.AlertUpcomingDays, t.UpcomingDays, "ALERT_UPCOMING_DAYS"); err != nil {
		return opts, err
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func decimalOr(raw string, def decimal.Decimal, key string) (decimal.Decimal, error) {
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intOr(raw string, def int, key string) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return def, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
