package main

import (
	"fmt"
	"strings"

	"github.com/bilix/bilix/internal/config"
	"github.com/spf13/viper"
)

// loadConfig starts from the server configuration and overrides every key
// set in v (config file, BILIX_* environment or a bound flag).
func loadConfig(v *viper.Viper) (*config.Config, error) {
	v.SetEnvPrefix("BILIX")
	v.AutomaticEnv()

	cfg := config.FromEnv()
	overrides := map[string]*string{
		"store_driver":               &cfg.StoreDriver,
		"gcp_project":                &cfg.GCPProject,
		"bq_dataset":                 &cfg.BQDataset,
		"sqlite_path":                &cfg.SQLitePath,
		"gcs_bucket":                 &cfg.GCSBucket,
		"gemini_model":               &cfg.GeminiModel,
		"log_level":                  &cfg.LogLevel,
		"log_format":                 &cfg.LogFormat,
		"report_tolerance":           &cfg.ReportTolerance,
		"report_base_currency":       &cfg.ReportBaseCurrency,
		"cashflow_baseline":          &cfg.CashFlowBaseline,
		"cashflow_baseline_since":    &cfg.CashFlowBaselineSince,
		"cashflow_opening_balance":   &cfg.CashFlowOpeningBalance,
		"alert_overdue_fraction":     &cfg.AlertOverdueFraction,
		"alert_vendor_concentration": &cfg.AlertVendorShare,
		"alert_min_vendors":          &cfg.AlertMinVendors,
		"alert_upcoming_days":        &cfg.AlertUpcomingDays,
	}
	for key, field := range overrides {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*field = s
		}
	}
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
