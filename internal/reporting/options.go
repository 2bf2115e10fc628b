package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Options configures the reporting service.
type Options struct {
	Chart        ChartOfAccounts
	Tolerance    decimal.Decimal
	BaseCurrency string
	Baseline     BaselineConfig
	Thresholds   Thresholds
}

// DefaultOptions returns the default chart, a one-cent tolerance, the
// lifetime cash baseline and the default alert thresholds.
func DefaultOptions() Options {
	return Options{
		Chart:      DefaultChart(),
		Tolerance:  DefaultTolerance,
		Baseline:   BaselineConfig{Mode: BaselineLifetime, OpeningBalance: decimal.Zero},
		Thresholds: DefaultThresholds(),
	}
}

// Validate checks the chart, tolerance, baseline and thresholds.
func (o Options) Validate() error {
	if err := o.Chart.Validate(); err != nil {
		return err
	}
	if o.Tolerance.IsNegative() {
		return fmt.Errorf("options: tolerance must not be negative")
	}
	if _, err := ParseBaseline(string(o.Baseline.Mode)); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if o.Baseline.Mode == BaselineSince && o.Baseline.Since.IsZero() {
		return fmt.Errorf("options: baseline %q needs a start date", BaselineSince)
	}
	if o.Thresholds.OverdueRevenueFraction.IsNegative() {
		return fmt.Errorf("options: overdue revenue fraction must not be negative")
	}
	one := decimal.NewFromInt(1)
	if o.Thresholds.VendorConcentration.IsNegative() || o.Thresholds.VendorConcentration.GreaterThan(one) {
		return fmt.Errorf("options: vendor concentration must be between 0 and 1")
	}
	return nil
}
