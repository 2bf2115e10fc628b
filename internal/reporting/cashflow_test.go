package reporting

import (
	"testing"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifetimeProjector() *Projector {
	return NewProjector(BaselineConfig{Mode: BaselineLifetime}, "")
}

func TestProject_PendingPurchaseDropsOnDueDay(t *testing.T) {
	bill := invoice("bill", domain.InvoiceTypePurchase, domain.InvoiceStatusPending, "500", day(-2))
	bill.DueDate = dayPtr(10)
	sale := invoice("sale", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "1000", day(-20))

	proj, err := lifetimeProjector().Project([]domain.Invoice{bill, sale}, now, 30)
	require.NoError(t, err)

	require.Len(t, proj.Points, 31)
	assertDec(t, "1000", proj.StartingBalance)
	for i := 0; i <= 9; i++ {
		assertDec(t, "1000", proj.Points[i].Balance)
	}
	for i := 10; i <= 30; i++ {
		assertDec(t, "500", proj.Points[i].Balance)
	}
	assertDec(t, "500", proj.Points[10].Outflow)
	assertDec(t, "500", proj.MinBalance)
	assertDec(t, "500", proj.EndingBalance)

	alerts := NewEvaluator(DefaultThresholds(), "").Evaluate([]domain.Invoice{bill, sale}, proj, now)
	for _, a := range alerts {
		assert.NotEqual(t, SeverityDanger, a.Severity, a.ID)
	}
}

func TestProject_OverdueOnDayZero(t *testing.T) {
	bill := invoice("late", domain.InvoiceTypePurchase, domain.InvoiceStatusOverdue, "2000", day(-30))
	bill.DueDate = dayPtr(-5)

	proj, err := lifetimeProjector().Project([]domain.Invoice{bill}, now, 30)
	require.NoError(t, err)

	assertDec(t, "2000", proj.Points[0].Outflow)
	assertDec(t, "-2000", proj.Points[0].Balance)
	assert.Equal(t, []string{"late"}, proj.OverdueIDs)

	alerts := NewEvaluator(DefaultThresholds(), "").Evaluate([]domain.Invoice{bill}, proj, now)
	var found bool
	for _, a := range alerts {
		if a.Severity.rank() <= SeverityWarning.rank() && assert.ObjectsAreEqual([]string{"late"}, a.InvoiceIDs) {
			found = true
		}
	}
	assert.True(t, found, "expected a warning or danger alert for the overdue invoice")
}

func TestProject_LengthAndOrdering(t *testing.T) {
	for _, horizon := range []int{1, 30, 60, 90, 365} {
		proj, err := lifetimeProjector().Project(nil, now, horizon)
		require.NoError(t, err)
		require.Len(t, proj.Points, horizon+1)
		assert.Equal(t, day(0), proj.Points[0].Date)
		for i := 1; i < len(proj.Points); i++ {
			assert.True(t, proj.Points[i].Date.After(proj.Points[i-1].Date))
			assert.Equal(t, i, proj.Points[i].Day)
		}
	}
}

func TestProject_InvalidHorizon(t *testing.T) {
	for _, horizon := range []int{0, -1, 366} {
		_, err := lifetimeProjector().Project(nil, now, horizon)
		assert.ErrorIs(t, err, ErrInvalidHorizon)
		assert.True(t, IsInputError(err))
	}
}

func TestProject_Aggregates(t *testing.T) {
	unscheduled := invoice("nodue", domain.InvoiceTypePayment, domain.InvoiceStatusPending, "70", day(-1))
	later := invoice("later", domain.InvoiceTypePurchase, domain.InvoiceStatusPending, "40", day(-1))
	later.DueDate = dayPtr(45)
	stale := invoice("stale", domain.InvoiceTypePayment, domain.InvoiceStatusPending, "25", day(-10))
	stale.DueDate = dayPtr(-3)
	cancelled := invoice("gone", domain.InvoiceTypePurchase, domain.InvoiceStatusCancelled, "999", day(-1))
	cancelled.DueDate = dayPtr(1)

	proj, err := lifetimeProjector().Project([]domain.Invoice{unscheduled, later, stale, cancelled}, now, 30)
	require.NoError(t, err)

	assert.Equal(t, 1, proj.Unscheduled.Count)
	assertDec(t, "70", proj.Unscheduled.Inflow)
	assert.Equal(t, []string{"nodue"}, proj.Unscheduled.InvoiceIDs)

	assert.Equal(t, 1, proj.BeyondHorizon.Count)
	assertDec(t, "40", proj.BeyondHorizon.Outflow)

	assertDec(t, "25", proj.Points[0].Inflow)
	assert.Equal(t, []string{"stale"}, proj.StaleIDs)
	require.Len(t, proj.Warnings, 1)
	assert.Equal(t, WarningStaleStatus, proj.Warnings[0].Kind)

	assertDec(t, "0", proj.Points[1].Outflow)
	assertDec(t, "25", proj.EndingBalance)
}

func TestProject_Baselines(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("old-sale", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "1000", day(-100)),
		invoice("new-sale", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "300", day(-10)),
		invoice("new-bill", domain.InvoiceTypePurchase, domain.InvoiceStatusPaid, "50", day(-5)),
		invoice("future", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "77", day(3)),
	}

	tests := []struct {
		name     string
		baseline BaselineConfig
		want     string
	}{
		{"lifetime", BaselineConfig{Mode: BaselineLifetime, OpeningBalance: decimal.NewFromInt(5000)}, "1250"},
		{"since", BaselineConfig{Mode: BaselineSince, Since: day(-30), OpeningBalance: decimal.NewFromInt(200)}, "450"},
		{"fixed", BaselineConfig{Mode: BaselineFixed, OpeningBalance: decimal.NewFromInt(200)}, "200"},
		{"empty mode", BaselineConfig{}, "1250"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj, err := NewProjector(tt.baseline, "").Project(invoices, now, 7)
			require.NoError(t, err)
			assertDec(t, tt.want, proj.StartingBalance)
		})
	}
}

func TestProject_SkipsUnusableAmount(t *testing.T) {
	bad := invoice("bad", domain.InvoiceTypePurchase, domain.InvoiceStatusPending, "", day(-1))
	bad.DueDate = dayPtr(2)

	proj, err := lifetimeProjector().Project([]domain.Invoice{bad}, now, 7)
	require.NoError(t, err)

	assertDec(t, "0", proj.Points[2].Outflow)
	require.Len(t, proj.Warnings, 1)
	assert.True(t, proj.Warnings[0].Skipped)
}

func TestParseBaseline(t *testing.T) {
	b, err := ParseBaseline("")
	require.NoError(t, err)
	assert.Equal(t, BaselineLifetime, b)

	b, err = ParseBaseline(" Since ")
	require.NoError(t, err)
	assert.Equal(t, BaselineSince, b)

	_, err = ParseBaseline("bank")
	assert.Error(t, err)
}
