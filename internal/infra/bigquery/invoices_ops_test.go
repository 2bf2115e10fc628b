package bigquery

import (
	"testing"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceConditions_UserOnly(t *testing.T) {
	where, params := invoiceConditions("user-1", bq.InvoiceFilter{})

	assert.Equal(t, "user_id = @user_id", where)
	require.Len(t, params, 1)
	assert.Equal(t, "user_id", params[0].Name)
	assert.Equal(t, "user-1", params[0].Value)
}

func TestInvoiceConditions_AllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)

	where, params := invoiceConditions("user-1", bq.InvoiceFilter{
		From:   &from,
		To:     &to,
		Type:   domain.InvoiceTypePayment,
		Status: domain.InvoiceStatusPaid,
	})

	assert.Contains(t, where, "issue_date >= @from_date")
	assert.Contains(t, where, "issue_date <= @to_date")
	assert.Contains(t, where, "invoice_type = @invoice_type")
	assert.Contains(t, where, "status = @status")

	values := map[string]interface{}{}
	for _, p := range params {
		values[p.Name] = p.Value
	}
	assert.Equal(t, "2024-01-01", values["from_date"])
	assert.Equal(t, "2024-03-31", values["to_date"])
	assert.Equal(t, "PAYMENT", values["invoice_type"])
	assert.Equal(t, "PAID", values["status"])
}

func TestNonNilTags(t *testing.T) {
	assert.Equal(t, []string{}, nonNilTags(nil))
	assert.Equal(t, []string{"a"}, nonNilTags([]string{"a"}))
}
