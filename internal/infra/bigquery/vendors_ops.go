package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// ListVendorsWithClient returns the user's vendors ordered by name.
func ListVendorsWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]domain.Vendor, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			vendor_id,
			user_id,
			name,
			email,
			phone,
			address,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, tableRef(client, dataset, vendorsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readVendors(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListVendors: %w", err)
	}

	vendors := make([]domain.Vendor, 0, len(rows))
	for _, r := range rows {
		vendors = append(vendors, bq.VendorFromRow(r))
	}
	return vendors, nil
}

// FindVendorByNameWithClient looks a vendor up by trimmed, case-insensitive
// name. Returns nil, nil when there is no match.
func FindVendorByNameWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, name string) (*domain.Vendor, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			vendor_id,
			user_id,
			name,
			email,
			phone,
			address,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		  AND UPPER(TRIM(name)) = UPPER(TRIM(@name))
		ORDER BY created_ts
		LIMIT 1
	`, tableRef(client, dataset, vendorsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "name", Value: name},
	}

	rows, err := readVendors(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("FindVendorByName: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	v := bq.VendorFromRow(rows[0])
	return &v, nil
}

// InsertVendorWithClient stores a vendor, assigning an ID when empty.
func InsertVendorWithClient(ctx context.Context, client *bigquery.Client, dataset string, v *domain.Vendor) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	row := bq.VendorToRow(v)

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (vendor_id, user_id, name, email, phone, address, created_ts)
		VALUES (@vendor_id, @user_id, @name, @email, @phone, @address, @created_ts)
	`, tableRef(client, dataset, vendorsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "vendor_id", Value: row.VendorID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "email", Value: row.Email},
		{Name: "phone", Value: row.Phone},
		{Name: "address", Value: row.Address},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertVendor: %w", err)
	}
	return nil
}

func readVendors(ctx context.Context, q *bigquery.Query) ([]*VendorRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*VendorRow
	for {
		var r VendorRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
