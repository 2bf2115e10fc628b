package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

// InsertModelOutputWithClient inserts a single ModelOutputRow using the
// provided BigQuery client. Uses DML INSERT to avoid streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ModelOutputRow) error {
	if row.OutputID == "" {
		row.OutputID = uuid.NewString()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, document_id, model_name, raw_json, created_ts
		)
		VALUES (
			@output_id, @document_id, @model_name, PARSE_JSON(@raw_json), @created_ts
		)
	`, tableRef(client, dataset, modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_json", Value: bigquery.NullString{StringVal: row.RawJSON.JSONVal, Valid: row.RawJSON.Valid}},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
