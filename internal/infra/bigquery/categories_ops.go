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

// ListCategoriesWithClient returns the user's categories ordered by name.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]domain.Category, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			category_id,
			user_id,
			name,
			color,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, tableRef(client, dataset, categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var cats []domain.Category
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		cats = append(cats, bq.CategoryFromRow(&r))
	}

	return cats, nil
}

// InsertCategoryWithClient stores a category, assigning an ID when empty.
func InsertCategoryWithClient(ctx context.Context, client *bigquery.Client, dataset string, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := bq.CategoryToRow(c)

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (category_id, user_id, name, color, created_ts)
		VALUES (@category_id, @user_id, @name, @color, @created_ts)
	`, tableRef(client, dataset, categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_id", Value: row.CategoryID},
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "color", Value: row.Color},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertCategory: %w", err)
	}
	return nil
}
