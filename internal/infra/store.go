// Package infra selects the persistence backend at startup.
package infra

import (
	"context"
	"fmt"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/config"
	bqinfra "github.com/bilix/bilix/internal/infra/bigquery"
	"github.com/bilix/bilix/internal/infra/sqlite"
)

// OpenStore opens the store named by cfg.StoreDriver. The caller closes it.
func OpenStore(ctx context.Context, cfg *config.Config) (bq.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverBigQuery:
		repo, err := bqinfra.NewRepository(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return repo, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown store driver %q", cfg.StoreDriver)
	}
}
