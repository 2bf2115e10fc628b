package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"cloud.google.com/go/bigquery"
	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/logger"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

func main() {
	cfg := config.FromEnv()

	projectID := flag.String("project", cfg.GCPProject, "GCP project ID (default: GCP_PROJECT)")
	datasetID := flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID (default: BQ_DATASET)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir := flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	dryRun := flag.Bool("dry-run", false, "List pending migrations without running them")
	flag.Parse()

	log, err := logger.NewFromConfig(cfg.GetLoggerConfig(), os.Stdout)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	// Validate required flags
	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag or GCP_PROJECT is required")
	}

	dir, err := findMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}

	migrations, skipped, err := readMigrations(os.DirFS(dir), *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	}
	log.Info().Int("count", len(migrations)).Str("dir", dir).Msg("Found migration files")

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	r := &runner{client: client, dataset: *datasetID, appliedBy: *appliedBy, log: log}
	if err := r.run(ctx, migrations, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

// findMigrationsDir accepts dir relative to the working directory or to the
// repository root when run from cmd/migrate.
func findMigrationsDir(dir string) (string, error) {
	for _, candidate := range []string{dir, filepath.Join("..", "..", dir)} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

type runner struct {
	client    *bigquery.Client
	dataset   string
	appliedBy string
	log       zerolog.Logger
}

func (r *runner) run(ctx context.Context, migrations []Migration, dryRun bool) error {
	if err := r.ensureDataset(ctx); err != nil {
		return err
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	r.log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending, drifted := plan(migrations, applied)
	for _, m := range drifted {
		r.log.Warn().Str("migration", m.Filename).Msg("Applied migration changed since it ran")
	}

	if len(pending) == 0 {
		r.log.Info().Msg("No new migrations to apply. Database is up to date.")
		return nil
	}

	for _, m := range pending {
		if dryRun {
			r.log.Info().Str("migration", m.Filename).Msg("[PENDING]")
			continue
		}

		r.log.Info().Str("migration", m.Filename).Msg("[RUN]")
		if err := r.exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("executing %s: %w", m.Filename, err)
		}
		if err := r.record(ctx, m); err != nil {
			return fmt.Errorf("recording %s: %w", m.Filename, err)
		}
		r.log.Info().Str("migration", m.Filename).Msg("[OK]")
	}

	if !dryRun {
		r.log.Info().Int("count", len(pending)).Msg("Successfully applied migrations")
	}
	return nil
}

// ensureDataset creates the dataset when it does not exist yet.
func (r *runner) ensureDataset(ctx context.Context) error {
	ds := r.client.Dataset(r.dataset)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("reading dataset metadata: %w", err)
	}

	r.log.Info().Str("dataset", r.dataset).Msg("Creating dataset")
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}
	return nil
}

func (r *runner) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.client.Project(), r.dataset, table)
}

// appliedMigrations reads schema_migrations; a missing table means none ran.
func (r *runner) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, r.tableRef("schema_migrations")))

	it, err := q.Read(ctx)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64                  `bigquery:"version"`
			Name      string                 `bigquery:"name"`
			AppliedAt bigquery.NullTimestamp `bigquery:"applied_at"`
			Checksum  bigquery.NullString    `bigquery:"checksum"`
			AppliedBy bigquery.NullString    `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt.Timestamp,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (r *runner) exec(ctx context.Context, sql string) error {
	return r.execQuery(ctx, r.client.Query(sql))
}

// record stores a successfully applied migration in schema_migrations.
func (r *runner) record(ctx context.Context, m Migration) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.tableRef("schema_migrations")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	}
	return r.execQuery(ctx, q)
}

func (r *runner) execQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
