package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      UUID PRIMARY KEY,
		provider    TEXT NOT NULL,
		coordinates INTEGER NOT NULL,
		places      INTEGER NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS run_places (
		run_id   UUID NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
		place_id TEXT NOT NULL,
		accuracy TEXT NOT NULL,
		country  TEXT NOT NULL,
		state    TEXT NOT NULL,
		county   TEXT NOT NULL,
		city     TEXT NOT NULL,
		street   TEXT NOT NULL,
		house    TEXT NOT NULL,
		PRIMARY KEY (run_id, place_id)
	);`,
	`CREATE TABLE IF NOT EXISTS run_groups (
		run_id     UUID NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
		tier       TEXT NOT NULL,
		label      TEXT NOT NULL,
		count      INTEGER NOT NULL,
		percentage DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, tier, label)
	);`,
}

const (
	insertRunQuery = `
		INSERT INTO runs (run_id, provider, coordinates, places)
		VALUES ($1, $2, $3, $4);
	`
	insertPlaceQuery = `
		INSERT INTO run_places (run_id, place_id, accuracy, country, state, county, city, street, house)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	insertGroupQuery = `
		INSERT INTO run_groups (run_id, tier, label, count, percentage)
		VALUES ($1, $2, $3, $4, $5);
	`
	listRunsQuery = `
		SELECT run_id, provider, coordinates, places, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1;
	`
)

// EnsureSchema creates the report tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create report schema: %w", err)
		}
	}

	return nil
}

// SaveReport stores the run, its places and every tier group in one transaction.
// Nothing is written when any statement fails.
func (r *Repository) SaveReport(ctx context.Context, report Report) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.log.ErrorContext(ctx, "Failed to roll back report", "run", report.RunID, "error", rbErr)
		}
	}()

	if _, err = tx.Exec(ctx, insertRunQuery,
		report.RunID, report.Provider, report.Coordinates, len(report.Places)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, place := range report.Places {
		if _, err = tx.Exec(ctx, insertPlaceQuery,
			report.RunID, place.ID, place.Accuracy.String(),
			place.Country, place.State, place.County, place.City, place.Street, place.House,
		); err != nil {
			return fmt.Errorf("failed to insert place %s: %w", place.ID, err)
		}
	}

	for _, tier := range report.Tiers {
		for _, group := range tier.Groups {
			if _, err = tx.Exec(ctx, insertGroupQuery,
				report.RunID, tier.Name, group.Label, group.Count, group.Percentage,
			); err != nil {
				return fmt.Errorf("failed to insert group %q: %w", group.Label, err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}

	r.log.DebugContext(ctx, "Report saved",
		"run", report.RunID,
		"places", len(report.Places),
		"tiers", len(report.Tiers))

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(ctx, listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if errScan := rows.Scan(&run.RunID, &run.Provider, &run.Coordinates, &run.Places, &run.CreatedAt); errScan != nil {
			return nil, fmt.Errorf("failed to scan run: %w", errScan)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return runs, nil
}
