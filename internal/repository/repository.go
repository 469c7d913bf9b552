package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/hierarchy"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/google/uuid"
)

type Repository struct {
	db  Database
	log *slog.Logger
}

// Report is the outcome of one resolution run.
type Report struct {
	RunID       uuid.UUID
	Provider    string
	Coordinates int
	Places      []models.Place
	Tiers       []hierarchy.TierResult
}

// RunSummary is a stored run without its places and groups.
type RunSummary struct {
	RunID       uuid.UUID
	Provider    string
	Coordinates int
	Places      int
	CreatedAt   time.Time
}

type Interface interface {
	EnsureSchema(ctx context.Context) error
	SaveReport(ctx context.Context, report Report) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}
