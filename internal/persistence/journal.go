package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Journal keeps one row per producer run.
type Journal struct {
	runs *Repository[Run]
	now  func() time.Time
}

// NewJournal migrates the run table and returns the journal.
func NewJournal(ctx context.Context, db *gorm.DB) (*Journal, error) {
	runs, err := NewRepository[Run](db)
	if err != nil {
		return nil, err
	}
	if err := runs.Migrate(ctx); err != nil {
		return nil, err
	}
	return &Journal{runs: runs, now: time.Now}, nil
}

// Begin records the start of a run and returns its id.
func (j *Journal) Begin(ctx context.Context, domain string, markets []string, mode string) (uuid.UUID, error) {
	run := Run{
		Domain:    domain,
		Markets:   strings.Join(markets, ","),
		Mode:      mode,
		StartedAt: j.now().UTC(),
	}
	if err := j.runs.Create(ctx, &run); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// Finish stamps the stop time, the trade count and the run error if any.
func (j *Journal) Finish(ctx context.Context, id uuid.UUID, trades uint64, runErr error) error {
	fields := map[string]any{
		"stopped_at": j.now().UTC(),
		"trades":     int64(trades),
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
	}
	return j.runs.UpdateByID(ctx, id, fields)
}

func (j *Journal) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	return j.runs.GetOneByID(ctx, id)
}

func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	return j.runs.Latest(ctx, limit)
}
