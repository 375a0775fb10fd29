package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"media_grabber/internal/domain"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID                uuid.UUID      `db:"id"`
	StartedAt         time.Time      `db:"started_at"`
	FinishedAt        time.Time      `db:"finished_at"`
	Status            string         `db:"status"`
	Error             sql.NullString `db:"error"`
	Partitions        int            `db:"partitions"`
	Records           int            `db:"records"`
	Malformed         int            `db:"malformed"`
	Posts             int            `db:"posts"`
	Videos            int            `db:"videos"`
	PostsMaterialized int            `db:"posts_materialized"`
	PhotosDownloaded  int            `db:"photos_downloaded"`
	PhotosSkipped     int            `db:"photos_skipped"`
	PhotosFailed      int            `db:"photos_failed"`
	BodiesWritten     int            `db:"bodies_written"`
	ReportsWritten    int            `db:"reports_written"`
	Published         int            `db:"published"`
	PublishErrors     int            `db:"publish_errors"`
}

// RunStore keeps one ledger row per pipeline run.
type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Record inserts or replaces the ledger row for stats.RunID. A non-nil
// runErr marks the run as failed.
func (s *RunStore) Record(ctx context.Context, stats *domain.RunStats, runErr error) error {
	status := RunStatusSucceeded
	var errText *string
	if runErr != nil {
		status = RunStatusFailed
		msg := runErr.Error()
		errText = &msg
	}

	q := psql.Insert("runs").
		Columns(
			"id", "started_at", "finished_at", "status", "error",
			"partitions", "records", "malformed", "posts", "videos",
			"posts_materialized", "photos_downloaded", "photos_skipped", "photos_failed",
			"bodies_written", "reports_written", "published", "publish_errors",
		).
		Values(
			stats.RunID, stats.StartedAt, stats.StartedAt.Add(stats.Duration), status, errText,
			stats.Partitions, stats.Records, stats.Malformed, stats.Posts, stats.Videos,
			stats.PostsMaterialized, stats.PhotosDownloaded, stats.PhotosSkipped, stats.PhotosFailed,
			stats.BodiesWritten, stats.ReportsWritten, stats.Published, stats.PublishErrors,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			partitions = EXCLUDED.partitions,
			records = EXCLUDED.records,
			malformed = EXCLUDED.malformed,
			posts = EXCLUDED.posts,
			videos = EXCLUDED.videos,
			posts_materialized = EXCLUDED.posts_materialized,
			photos_downloaded = EXCLUDED.photos_downloaded,
			photos_skipped = EXCLUDED.photos_skipped,
			photos_failed = EXCLUDED.photos_failed,
			bodies_written = EXCLUDED.bodies_written,
			reports_written = EXCLUDED.reports_written,
			published = EXCLUDED.published,
			publish_errors = EXCLUDED.publish_errors`)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record run %s: %w", stats.RunID, err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query, args, err := psql.Select("*").From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec RunRecord
	err = sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &rec, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &rec, nil
}

// Latest returns the most recently started runs, newest first.
func (s *RunStore) Latest(ctx context.Context, limit uint64) ([]RunRecord, error) {
	query, args, err := psql.Select("*").From("runs").OrderBy("started_at DESC").Limit(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []RunRecord
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &recs, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return recs, nil
}
