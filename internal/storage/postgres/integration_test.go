//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"media_grabber/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_catalog.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := Open(s.ctx, connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM videos")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM runs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func samplePost(id, title string) domain.Post {
	return domain.Post{
		PostID:     id,
		Title:      title,
		CreatedAt:  "1623715200000",
		Author:     "BTS",
		URL:        "https://example.com/post/" + id,
		PhotoCount: 2,
	}
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertPosts_Insert() {
	store := NewCatalogStore(s.db)

	err := store.UpsertPosts(s.ctx, []domain.Post{samplePost("0-1", "one"), samplePost("0-2", "two")})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts")
	s.NoError(err)
	s.Equal(2, count)

	var createdAt int64
	err = s.db.GetContext(s.ctx, &createdAt, "SELECT created_at_ms FROM posts WHERE post_id = $1", "0-1")
	s.NoError(err)
	s.Equal(int64(1623715200000), createdAt)
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertPosts_UpdatesExisting() {
	store := NewCatalogStore(s.db)

	s.NoError(store.UpsertPosts(s.ctx, []domain.Post{samplePost("0-1", "old")}))
	s.NoError(store.UpsertPosts(s.ctx, []domain.Post{samplePost("0-1", "new")}))

	var title string
	err := s.db.GetContext(s.ctx, &title, "SELECT title FROM posts WHERE post_id = $1", "0-1")
	s.NoError(err)
	s.Equal("new", title)
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertPosts_DuplicatesInBatch() {
	store := NewCatalogStore(s.db)

	err := store.UpsertPosts(s.ctx, []domain.Post{
		samplePost("0-1", "first"),
		samplePost("0-2", "other"),
		samplePost("0-1", "last"),
	})
	s.NoError(err)

	var title string
	err = s.db.GetContext(s.ctx, &title, "SELECT title FROM posts WHERE post_id = $1", "0-1")
	s.NoError(err)
	s.Equal("last", title)
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertPosts_NonNumericTimestamp() {
	store := NewCatalogStore(s.db)
	post := samplePost("0-9", "odd")
	post.CreatedAt = "yesterday"

	s.NoError(store.UpsertPosts(s.ctx, []domain.Post{post}))

	var createdAt *int64
	err := s.db.GetContext(s.ctx, &createdAt, "SELECT created_at_ms FROM posts WHERE post_id = $1", "0-9")
	s.NoError(err)
	s.Nil(createdAt)
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertVideos() {
	store := NewCatalogStore(s.db)
	seq := int64(4242)

	videos := []domain.Video{
		{
			Title:     "Showcase",
			CreatedAt: "1623715200000",
			URL:       "https://example.com/video/1",
			VideoSeq:  &seq,
			Badges:    []json.RawMessage{json.RawMessage(`"LIVE"`)},
			MultinationalTitles: []domain.LocalizedTitle{
				{Locale: "en_US", Label: "Showcase"},
				{Locale: "ko_KR", Label: "쇼케이스"},
			},
		},
		{
			Title:         "Clip",
			CreatedAt:     "1623715200000",
			URL:           "https://example.com/video/2",
			HasOriginPost: true,
		},
	}

	s.NoError(store.UpsertVideos(s.ctx, videos))

	var row struct {
		VideoSeq   *int64 `db:"video_seq"`
		Badges     string `db:"badges"`
		TitleCount int    `db:"title_count"`
	}
	err := s.db.GetContext(s.ctx, &row, "SELECT video_seq, badges::text AS badges, title_count FROM videos WHERE url = $1", videos[0].URL)
	s.NoError(err)
	s.Require().NotNil(row.VideoSeq)
	s.Equal(seq, *row.VideoSeq)
	s.JSONEq(`["LIVE"]`, row.Badges)
	s.Equal(2, row.TitleCount)

	var origin bool
	err = s.db.GetContext(s.ctx, &origin, "SELECT has_origin_post FROM videos WHERE url = $1", videos[1].URL)
	s.NoError(err)
	s.True(origin)
}

func (s *PostgresIntegrationSuite) TestCatalogStore_UpsertEmpty() {
	store := NewCatalogStore(s.db)
	s.NoError(store.UpsertPosts(s.ctx, nil))
	s.NoError(store.UpsertVideos(s.ctx, nil))
}

func (s *PostgresIntegrationSuite) TestRunStore_RecordAndGet() {
	store := NewRunStore(s.db)
	started := time.Now().UTC().Truncate(time.Microsecond)

	stats := &domain.RunStats{
		RunID:            uuid.New(),
		Partitions:       32,
		Records:          100,
		Posts:            40,
		Videos:           60,
		PhotosDownloaded: 7,
		StartedAt:        started,
		Duration:         3 * time.Second,
	}
	s.NoError(store.Record(s.ctx, stats, nil))

	rec, err := store.Get(s.ctx, stats.RunID)
	s.Require().NoError(err)
	s.Equal(RunStatusSucceeded, rec.Status)
	s.False(rec.Error.Valid)
	s.Equal(100, rec.Records)
	s.Equal(7, rec.PhotosDownloaded)
	s.True(started.Add(3*time.Second).Equal(rec.FinishedAt))
}

func (s *PostgresIntegrationSuite) TestRunStore_RecordFailureOverwrites() {
	store := NewRunStore(s.db)
	stats := &domain.RunStats{RunID: uuid.New(), StartedAt: time.Now().UTC()}

	s.NoError(store.Record(s.ctx, stats, nil))
	s.NoError(store.Record(s.ctx, stats, errors.New("disk full")))

	rec, err := store.Get(s.ctx, stats.RunID)
	s.Require().NoError(err)
	s.Equal(RunStatusFailed, rec.Status)
	s.Equal("disk full", rec.Error.String)
}

func (s *PostgresIntegrationSuite) TestRunStore_GetMissing() {
	_, err := NewRunStore(s.db).Get(s.ctx, uuid.New())
	s.ErrorIs(err, ErrRunNotFound)
}

func (s *PostgresIntegrationSuite) TestRunStore_Latest() {
	store := NewRunStore(s.db)
	base := time.Now().UTC().Truncate(time.Microsecond)

	var newest uuid.UUID
	for i := 0; i < 3; i++ {
		stats := &domain.RunStats{RunID: uuid.New(), StartedAt: base.Add(time.Duration(i) * time.Minute)}
		s.NoError(store.Record(s.ctx, stats, nil))
		newest = stats.RunID
	}

	recs, err := store.Latest(s.ctx, 2)
	s.NoError(err)
	s.Len(recs, 2)
	s.Equal(newest, recs[0].ID)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewCatalogStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		return store.UpsertPosts(ctx, []domain.Post{samplePost("0-7", "tx")})
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts WHERE post_id = $1", "0-7")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewCatalogStore(s.db)

	s.NoError(store.UpsertPosts(s.ctx, []domain.Post{samplePost("0-8", "pre-existing")}))

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := store.UpsertPosts(ctx, []domain.Post{samplePost("0-6", "should rollback")}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts WHERE post_id = $1", "0-6")
	s.NoError(err)
	s.Equal(0, count)

	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM posts WHERE post_id = $1", "0-8")
	s.NoError(err)
	s.Equal(1, count)
}
