package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"media_grabber/internal/domain"
)

type Source interface {
	Load(ctx context.Context) (*domain.Batch, error)
}

type Classifier interface {
	Classify(records []json.RawMessage) (domain.Classified, error)
}

type Materializer interface {
	Materialize(ctx context.Context, post domain.Post) (*domain.PostResult, error)
}

type ReportWriter interface {
	WriteMultiTitles(videos []domain.Video) (string, error)
	WriteVideoList(videos []domain.Video) (string, error)
}

type CatalogStore interface {
	UpsertPosts(ctx context.Context, posts []domain.Post) error
	UpsertVideos(ctx context.Context, videos []domain.Video) error
}

type RunStore interface {
	Record(ctx context.Context, stats *domain.RunStats, runErr error) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, result domain.PostResult) error
	Close() error
}
