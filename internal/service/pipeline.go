package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"media_grabber/internal/domain"
)

// Consumers selects which outputs a run produces.
type Consumers struct {
	Posts       bool
	MultiTitles bool
	VideoList   bool
}

// Deps wires the pipeline. Catalog, Runs, TxManager and Publisher are
// optional; a nil value disables that stage.
type Deps struct {
	Source       Source
	Classifier   Classifier
	Materializer Materializer
	Reports      ReportWriter
	Catalog      CatalogStore
	Runs         RunStore
	TxManager    TransactionManager
	Publisher    Publisher
	Logger       *slog.Logger
}

type Pipeline struct {
	source       Source
	classifier   Classifier
	materializer Materializer
	reports      ReportWriter
	catalog      CatalogStore
	runs         RunStore
	txManager    TransactionManager
	publisher    Publisher
	consumers    Consumers
	logger       *slog.Logger
}

func NewPipeline(deps Deps, consumers Consumers) *Pipeline {
	return &Pipeline{
		source:       deps.Source,
		classifier:   deps.Classifier,
		materializer: deps.Materializer,
		reports:      deps.Reports,
		catalog:      deps.Catalog,
		runs:         deps.Runs,
		txManager:    deps.TxManager,
		publisher:    deps.Publisher,
		consumers:    consumers,
		logger:       deps.Logger.With("component", "pipeline"),
	}
}

// Run loads every partition, classifies the records once and feeds the
// enabled consumers in order: posts, multinational titles, video list,
// catalog. The returned stats are populated even when the run fails.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunStats, error) {
	stats := &domain.RunStats{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	logger := p.logger.With("run_id", stats.RunID)

	logger.Info("starting run",
		"posts", p.consumers.Posts,
		"multi_titles", p.consumers.MultiTitles,
		"video_list", p.consumers.VideoList,
		"catalog", p.catalog != nil,
		"publish", p.publisher != nil,
	)

	err := p.run(ctx, logger, stats)
	stats.Duration = time.Since(stats.StartedAt)

	if p.runs != nil {
		if recErr := p.runs.Record(context.WithoutCancel(ctx), stats, err); recErr != nil {
			logger.Warn("failed to record run", "error", recErr)
		}
	}

	if err != nil {
		logger.Error("run failed", "error", err, "duration", stats.Duration)
		return stats, err
	}

	logger.Info("run completed",
		"partitions", stats.Partitions,
		"records", stats.Records,
		"malformed", stats.Malformed,
		"posts", stats.Posts,
		"videos", stats.Videos,
		"posts_materialized", stats.PostsMaterialized,
		"photos_downloaded", stats.PhotosDownloaded,
		"photos_skipped", stats.PhotosSkipped,
		"photos_failed", stats.PhotosFailed,
		"reports", stats.ReportsWritten,
		"published", stats.Published,
		"publish_errors", stats.PublishErrors,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, stats *domain.RunStats) error {
	batch, err := p.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load partitions: %w", err)
	}
	stats.Partitions = len(batch.Partitions)
	stats.Records = len(batch.Records)

	logger.Info("loaded partitions", "partitions", stats.Partitions, "records", stats.Records)

	classified, err := p.classifier.Classify(batch.Records)
	if err != nil {
		return fmt.Errorf("classify records: %w", err)
	}
	stats.Malformed = classified.Malformed
	stats.Posts = len(classified.Posts)
	stats.Videos = len(classified.Videos)

	if p.consumers.Posts {
		if err := p.materializePosts(ctx, logger, stats, classified.Posts); err != nil {
			return err
		}
	}

	if p.consumers.MultiTitles {
		path, err := p.reports.WriteMultiTitles(classified.Videos)
		if err != nil {
			return err
		}
		stats.ReportsWritten++
		logger.Info("wrote multinational titles", "path", path)
	}

	if p.consumers.VideoList {
		path, err := p.reports.WriteVideoList(classified.Videos)
		if err != nil {
			return err
		}
		stats.ReportsWritten++
		logger.Info("wrote video list", "path", path, "videos", len(classified.Videos))
	}

	if p.catalog != nil {
		if err := p.storeCatalog(ctx, classified); err != nil {
			return fmt.Errorf("store catalog: %w", err)
		}
		logger.Info("stored catalog", "posts", len(classified.Posts), "videos", len(classified.Videos))
	}

	return nil
}

func (p *Pipeline) materializePosts(ctx context.Context, logger *slog.Logger, stats *domain.RunStats, posts []domain.Post) error {
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := p.materializer.Materialize(ctx, post)
		if err != nil {
			return fmt.Errorf("materialize post %s: %w", post.PostID, err)
		}
		if result == nil {
			continue
		}
		stats.Add(*result)

		if p.publisher == nil {
			continue
		}
		if err := p.publisher.Publish(ctx, stats.RunID, *result); err != nil {
			stats.PublishErrors++
			logger.Warn("failed to publish post event", "post_id", post.PostID, "error", err)
			continue
		}
		stats.Published++
	}

	return nil
}

func (p *Pipeline) storeCatalog(ctx context.Context, classified domain.Classified) error {
	store := func(ctx context.Context) error {
		if err := p.catalog.UpsertPosts(ctx, classified.Posts); err != nil {
			return err
		}
		return p.catalog.UpsertVideos(ctx, classified.Videos)
	}

	if p.txManager == nil {
		return store(ctx)
	}
	return p.txManager.WithTransaction(ctx, store)
}
