package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"media_grabber/internal/domain"
)

// batchSize keeps a single INSERT well below the Postgres parameter limit.
const batchSize = 500

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// CatalogStore mirrors classified posts and videos into Postgres.
type CatalogStore struct {
	db *sqlx.DB
}

func NewCatalogStore(db *sqlx.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// UpsertPosts stores posts keyed by post id. When the same id appears more
// than once the last occurrence wins.
func (s *CatalogStore) UpsertPosts(ctx context.Context, posts []domain.Post) error {
	posts = lastByKey(posts, func(p domain.Post) string { return p.PostID })

	for start := 0; start < len(posts); start += batchSize {
		end := min(start+batchSize, len(posts))

		q := psql.Insert("posts").
			Columns("post_id", "author", "title", "created_at_ms", "photo_count", "video_count", "url")
		for _, p := range posts[start:end] {
			q = q.Values(p.PostID, p.Author, p.Title, epochMillis(p.CreatedAt), p.PhotoCount, p.VideoCount, p.URL)
		}
		q = q.Suffix(`ON CONFLICT (post_id) DO UPDATE SET
			author = EXCLUDED.author,
			title = EXCLUDED.title,
			created_at_ms = EXCLUDED.created_at_ms,
			photo_count = EXCLUDED.photo_count,
			video_count = EXCLUDED.video_count,
			url = EXCLUDED.url,
			updated_at = NOW()`)

		if err := s.exec(ctx, q); err != nil {
			return fmt.Errorf("upsert posts: %w", err)
		}
	}

	return nil
}

// UpsertVideos stores videos keyed by URL. When the same URL appears more
// than once the last occurrence wins.
func (s *CatalogStore) UpsertVideos(ctx context.Context, videos []domain.Video) error {
	videos = lastByKey(videos, func(v domain.Video) string { return v.URL })

	for start := 0; start < len(videos); start += batchSize {
		end := min(start+batchSize, len(videos))

		q := psql.Insert("videos").
			Columns("url", "title", "created_at_ms", "video_seq", "badges", "has_origin_post", "title_count")
		for _, v := range videos[start:end] {
			badges, err := encodeBadges(v.Badges)
			if err != nil {
				return fmt.Errorf("encode badges for %s: %w", v.URL, err)
			}
			q = q.Values(v.URL, v.Title, epochMillis(v.CreatedAt), v.VideoSeq, badges, v.HasOriginPost, len(v.MultinationalTitles))
		}
		q = q.Suffix(`ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			created_at_ms = EXCLUDED.created_at_ms,
			video_seq = EXCLUDED.video_seq,
			badges = EXCLUDED.badges,
			has_origin_post = EXCLUDED.has_origin_post,
			title_count = EXCLUDED.title_count,
			updated_at = NOW()`)

		if err := s.exec(ctx, q); err != nil {
			return fmt.Errorf("upsert videos: %w", err)
		}
	}

	return nil
}

func (s *CatalogStore) exec(ctx context.Context, q sq.InsertBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	return err
}

// lastByKey drops earlier duplicates, keeping the position of the first
// occurrence and the contents of the last. A single INSERT .. ON CONFLICT
// cannot touch the same row twice.
func lastByKey[T any](items []T, key func(T) string) []T {
	index := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// epochMillis returns nil for timestamps that are not decimal integers.
func epochMillis(raw string) *int64 {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &ms
}

func encodeBadges(badges []json.RawMessage) (string, error) {
	if len(badges) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(badges)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
