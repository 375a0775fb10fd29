package materializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"media_grabber/internal/domain"
	"media_grabber/internal/naming"
	"media_grabber/internal/progress"
)

const (
	bodyFile      = "body.txt"
	photoExt      = ".jpg"
	partialSuffix = ".part"
)

// Fetcher streams the bytes behind a URL into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

type Config struct {
	OutputDir string
	Location  *time.Location
}

type Materializer struct {
	fetcher Fetcher
	printer *progress.Printer
	logger  *slog.Logger
	root    string
	loc     *time.Location
}

func New(cfg Config, fetcher Fetcher, printer *progress.Printer, logger *slog.Logger) *Materializer {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Materializer{
		fetcher: fetcher,
		printer: printer,
		logger:  logger.With("component", "materializer"),
		root:    cfg.OutputDir,
		loc:     loc,
	}
}

// Materialize creates the post directory, downloads missing photos and
// writes body.txt. Posts without photos are left alone and yield a nil
// result. Photo transfer failures are reported and counted, never returned.
func (m *Materializer) Materialize(ctx context.Context, post domain.Post) (*domain.PostResult, error) {
	if post.PhotoCount <= 0 {
		return nil, nil
	}

	date, err := naming.DateToken(post.CreatedAt, m.loc)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", post.PostID, err)
	}

	dir, err := naming.PostDir(m.root, post.Author, date, post.Title, post.PostID)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", post.PostID, err)
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create post dir: %w", err)
	}

	result := &domain.PostResult{
		PostID:    post.PostID,
		Author:    post.Author,
		Directory: dir,
	}

	for _, id := range sortedPhotoIDs(post.Photos) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := m.downloadPhoto(ctx, dir, id, post.Photos[id].URL)
		if err != nil {
			return result, err
		}

		switch outcome {
		case photoDownloaded:
			result.Downloaded++
		case photoSkipped:
			result.Skipped++
		case photoFailed:
			result.Failed++
		}
	}

	if post.PlainBody != nil {
		if err := m.writeBody(dir, post); err != nil {
			return result, err
		}
		result.BodyWritten = true
	}

	m.logger.Debug("post materialized",
		"post_id", post.PostID,
		"dir", dir,
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	return result, nil
}

type photoOutcome int

const (
	photoDownloaded photoOutcome = iota
	photoSkipped
	photoFailed
)

func (m *Materializer) downloadPhoto(ctx context.Context, dir, id, url string) (photoOutcome, error) {
	name := naming.StripInvalid(id) + photoExt
	dest := filepath.Join(dir, name)
	label := filepath.Join(filepath.Base(dir), name)

	_, err := os.Stat(dest)
	if err == nil {
		m.printer.Skip("%s already exists, skipping download...", label)
		return photoSkipped, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("stat %s: %w", dest, err)
	}

	m.printer.Info("Downloading %s...", label)

	tmp := dest + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}

	_, fetchErr := m.fetcher.Fetch(ctx, url, f)
	closeErr := f.Close()

	if fetchErr != nil {
		_ = os.Remove(tmp)
		m.printer.Problem(fetchErr)
		m.logger.Warn("photo download failed", "photo_id", id, "url", url, "error", fetchErr)
		return photoFailed, nil
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("close %s: %w", tmp, closeErr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("rename %s: %w", tmp, err)
	}

	return photoDownloaded, nil
}

func (m *Materializer) writeBody(dir string, post domain.Post) error {
	m.printer.Info("Writing post body...")

	body := *post.PlainBody
	if post.VideoCount > 0 {
		body += "\n" + post.URL
	}

	path := filepath.Join(dir, bodyFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func sortedPhotoIDs(photos map[string]domain.Photo) []string {
	ids := make([]string, 0, len(photos))
	for id := range photos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
