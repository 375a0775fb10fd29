package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"media_grabber/internal/domain"
)

const SourceID = "partition"

// Config holds the partition range to load.
type Config struct {
	Dir         string
	FilePattern string
	First       int
	Count       int
}

// Source reads feed dumps split across numbered partition files.
type Source struct {
	dir     string
	pattern string
	first   int
	count   int
	logger  *slog.Logger
}

// New creates a partition source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		dir:     cfg.Dir,
		pattern: cfg.FilePattern,
		first:   cfg.First,
		count:   cfg.Count,
		logger:  logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Paths lists the partition files in load order.
func (s *Source) Paths() []string {
	paths := make([]string, 0, s.count)
	for n := s.first; n < s.first+s.count; n++ {
		paths = append(paths, filepath.Join(s.dir, fmt.Sprintf(s.pattern, n)))
	}
	return paths
}

// Load reads every partition and concatenates their data arrays. The first
// missing or malformed partition aborts the load with a *domain.SourceLoadError.
func (s *Source) Load(ctx context.Context) (*domain.Batch, error) {
	batch := &domain.Batch{}

	for _, path := range s.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := readPartition(path)
		if err != nil {
			return nil, &domain.SourceLoadError{Path: path, Err: err}
		}

		batch.Records = append(batch.Records, records...)
		batch.Partitions = append(batch.Partitions, path)

		s.logger.Debug("loaded partition",
			"path", path,
			"records", len(records),
			"total", len(batch.Records),
		)
	}

	return batch, nil
}

func readPartition(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partition: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode partition: %w", err)
	}
	if len(doc.Data) == 0 || bytes.Equal(doc.Data, []byte("null")) {
		return nil, errors.New(`missing "data" array`)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(doc.Data, &records); err != nil {
		return nil, fmt.Errorf("decode data array: %w", err)
	}

	return records, nil
}
