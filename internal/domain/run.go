package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStats holds statistics about a single pipeline run.
type RunStats struct {
	RunID             uuid.UUID
	Partitions        int
	Records           int
	Malformed         int
	Posts             int
	Videos            int
	PostsMaterialized int
	PhotosDownloaded  int
	PhotosSkipped     int
	PhotosFailed      int
	BodiesWritten     int
	ReportsWritten    int
	Published         int
	PublishErrors     int
	StartedAt         time.Time
	Duration          time.Duration
}

// PostResult describes what materializing one post did on disk.
type PostResult struct {
	PostID      string
	Author      string
	Directory   string
	Downloaded  int
	Skipped     int
	Failed      int
	BodyWritten bool
}

// Add folds a post result into the run counters.
func (s *RunStats) Add(r PostResult) {
	s.PostsMaterialized++
	s.PhotosDownloaded += r.Downloaded
	s.PhotosSkipped += r.Skipped
	s.PhotosFailed += r.Failed
	if r.BodyWritten {
		s.BodiesWritten++
	}
}
