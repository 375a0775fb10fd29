// Package report writes the flat exports derived from videos of interest.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media_grabber/internal/domain"
	"media_grabber/internal/naming"
	"media_grabber/internal/progress"
)

const (
	localeEnglish = "en_US"
	localeKorean  = "ko_KR"
)

type Config struct {
	Dir             string
	MultiTitlesFile string
	VideoListFile   string
	Location        *time.Location
}

type Writer struct {
	cfg     Config
	printer *progress.Printer
}

func New(cfg Config, printer *progress.Printer) *Writer {
	if cfg.MultiTitlesFile == "" {
		cfg.MultiTitlesFile = "multi_titles.json"
	}
	if cfg.VideoListFile == "" {
		cfg.VideoListFile = "vidlist.txt"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Writer{cfg: cfg, printer: printer}
}

// TitleRow is one entry of multi_titles.json. Locale labels are pointers so
// that a present but empty label is still written.
type TitleRow struct {
	Date    string  `json:"Date"`
	English *string `json:"English Title,omitempty"`
	Korean  *string `json:"Korean Title,omitempty"`
}

// MultiTitles selects videos with more than one localized title and keeps
// their English and Korean labels. Later duplicates of a locale win.
func MultiTitles(videos []domain.Video, loc *time.Location) ([]TitleRow, error) {
	rows := make([]TitleRow, 0)

	for _, v := range videos {
		if len(v.MultinationalTitles) <= 1 {
			continue
		}

		date, err := naming.DateToken(v.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", v.URL, err)
		}

		row := TitleRow{Date: date}
		for _, t := range v.MultinationalTitles {
			label := t.Label
			switch t.Locale {
			case localeEnglish:
				row.English = &label
			case localeKorean:
				row.Korean = &label
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteMultiTitles writes the multinational title table as an indented JSON
// array, keeping non-ASCII text literal, and returns the file path.
func (w *Writer) WriteMultiTitles(videos []domain.Video) (string, error) {
	rows, err := MultiTitles(videos, w.cfg.Location)
	if err != nil {
		return "", fmt.Errorf("build multinational titles: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rows); err != nil {
		return "", fmt.Errorf("encode multinational titles: %w", err)
	}

	path := filepath.Join(w.cfg.Dir, w.cfg.MultiTitlesFile)
	w.printer.Info("Writing multinational titles to file...")
	if err := os.WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return "", fmt.Errorf("write multinational titles: %w", err)
	}

	return path, nil
}

// WriteVideoList writes one video URL per line, in list order.
func (w *Writer) WriteVideoList(videos []domain.Video) (string, error) {
	var sb strings.Builder
	for _, v := range videos {
		sb.WriteString(v.URL)
		sb.WriteString("\n")
	}

	path := filepath.Join(w.cfg.Dir, w.cfg.VideoListFile)
	w.printer.Info("Writing video URLs to file...")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write video list: %w", err)
	}

	return path, nil
}
