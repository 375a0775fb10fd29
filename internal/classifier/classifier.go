package classifier

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"media_grabber/internal/domain"
)

// Policy decides what happens to a record that cannot be classified.
type Policy string

const (
	PolicyFail Policy = "fail"
	PolicySkip Policy = "skip"
)

const showcaseMarker = "SHOWCASE"

type Classifier struct {
	policy Policy
	logger *slog.Logger
}

func New(policy Policy, logger *slog.Logger) *Classifier {
	if policy == "" {
		policy = PolicyFail
	}
	return &Classifier{
		policy: policy,
		logger: logger.With("component", "classifier"),
	}
}

// Classify decodes every record and partitions them into posts and
// videos of interest, preserving input order. Under PolicyFail the first
// malformed record aborts the batch with a *domain.ClassificationError.
func (c *Classifier) Classify(records []json.RawMessage) (domain.Classified, error) {
	var out domain.Classified

	for i, raw := range records {
		rec, err := Decode(i, raw)
		if err != nil {
			if c.policy != PolicySkip {
				return domain.Classified{}, err
			}
			c.logger.Warn("skipping malformed record", "index", i, "error", err)
			out.Malformed++
			continue
		}

		switch r := rec.(type) {
		case domain.Post:
			out.Posts = append(out.Posts, r)
		case domain.Video:
			if IsVideoOfInterest(r) {
				out.Videos = append(out.Videos, r)
			}
		}
	}

	c.logger.Debug("classified records",
		"records", len(records),
		"posts", len(out.Posts),
		"videos", len(out.Videos),
		"malformed", out.Malformed,
	)

	return out, nil
}

// IsVideoOfInterest reports whether a video has an origin post, carries at
// least one badge, or is titled as a showcase.
func IsVideoOfInterest(v domain.Video) bool {
	return v.HasOriginPost ||
		len(v.Badges) > 0 ||
		strings.Contains(strings.ToUpper(v.Title), showcaseMarker)
}

// Decode turns one raw record into a domain.Post or domain.Video, checking
// that every field the type relies on is present.
func Decode(index int, raw json.RawMessage) (domain.Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &domain.ClassificationError{Index: index, Reason: fmt.Sprintf("not an object: %v", err)}
	}

	var contentType string
	if rawType, ok := fields["contentType"]; !ok || json.Unmarshal(rawType, &contentType) != nil {
		return nil, missing(index, "", "contentType")
	}

	switch domain.ContentType(contentType) {
	case domain.ContentTypePost:
		return decodePost(index, raw)
	case domain.ContentTypeVideo:
		_, hasOrigin := fields["originPost"]
		return decodeVideo(index, raw, hasOrigin)
	default:
		return nil, &domain.ClassificationError{
			Index:       index,
			ContentType: contentType,
			Field:       "contentType",
			Reason:      "unsupported content type",
		}
	}
}

func decodePost(index int, raw json.RawMessage) (domain.Record, error) {
	const kind = string(domain.ContentTypePost)

	var p postRecord
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &domain.ClassificationError{Index: index, ContentType: kind, Reason: err.Error()}
	}

	switch {
	case p.PostID == nil:
		return nil, missing(index, kind, "postId")
	case p.Title == nil:
		return nil, missing(index, kind, "title")
	case p.CreatedAt == nil:
		return nil, missing(index, kind, "createdAt")
	case p.Author == nil || p.Author.Nickname == nil:
		return nil, missing(index, kind, "author.nickname")
	case p.Attachments == nil || p.Attachments.PhotoCount == nil:
		return nil, missing(index, kind, "attachments.photoCount")
	case *p.Attachments.PhotoCount > 0 && p.Attachments.Photo == nil:
		return nil, missing(index, kind, "attachments.photo")
	}

	photos := make(map[string]domain.Photo, len(p.Attachments.Photo))
	for id, ph := range p.Attachments.Photo {
		if ph.URL == nil {
			return nil, missing(index, kind, "attachments.photo."+id+".url")
		}
		photos[id] = domain.Photo{URL: *ph.URL}
	}

	return domain.Post{
		PostID:     string(*p.PostID),
		Title:      *p.Title,
		CreatedAt:  string(*p.CreatedAt),
		Author:     *p.Author.Nickname,
		URL:        p.URL,
		PlainBody:  p.PlainBody,
		PhotoCount: *p.Attachments.PhotoCount,
		VideoCount: p.Attachments.VideoCount,
		Photos:     photos,
	}, nil
}

func decodeVideo(index int, raw json.RawMessage, hasOrigin bool) (domain.Record, error) {
	const kind = string(domain.ContentTypeVideo)

	var v videoRecord
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &domain.ClassificationError{Index: index, ContentType: kind, Reason: err.Error()}
	}

	switch {
	case v.Title == nil:
		return nil, missing(index, kind, "title")
	case v.CreatedAt == nil:
		return nil, missing(index, kind, "createdAt")
	case v.URL == nil:
		return nil, missing(index, kind, "url")
	case v.OfficialVideo == nil:
		return nil, missing(index, kind, "officialVideo")
	}

	titles := make([]domain.LocalizedTitle, 0, len(v.OfficialVideo.MultinationalTitles))
	for _, t := range v.OfficialVideo.MultinationalTitles {
		titles = append(titles, domain.LocalizedTitle{Locale: t.Locale, Label: t.Label})
	}

	return domain.Video{
		Title:               *v.Title,
		CreatedAt:           string(*v.CreatedAt),
		URL:                 *v.URL,
		VideoSeq:            v.OfficialVideo.VideoSeq,
		HasOriginPost:       hasOrigin,
		Badges:              v.OfficialVideo.Badges,
		MultinationalTitles: titles,
	}, nil
}

func missing(index int, kind, field string) error {
	return &domain.ClassificationError{
		Index:       index,
		ContentType: kind,
		Field:       field,
		Reason:      "missing required field",
	}
}
