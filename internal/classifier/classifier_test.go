package classifier

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_grabber/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raws(docs ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		out[i] = json.RawMessage(d)
	}
	return out
}

const (
	postDoc = `{
		"contentType": "POST",
		"postId": "0-111",
		"title": "Hello.",
		"createdAt": 1623715200000,
		"url": "https://example.com/post/0-111",
		"plainBody": "body text",
		"author": {"nickname": "RM"},
		"attachments": {
			"photoCount": 1,
			"videoCount": 1,
			"photo": {"p1": {"url": "https://img.example.com/p1"}}
		}
	}`
	showcaseDoc = `{"contentType": "VIDEO", "title": "Weekly Showcase", "createdAt": 1623715200000,
		"url": "http://showcase", "officialVideo": {"badges": [], "multinationalTitles": []}}`
	vlogDoc = `{"contentType": "VIDEO", "title": "Daily Vlog", "createdAt": 1623715200000,
		"url": "http://vlog", "officialVideo": {"badges": [], "multinationalTitles": []}}`
	badgeDoc = `{"contentType": "VIDEO", "title": "Live", "createdAt": "1623715200000",
		"url": "http://badge", "officialVideo": {"videoSeq": 42, "badges": ["VLIVE+"]}}`
	originDoc = `{"contentType": "VIDEO", "title": "Clip", "createdAt": 1623715200000,
		"url": "http://origin", "originPost": null, "officialVideo": {"badges": []}}`
	allSignalsDoc = `{"contentType": "VIDEO", "title": "SHOWCASE live", "createdAt": 1623715200000,
		"url": "http://all", "originPost": {"postId": "x"}, "officialVideo": {"badges": [{"type": "x"}]}}`
)

func TestClassify_Partitions(t *testing.T) {
	c := New(PolicyFail, discardLogger())

	got, err := c.Classify(raws(vlogDoc, postDoc, showcaseDoc, badgeDoc, originDoc, allSignalsDoc))
	require.NoError(t, err)

	require.Len(t, got.Posts, 1)
	post := got.Posts[0]
	assert.Equal(t, "0-111", post.PostID)
	assert.Equal(t, "RM", post.Author)
	assert.Equal(t, "1623715200000", post.CreatedAt)
	assert.Equal(t, 1, post.PhotoCount)
	assert.Equal(t, 1, post.VideoCount)
	assert.Equal(t, "https://img.example.com/p1", post.Photos["p1"].URL)
	require.NotNil(t, post.PlainBody)
	assert.Equal(t, "body text", *post.PlainBody)

	urls := make([]string, 0, len(got.Videos))
	for _, v := range got.Videos {
		urls = append(urls, v.URL)
	}
	assert.Equal(t, []string{"http://showcase", "http://badge", "http://origin", "http://all"}, urls)
	assert.Zero(t, got.Malformed)
}

func TestClassify_ShowcaseIsCaseInsensitive(t *testing.T) {
	c := New(PolicyFail, discardLogger())

	got, err := c.Classify(raws(showcaseDoc))
	require.NoError(t, err)
	require.Len(t, got.Videos, 1)
	assert.Equal(t, "Weekly Showcase", got.Videos[0].Title)
}

func TestClassify_ExcludesPlainVideo(t *testing.T) {
	c := New(PolicyFail, discardLogger())

	got, err := c.Classify(raws(vlogDoc))
	require.NoError(t, err)
	assert.Empty(t, got.Videos)
	assert.Empty(t, got.Posts)
}

func TestClassify_NoDedupAcrossInput(t *testing.T) {
	c := New(PolicyFail, discardLogger())

	got, err := c.Classify(raws(postDoc, postDoc, badgeDoc, badgeDoc))
	require.NoError(t, err)
	assert.Len(t, got.Posts, 2)
	assert.Len(t, got.Videos, 2)
}

func TestClassify_FailPolicy(t *testing.T) {
	c := New(PolicyFail, discardLogger())

	_, err := c.Classify(raws(postDoc, `{"contentType": "VIDEO", "title": "x", "createdAt": 1000, "url": "u"}`))
	require.Error(t, err)

	var cerr *domain.ClassificationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Index)
	assert.Equal(t, "VIDEO", cerr.ContentType)
	assert.Equal(t, "officialVideo", cerr.Field)
}

func TestClassify_SkipPolicy(t *testing.T) {
	c := New(PolicySkip, discardLogger())

	got, err := c.Classify(raws(`{"contentType": "STORY"}`, postDoc, `not json`, showcaseDoc))
	require.NoError(t, err)
	assert.Len(t, got.Posts, 1)
	assert.Len(t, got.Videos, 1)
	assert.Equal(t, 2, got.Malformed)
}

func TestDecode_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"no content type", `{"title": "x"}`, "contentType"},
		{"unknown type", `{"contentType": "STORY"}`, "contentType"},
		{"post without id", `{"contentType": "POST", "title": "t", "createdAt": 1000,
			"author": {"nickname": "n"}, "attachments": {"photoCount": 0}}`, "postId"},
		{"post without author", `{"contentType": "POST", "postId": 1, "title": "t", "createdAt": 1000,
			"attachments": {"photoCount": 0}}`, "author.nickname"},
		{"post without photo count", `{"contentType": "POST", "postId": 1, "title": "t", "createdAt": 1000,
			"author": {"nickname": "n"}, "attachments": {}}`, "attachments.photoCount"},
		{"post photos missing", `{"contentType": "POST", "postId": 1, "title": "t", "createdAt": 1000,
			"author": {"nickname": "n"}, "attachments": {"photoCount": 2}}`, "attachments.photo"},
		{"photo without url", `{"contentType": "POST", "postId": 1, "title": "t", "createdAt": 1000,
			"author": {"nickname": "n"}, "attachments": {"photoCount": 1, "photo": {"a": {}}}}`, "attachments.photo.a.url"},
		{"video without url", `{"contentType": "VIDEO", "title": "t", "createdAt": 1000,
			"officialVideo": {}}`, "url"},
		{"video without title", `{"contentType": "VIDEO", "createdAt": 1000, "url": "u",
			"officialVideo": {}}`, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(0, json.RawMessage(tt.doc))
			var cerr *domain.ClassificationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestDecode_PostWithoutPhotos(t *testing.T) {
	rec, err := Decode(0, json.RawMessage(`{"contentType": "POST", "postId": 7, "title": "t",
		"createdAt": 1000, "author": {"nickname": "n"}, "attachments": {"photoCount": 0}}`))
	require.NoError(t, err)

	post, ok := rec.(domain.Post)
	require.True(t, ok)
	assert.Equal(t, "7", post.PostID)
	assert.Nil(t, post.PlainBody)
	assert.Empty(t, post.Photos)
}

func TestDecode_VideoFields(t *testing.T) {
	rec, err := Decode(0, json.RawMessage(`{"contentType": "VIDEO", "title": "t", "createdAt": 1000, "url": "u",
		"officialVideo": {"videoSeq": 9, "multinationalTitles": [{"locale": "en_US", "label": "Hi"}]}}`))
	require.NoError(t, err)

	video, ok := rec.(domain.Video)
	require.True(t, ok)
	require.NotNil(t, video.VideoSeq)
	assert.Equal(t, int64(9), *video.VideoSeq)
	assert.False(t, video.HasOriginPost)
	assert.Equal(t, []domain.LocalizedTitle{{Locale: "en_US", Label: "Hi"}}, video.MultinationalTitles)
	assert.False(t, IsVideoOfInterest(video))
}
