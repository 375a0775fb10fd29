package domain

import "encoding/json"

type ContentType string

const (
	ContentTypePost  ContentType = "POST"
	ContentTypeVideo ContentType = "VIDEO"
)

// Record is one decoded feed item: either a Post or a Video.
type Record interface {
	ContentType() ContentType
}

type Post struct {
	PostID     string
	Title      string
	CreatedAt  string // epoch milliseconds, decimal text as found in the dump
	Author     string
	URL        string
	PlainBody  *string
	PhotoCount int
	VideoCount int
	Photos     map[string]Photo
}

func (Post) ContentType() ContentType { return ContentTypePost }

type Photo struct {
	URL string
}

type Video struct {
	Title               string
	CreatedAt           string
	URL                 string
	VideoSeq            *int64
	HasOriginPost       bool
	Badges              []json.RawMessage
	MultinationalTitles []LocalizedTitle
}

func (Video) ContentType() ContentType { return ContentTypeVideo }

type LocalizedTitle struct {
	Locale string
	Label  string
}

// Classified holds the typed partitions of a batch in first-seen order.
type Classified struct {
	Posts  []Post
	Videos []Video

	// Malformed counts records dropped under the skip policy.
	Malformed int
}

// Batch is the concatenation of every partition's raw records, in file order.
type Batch struct {
	Records    []json.RawMessage
	Partitions []string
}
