package classifier

import (
	"encoding/json"
	"fmt"
)

// scalar accepts a JSON string or number and keeps its text form.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = scalar(n.String())
	return nil
}

type postRecord struct {
	PostID      *scalar      `json:"postId"`
	Title       *string      `json:"title"`
	CreatedAt   *scalar      `json:"createdAt"`
	URL         string       `json:"url"`
	PlainBody   *string      `json:"plainBody"`
	Author      *author      `json:"author"`
	Attachments *attachments `json:"attachments"`
}

type author struct {
	Nickname *string `json:"nickname"`
}

type attachments struct {
	PhotoCount *int             `json:"photoCount"`
	VideoCount int              `json:"videoCount"`
	Photo      map[string]photo `json:"photo"`
}

type photo struct {
	URL *string `json:"url"`
}

type videoRecord struct {
	Title         *string        `json:"title"`
	CreatedAt     *scalar        `json:"createdAt"`
	URL           *string        `json:"url"`
	OfficialVideo *officialVideo `json:"officialVideo"`
}

type officialVideo struct {
	VideoSeq            *int64               `json:"videoSeq"`
	Badges              []json.RawMessage    `json:"badges"`
	MultinationalTitles []multinationalTitle `json:"multinationalTitles"`
}

type multinationalTitle struct {
	Locale string `json:"locale"`
	Label  string `json:"label"`
}
