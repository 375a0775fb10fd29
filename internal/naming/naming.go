// Package naming derives the on-disk names used for materialized posts.
package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"media_grabber/internal/domain"
)

const (
	dateLayout   = "060102"
	invalidChars = `<>:"/\|?*`
)

// DateToken converts an epoch-millisecond token into a YYMMDD date in loc.
// The last three digits are dropped, never rounded. A nil loc means time.Local.
func DateToken(raw string, loc *time.Location) (string, error) {
	raw = strings.TrimSpace(raw)

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, raw)
	}
	if len(strings.TrimLeft(raw, "+-")) <= 3 {
		return "", fmt.Errorf("%w: %q has no seconds part", domain.ErrInvalidTimestamp, raw)
	}

	if loc == nil {
		loc = time.Local
	}

	t := time.Unix(ms/1000, 0).In(loc)
	if t.Year() < 1 || t.Year() > 9999 {
		return "", fmt.Errorf("%w: %q out of range", domain.ErrInvalidTimestamp, raw)
	}

	return t.Format(dateLayout), nil
}

// SanitizeTitle strips trailing spaces, then trailing periods, then removes
// every character that is invalid in a path segment on common filesystems.
// The two trims run once each, so "a ." becomes "a ".
func SanitizeTitle(title string) string {
	if strings.HasSuffix(title, " ") {
		title = strings.TrimRightFunc(title, unicode.IsSpace)
	}
	title = strings.TrimRight(title, ".")
	return StripInvalid(title)
}

// PostDir returns "<root>/<nickname>/<date> <title> [<postID>]".
func PostDir(root, nickname, date, title, postID string) (string, error) {
	author := StripInvalid(nickname)
	if author == "" || author == "." || author == ".." {
		return "", fmt.Errorf("unusable author nickname %q", nickname)
	}

	name := fmt.Sprintf("%s %s [%s]", date, SanitizeTitle(title), StripInvalid(postID))
	return filepath.Join(root, author, name), nil
}

// StripInvalid removes every character in <>:"/\|?* from s.
func StripInvalid(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return -1
		}
		return r
	}, s)
}
