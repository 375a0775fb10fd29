package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// SourceLoadError reports a partition file that is missing or not valid JSON.
type SourceLoadError struct {
	Path string
	Err  error
}

func (e *SourceLoadError) Error() string {
	return fmt.Sprintf("load source %s: %v", e.Path, e.Err)
}

func (e *SourceLoadError) Unwrap() error { return e.Err }

// TransferError reports a failed photo fetch. StatusCode is zero when the
// request never produced a response.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ClassificationError reports a record that cannot be decoded into a known
// content type.
type ClassificationError struct {
	Index       int
	ContentType string
	Field       string
	Reason      string
}

func (e *ClassificationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("record %d (%s): %s: %s", e.Index, e.ContentType, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.ContentType, e.Reason)
}
