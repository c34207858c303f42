package feed

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork   = errors.New("network error")
	ErrParse     = errors.New("parse error")
	ErrEmptyFeed = errors.New("feed has no entries")

	ErrEntryMissingIdentifier = errors.New("entry has no identifier")
	ErrMissingPublicationDate = errors.New("entry has no publication date")
)

// FetchError reports a failed fetch of one feed URL.
// Kind is one of ErrNetwork, ErrParse or ErrEmptyFeed, so callers can use errors.Is.
type FetchError struct {
	Kind error
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorKind returns a short label for err suitable for reports and metrics
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrEmptyFeed):
		return "empty"
	case errors.Is(err, ErrEntryMissingIdentifier):
		return "missing_identifier"
	case errors.Is(err, ErrMissingPublicationDate):
		return "missing_publication_date"
	default:
		return "other"
	}
}
