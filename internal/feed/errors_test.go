package feed

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{&FetchError{Kind: ErrNetwork, URL: "u", Err: errors.New("refused")}, "network"},
		{&FetchError{Kind: ErrParse, URL: "u"}, "parse"},
		{&FetchError{Kind: ErrEmptyFeed, URL: "u"}, "empty"},
		{fmt.Errorf("entry: %w", ErrEntryMissingIdentifier), "missing_identifier"},
		{ErrMissingPublicationDate, "missing_publication_date"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.expected {
			t.Errorf("ErrorKind(%v): expected '%s', got '%s'", tt.err, tt.expected, got)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("refresh: %w", &FetchError{Kind: ErrNetwork, URL: "https://example.com", Err: cause})

	if !errors.Is(err, ErrNetwork) {
		t.Error("Expected error to match ErrNetwork")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to match underlying cause")
	}
	if errors.Is(err, ErrParse) {
		t.Error("Did not expect error to match ErrParse")
	}
}
