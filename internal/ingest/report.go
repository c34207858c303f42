package ingest

import (
	"time"

	"github.com/lysyi3m/rss-pull/internal/feed"
)

type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateParsing   State = "parsing"
	StateInserting State = "inserting"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Report summarises one refresh of one source
type Report struct {
	SourceID         string        `json:"source_id"`
	Added            int           `json:"added"`
	SkippedDuplicate int           `json:"skipped_duplicate"`
	SkippedInvalid   int           `json:"skipped_invalid"`
	Failed           int           `json:"failed"`
	FetchError       error         `json:"-"`
	ErrorKind        string        `json:"error_kind,omitempty"`
	Error            string        `json:"error,omitempty"`
	State            State         `json:"state"`
	FailedIn         State         `json:"failed_in,omitempty"` // State the refresh was in when it failed
	Partial          bool          `json:"partial"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}

func (r *Report) fail(err error) {
	r.FailedIn = r.State
	r.State = StateFailed
	r.FetchError = err
	r.ErrorKind = feed.ErrorKind(err)
	r.Error = err.Error()
}

// Succeeded reports whether the refresh reached the Done state
func (r Report) Succeeded() bool {
	return r.State == StateDone
}
