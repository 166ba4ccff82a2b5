// Package progress defines the event structures emitted during a crawl run.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind denotes the type of milestone represented by an Event.
type Kind string

// Supported event kinds.
const (
	KindStatus       Kind = "STATUS"
	KindProgress     Kind = "PROGRESS"
	KindPage         Kind = "PAGE"
	KindError        Kind = "ERROR"
	KindNetworkError Kind = "NETWORK_ERROR"
	KindDone         Kind = "DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for page completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of crawl progress.
type Event struct {
	// RunID uniquely identifies a crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Kind denotes which milestone occurred.
	Kind Kind
	// URL is the page or asset the event concerns, when applicable.
	URL string
	// Message carries human-readable detail (status text, error text).
	Message string
	// Fraction is the completion estimate in [0, 1] for PROGRESS events.
	Fraction float64
	// Bytes carries the response size for PAGE events.
	Bytes int64
	// StatusClass groups HTTP response codes (2xx, 3xx, etc).
	StatusClass StatusClass
	// ErrKind labels ERROR events with the failure category.
	ErrKind string
	// State carries the run state for STATUS and DONE events.
	State string
	// Dur captures fetch latency for PAGE events.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindStatus, KindDone:
		if e.State == "" {
			return fmt.Errorf("%s requires state", e.Kind)
		}
	case KindProgress:
		if e.Fraction < 0 || e.Fraction > 1 {
			return errors.New("progress fraction must be in [0, 1]")
		}
	case KindPage:
		if e.URL == "" {
			return errors.New("page event requires url")
		}
		if e.StatusClass == "" {
			return errors.New("page event requires status class")
		}
	case KindError, KindNetworkError:
		if e.Message == "" {
			return fmt.Errorf("%s requires message", e.Kind)
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes for page events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
