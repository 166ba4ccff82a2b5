package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves a single URL and returns the raw response.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResult, error)
}

// Hasher computes a content digest for downloaded assets.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and session IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
