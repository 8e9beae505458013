// Package store persists the collection of every zero-price listing ever
// reported, so later runs only notify about new ones.
package store

import (
	"context"

	"github.com/hazyhaar/solarwatch/listing"
)

// Store loads and overwrites the persisted collection.
type Store interface {
	// Load returns the stored entries, deduplicated by link. A missing
	// store is an empty collection.
	Load(ctx context.Context) ([]listing.Entry, error)
	// Save replaces the stored collection with entries.
	Save(ctx context.Context, entries []listing.Entry) error
}
