package interfaces

import "context"

// -----------------------------------------------------------------------------
// IPreferenceStore persists JSON arrays under fixed keys
// (favorites, pinned, watchlists).
// -----------------------------------------------------------------------------

type IPreferenceStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the schema or connection.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Load returns the raw JSON stored under key, or nil when absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// Save stores the raw JSON under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// -----------------------------------------------------------------------------

	// Close the underlying connection
	Close() error
}
