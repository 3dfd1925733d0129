// Package cache provides content-addressed caching for computed layouts,
// rendered artifacts, and recovery snapshots.
//
// # Backends
//
//   - file: entries on disk under a cache directory, for the CLI
//   - redis: shared entries for multi-process or server deployments
//   - null: caching disabled
//
// All backends store opaque byte slices with an optional TTL. A miss is not
// an error: Get returns (nil, false, nil).
//
// # Keys
//
// Keys are derived, never hand-built. A [Keyer] turns a content hash plus
// an option set into a namespaced key, so two documents with identical rows
// share layout and artifact entries while differing options never collide:
//
//	layout:<contentHash>:<optionsHash>
//	artifact:<contentHash>:<format>:<optionsHash>
//	recovery:<documentID>
package cache

import (
	"context"
	"time"
)

// Default TTLs per key family. Layouts and artifacts are derived data and
// can expire; recovery snapshots stay until cleared.
const (
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 24 * time.Hour

	// TTLRecovery never expires; snapshots are removed explicitly after
	// a clean save.
	TTLRecovery time.Duration = 0
)

// Cache stores computed byte payloads by key.
type Cache interface {
	// Get returns the payload for key. The boolean reports a hit; a miss
	// is (nil, false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts captures everything that changes a computed layout for the
// same rows.
type LayoutKeyOpts struct {
	Mode           string `json:"mode"`
	Orientation    string `json:"orientation"`
	HGap           int    `json:"h_gap"`
	VGap           int    `json:"v_gap"`
	ShowSeparators bool   `json:"show_separators"`
}

// ArtifactKeyOpts captures everything that changes a rendered artifact for
// the same rows.
type ArtifactKeyOpts struct {
	Format     string        `json:"format"`
	LabelLimit int           `json:"label_limit"`
	Layout     LayoutKeyOpts `json:"layout"`
}

// Keyer derives cache keys for the cacheable products of a document.
type Keyer interface {
	// LayoutKey keys a computed layout by the rows' content hash and the
	// layout options.
	LayoutKey(contentHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a rendered artifact by the rows' content hash, the
	// output format, and the layout options underneath it.
	ArtifactKey(contentHash string, opts ArtifactKeyOpts) string

	// RecoveryKey keys the autosave snapshot of one document.
	RecoveryKey(docID string) string
}

// DefaultKeyer is the standard key derivation.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(contentHash string, opts LayoutKeyOpts) string {
	return "layout:" + contentHash + ":" + optsHash(opts)
}

// ArtifactKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return "artifact:" + contentHash + ":" + opts.Format + ":" + optsHash(opts.Layout)
}

// RecoveryKey generates a key for a document's autosave snapshot.
func (k *DefaultKeyer) RecoveryKey(docID string) string {
	return "recovery:" + docID
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
