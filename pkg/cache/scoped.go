package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation. Useful
// when several projects or users share one Redis instance and their
// dialogue documents must not collide.
//
// Example usage:
//
//	// Per-project keys on a shared backend
//	projectKeyer := NewScopedKeyer(NewDefaultKeyer(), "mod:nocturne:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(contentHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(contentHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(contentHash, opts)
}

// RecoveryKey generates a prefixed key for a recovery snapshot.
func (k *ScopedKeyer) RecoveryKey(docID string) string {
	return k.prefix + k.inner.RecoveryKey(docID)
}
