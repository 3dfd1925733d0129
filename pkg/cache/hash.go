package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// optsHash hashes an option struct so an option set can be embedded in a
// cache key. Uses the full SHA-256 hash (64 hex chars) to prevent collisions.
func optsHash(opts any) string {
	data, _ := json.Marshal(opts)
	return Hash(data)
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
