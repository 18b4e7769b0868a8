// Package cache holds recent verdicts so repeated claims skip the whole
// embed/retrieve/generate pipeline. Cost control, not correctness: a miss
// is always safe.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for verdict caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ClaimKey generates a cache key from a claim's normalized text
func ClaimKey(claim string) string {
	norm := strings.ToLower(strings.TrimSpace(claim))
	hash := sha256.Sum256([]byte(norm))
	return "kfn:v1:" + hex.EncodeToString(hash[:])
}
