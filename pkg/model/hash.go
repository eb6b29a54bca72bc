package model

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// MaxHashSize caps how many bytes of a large document are hashed.
	// The first 1MB gives a stable fingerprint without holding whole
	// documents in memory.
	MaxHashSize = 1024 * 1024
)

// HashContent computes the SHA-256 hash of content and returns it hex-encoded.
// Content beyond MaxHashSize is ignored. Returns "" for empty content.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	toHash := content
	if len(toHash) > MaxHashSize {
		toHash = toHash[:MaxHashSize]
	}

	sum := sha256.Sum256(toHash)
	return hex.EncodeToString(sum[:])
}

// HashString hashes a string and returns the hex-encoded SHA-256 hash.
func HashString(content string) string {
	return HashContent([]byte(content))
}
