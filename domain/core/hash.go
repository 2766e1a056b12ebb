package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a hex encoded SHA-256 digest
type Hash string

// NewHash hashes data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (h Hash) String() string {
	return string(h)
}

// IsEmpty reports whether h was never set
func (h Hash) IsEmpty() bool {
	return h == ""
}
