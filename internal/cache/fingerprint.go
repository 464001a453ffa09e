package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes a deterministic hash of a filter set.
//
// Two filter maps that are structurally equal produce the same fingerprint
// regardless of insertion order; any differing key or value produces a
// different one. encoding/json serializes map keys in sorted order, which
// gives the canonical form for free.
func Fingerprint(filters map[string]any) string {
	if len(filters) == 0 {
		return "none"
	}

	data, err := json.Marshal(filters)
	if err != nil {
		// Filter values are strings and numbers built by our own tool
		// layer; marshal can only fail on a programming error.
		panic(fmt.Sprintf("cache: unmarshalable filter set: %v", err))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
