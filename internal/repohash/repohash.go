// Package repohash folds incident identifier sets into one opaque,
// deterministic content hash.
package repohash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Domain prefix for the digest. The version suffix enables a future
// algorithm migration without colliding with old hashes.
const domain = "qembot/repohash/v1"

// Merger computes domain-separated SHA-256 digests over identifier sets.
// It satisfies the aggregate.Merger contract: same set, same hash,
// regardless of input ordering or duplicates.
//
// Format: SHA256(domain + 0x00 + id1 + 0x00 + id2 + 0x00 + ...).
// The null separators prevent boundary ambiguity between identifiers.
type Merger struct{}

// Merge returns the hex digest of the deduplicated, sorted identifier set.
// Callers normally pass an already sorted, deduplicated slice; Merge
// normalizes again so the determinism guarantee never depends on them.
func (Merger) Merge(ids []string) string {
	normalized := normalize(ids)

	h := sha256.New()
	h.Write([]byte(domain))
	for _, id := range normalized {
		h.Write([]byte{0x00})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
