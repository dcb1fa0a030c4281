package utils

import (
	"encoding/hex"
	"hash/fnv"
)

// ContentHash returns a stable hex digest of s, used for duplicate detection
// and cache keys. Same text always yields the same digest.
func ContentHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
