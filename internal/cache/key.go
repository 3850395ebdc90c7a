package cache

import "hash/fnv"

// StringKey hashes s into a 64-bit cache key.
func StringKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
