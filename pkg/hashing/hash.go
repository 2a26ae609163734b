// Package hashing implements the deterministic MD5-based sharding
// function that every SDK implementation must agree on bit-for-bit.
package hashing

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Shard computes shard(input, totalShards): the first four bytes of
// MD5(input), interpreted as a big-endian unsigned 32-bit integer,
// modulo totalShards. This must never change without breaking
// cross-SDK interoperability; do not "optimize" the hash function.
func Shard(input string, totalShards int64) int64 {
	if totalShards <= 0 {
		panic(fmt.Sprintf("hashing: totalShards must be positive, got %d", totalShards))
	}
	sum := md5.Sum([]byte(input))
	asU32 := binary.BigEndian.Uint32(sum[:4])
	return int64(asU32) % totalShards
}

// ShardKey builds the "salt-subjectKey" input string used throughout
// the flag and bandit evaluators.
func ShardKey(salt, subjectKey string) string {
	return salt + "-" + subjectKey
}

// Range is a half-open shard interval [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Contains reports whether shard s falls in [r.Start, r.End).
func (r Range) Contains(s int64) bool {
	return s >= r.Start && s < r.End
}

// InRange is the free-function form used by callers that already hold
// a shard value, mirroring shardInRange(s, range) from the reference
// evaluator.
func InRange(s int64, r Range) bool {
	return r.Contains(s)
}
