package cache

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Class groups cache entries by data volatility. Each class carries its
// own TTL.
type Class string

const (
	ClassRealTime     Class = "realtime"     // live quotes, seconds
	ClassScores       Class = "scores"       // computed factor/stock scores, minutes
	ClassFundamentals Class = "fundamentals" // fundamental ratios, tens of minutes
	ClassUniverse     Class = "universe"     // universe composition, hours
)

// TTLs holds the per-class expiration policy.
type TTLs struct {
	RealTime     time.Duration `yaml:"realtime"`
	Scores       time.Duration `yaml:"scores"`
	Fundamentals time.Duration `yaml:"fundamentals"`
	Universe     time.Duration `yaml:"universe"`
}

// DefaultTTLs returns the standard expiration policy.
func DefaultTTLs() TTLs {
	return TTLs{
		RealTime:     15 * time.Second,
		Scores:       5 * time.Minute,
		Fundamentals: 30 * time.Minute,
		Universe:     6 * time.Hour,
	}
}

// For returns the TTL for a class.
func (t TTLs) For(class Class) time.Duration {
	switch class {
	case ClassRealTime:
		return t.RealTime
	case ClassScores:
		return t.Scores
	case ClassFundamentals:
		return t.Fundamentals
	case ClassUniverse:
		return t.Universe
	default:
		return t.Scores
	}
}

// Store is the byte-oriented cache contract shared by the in-memory and
// redis implementations. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
	Clear()
}

// Key builds a deterministic cache key from a class and request parts.
func Key(class Class, parts ...string) string {
	return string(class) + ":" + strings.Join(parts, ":")
}

// classOf recovers the class prefix from a key built by Key, for
// per-class instrumentation.
func classOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Bucket truncates a timestamp to a coarse bucket so repeated computations
// within the bucket share one cache entry.
func Bucket(ts time.Time, width time.Duration) string {
	return fmt.Sprintf("%d", ts.Truncate(width).Unix())
}

// OptionsHash produces a short stable hash of option key/value pairs for
// embedding in cache keys.
func OptionsHash(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(opts[k]))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Encode serializes a cache value with msgpack.
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes a cache value.
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
