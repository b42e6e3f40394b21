package condition

import (
	"fmt"
	"hash/fnv"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	gojson "github.com/goccy/go-json"
)

// CacheEntry is one memoized field lookup: the resolved value and whether
// the path existed at all.
type CacheEntry struct {
	Value any
	Found bool
}

// ValueCache is the optional cross-evaluation lookup cache. It is purely a
// performance optimization: results must be identical with and without it.
// Implementations must be safe for concurrent use.
type ValueCache interface {
	Get(key string) (CacheEntry, bool)
	Add(key string, e CacheEntry)
}

// NopCache satisfies ValueCache while caching nothing. Inject it in tests to
// pin down cache-independent behavior.
type NopCache struct{}

func (NopCache) Get(string) (CacheEntry, bool) { return CacheEntry{}, false }
func (NopCache) Add(string, CacheEntry)        {}

// SharedCache is a bounded LRU lookup cache keyed by record fingerprint plus
// field path. Cached container values are deep-copied on insert so no
// mutable reference escapes into later evaluations.
type SharedCache struct {
	lru *lru.Cache[string, CacheEntry]
}

// NewSharedCache builds a SharedCache holding at most size entries.
func NewSharedCache(size int) (*SharedCache, error) {
	c, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &SharedCache{lru: c}, nil
}

func (s *SharedCache) Get(key string) (CacheEntry, bool) { return s.lru.Get(key) }

func (s *SharedCache) Add(key string, e CacheEntry) {
	e.Value = copyTree(e.Value)
	s.lru.Add(key, e)
}

// Len reports the current number of cached entries.
func (s *SharedCache) Len() int { return s.lru.Len() }

func copyTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = copyTree(e)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i, e := range t {
			a[i] = copyTree(e)
		}
		return a
	default:
		return v
	}
}

// Fingerprint derives a content key for a record, for use as the
// DataContext fingerprint feeding a SharedCache. Key order is normalized so
// equal records hash equally.
func Fingerprint(record map[string]any) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		b, err := gojson.Marshal(record[k])
		if err != nil {
			fmt.Fprintf(h, "!%v", record[k])
			continue
		}
		h.Write(b)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
