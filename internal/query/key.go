package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Key identifies a cached query. Keys are ordered tuples such as
// Key{"students", 2} or Key{"student", "a1b2"}; invalidation matches on
// key prefixes, so Key{"students"} covers every page.
type Key []any

// String returns the canonical form used to index the cache.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, el := range k {
		raw, err := json.Marshal(el)
		if err != nil {
			raw = []byte(fmt.Sprintf("%q", fmt.Sprint(el)))
		}
		parts[i] = string(raw)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HasPrefix reports whether prefix matches the leading elements of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if !reflect.DeepEqual(k[i], prefix[i]) {
			return false
		}
	}
	return true
}
