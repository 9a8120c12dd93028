package driver

import (
	"encoding/json"
	"sort"
)

// Attributes is an immutable set of formatted readings keyed by name.
type Attributes struct {
	m map[string]string
}

// NewAttributes copies m into a new attribute set.
func NewAttributes(m map[string]string) Attributes {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Attributes{m: cp}
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a.m[key]
	return v, ok
}

func (a Attributes) Len() int { return len(a.m) }

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying map.
func (a Attributes) Map() map[string]string {
	cp := make(map[string]string, len(a.m))
	for k, v := range a.m {
		cp[k] = v
	}
	return cp
}

// Pairs renders the attributes as sorted "key=value" strings.
func (a Attributes) Pairs() []string {
	keys := a.Keys()
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + a.m[k]
	}
	return pairs
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	if a.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.m)
}
