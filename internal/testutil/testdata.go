// Package testutil loads fixtures from the repository's testdata directory.
package testutil

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Path resolves rel against the testdata directory next to go.mod, walking
// up from the package under test.
func Path(t *testing.T, rel string) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "testdata", filepath.FromSlash(rel))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no go.mod above the test package; cannot find testdata/%s", rel)
		}
		dir = parent
	}
}

// LoadTelegram decodes a hex fixture into raw telegram bytes.
func LoadTelegram(t *testing.T, rel string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(LoadHex(t, rel))
	if err != nil {
		t.Fatalf("%s: %v", rel, err)
	}
	return raw
}

// LoadHex returns the fixture's hex digits with surrounding whitespace removed.
func LoadHex(t *testing.T, rel string) string {
	t.Helper()
	return strings.TrimSpace(string(read(t, rel)))
}

// LoadAttributes loads an expected attribute map from a JSON fixture.
func LoadAttributes(t *testing.T, rel string) map[string]string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(read(t, rel), &m); err != nil {
		t.Fatalf("%s: %v", rel, err)
	}
	return m
}

// DropKeys returns a copy of m without the given keys. Golden comparisons use
// it to ignore clock-dependent attributes such as "timestamp".
func DropKeys(m map[string]string, keys ...string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func read(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(Path(t, rel))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}
