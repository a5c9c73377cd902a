package testkit

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertStatusCode checks the response code, printing the body on mismatch.
func AssertStatusCode(t *testing.T, label string, want, got int, body []byte) bool {
	t.Helper()
	return assert.Equal(t, want, got, "[%s] HTTP status code mismatch\nbody: %s", label, string(body))
}

// AssertJSONBody deep-compares two JSON documents, ignoring key order and
// whitespace.
func AssertJSONBody(t *testing.T, label string, expected, actual []byte) bool {
	t.Helper()
	if len(expected) == 0 {
		return true
	}
	return assert.JSONEq(t, string(expected), string(actual), "[%s] response body mismatch", label)
}

// AssertPath checks one dotted path of a decoded JSON document. Numbers are
// compared as float64, so 40 in a scenario equals 40.0 on the wire.
func AssertPath(t *testing.T, label string, doc any, path string, want any) bool {
	t.Helper()
	got, found := Lookup(doc, path)
	if !assert.True(t, found, "[%s] path %q not found", label, path) {
		return false
	}
	return assert.Equal(t, normalize(want), normalize(got), "[%s] value at %q", label, path)
}

// Lookup resolves a dotted path such as "data.items.0.name" in a decoded JSON
// document. A trailing "#" yields the length of an array or object.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	if path == "" {
		return cur, true
	}
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			if part == "#" {
				return float64(len(node)), true
			}
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if part == "#" {
				return float64(len(node)), true
			}
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// normalize round-trips v through JSON so ints and float64s compare equal.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// AssertFakeRoutesUsed fails the test for every route of f that never
// answered a request.
func AssertFakeRoutesUsed(t *testing.T, f *FakeStall) {
	t.Helper()
	for _, err := range f.Unused() {
		assert.NoError(t, err)
	}
}
