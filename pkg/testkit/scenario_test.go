package testkit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/pkg/testkit"
)

// echoHandler answers POST /things with the posted body wrapped in an
// envelope and GET /things/{id} with the id it was asked for.
var echoHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/things":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "t-1"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"status": 201, "data": body})
	case r.Method == http.MethodGet && r.URL.Path == "/things/t-1":
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"status":401,"message":"Unauthorized"}`)
			return
		}
		io.WriteString(w, `{"status":200,"data":{"id":"t-1","tags":["a","b"]}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"status":404,"message":"Not found"}`)
	}
})

func TestRunDirCapturesAcrossSteps(t *testing.T) {
	testkit.RunDir(t, echoHandler, "testdata", testkit.WithVars(map[string]string{"token": "secret"}))
}

func TestLoadScenarioDefaults(t *testing.T) {
	s, err := testkit.LoadScenario("testdata/create_and_read.json")
	require.NoError(t, err)

	assert.Equal(t, "create and read back", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "POST", s.Steps[0].RequestMethod)
	assert.Equal(t, "GET", s.Steps[1].RequestMethod, "method defaults to GET")
	assert.NotEmpty(t, s.Steps[1].Name)
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"name":"Masala Chai"}],"n":null}}`), &doc))

	v, ok := testkit.Lookup(doc, "data.items.0.name")
	assert.True(t, ok)
	assert.Equal(t, "Masala Chai", v)

	v, ok = testkit.Lookup(doc, "data.items.#")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = testkit.Lookup(doc, "data.items.3")
	assert.False(t, ok)

	_, ok = testkit.Lookup(doc, "data.missing")
	assert.False(t, ok)
}
