package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

type runConfig struct {
	vars map[string]string
}

// Option tunes a run.
type Option func(*runConfig)

// WithVars seeds the variables available to {{name}} placeholders.
func WithVars(vars map[string]string) Option {
	return func(c *runConfig) {
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

// Run executes the scenario in path against handler as a subtest.
func Run(t *testing.T, handler http.Handler, path string, opts ...Option) {
	t.Helper()

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", path, err)
	}
	t.Run(s.Name, func(t *testing.T) {
		runScenario(t, handler, s, newConfig(opts))
	})
}

// RunDir runs every *.json scenario in dir against the same handler.
func RunDir(t *testing.T, handler http.Handler, dir string, opts ...Option) {
	t.Helper()

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}
	for _, path := range entries {
		Run(t, handler, path, opts...)
	}
}

func newConfig(opts []Option) *runConfig {
	c := &runConfig{vars: map[string]string{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario, cfg *runConfig) {
	t.Helper()

	for i := range s.Steps {
		st := &s.Steps[i]
		if !runStep(t, handler, s, st, cfg.vars) {
			t.Fatalf("[%s] stopping after failed step %q", s.Name, st.Name)
		}
	}
}

// runStep fires one request and reports whether every assertion held.
func runStep(t *testing.T, handler http.Handler, s *Scenario, st *Step, vars map[string]string) bool {
	t.Helper()

	body, err := stepBody(s, st, vars)
	if err != nil {
		t.Errorf("[%s/%s] %v", s.Name, st.Name, err)
		return false
	}

	req := httptest.NewRequest(st.RequestMethod, expand(st.RequestURL, vars), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range st.Headers {
		req.Header.Set(k, expand(v, vars))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	label := s.Name + "/" + st.Name
	ok := AssertStatusCode(t, label, st.ExpectedCode, rec.Code, rec.Body.Bytes())

	if p := s.resolve(st.ResponseFileName); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", label, p, err)
			ok = false
		} else {
			ok = AssertJSONBody(t, label, expected, rec.Body.Bytes()) && ok
		}
	}

	if len(st.Expect) == 0 && len(st.Capture) == 0 && len(st.ExpectAbsent) == 0 {
		return ok
	}

	var doc any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Errorf("[%s] response is not JSON: %v\nbody: %s", label, err, rec.Body.String())
		return false
	}

	for path, want := range st.Expect {
		ok = AssertPath(t, label, doc, path, expandValue(want, vars)) && ok
	}
	for _, path := range st.ExpectAbsent {
		if _, found := Lookup(doc, path); found {
			t.Errorf("[%s] expected %q to be absent", label, path)
			ok = false
		}
	}
	for name, path := range st.Capture {
		v, found := Lookup(doc, path)
		if !found {
			t.Errorf("[%s] capture %q: path %q not found", label, name, path)
			ok = false
			continue
		}
		vars[name] = fmt.Sprint(v)
	}
	return ok
}

func stepBody(s *Scenario, st *Step, vars map[string]string) (io.Reader, error) {
	var raw []byte
	switch {
	case len(st.RequestBody) > 0:
		raw = st.RequestBody
	case st.RequestFileName != "":
		data, err := os.ReadFile(s.resolve(st.RequestFileName))
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		raw = data
	default:
		return nil, nil
	}
	return bytes.NewReader([]byte(expand(string(raw), vars))), nil
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// expand replaces {{name}} with its variable; unknown names are left as is.
func expand(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

func expandValue(v any, vars map[string]string) any {
	if s, ok := v.(string); ok {
		return expand(s, vars)
	}
	return v
}
