// Package testkit drives REST API tests from JSON scenario files.
//
// A scenario is a named list of steps fired in order against one handler.
// Each step can assert the status code, a full response file, or individual
// values addressed by dotted path, and can capture values into variables
// that later steps reference as {{name}}:
//
//	{
//	  "name": "place and read back an order",
//	  "steps": [
//	    {"requestMethod": "POST", "requestUrl": "/api/orders",
//	     "headers": {"Authorization": "Bearer {{customerToken}}"},
//	     "requestBody": {"items": [...], "totalAmount": 40, "paymentMethod": "cash"},
//	     "expectedCode": 201,
//	     "capture": {"orderId": "data.id"}},
//	    {"requestUrl": "/api/orders/{{orderId}}", "expectedCode": 200,
//	     "expect": {"data.status": "pending", "data.items.#": 1}}
//	  ]
//	}
//
// Scenario files live in a testdata/ directory next to the _test.go file:
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata", testkit.WithVars(tokens))
//	}
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one test case loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Steps []Step `json:"steps"`

	dir string
}

// Step is one request and its assertions.
type Step struct {
	Name string `json:"name"`

	RequestMethod   string            `json:"requestMethod"` // default GET
	RequestURL      string            `json:"requestUrl"`
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline JSON body
	RequestFileName string            `json:"requestFileName"` // or a body file next to the scenario
	Headers         map[string]string `json:"headers"`

	ExpectedCode     int               `json:"expectedCode"`
	ResponseFileName string            `json:"responseFileName"` // full-body comparison
	Expect           map[string]any    `json:"expect"`           // dotted path → value
	ExpectAbsent     []string          `json:"expectAbsent"`     // dotted paths that must not resolve
	Capture          map[string]string `json:"capture"`          // variable → dotted path
}

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.RequestURL == "" {
			return fmt.Errorf("steps[%d].requestUrl is required", i)
		}
		if st.ExpectedCode == 0 {
			return fmt.Errorf("steps[%d].expectedCode is required", i)
		}
		if st.RequestMethod == "" {
			st.RequestMethod = "GET"
		}
		st.RequestMethod = strings.ToUpper(st.RequestMethod)
		if st.Name == "" {
			st.Name = fmt.Sprintf("%02d %s %s", i+1, st.RequestMethod, st.RequestURL)
		}
	}
	return nil
}

// resolve returns p relative to the scenario file, or "" when p is empty.
func (s *Scenario) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}
