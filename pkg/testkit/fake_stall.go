package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/teastall/teastall/pkg/response"
)

// FakeStall is an http.RoundTripper that answers the stall API with canned
// envelopes. It stands in for a running server in tests of code built on
// pkg/http's Client:
//
//	fake := testkit.NewFakeStall().
//	    Handle("GET", "/api/orders/{id}", testkit.Data(200, pending), testkit.Data(200, ready))
//	client := stallhttp.New("http://stall.test", stallhttp.WithTransport(fake))
//
// Routes match on method and path; a "{name}" segment matches any single
// segment. A route serves its replies in order and keeps repeating the last
// one, so successive polls of an order walk it through its statuses.
type FakeStall struct {
	mu     sync.Mutex
	routes []*fakeRoute
}

type fakeRoute struct {
	method   string
	path     string
	segments []string
	replies  []Reply
	calls    int
}

// Reply is one canned answer, sent as the API's response envelope.
type Reply struct {
	Status  int // default 200
	Message string
	Data    any
}

// Data replies with status and data.
func Data(status int, data any) Reply { return Reply{Status: status, Data: data} }

// Fail replies with status and an error message.
func Fail(status int, message string) Reply { return Reply{Status: status, Message: message} }

func NewFakeStall() *FakeStall { return &FakeStall{} }

// Handle registers replies for method and path. An empty method matches any
// method; no replies means an empty 200.
func (f *FakeStall) Handle(method, path string, replies ...Reply) *FakeStall {
	if len(replies) == 0 {
		replies = []Reply{{}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, &fakeRoute{
		method:   strings.ToUpper(method),
		path:     path,
		segments: splitPath(path),
		replies:  replies,
	})
	return f
}

// RoundTrip answers from the first matching route. Unmatched requests fail
// so a test never silently reaches the network.
func (f *FakeStall) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	got := splitPath(req.URL.Path)
	for _, rt := range f.routes {
		if rt.method != "" && rt.method != req.Method {
			continue
		}
		if !matchSegments(rt.segments, got) {
			continue
		}
		reply := rt.replies[min(rt.calls, len(rt.replies)-1)]
		rt.calls++
		return reply.response(req)
	}
	return nil, fmt.Errorf("testkit: no fake route for %s %s", req.Method, req.URL.Path)
}

// Calls reports how many requests the route registered as method and path
// has answered.
func (f *FakeStall) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rt := range f.routes {
		if rt.method == strings.ToUpper(method) && rt.path == path {
			n += rt.calls
		}
	}
	return n
}

// Unused returns an error for every route that never answered.
func (f *FakeStall) Unused() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, rt := range f.routes {
		if rt.calls == 0 {
			errs = append(errs, fmt.Errorf("testkit: fake route %s %s was never called", rt.method, rt.path))
		}
	}
	return errs
}

func (r Reply) response(req *http.Request) (*http.Response, error) {
	code := r.Status
	if code == 0 {
		code = http.StatusOK
	}
	body, err := json.Marshal(response.Envelope{Status: code, Message: r.Message, Data: r.Data})
	if err != nil {
		return nil, fmt.Errorf("testkit: encode fake reply: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode:    code,
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, got []string) bool {
	if len(pattern) != len(got) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}
