package http_test

import (
	"context"
	"errors"
	"io"
	gohttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stallhttp "github.com/teastall/teastall/pkg/http"
	"github.com/teastall/teastall/pkg/testkit"
)

func TestGetJSONDecodesEnvelopeData(t *testing.T) {
	fake := testkit.NewFakeStall().Handle("GET", "/api/orders/{id}",
		testkit.Data(200, map[string]string{"id": "o1", "status": "ready"}))
	c := stallhttp.New("http://stall.test/", stallhttp.WithTransport(fake))

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/api/orders/o1", &out))
	assert.Equal(t, "ready", out.Status)
	testkit.AssertFakeRoutesUsed(t, fake)
}

func TestGetJSONNotFound(t *testing.T) {
	fake := testkit.NewFakeStall().Handle("GET", "/api/orders/{id}", testkit.Fail(404, "Order not found"))
	c := stallhttp.New("http://stall.test", stallhttp.WithTransport(fake))

	err := c.GetJSON(context.Background(), "/api/orders/missing", nil)
	require.Error(t, err)
	assert.True(t, stallhttp.IsNotFound(err))

	var se *stallhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Order not found", se.Message)
}

func TestDoSendsBodyAndToken(t *testing.T) {
	fake := testkit.NewFakeStall().Handle("PATCH", "/api/orders/{id}/payment",
		testkit.Data(200, map[string]string{"paymentStatus": "submitted"}))
	c := stallhttp.New("http://stall.test", stallhttp.WithToken("tok"), stallhttp.WithTransport(fake))

	var out map[string]string
	require.NoError(t, c.Do(context.Background(), gohttp.MethodPatch, "/api/orders/o1/payment",
		map[string]string{"paymentStatus": "submitted"}, &out))
	assert.Equal(t, "submitted", out["paymentStatus"])
	assert.Equal(t, 1, fake.Calls("PATCH", "/api/orders/{id}/payment"))
}

func TestDefaultClientTransportSwap(t *testing.T) {
	fake := testkit.NewFakeStall().Handle("GET", "/api/stats", testkit.Data(200, map[string]int{"orders": 3}))
	stallhttp.DefaultClient.Transport = fake
	defer stallhttp.ResetTransport()

	var out map[string]int
	require.NoError(t, stallhttp.New("http://stall.test").GetJSON(context.Background(), "/api/stats", &out))
	assert.Equal(t, 3, out["orders"])
}

func TestStreamDeliversDataFrames(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"connected\"}\n\n")
		io.WriteString(w, ": ping\n\n")
		io.WriteString(w, "data: {\"type\":\"order_update\"}\n\n")
	}))
	defer srv.Close()

	var frames []string
	err := stallhttp.New(srv.URL, stallhttp.WithToken("tok")).Stream(context.Background(), "/api/events",
		func(frame []byte) error {
			frames = append(frames, string(frame))
			return nil
		})

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, []string{`{"type":"connected"}`, `{"type":"order_update"}`}, frames)
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {}\n\n")
		w.(gohttp.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	got := 0
	err := stallhttp.New(srv.URL).Stream(ctx, "/", func([]byte) error { got++; return nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, got)
}
