package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoDrainTick = 2 * time.Second
)

// LogDocument is the shape written to the log collection.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// inserter is the part of *mongo.Collection the sink needs.
type inserter interface {
	InsertMany(ctx context.Context, docs []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

type mongoSink struct {
	col      inserter
	queue    chan LogDocument
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// MongoHandler is an slog.Handler that batches records into a collection
// from a background goroutine. Handle never blocks: records are dropped when
// the queue is full.
type MongoHandler struct {
	sink  *mongoSink
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewMongoHandler starts the drain loop for col. The collection's client is
// owned by the caller; Close only flushes.
func NewMongoHandler(col *mongo.Collection, level slog.Leveler) *MongoHandler {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time", Value: -1}},
	})
	return newMongoHandler(col, level)
}

func newMongoHandler(col inserter, level slog.Leveler) *MongoHandler {
	s := &mongoSink{
		col:      col,
		queue:    make(chan LogDocument, mongoQueueSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.drainLoop()
	return &MongoHandler{sink: s, level: level}
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	doc := LogDocument{
		Time:  r.Time.UTC(),
		Level: r.Level.String(),
		Msg:   r.Message,
		Attrs: bson.M{},
	}

	add := func(a slog.Attr) bool {
		if a.Key == "request_id" {
			doc.RequestID = a.Value.String()
			return true
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		doc.Attrs[key] = a.Value.Resolve().Any()
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	select {
	case h.sink.queue <- doc:
	default:
	}
	return nil
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

// Close flushes queued records and stops the drain loop. Safe to call more
// than once.
func (h *MongoHandler) Close() {
	h.sink.once.Do(func() { close(h.sink.done) })
	<-h.sink.finished
}

func (s *mongoSink) drainLoop() {
	defer close(s.finished)

	ticker := time.NewTicker(mongoDrainTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, mongoBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = s.col.InsertMany(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case doc := <-s.queue:
			batch = append(batch, doc)
			if len(batch) >= mongoBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case doc := <-s.queue:
					batch = append(batch, doc)
					if len(batch) >= mongoBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// MultiHandler fans out to multiple slog.Handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler returns a handler that sends each record to all hs.
func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: hs}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: hs}
}
