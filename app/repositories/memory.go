package repositories

import (
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMemoryStores returns process-local stores. Documents are copied on
// the way in and out, so callers never share state with the store.
func NewMemoryStores() *Stores {
	users := &memoryUsers{byExternal: map[string]*userDoc{}}
	products := &memoryProducts{t: newTable[productDoc]()}
	return &Stores{
		Orders:     &memoryOrders{t: newTable[orderDoc]()},
		Products:   products,
		Categories: &memoryCategories{t: newTable[categoryDoc]()},
		Reviews:    &memoryReviews{t: newTable[reviewDoc](), users: users, products: products},
		Posts:      &memoryPosts{t: newTable[postDoc](), users: users},
		Users:      users,
	}
}

// row is one stored document plus its insertion sequence, which breaks
// createdAt ties so newest-first listings stay deterministic.
type row[T any] struct {
	seq uint64
	doc T
}

type table[T any] struct {
	mu   sync.RWMutex
	seq  uint64
	rows map[primitive.ObjectID]*row[T]
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[primitive.ObjectID]*row[T]{}}
}

func (t *table[T]) insert(id primitive.ObjectID, doc T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.rows[id] = &row[T]{seq: t.seq, doc: doc}
}

func (t *table[T]) get(id string) (T, error) {
	var zero T
	oid, err := parseID(id)
	if err != nil {
		return zero, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[oid]
	if !ok {
		return zero, ErrNotFound
	}
	return r.doc, nil
}

// mutate runs fn on the stored document under the write lock.
func (t *table[T]) mutate(id string, fn func(*T)) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[oid]
	if !ok {
		return ErrNotFound
	}
	fn(&r.doc)
	return nil
}

func (t *table[T]) remove(id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[oid]; !ok {
		return ErrNotFound
	}
	delete(t.rows, oid)
	return nil
}

func (t *table[T]) count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.rows))
}

// newest returns the documents accepted by keep, newest first by
// createdAt, truncated to limit when limit > 0.
func (t *table[T]) newest(createdAt func(T) time.Time, keep func(T) bool, limit int) []T {
	t.mu.RLock()
	rows := make([]*row[T], 0, len(t.rows))
	for _, r := range t.rows {
		if keep == nil || keep(r.doc) {
			rows = append(rows, r)
		}
	}
	t.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		ci, cj := createdAt(rows[i].doc), createdAt(rows[j].doc)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return rows[i].seq > rows[j].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out
}
