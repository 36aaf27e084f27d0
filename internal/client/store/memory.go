package store

import (
	"context"
	"sync"

	"github.com/jobrefme/jobrefme-cli/internal/common"
)

// watchBuffer is the per-subscriber event buffer. A subscriber that falls
// further behind than this loses oldest-first; consumers treat a missed
// event like any other race and re-read the store.
const watchBuffer = 64

// MemoryHub is an in-process backing store. Each surface opens its own
// handle; writes through one handle fan out to the watchers of every other
// handle. Used in tests and as a reference implementation of the Watch
// contract.
type MemoryHub struct {
	mu      sync.Mutex
	data    map[string][]byte
	handles map[*memoryStore]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		data:    make(map[string][]byte),
		handles: make(map[*memoryStore]struct{}),
	}
}

// Open returns a new handle onto the hub.
func (h *MemoryHub) Open() Store {
	s := &memoryStore{hub: h}
	h.mu.Lock()
	h.handles[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *MemoryHub) broadcast(origin *memoryStore, c Change) {
	h.mu.Lock()
	handles := make([]*memoryStore, 0, len(h.handles))
	for s := range h.handles {
		if s != origin {
			handles = append(handles, s)
		}
	}
	h.mu.Unlock()

	for _, s := range handles {
		s.deliver(c)
	}
}

type memoryStore struct {
	hub *MemoryHub

	mu       sync.Mutex
	closed   bool
	watchers map[chan Change]struct{}
}

func (s *memoryStore) deliver(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- c:
		default:
			// subscriber is not draining; drop rather than block the writer
		}
	}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	v, ok := s.hub.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.hub.mu.Lock()
	s.hub.data[key] = v
	s.hub.mu.Unlock()

	s.hub.broadcast(s, Change{Key: key, Value: value})
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.hub.mu.Lock()
	_, existed := s.hub.data[key]
	delete(s.hub.data, key)
	s.hub.mu.Unlock()

	if existed {
		s.hub.broadcast(s, Change{Key: key, Deleted: true})
	}
	return nil
}

func (s *memoryStore) List(ctx context.Context) (map[string][]byte, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	out := make(map[string][]byte, len(s.hub.data))
	for k, v := range s.hub.data {
		c := make([]byte, len(v))
		copy(c, v)
		out[k] = c
	}
	return out, nil
}

func (s *memoryStore) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)

	s.mu.Lock()
	if s.watchers == nil {
		s.watchers = make(map[chan Change]struct{})
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *memoryStore) Close() error {
	s.hub.mu.Lock()
	delete(s.hub.handles, s)
	s.hub.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	return nil
}
