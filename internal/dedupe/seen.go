package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Seen keeps a bounded set of recently archived item IDs.
type Seen struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewSeen creates a set holding at most capacity keys for ttl each.
func NewSeen(capacity int, ttl time.Duration) *Seen {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Seen{
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Has reports whether key was marked inside the ttl window.
// It does not mark the key; use Mark to record one.
func (s *Seen) Has(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	return now.Sub(el.Value.(*entry).ts) <= s.ttl
}

// Mark records key as processed now, refreshing it if already present.
func (s *Seen) Mark(key string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		el.Value.(*entry).ts = now
		s.order.MoveToBack(el)
	} else {
		s.items[key] = s.order.PushBack(&entry{key: key, ts: now})
	}
	s.compact(now)
}

// Len returns the number of tracked keys, expired ones included until the
// next Mark compacts them.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *Seen) compact(now time.Time) {
	cutoff := now.Add(-s.ttl)
	for front := s.order.Front(); front != nil; front = s.order.Front() {
		e := front.Value.(*entry)
		if s.order.Len() <= s.capacity && !e.ts.Before(cutoff) {
			return
		}
		s.order.Remove(front)
		delete(s.items, e.key)
	}
}
