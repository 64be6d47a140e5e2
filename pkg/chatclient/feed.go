package chatclient

import "sync"

// Feed fans values out to every current subscriber. Delivery is at most
// once: values published before Subscribe are never replayed, and a
// subscriber whose buffer is full misses the value.
type Feed[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	buffer int
	closed bool
}

func NewFeed[T any](buffer int) *Feed[T] {
	return &Feed[T]{subs: make(map[uint64]chan T), buffer: buffer}
}

// Subscribe returns a channel of future values and a function that ends the
// subscription and closes the channel. The function may be called more than once.
func (f *Feed[T]) Subscribe() (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan T, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
}

// Publish hands v to every subscriber with room for it and reports how
// many received it.
func (f *Feed[T]) Publish(v T) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for _, ch := range f.subs {
		select {
		case ch <- v:
			delivered++
		default:
		}
	}
	return delivered
}

// Close ends every subscription. Later subscribers get a closed channel.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

// StatusFeed holds a boolean state. New subscribers immediately receive the
// current value, and a slow subscriber always ends up holding the latest
// value rather than a backlog.
type StatusFeed struct {
	mu     sync.Mutex
	value  bool
	subs   map[uint64]chan bool
	nextID uint64
	closed bool
}

// NewStatusFeed returns a feed seeded with false.
func NewStatusFeed() *StatusFeed {
	return &StatusFeed{subs: make(map[uint64]chan bool)}
}

func (s *StatusFeed) Get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and publishes it if it differs from the current value.
func (s *StatusFeed) Set(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value == v || s.closed {
		return false
	}
	s.value = v
	for _, ch := range s.subs {
		// Only this goroutine sends, under the lock, so after draining
		// the single slot the send cannot block.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	return true
}

func (s *StatusFeed) Subscribe() (<-chan bool, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan bool, 1)
	ch <- s.value
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

func (s *StatusFeed) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
