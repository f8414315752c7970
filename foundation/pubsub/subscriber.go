package pubsub

import "sync"

// Subscriber owns a bounded channel. When the channel is full the oldest
// pending value is dropped to make room for the new one, so a slow reader
// never stalls the publisher.
type Subscriber[T any] struct {
	mu      sync.Mutex
	payload chan T
	closed  bool
	dropped uint64
}

func NewSubscriber[T any](channelCapacity int) *Subscriber[T] {
	if channelCapacity < 1 {
		channelCapacity = 1
	}
	return &Subscriber[T]{
		payload: make(chan T, channelCapacity),
	}
}

// Signal enqueues data and returns false if the subscriber is closed.
func (s *Subscriber[T]) Signal(data T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.payload <- data:
			return true
		default:
		}

		select {
		case <-s.payload:
			s.dropped++
		default:
		}
	}
}

func (s *Subscriber[T]) GetChannel() <-chan T {
	return s.payload
}

// Dropped reports how many values were discarded because the reader lagged.
func (s *Subscriber[T]) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscriber[T]) CloseChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.payload)
}
