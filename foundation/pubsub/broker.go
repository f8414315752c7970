package pubsub

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTopicNotFound is returned when publishing to or unsubscribing from a
// topic nobody subscribed to.
var ErrTopicNotFound = errors.New("pubsub: topic not found")

type Broker[T any] struct {
	topics map[string][]*Subscriber[T]
	sync.RWMutex
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		topics: make(map[string][]*Subscriber[T]),
	}
}

// Publish delivers data to every subscriber of topic without blocking and
// reports how many subscribers received it.
func (b *Broker[T]) Publish(topic string, data T) (int, error) {
	b.RLock()
	subs, exists := b.topics[topic]
	b.RUnlock()

	if !exists {
		return 0, fmt.Errorf("topic[%s]: %w", topic, ErrTopicNotFound)
	}

	delivered := 0
	for _, sub := range subs {
		if sub.Signal(data) {
			delivered++
		}
	}
	return delivered, nil
}

func (b *Broker[T]) Subscribe(topic string, s *Subscriber[T]) {
	b.Lock()
	defer b.Unlock()
	{
		b.topics[topic] = append(b.topics[topic], s)
	}
}

// UnSubscribe detaches s from topic and closes its channel. The topic is
// removed once its last subscriber leaves.
func (b *Broker[T]) UnSubscribe(topic string, s *Subscriber[T]) error {
	b.Lock()
	defer b.Unlock()
	{
		subs, exists := b.topics[topic]
		if !exists {
			return fmt.Errorf("topic[%s]: %w", topic, ErrTopicNotFound)
		}

		subs = removeFromSlice(subs, s)
		if len(subs) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = subs
		}
		s.CloseChannel()
	}

	return nil
}

// Subscribers returns the number of subscribers attached to topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.RLock()
	defer b.RUnlock()
	return len(b.topics[topic])
}

// =================================================================================================================

func removeFromSlice[T comparable](s []T, d T) []T {
	out := make([]T, 0, len(s))
	for i := range s {
		if s[i] != d {
			out = append(out, s[i])
		}
	}
	return out
}
