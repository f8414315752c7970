// Package kv is a small key-value abstraction with hierarchical keys, backed
// by BadgerDB in production and by a map in tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

var ErrNotFound = errors.New("kv: not found")

const separator = "\x1f"

// Key is a path of segments, e.g. Key{"history", "user", "0001"}.
// Segments must not contain the unit separator byte.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) encode() []byte {
	return []byte(strings.Join(k, separator))
}

// prefix returns the encoded scan prefix for k, terminated by the separator
// so Key{"a"} does not match Key{"ab"}. An empty key scans everything.
func (k Key) prefix() []byte {
	if len(k) == 0 {
		return nil
	}
	return append(k.encode(), separator...)
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), separator))
}

type Entry struct {
	Key   Key
	Value []byte
}

type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error

	// List yields entries under prefix in ascending key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}
