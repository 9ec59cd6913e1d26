package main

import (
	"fmt"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/srg/blerpc/pkg/config"
)

// NotificationBuffer decouples subscription callbacks, which run on the
// channel's listener sequencer, from the goroutine printing them. When the
// printer falls behind the oldest updates are overwritten.
type NotificationBuffer[T any] struct {
	buffer      mpmc.RichOverlappedRingBuffer[T]
	ready       chan struct{}
	received    atomic.Int64
	overwritten atomic.Int64
}

// NewNotificationBuffer creates a buffer holding up to size updates
func NewNotificationBuffer[T any](size uint32) (*NotificationBuffer[T], error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}
	if size > config.MaxNotificationBuffer {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", size, config.MaxNotificationBuffer)
	}
	return &NotificationBuffer[T]{
		buffer: mpmc.NewOverlappedRingBuffer[T](size),
		ready:  make(chan struct{}, 1),
	}, nil
}

// Push stores v, dropping the oldest update when full, and wakes the reader
func (b *NotificationBuffer[T]) Push(v T) error {
	overwrites, err := b.buffer.EnqueueM(v)
	if err != nil {
		return fmt.Errorf("unexpected buffer.Enqueue error: %w", err)
	}
	b.received.Add(1)
	b.overwritten.Add(int64(overwrites))

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready receives a value after one or more Push calls
func (b *NotificationBuffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Drain passes buffered updates to fn, oldest first, until the buffer is
// empty or fn returns false. It returns how many updates fn received.
func (b *NotificationBuffer[T]) Drain(fn func(T) bool) int {
	n := 0
	for !b.buffer.IsEmpty() {
		v, err := b.buffer.Dequeue()
		if err != nil {
			break
		}
		n++
		if !fn(v) {
			break
		}
	}
	return n
}

// Received returns how many updates were pushed
func (b *NotificationBuffer[T]) Received() int64 {
	return b.received.Load()
}

// Overwritten returns how many updates were dropped unread
func (b *NotificationBuffer[T]) Overwritten() int64 {
	return b.overwritten.Load()
}
