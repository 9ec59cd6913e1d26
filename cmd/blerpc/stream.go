package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/pkg/rpc"
)

// subscribedSignal returns a channel closed once sub is active on the device
func subscribedSignal(sub *rpc.Subscription) <-chan struct{} {
	ch := make(chan struct{})
	var once sync.Once
	signal := func() { once.Do(func() { close(ch) }) }

	sub.Controller().OnSubscribed(signal)
	if sub.Controller().Subscribed() {
		signal()
	}
	return ch
}

// streamOptions controls streamUpdates
type streamOptions struct {
	// Limit stops the stream after this many updates; 0 streams until ctx is done
	Limit int
	// SubscribeTimeout bounds the wait for the device to accept the subscription
	SubscribeTimeout time.Duration
	// OnSubscribed runs once the subscription is active
	OnSubscribed func()
}

// streamUpdates prints updates from buf until ctx is done, the limit is
// reached or the subscription ends. It returns the number of printed updates.
func streamUpdates[T any](ctx context.Context, sub *rpc.Subscription, buf *NotificationBuffer[T], opts streamOptions, print func(T)) (int, error) {
	printed := 0
	emit := func(v T) bool {
		print(v)
		printed++
		return opts.Limit == 0 || printed < opts.Limit
	}
	limitReached := func() bool {
		return opts.Limit > 0 && printed >= opts.Limit
	}

	subscribed := subscribedSignal(sub)
	var timeout <-chan time.Time
	if opts.SubscribeTimeout > 0 {
		timer := time.NewTimer(opts.SubscribeTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return printed, ctx.Err()

		case <-timeout:
			return printed, fmt.Errorf("subscription was not accepted within %s: %w", opts.SubscribeTimeout, context.DeadlineExceeded)

		case <-subscribed:
			subscribed = nil
			timeout = nil
			if opts.OnSubscribed != nil {
				opts.OnSubscribed()
			}

		case <-buf.Ready():
			buf.Drain(emit)
			if limitReached() {
				return printed, nil
			}

		case <-sub.Done():
			buf.Drain(emit)
			if limitReached() {
				return printed, nil
			}
			if err := ctx.Err(); err != nil {
				return printed, err
			}
			if err := sub.Err(); err != nil {
				return printed, fmt.Errorf("%w: %w", ErrSubscriptionEnded, err)
			}
			return printed, ErrSubscriptionEnded
		}
	}
}

// logDropped reports updates the printer could not keep up with
func logDropped[T any](logger *logrus.Logger, buf *NotificationBuffer[T]) {
	if dropped := buf.Overwritten(); dropped > 0 {
		logger.WithFields(logrus.Fields{
			"received": buf.Received(),
			"dropped":  dropped,
		}).Warn("Notification buffer overflowed")
	}
}
