package rpc

import (
	"context"
	"sync"
	"sync/atomic"
)

// Controller carries the cancellation and failure state of one call.
//
// The caller cancels and inspects it from any goroutine; the channel records
// failures and observes cancellation from its work sequencer. A Controller
// may be reused after Reset.
type Controller struct {
	canceled   atomic.Bool
	subscribed atomic.Bool

	mu           sync.Mutex
	failed       bool
	errorText    string
	onCancel     func()
	onSubscribed func()
}

// NewController creates a Controller in its initial state
func NewController() *Controller {
	return &Controller{}
}

// NewControllerWithContext creates a Controller that is canceled when ctx is done
func NewControllerWithContext(ctx context.Context) *Controller {
	c := NewController()
	context.AfterFunc(ctx, c.Cancel)
	return c
}

// Cancel marks the call canceled and fires the registered cancel callback,
// if any. The callback runs at most once, outside the controller lock.
func (c *Controller) Cancel() {
	c.canceled.Store(true)

	c.mu.Lock()
	cb := c.onCancel
	c.onCancel = nil
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// IsCanceled reports whether Cancel has been called
func (c *Controller) IsCanceled() bool {
	return c.canceled.Load()
}

// OnCancel registers cb to run on the next Cancel. If the controller is
// already canceled cb runs immediately and is not stored. A second
// registration replaces the first.
func (c *Controller) OnCancel(cb func()) {
	c.mu.Lock()
	if c.canceled.Load() {
		c.mu.Unlock()
		cb()
		return
	}
	c.onCancel = cb
	c.mu.Unlock()
}

// SetFailed marks the call failed with the given reason
func (c *Controller) SetFailed(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = true
	c.errorText = reason
}

// Failed reports whether the call failed
func (c *Controller) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// ErrorText returns the failure reason, or "" when the call has not failed
func (c *Controller) ErrorText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorText
}

// Err returns a *CallError describing the failure, or nil
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.failed {
		return nil
	}
	return &CallError{Msg: c.errorText}
}

// OnSubscribed registers cb to run when the subscription this controller
// belongs to becomes active. Callbacks run on the channel's listener sequencer.
func (c *Controller) OnSubscribed(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubscribed = cb
}

// Subscribed reports whether a subscribe-success signal has been delivered
func (c *Controller) Subscribed() bool {
	return c.subscribed.Load()
}

func (c *Controller) subscribeSucceeded() {
	c.subscribed.Store(true)

	c.mu.Lock()
	cb := c.onSubscribed
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Reset returns the controller to its initial state
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled.Store(false)
	c.subscribed.Store(false)
	c.failed = false
	c.errorText = ""
	c.onCancel = nil
	c.onSubscribed = nil
}
