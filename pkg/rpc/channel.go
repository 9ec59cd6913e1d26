package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/wire"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Codec converts between messages and characteristic values.
// *wire.Codec satisfies it.
type Codec interface {
	Encode(msg any) ([]byte, error)
	Decode(data []byte, out any) error
}

type connectionStatus int

const (
	disconnected connectionStatus = iota
	connecting
	connected
)

func (s connectionStatus) String() string {
	switch s {
	case connecting:
		return "connecting"
	case connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ----------------------------
// Channel
// ----------------------------

// Channel carries RPC calls over a single GATT connection to one device.
//
// Calls are queued and started one GATT operation at a time. The connection
// is opened lazily by the first call and torn down, failing every pending
// call, on any connection-level failure. Subscribe calls for the same
// characteristic share one GATT subscription.
//
// All channel state is owned by the work executor. Completion callbacks run
// on the listener executor.
type Channel struct {
	address  string
	driver   device.Driver
	codec    Codec
	logger   *logrus.Logger
	work     Executor
	listener Executor
	owned    []*Sequencer

	closed atomic.Bool

	// Owned by the work executor
	status         connectionStatus
	gatt           device.Gatt
	generation     uint64
	callInProgress bool
	calls          []*call
	subscriptions  *orderedmap.OrderedMap[string, *subscriptionGroup]
}

// Option configures a Channel
type Option func(*Channel)

// WithLogger sets the channel logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithExecutors replaces the channel's own work and listener sequencers.
// The caller keeps ownership of both executors.
func WithExecutors(work, listener Executor) Option {
	return func(c *Channel) {
		c.work = work
		c.listener = listener
	}
}

// NewChannel creates a channel to the device at address. A nil codec selects
// the big-endian wire codec.
func NewChannel(address string, driver device.Driver, codec Codec, opts ...Option) *Channel {
	if codec == nil {
		codec = wire.Default
	}
	c := &Channel{
		address:       address,
		driver:        driver,
		codec:         codec,
		subscriptions: orderedmap.New[string, *subscriptionGroup](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.work == nil {
		seq := NewSequencer(context.Background(), "blerpc-work-"+address, c.logger)
		c.work = seq
		c.owned = append(c.owned, seq)
	}
	if c.listener == nil {
		seq := NewSequencer(context.Background(), "blerpc-listener-"+address, c.logger)
		c.listener = seq
		c.owned = append(c.owned, seq)
	}
	return c
}

// Address returns the device address the channel connects to
func (c *Channel) Address() string {
	return c.address
}

// CallMethod submits a call. done receives exactly one message for READ and
// WRITE calls: the decoded response, or a zero response when the call failed
// or was canceled. For SUBSCRIBE calls done receives every notification until
// the call is canceled or fails. done always runs on the listener executor,
// except for calls submitted after Close which complete synchronously.
//
// responsePrototype is any value of the response type; done receives
// pointers to fresh values of that type.
func (c *Channel) CallMethod(method *Method, ctrl *Controller, request, responsePrototype any, done func(any)) {
	if ctrl == nil {
		ctrl = NewController()
	}
	rc := newCall(method, ctrl, request, responsePrototype, done)

	if c.closed.Load() {
		ctrl.SetFailed(ErrChannelClosed.Error())
		if done != nil {
			done(newResponse(responsePrototype))
		}
		return
	}
	c.work.Post(func() { c.submit(rc) })
}

// Reset fails every pending call and subscriber and drops the connection.
// The next call reconnects.
func (c *Channel) Reset() {
	c.work.Post(func() { c.failAllAndReset(ErrChannelReset) })
}

// Close resets the channel and stops its own sequencers. Calls submitted
// afterwards fail immediately.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.work.Post(func() {
		c.failAllAndReset(ErrChannelClosed)
		owned := c.owned
		// Listener tasks queued by the reset above run before the listener closes.
		c.listener.Post(func() {
			for _, seq := range owned {
				seq.Close()
			}
		})
	})
	return nil
}

func (c *Channel) submit(rc *call) {
	if !c.checkMethodType(rc) {
		return
	}

	c.addCall(rc)
	switch c.status {
	case disconnected:
		c.startConnection()
	case connecting:
	case connected:
		c.startNextCallIfNotInProgress()
	}
}

func (c *Channel) checkMethodType(rc *call) bool {
	switch rc.kind() {
	case MethodRead, MethodWrite, MethodSubscribe:
		return true
	default:
		if rc.method == nil {
			c.notifyCallFailed(rc, errors.New("method is required"))
		} else {
			c.notifyCallFailed(rc, fmt.Errorf("unsupported method type %s", rc.method.Type))
		}
		return false
	}
}

func (c *Channel) addCall(rc *call) {
	c.calls = append(c.calls, rc)
	if rc.kind() != MethodSubscribe {
		return
	}
	c.groupFor(rc).add(rc)
}

func (c *Channel) groupFor(rc *call) *subscriptionGroup {
	g, ok := c.subscriptions.Get(rc.key())
	if !ok {
		g = newSubscriptionGroup(rc)
		c.subscriptions.Set(rc.key(), g)
	}
	return g
}

func (c *Channel) startConnection() {
	c.status = connecting
	c.generation++
	gen := c.generation

	c.logger.WithField("address", c.address).Info("Connecting to BLE device...")
	gatt, err := c.driver.Connect(c.address, func(ev device.Event) {
		c.work.Post(func() { c.handleEvent(gen, ev) })
	})
	if err != nil {
		c.failAllAndReset(fmt.Errorf("could not get bluetooth gatt: %w", err))
		return
	}
	if gatt == nil {
		c.failAllAndReset(errors.New("could not get bluetooth gatt"))
		return
	}
	c.gatt = gatt
}

// ----------------------------
// Event handling
// ----------------------------

func (c *Channel) handleEvent(gen uint64, ev device.Event) {
	if gen != c.generation || c.gatt == nil {
		c.logger.WithFields(logrus.Fields{
			"address": c.address,
			"event":   ev.Kind,
		}).Debug("Ignoring event from a stale connection")
		return
	}

	c.logger.WithFields(logrus.Fields{
		"address":        c.address,
		"event":          ev.Kind,
		"status":         ev.Status,
		"characteristic": device.UUIDKey(ev.Characteristic),
	}).Debug("GATT event")

	switch ev.Kind {
	case device.ConnectionStateChanged:
		c.onConnectionStateChanged(ev)
	case device.ServicesDiscovered:
		c.onServicesDiscovered(ev)
	case device.CharacteristicRead, device.CharacteristicWrite:
		if !c.expectCompletion(ev) {
			return
		}
		if !ev.Status.Success() {
			op := "read"
			if ev.Kind == device.CharacteristicWrite {
				op = "write"
			}
			c.handleError(&device.StatusError{
				Op:     fmt.Sprintf("%s characteristic %s", op, device.UUIDKey(ev.Characteristic)),
				Status: ev.Status,
				Err:    ev.Err,
			})
			return
		}
		c.handleResult(ev.Value)
	case device.DescriptorWrite:
		if !c.expectCompletion(ev) {
			return
		}
		c.onDescriptorWrite(ev)
	case device.CharacteristicChanged:
		c.handleValueChange(ev)
	default:
		c.logger.WithField("event", ev.Kind).Warn("Unexpected GATT event")
	}
}

func (c *Channel) expectCompletion(ev device.Event) bool {
	if c.callInProgress && len(c.calls) > 0 {
		return true
	}
	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"event":   ev.Kind,
	}).Warn("Ignoring completion event with no call in progress")
	return false
}

func (c *Channel) onConnectionStateChanged(ev device.Event) {
	if ev.State != device.StateConnected || !ev.Status.Success() {
		reason := "could not connect"
		if c.status == connected {
			reason = "connection lost"
		}
		err := fmt.Errorf("%s: state=%s, status=%s", reason, ev.State, ev.Status)
		if ev.Err != nil {
			err = fmt.Errorf("%w: %w", err, ev.Err)
		}
		c.failAllAndReset(err)
		return
	}
	if c.status != connecting {
		return
	}

	if err := c.gatt.DiscoverServices(); err != nil {
		c.failAllAndReset(fmt.Errorf("could not start service discovery: %w", err))
	}
}

func (c *Channel) onServicesDiscovered(ev device.Event) {
	if !ev.Status.Success() {
		c.failAllAndReset(fmt.Errorf("services discovery failed, status=%s", ev.Status))
		return
	}
	if c.status != connecting {
		return
	}

	c.status = connected
	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"pending": len(c.calls),
	}).Info("BLE device connected")
	c.startNextCall()
}

func (c *Channel) onDescriptorWrite(ev device.Event) {
	switch {
	case bytes.Equal(ev.Value, device.EnableNotificationValue):
		if ev.Status.Success() {
			c.handleSubscribe()
		} else {
			c.handleSubscribeError(ev)
		}
	case bytes.Equal(ev.Value, device.DisableNotificationValue):
		if ev.Status.Success() {
			c.handleUnsubscribe()
		} else {
			c.finishCall()
			c.failAllAndReset(&device.StatusError{
				Op:     fmt.Sprintf("unsubscribe from characteristic %s, descriptor %s", device.UUIDKey(ev.Characteristic), device.UUIDKey(ev.Descriptor)),
				Status: ev.Status,
				Err:    ev.Err,
			})
		}
	default:
		c.finishCall()
		c.failAllAndReset(fmt.Errorf("unexpected value %v of the subscription state", ev.Value))
	}
}

func (c *Channel) handleResult(value []byte) {
	rc := c.finishCall()
	if rc.ctrl.IsCanceled() {
		c.notifyDefaultResult(rc)
		c.startNextCall()
		return
	}

	resp := newResponse(rc.response)
	if resp != nil {
		if err := c.codec.Decode(value, resp); err != nil {
			c.notifyCallFailed(rc, err)
			c.startNextCall()
			return
		}
	}
	c.notifyResult(rc, resp)
	c.startNextCall()
}

func (c *Channel) handleError(err error) {
	rc := c.finishCall()
	c.notifyCallFailed(rc, err)
	c.startNextCall()
}

func (c *Channel) handleSubscribe() {
	rc := c.finishCall()
	g, ok := c.subscriptions.Get(rc.key())
	if !ok || g.status != subscribing {
		c.failAllAndReset(fmt.Errorf("characteristic %s is not subscribing", rc.key()))
		return
	}

	g.status = subscribed
	c.logger.WithFields(logrus.Fields{
		"address":        c.address,
		"characteristic": rc.key(),
		"subscribers":    g.calls.Len(),
	}).Debug("Subscription active")
	c.notifySubscribed(rc)
	c.startNextCall()
}

func (c *Channel) handleSubscribeError(ev device.Event) {
	rc := c.finishCall()
	g, ok := c.subscriptions.Get(rc.key())
	if !ok || g.status != subscribing {
		c.failAllAndReset(fmt.Errorf("characteristic %s is not subscribing", rc.key()))
		return
	}

	c.failAllSubscribersAndClear(g, &device.StatusError{
		Op:     fmt.Sprintf("enable notifications for descriptor %s in characteristic %s", device.UUIDKey(rc.descriptor), rc.key()),
		Status: ev.Status,
		Err:    ev.Err,
	})
	c.startNextCall()
}

func (c *Channel) handleUnsubscribe() {
	rc := c.finishCall()
	g, ok := c.subscriptions.Get(rc.key())
	if !ok || g.status != unsubscribing {
		c.failAllAndReset(fmt.Errorf("characteristic %s is not unsubscribing", rc.key()))
		return
	}

	g.status = unsubscribed
	// Subscribers may have arrived while unsubscribing
	g.clearCanceled()
	if !g.hasAnySubscriber() {
		if err := c.gatt.SetNotification(g.service, g.characteristic, false); err != nil {
			c.logger.WithFields(logrus.Fields{
				"address":        c.address,
				"characteristic": rc.key(),
				"error":          err,
			}).Warn("Failed to disable notification routing")
		}
		c.subscriptions.Delete(rc.key())
		c.logger.WithFields(logrus.Fields{
			"address":        c.address,
			"characteristic": rc.key(),
		}).Debug("Subscription removed")
	}
	c.startNextCall()
}

func (c *Channel) handleValueChange(ev device.Event) {
	key := device.UUIDKey(ev.Characteristic)
	g, ok := c.subscriptions.Get(key)
	if !ok || g.status != subscribed {
		return
	}

	// If all calls were canceled, abandon the subscription
	g.clearCanceled()
	if !g.hasAnySubscriber() {
		c.startUnsubscribing(g)
		return
	}

	resp := newResponse(g.response)
	if resp != nil {
		if err := c.codec.Decode(ev.Value, resp); err != nil {
			c.failAllSubscribers(g, err)
			c.startUnsubscribing(g)
			return
		}
	}
	for _, rc := range g.subscribers() {
		c.notifyResult(rc, cloneResponse(resp))
	}
}

// ----------------------------
// Dispatch loop
// ----------------------------

func (c *Channel) finishCall() *call {
	c.callInProgress = false
	return c.popCall()
}

func (c *Channel) popCall() *call {
	rc := c.calls[0]
	c.calls[0] = nil
	c.calls = c.calls[1:]
	return rc
}

func (c *Channel) startNextCallIfNotInProgress() {
	if c.callInProgress {
		return
	}
	c.startNextCall()
}

func (c *Channel) startNextCall() {
	for len(c.calls) > 0 && c.status == connected {
		rc := c.calls[0]

		if !rc.unsubscribe {
			if c.skipFailedCall(rc) || c.skipCanceledCall(rc) {
				c.popCall()
				continue
			}
			skip, wait := c.skipSubscriptionNotNeeded(rc)
			if wait {
				return
			}
			if skip {
				c.popCall()
				continue
			}
			if err := c.validate(rc); err != nil {
				c.popCall()
				c.dropSubscriber(rc)
				c.notifyCallFailed(rc, err)
				continue
			}
		}

		var started bool
		switch {
		case rc.unsubscribe:
			started = c.startUnsubscribeCall(rc)
		case rc.kind() == MethodSubscribe:
			started = c.startSubscribeCall(rc)
		default:
			started = c.startReadWriteCall(rc)
		}
		if started {
			return
		}
	}
}

func (c *Channel) skipFailedCall(rc *call) bool {
	if !rc.ctrl.Failed() {
		return false
	}
	if rc.kind() != MethodSubscribe {
		c.logger.WithField("call", rc).Warn("Non-subscribe call found failed while queued")
	}
	return true
}

func (c *Channel) skipCanceledCall(rc *call) bool {
	if !rc.ctrl.IsCanceled() {
		return false
	}
	if rc.kind() != MethodSubscribe {
		c.notifyDefaultResult(rc)
	}
	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"call":    rc,
	}).Debug("Skipping canceled call")
	return true
}

// skipSubscriptionNotNeeded reports whether a subscribe call at the head of
// the queue needs no GATT operation, or whether the loop must wait for an
// in-flight transition of its subscription.
func (c *Channel) skipSubscriptionNotNeeded(rc *call) (skip, wait bool) {
	if rc.kind() != MethodSubscribe {
		return false, false
	}

	g := c.groupFor(rc)
	if !g.has(rc) {
		g.add(rc)
	}
	switch g.status {
	case subscribed:
		c.notifySubscribed(rc)
		return true, false
	case subscribing, unsubscribing:
		return false, true
	}

	g.clearCanceled()
	return !g.hasAnySubscriber(), false
}

func (c *Channel) validate(rc *call) error {
	var access device.Access
	var descriptor = rc.descriptor
	switch rc.kind() {
	case MethodRead:
		access = device.AccessRead
		descriptor = nil
	case MethodWrite:
		access = device.AccessWrite
		descriptor = nil
	case MethodSubscribe:
		access = device.AccessNotify
	}
	return c.gatt.Validate(rc.service, rc.characteristic, descriptor, access)
}

// dropSubscriber removes a subscribe call that will never be dispatched from
// its group, and the group itself when it is left idle and empty.
func (c *Channel) dropSubscriber(rc *call) {
	if rc.kind() != MethodSubscribe {
		return
	}
	g, ok := c.subscriptions.Get(rc.key())
	if !ok {
		return
	}
	g.remove(rc)
	if !g.hasAnySubscriber() && g.status == unsubscribed {
		c.subscriptions.Delete(rc.key())
	}
}

func (c *Channel) startReadWriteCall(rc *call) bool {
	var err error
	switch rc.kind() {
	case MethodRead:
		c.callInProgress = true
		err = c.gatt.Read(rc.service, rc.characteristic)
		if err != nil {
			err = apiError(fmt.Sprintf("read characteristic %s", rc.key()), err)
		}
	case MethodWrite:
		var value []byte
		value, err = c.codec.Encode(rc.request)
		if err != nil {
			break
		}
		c.callInProgress = true
		err = c.gatt.Write(rc.service, rc.characteristic, value)
		if err != nil {
			err = apiError(fmt.Sprintf("write characteristic %s", rc.key()), err)
		}
	}
	if err != nil {
		c.popCall()
		c.callInProgress = false
		c.notifyCallFailed(rc, err)
		return false
	}

	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"call":    rc,
	}).Debug("Call started")
	return true
}

func (c *Channel) startSubscribeCall(rc *call) bool {
	g := c.groupFor(rc)
	c.callInProgress = true
	g.status = subscribing

	err := c.gatt.SetNotification(rc.service, rc.characteristic, true)
	if err != nil {
		err = apiError(fmt.Sprintf("enable notification for characteristic %s in service %s", rc.key(), device.UUIDKey(rc.service)), err)
	} else if err = c.gatt.WriteDescriptor(rc.service, rc.characteristic, rc.descriptor, device.EnableNotificationValue); err != nil {
		err = apiError(fmt.Sprintf("write the descriptor %s in characteristic %s", device.UUIDKey(rc.descriptor), rc.key()), err)
	}
	if err != nil {
		c.popCall()
		g.status = unsubscribed
		c.callInProgress = false
		c.failAllSubscribersAndClear(g, err)
		return false
	}

	c.logger.WithFields(logrus.Fields{
		"address":        c.address,
		"characteristic": rc.key(),
	}).Debug("Subscribing")
	return true
}

func (c *Channel) startUnsubscribeCall(rc *call) bool {
	g, ok := c.subscriptions.Get(rc.key())
	if !ok || g.status != unsubscribing {
		c.logger.WithField("call", rc).Error("Dropping unsubscribe call without an unsubscribing group")
		c.popCall()
		return false
	}

	c.callInProgress = true
	if err := c.gatt.WriteDescriptor(rc.service, rc.characteristic, rc.descriptor, device.DisableNotificationValue); err != nil {
		c.failAllAndReset(apiError(fmt.Sprintf("unsubscribe from characteristic %s, descriptor %s", rc.key(), device.UUIDKey(rc.descriptor)), err))
	}
	return true
}

func (c *Channel) startUnsubscribing(g *subscriptionGroup) {
	g.status = unsubscribing
	c.calls = append(c.calls, newUnsubscribeCall(g))
	c.logger.WithFields(logrus.Fields{
		"address":        c.address,
		"characteristic": device.UUIDKey(g.characteristic),
	}).Debug("Unsubscribing")
	c.startNextCallIfNotInProgress()
}

// ----------------------------
// Failure and reset
// ----------------------------

func (c *Channel) failAllSubscribers(g *subscriptionGroup, err error) {
	for _, rc := range g.subscribers() {
		c.notifyCallFailed(rc, err)
	}
	g.clear()
}

func (c *Channel) failAllSubscribersAndClear(g *subscriptionGroup, err error) {
	c.failAllSubscribers(g, err)
	c.subscriptions.Delete(device.UUIDKey(g.characteristic))
}

func (c *Channel) failAllAndReset(err error) {
	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"pending": len(c.calls),
		"reason":  err,
	}).Warn("Failing all calls and resetting channel")

	queued := make(map[*call]struct{}, len(c.calls))
	for _, rc := range c.calls {
		queued[rc] = struct{}{}
		if rc.unsubscribe || rc.ctrl.Failed() {
			continue
		}
		c.notifyCallFailed(rc, err)
	}
	for pair := c.subscriptions.Oldest(); pair != nil; pair = pair.Next() {
		for _, rc := range pair.Value.subscribers() {
			if _, ok := queued[rc]; ok {
				continue
			}
			c.notifyCallFailed(rc, err)
		}
	}
	c.reset()
}

func (c *Channel) reset() {
	c.status = disconnected
	c.callInProgress = false
	c.calls = nil
	c.subscriptions = orderedmap.New[string, *subscriptionGroup]()
	if c.gatt != nil {
		if err := c.gatt.Close(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"address": c.address,
				"error":   err,
			}).Warn("Failed to close GATT connection")
		}
		c.gatt = nil
	}
}

func apiError(op string, err error) error {
	var apiErr *device.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &device.APIError{Op: op, Err: err}
}

// ----------------------------
// Listener delivery
// ----------------------------

func (c *Channel) notifyCallFailed(rc *call, err error) {
	if rc.unsubscribe {
		return
	}
	rc.ctrl.SetFailed(err.Error())
	c.logger.WithFields(logrus.Fields{
		"address": c.address,
		"call":    rc,
		"error":   err,
	}).Warn("Call failed")
	c.callback(rc, newResponse(rc.response))
}

func (c *Channel) notifyDefaultResult(rc *call) {
	c.callback(rc, newResponse(rc.response))
}

func (c *Channel) notifyResult(rc *call, msg any) {
	c.callback(rc, msg)
}

func (c *Channel) notifySubscribed(rc *call) {
	c.listener.Post(rc.ctrl.subscribeSucceeded)
}

// callback delivers msg regardless of cancellation; a call canceled after
// the check that produced msg still receives it.
func (c *Channel) callback(rc *call, msg any) {
	if rc.done == nil {
		return
	}
	done := rc.done
	c.listener.Post(func() { done(msg) })
}
