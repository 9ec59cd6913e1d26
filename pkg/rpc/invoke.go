package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Invoke submits a call whose responses are of type Resp. done receives a
// non-nil *Resp for every delivery.
func Invoke[Resp any](ch *Channel, method *Method, ctrl *Controller, request any, done func(*Resp)) {
	var prototype Resp
	ch.CallMethod(method, ctrl, request, &prototype, func(msg any) {
		resp, _ := msg.(*Resp)
		if resp == nil {
			resp = new(Resp)
		}
		if done != nil {
			done(resp)
		}
	})
}

// Call performs a READ or WRITE call and waits for its response.
// Canceling ctx cancels the call.
func Call[Resp any](ctx context.Context, ch *Channel, method *Method, request any) (*Resp, error) {
	if method != nil && method.Type == MethodSubscribe {
		return nil, fmt.Errorf("method %s is a subscription, use Subscribe", method)
	}

	ctrl := NewController()
	stop := context.AfterFunc(ctx, ctrl.Cancel)
	defer stop()

	result := make(chan *Resp, 1)
	Invoke(ch, method, ctrl, request, func(resp *Resp) {
		result <- resp
	})

	select {
	case resp := <-result:
		if err := ctrl.Err(); err != nil {
			return nil, withMethod(err, method)
		}
		if ctrl.IsCanceled() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, context.Canceled
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscription is a live SUBSCRIBE call started by Subscribe
type Subscription struct {
	ctrl *Controller
	stop func() bool

	once sync.Once
	done chan struct{}
	err  error
}

// Subscribe starts a SUBSCRIBE call and passes every notification to
// onUpdate, on the channel's listener executor, until ctx is done, Cancel is
// called or the subscription fails. The subscription is torn down on the
// device when the next notification arrives with no subscriber left.
func Subscribe[Resp any](ctx context.Context, ch *Channel, method *Method, request any, onUpdate func(*Resp)) *Subscription {
	s := &Subscription{
		ctrl: NewController(),
		done: make(chan struct{}),
	}
	s.stop = context.AfterFunc(ctx, func() {
		s.finish(context.Cause(ctx))
		s.ctrl.Cancel()
	})

	Invoke(ch, method, s.ctrl, request, func(resp *Resp) {
		if s.ctrl.Failed() {
			s.finish(withMethod(s.ctrl.Err(), method))
			return
		}
		if s.ctrl.IsCanceled() {
			return
		}
		if onUpdate != nil {
			onUpdate(resp)
		}
	})
	return s
}

// Controller returns the controller of the underlying call
func (s *Subscription) Controller() *Controller {
	return s.ctrl
}

// Cancel ends the subscription
func (s *Subscription) Cancel() {
	s.stop()
	s.finish(context.Canceled)
	s.ctrl.Cancel()
}

// Done is closed when the subscription has ended
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns why the subscription ended, or nil while it is live
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

func withMethod(err error, method *Method) error {
	var callErr *CallError
	if errors.As(err, &callErr) && callErr.Method == "" && method != nil {
		return &CallError{Method: method.String(), Msg: callErr.Msg}
	}
	return err
}
