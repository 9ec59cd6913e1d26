package rpc

import (
	"reflect"

	"github.com/go-ble/ble"
	"github.com/srg/blerpc/pkg/device"
)

// call is one queued unit of work: a user call, or a synthetic unsubscribe
// call that carries only the attribute identity.
type call struct {
	method   *Method
	ctrl     *Controller
	request  any
	response any
	done     func(any)

	unsubscribe    bool
	service        ble.UUID
	characteristic ble.UUID
	descriptor     ble.UUID
}

func newCall(method *Method, ctrl *Controller, request, response any, done func(any)) *call {
	c := &call{
		method:   method,
		ctrl:     ctrl,
		request:  request,
		response: response,
		done:     done,
	}
	if method != nil {
		c.service = method.Service
		c.characteristic = method.Characteristic
		c.descriptor = method.descriptor()
	}
	return c
}

func newUnsubscribeCall(g *subscriptionGroup) *call {
	return &call{
		unsubscribe:    true,
		service:        g.service,
		characteristic: g.characteristic,
		descriptor:     g.descriptor,
	}
}

func (c *call) kind() MethodType {
	if c.unsubscribe {
		return MethodSubscribe
	}
	if c.method == nil {
		return MethodUnknown
	}
	return c.method.Type
}

func (c *call) key() string {
	return device.UUIDKey(c.characteristic)
}

func (c *call) String() string {
	if c.unsubscribe {
		return "unsubscribe " + device.UUIDKey(c.characteristic)
	}
	return c.method.String()
}

// newResponse allocates a zero message of the prototype's type and returns a
// pointer to it. A nil prototype yields nil.
func newResponse(prototype any) any {
	t := reflect.TypeOf(prototype)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// cloneResponse returns a shallow copy of a message produced by newResponse
func cloneResponse(msg any) any {
	v := reflect.ValueOf(msg)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return msg
	}
	out := reflect.New(v.Elem().Type())
	out.Elem().Set(v.Elem())
	return out.Interface()
}
