package rpc

import (
	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type subscriptionStatus int

const (
	unsubscribed subscriptionStatus = iota
	subscribing
	subscribed
	unsubscribing
)

func (s subscriptionStatus) String() string {
	switch s {
	case subscribing:
		return "subscribing"
	case subscribed:
		return "subscribed"
	case unsubscribing:
		return "unsubscribing"
	default:
		return "unsubscribed"
	}
}

// subscriptionGroup is the set of subscribe calls sharing one GATT
// subscription on a characteristic. Subscribers are kept in arrival order.
type subscriptionGroup struct {
	service        ble.UUID
	characteristic ble.UUID
	descriptor     ble.UUID
	method         *Method
	response       any

	status subscriptionStatus
	calls  *orderedmap.OrderedMap[*call, struct{}]
}

func newSubscriptionGroup(c *call) *subscriptionGroup {
	return &subscriptionGroup{
		service:        c.service,
		characteristic: c.characteristic,
		descriptor:     c.descriptor,
		method:         c.method,
		response:       c.response,
		status:         unsubscribed,
		calls:          orderedmap.New[*call, struct{}](),
	}
}

func (g *subscriptionGroup) add(c *call) {
	g.calls.Set(c, struct{}{})
}

func (g *subscriptionGroup) remove(c *call) {
	g.calls.Delete(c)
}

func (g *subscriptionGroup) has(c *call) bool {
	_, ok := g.calls.Get(c)
	return ok
}

func (g *subscriptionGroup) hasAnySubscriber() bool {
	return g.calls.Len() > 0
}

func (g *subscriptionGroup) subscribers() []*call {
	out := make([]*call, 0, g.calls.Len())
	for pair := g.calls.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// clearCanceled drops canceled subscribers and returns how many were removed
func (g *subscriptionGroup) clearCanceled() int {
	removed := 0
	for _, c := range g.subscribers() {
		if c.ctrl.IsCanceled() {
			g.calls.Delete(c)
			removed++
		}
	}
	return removed
}

func (g *subscriptionGroup) clear() {
	g.calls = orderedmap.New[*call, struct{}]()
}
