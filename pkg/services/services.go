package services

import (
	"github.com/srg/blerpc/pkg/rpc"
)

// Empty is the request and response of calls that carry no payload
type Empty struct{}

// All lists every method declared by this package, grouped by service
func All() []*rpc.Method {
	return []*rpc.Method{
		BatteryReadLevel,
		BatterySubscribeLevel,
		HeartRateSubscribeMeasurement,
		ImmediateAlertSetLevel,
	}
}
