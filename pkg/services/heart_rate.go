package services

import (
	"context"

	"github.com/srg/blerpc/pkg/rpc"
)

// Heart Rate Service UUIDs
const (
	HeartRateServiceUUID     = "180D"
	HeartRateMeasurementUUID = "2A37"
)

// Heart Rate Measurement flag bits
const (
	HeartRateFormat16Bit     uint8 = 1 << 0
	HeartRateContactDetected uint8 = 1 << 1
	HeartRateContactSupport  uint8 = 1 << 2
	HeartRateEnergyExpended  uint8 = 1 << 3
	HeartRateRRInterval      uint8 = 1 << 4
)

// HeartRateMeasurement is the compact measurement: flags and an 8-bit rate.
// Sensors sending 16-bit rates, energy or RR fields produce longer values
// that fail to decode.
type HeartRateMeasurement struct {
	_     struct{} `wire:"size=2"`
	Flags uint8    `wire:"0:1"`
	BPM   uint8    `wire:"1:2"`
}

// ContactDetected reports whether the sensor reports skin contact
func (m *HeartRateMeasurement) ContactDetected() bool {
	return m.Flags&HeartRateContactSupport != 0 && m.Flags&HeartRateContactDetected != 0
}

var HeartRateSubscribeMeasurement = rpc.MustMethod("HeartRate.SubscribeMeasurement", rpc.MethodSubscribe, HeartRateServiceUUID, HeartRateMeasurementUUID, "")

// HeartRateClient calls the Heart Rate Service of one device
type HeartRateClient struct {
	ch *rpc.Channel
}

// NewHeartRateClient creates a client over ch
func NewHeartRateClient(ch *rpc.Channel) *HeartRateClient {
	return &HeartRateClient{ch: ch}
}

// SubscribeMeasurement streams heart rate measurements to onUpdate
func (c *HeartRateClient) SubscribeMeasurement(ctx context.Context, onUpdate func(*HeartRateMeasurement)) *rpc.Subscription {
	return rpc.Subscribe(ctx, c.ch, HeartRateSubscribeMeasurement, Empty{}, onUpdate)
}
