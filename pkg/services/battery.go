package services

import (
	"context"

	"github.com/srg/blerpc/pkg/rpc"
)

// Battery Service UUIDs
const (
	BatteryServiceUUID = "180F"
	BatteryLevelUUID   = "2A19"
)

// BatteryLevel is the remaining charge in percent
type BatteryLevel struct {
	_       struct{} `wire:"size=1"`
	Percent uint8    `wire:"0:1"`
}

var (
	BatteryReadLevel      = rpc.MustMethod("Battery.ReadLevel", rpc.MethodRead, BatteryServiceUUID, BatteryLevelUUID, "")
	BatterySubscribeLevel = rpc.MustMethod("Battery.SubscribeLevel", rpc.MethodSubscribe, BatteryServiceUUID, BatteryLevelUUID, "")
)

// BatteryClient calls the Battery Service of one device
type BatteryClient struct {
	ch *rpc.Channel
}

// NewBatteryClient creates a client over ch
func NewBatteryClient(ch *rpc.Channel) *BatteryClient {
	return &BatteryClient{ch: ch}
}

// ReadLevel reads the current battery level
func (c *BatteryClient) ReadLevel(ctx context.Context) (*BatteryLevel, error) {
	return rpc.Call[BatteryLevel](ctx, c.ch, BatteryReadLevel, Empty{})
}

// SubscribeLevel streams battery level changes to onUpdate
func (c *BatteryClient) SubscribeLevel(ctx context.Context, onUpdate func(*BatteryLevel)) *rpc.Subscription {
	return rpc.Subscribe(ctx, c.ch, BatterySubscribeLevel, Empty{}, onUpdate)
}
