package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/srg/blerpc/pkg/rpc"
)

// Immediate Alert Service UUIDs
const (
	ImmediateAlertServiceUUID = "1802"
	AlertLevelUUID            = "2A06"
)

// AlertLevel is the alert a device should raise
type AlertLevel uint8

const (
	AlertNone AlertLevel = iota
	AlertMild
	AlertHigh
)

var alertLevelNames = map[AlertLevel]string{
	AlertNone: "none",
	AlertMild: "mild",
	AlertHigh: "high",
}

// Defined implements wire.Enum
func (l AlertLevel) Defined() bool {
	return l <= AlertHigh
}

func (l AlertLevel) String() string {
	if name, ok := alertLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("AlertLevel(%d)", uint8(l))
}

// ParseAlertLevel parses "none", "mild" or "high"
func ParseAlertLevel(s string) (AlertLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range alertLevelNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown alert level %q, want none, mild or high", s)
}

// Alert is the Alert Level characteristic value
type Alert struct {
	_     struct{}   `wire:"size=1"`
	Level AlertLevel `wire:"0:1"`
}

var ImmediateAlertSetLevel = rpc.MustMethod("ImmediateAlert.SetLevel", rpc.MethodWrite, ImmediateAlertServiceUUID, AlertLevelUUID, "")

// ImmediateAlertClient calls the Immediate Alert Service of one device
type ImmediateAlertClient struct {
	ch *rpc.Channel
}

// NewImmediateAlertClient creates a client over ch
func NewImmediateAlertClient(ch *rpc.Channel) *ImmediateAlertClient {
	return &ImmediateAlertClient{ch: ch}
}

// SetLevel asks the device to raise the given alert
func (c *ImmediateAlertClient) SetLevel(ctx context.Context, level AlertLevel) error {
	_, err := rpc.Call[Empty](ctx, c.ch, ImmediateAlertSetLevel, Alert{Level: level})
	return err
}
