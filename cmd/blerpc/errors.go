package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/rpc"
)

// Command-level errors
var (
	// ErrSubscriptionEnded indicates a stream stopped without the user asking for it
	ErrSubscriptionEnded = errors.New("subscription ended")
)

// FormatUserError turns err into a one-line message with a hint where one helps
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s (device did not respond in time; check it is powered and in range, or raise --timeout)", msg)
	case errors.Is(err, device.ErrBluetoothOff), strings.Contains(msg, string(device.BluetoothOff)):
		return fmt.Sprintf("%s (turn Bluetooth on and retry)", msg)
	case errors.Is(err, rpc.ErrChannelClosed):
		return fmt.Sprintf("%s (connection was shut down)", msg)
	case strings.Contains(msg, string(device.ServiceNotFound)),
		strings.Contains(msg, "does not have service"),
		strings.Contains(msg, "does not have characteristic"):
		return fmt.Sprintf("%s (device does not implement this method)", msg)
	}
	return msg
}
