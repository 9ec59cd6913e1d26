package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/rpc"
	"github.com/srg/blerpc/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestFormatHeartRate(t *testing.T) {
	tests := []struct {
		name     string
		m        services.HeartRateMeasurement
		expected string
	}{
		{name: "plain", m: services.HeartRateMeasurement{BPM: 60}, expected: "60 bpm"},
		{
			name:     "contact",
			m:        services.HeartRateMeasurement{Flags: services.HeartRateContactSupport | services.HeartRateContactDetected, BPM: 72},
			expected: "72 bpm (contact)",
		},
		{
			name:     "no contact",
			m:        services.HeartRateMeasurement{Flags: services.HeartRateContactSupport, BPM: 0},
			expected: "0 bpm (no contact)",
		},
		{
			name:     "16 bit",
			m:        services.HeartRateMeasurement{Flags: services.HeartRateFormat16Bit, BPM: 1},
			expected: "1 bpm (16-bit value truncated)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatHeartRate(tt.m))
		})
	}
}

func TestPrintBatteryLevel(t *testing.T) {
	disableColor(t)

	var out bytes.Buffer
	printBatteryLevel(&out, services.BatteryLevel{Percent: 42})
	assert.Equal(t, "Battery level: 42%\n", out.String())
}

func TestPrintMethods(t *testing.T) {
	disableColor(t)

	var out bytes.Buffer
	require.NoError(t, printMethods(&out, services.All()))

	text := out.String()
	for _, m := range services.All() {
		assert.Contains(t, text, m.Name)
	}
	assert.Contains(t, text, "SUBSCRIBE")
	assert.Contains(t, text, "2 bytes", "heart rate measurement size MUST be listed")
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "nil", err: nil, contains: ""},
		{name: "timeout", err: fmt.Errorf("read: %w", context.DeadlineExceeded), contains: "raise --timeout"},
		{name: "bluetooth off", err: &rpc.CallError{Msg: device.ErrBluetoothOff.Error()}, contains: "turn Bluetooth on"},
		{name: "closed", err: rpc.ErrChannelClosed, contains: "connection was shut down"},
		{name: "missing service", err: &rpc.CallError{Msg: "device does not have service 180f"}, contains: "does not implement"},
		{name: "other", err: assert.AnError, contains: assert.AnError.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatUserError(tt.err), tt.contains)
		})
	}
}
