package goble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/srg/blerpc/pkg/device"
)

// errorPatterns maps go-ble error text to connection failures. go-ble only
// reports these conditions as strings, and the first matching pattern wins.
var errorPatterns = []struct {
	substr   string
	sentinel error
}{
	{"is bluetooth turned on?", device.ErrBluetoothOff},
	{"bluetooth is turned off", device.ErrBluetoothOff},
	{"device already connected", device.ErrAlreadyConnected},
	{"device not connected", device.ErrNotConnected},
	{"disconnected", device.ErrNotConnected},
}

// NormalizeError wraps err with the matching device.ConnectionError sentinel,
// keeping the original text. Errors that already carry a ConnectionError, or
// match no pattern, are returned unchanged.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *device.ConnectionError
	if errors.As(err, &cerr) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(msg, p.substr) {
			return fmt.Errorf("%w: %v", p.sentinel, err)
		}
	}
	return err
}
