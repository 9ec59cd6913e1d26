package devicefactory

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/internal/device/go-ble"
	"github.com/srg/blerpc/pkg/device"
)

// DriverFactory creates the device.Driver RPC channels connect through.
// This is a variable so that it can be overridden in tests.
var DriverFactory = func(logger *logrus.Logger, connectTimeout time.Duration) device.Driver {
	return goble.NewDriver(logger, connectTimeout)
}

// NewDriver creates the platform BLE driver.
// This is the primary constructor for creating drivers.
func NewDriver(logger *logrus.Logger, connectTimeout time.Duration) device.Driver {
	return DriverFactory(logger, connectTimeout)
}
