package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/internal/groutine"
	"github.com/srg/blerpc/pkg/device"
)

// DefaultConnectTimeout bounds dialing when no timeout is configured
const DefaultConnectTimeout = 10 * time.Second

// ----------------------------
// Device Factory
// ----------------------------

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking as goble.DeviceFactory
var DeviceFactory = newPlatformDevice

// gattClient is the part of ble.Client the driver relies on
type gattClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	WriteDescriptor(d *ble.Descriptor, value []byte) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

var (
	defaultDeviceMu sync.Mutex
	defaultDevice   ble.Device
)

// dial opens a client connection to address. The host device is created
// once and shared by every connection.
var dial = func(ctx context.Context, address string) (gattClient, error) {
	defaultDeviceMu.Lock()
	if defaultDevice == nil {
		dev, err := DeviceFactory()
		if err != nil {
			defaultDeviceMu.Unlock()
			return nil, fmt.Errorf("failed to create BLE device: %w", err)
		}
		ble.SetDefaultDevice(dev)
		defaultDevice = dev
	}
	defaultDeviceMu.Unlock()

	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ----------------------------
// Driver
// ----------------------------

// Driver opens go-ble connections and adapts them to device.Gatt.
// Every blocking go-ble call runs on its own goroutine and reports its
// outcome as a device.Event.
type Driver struct {
	logger         *logrus.Logger
	connectTimeout time.Duration
}

// NewDriver creates a driver. A zero timeout selects DefaultConnectTimeout.
func NewDriver(logger *logrus.Logger, connectTimeout time.Duration) *Driver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Driver{logger: logger, connectTimeout: connectTimeout}
}

// Connect implements device.Driver. The connection is dialed in the
// background; its outcome arrives as a ConnectionStateChanged event.
func (d *Driver) Connect(address string, handler device.Handler) (device.Gatt, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("event handler is required")
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	g := &Gatt{
		address: address,
		logger:  d.logger,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		routes:  make(map[string]bool),
	}

	groutine.Go(ctx, "ble-dial-"+address, func(ctx context.Context) {
		g.dial(ctx, d.connectTimeout)
	})
	return g, nil
}
