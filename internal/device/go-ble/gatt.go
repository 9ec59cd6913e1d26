package goble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/internal/groutine"
	"github.com/srg/blerpc/pkg/device"
)

var errNotInitialized = &device.ConnectionError{Failure: device.NotConnected, Msg: "connection is not initialized"}

// Gatt is one go-ble connection seen through device.Gatt
type Gatt struct {
	address string
	logger  *logrus.Logger
	handler device.Handler

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	client  gattClient
	profile *ble.Profile
	routes  map[string]bool // characteristic -> notifications forwarded
}

func (g *Gatt) dial(ctx context.Context, timeout time.Duration) {
	g.logger.WithFields(logrus.Fields{
		"address": g.address,
		"timeout": timeout,
	}).Debug("Dialing BLE device...")

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := dial(dialCtx, g.address)
	if err != nil {
		err = NormalizeError(err)
		g.logger.WithFields(logrus.Fields{
			"address": g.address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		g.emit(device.Event{
			Kind:   device.ConnectionStateChanged,
			State:  device.StateDisconnected,
			Status: device.StatusFailure,
			Err:    fmt.Errorf("failed to connect to device with address %q: %w", g.address, err),
		})
		return
	}

	g.mu.Lock()
	if g.ctx.Err() != nil {
		g.mu.Unlock()
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			g.logger.WithField("error", cancelErr).Warn("Failed to cancel connection dialed after close")
		}
		return
	}
	g.client = client
	g.mu.Unlock()

	groutine.Go(g.ctx, "ble-connection-monitor-"+g.address, func(ctx context.Context) {
		select {
		case <-client.Disconnected():
			g.logger.WithField("address", g.address).Warn("BLE device reported disconnection")
			g.emit(device.Event{
				Kind:   device.ConnectionStateChanged,
				State:  device.StateDisconnected,
				Status: device.StatusFailure,
				Err:    device.ErrNotConnected,
			})
		case <-ctx.Done():
		}
	})

	g.emit(device.Event{
		Kind:   device.ConnectionStateChanged,
		State:  device.StateConnected,
		Status: device.StatusSuccess,
	})
}

// emit delivers ev unless the connection was closed
func (g *Gatt) emit(ev device.Event) {
	if g.ctx.Err() != nil {
		return
	}
	g.handler(ev)
}

func (g *Gatt) connectedClient() (gattClient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil {
		return nil, device.ErrNotConnected
	}
	if g.client == nil {
		return nil, errNotInitialized
	}
	return g.client, nil
}

// async runs op on its own goroutine
func (g *Gatt) async(name string, op func()) {
	groutine.Go(g.ctx, name+"-"+g.address, func(context.Context) {
		op()
	})
}

func status(err error) device.Status {
	if err != nil {
		return device.StatusFailure
	}
	return device.StatusSuccess
}

// DiscoverServices implements device.Gatt
func (g *Gatt) DiscoverServices() error {
	client, err := g.connectedClient()
	if err != nil {
		return err
	}

	g.async("ble-discover", func() {
		profile, err := client.DiscoverProfile(true)
		err = NormalizeError(err)
		if err == nil {
			g.mu.Lock()
			g.profile = profile
			g.mu.Unlock()
			g.logProfile(profile)
		} else {
			g.logger.WithFields(logrus.Fields{
				"address": g.address,
				"error":   err,
			}).Error("Failed to discover profile")
		}
		g.emit(device.Event{Kind: device.ServicesDiscovered, Status: status(err), Err: err})
	})
	return nil
}

func (g *Gatt) logProfile(p *ble.Profile) {
	if !g.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	for _, svc := range p.Services {
		for _, c := range svc.Characteristics {
			g.logger.WithFields(logrus.Fields{
				"service_uuid": device.UUIDKey(svc.UUID),
				"char_uuid":    device.UUIDKey(c.UUID),
				"properties":   PropertyNames(c.Property),
				"descriptors":  len(c.Descriptors),
			}).Debug("Found characteristic")
		}
	}
}

// Validate implements device.Gatt
func (g *Gatt) Validate(service, characteristic, descriptor ble.UUID, access device.Access) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return device.ValidateProfile(g.profile, service, characteristic, descriptor, access)
}

func (g *Gatt) characteristic(service, characteristic ble.UUID) (gattClient, *ble.Characteristic, error) {
	client, err := g.connectedClient()
	if err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := device.FindCharacteristic(g.profile, service, characteristic)
	if err != nil {
		return nil, nil, err
	}
	return client, c, nil
}

// Read implements device.Gatt
func (g *Gatt) Read(service, characteristic ble.UUID) error {
	client, c, err := g.characteristic(service, characteristic)
	if err != nil {
		return err
	}

	g.async("ble-read", func() {
		data, err := client.ReadCharacteristic(c)
		err = NormalizeError(err)
		g.emit(device.Event{
			Kind:           device.CharacteristicRead,
			Status:         status(err),
			Service:        service,
			Characteristic: characteristic,
			Value:          data,
			Err:            err,
		})
	})
	return nil
}

// Write implements device.Gatt
func (g *Gatt) Write(service, characteristic ble.UUID, value []byte) error {
	client, c, err := g.characteristic(service, characteristic)
	if err != nil {
		return err
	}

	data := bytes.Clone(value)
	noRsp := writeWithoutResponse(c)
	g.async("ble-write", func() {
		err := NormalizeError(client.WriteCharacteristic(c, data, noRsp))
		g.emit(device.Event{
			Kind:           device.CharacteristicWrite,
			Status:         status(err),
			Service:        service,
			Characteristic: characteristic,
			Err:            err,
		})
	})
	return nil
}

// SetNotification implements device.Gatt. It only controls whether values
// received for the characteristic are forwarded; the device is configured
// through the descriptor write.
func (g *Gatt) SetNotification(service, characteristic ble.UUID, enabled bool) error {
	if _, _, err := g.characteristic(service, characteristic); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if enabled {
		g.routes[device.UUIDKey(characteristic)] = true
	} else {
		delete(g.routes, device.UUIDKey(characteristic))
	}
	return nil
}

func (g *Gatt) routed(characteristic ble.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.routes[device.UUIDKey(characteristic)]
}

// WriteDescriptor implements device.Gatt. Writes of the notification
// enable and disable values to the Client Characteristic Configuration
// descriptor go through go-ble's Subscribe and Unsubscribe, which own that
// descriptor.
func (g *Gatt) WriteDescriptor(service, characteristic, descriptor ble.UUID, value []byte) error {
	client, c, err := g.characteristic(service, characteristic)
	if err != nil {
		return err
	}
	data := bytes.Clone(value)

	var op func() error
	switch {
	case device.SameUUID(descriptor, device.ClientCharacteristicConfig) && bytes.Equal(data, device.EnableNotificationValue):
		op = func() error {
			return client.Subscribe(c, indicateOnly(c), func(payload []byte) {
				g.onNotification(service, characteristic, payload)
			})
		}
	case device.SameUUID(descriptor, device.ClientCharacteristicConfig) && bytes.Equal(data, device.DisableNotificationValue):
		op = func() error {
			return client.Unsubscribe(c, indicateOnly(c))
		}
	default:
		d := device.FindDescriptor(c, descriptor)
		if d == nil {
			return &device.ValidationError{
				Reason:         device.DescriptorNotFound,
				Service:        device.UUIDKey(service),
				Characteristic: device.UUIDKey(characteristic),
				Descriptor:     device.UUIDKey(descriptor),
			}
		}
		op = func() error {
			return client.WriteDescriptor(d, data)
		}
	}

	g.async("ble-write-descriptor", func() {
		err := NormalizeError(op())
		g.emit(device.Event{
			Kind:           device.DescriptorWrite,
			Status:         status(err),
			Service:        service,
			Characteristic: characteristic,
			Descriptor:     descriptor,
			Value:          data,
			Err:            err,
		})
	})
	return nil
}

func (g *Gatt) onNotification(service, characteristic ble.UUID, payload []byte) {
	if !g.routed(characteristic) {
		return
	}
	g.emit(device.Event{
		Kind:           device.CharacteristicChanged,
		Status:         device.StatusSuccess,
		Service:        service,
		Characteristic: characteristic,
		Value:          bytes.Clone(payload),
	})
}

// Close implements device.Gatt. No events are delivered after Close.
func (g *Gatt) Close() error {
	g.mu.Lock()
	if g.ctx.Err() != nil {
		g.mu.Unlock()
		return nil
	}
	g.cancel(errors.New("connection closed"))
	client := g.client
	g.client = nil
	g.routes = make(map[string]bool)
	g.mu.Unlock()

	if client == nil {
		return nil
	}
	g.logger.WithField("address", g.address).Info("Disconnecting BLE device...")
	if err := NormalizeError(client.CancelConnection()); err != nil {
		g.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return err
	}
	g.logger.WithField("address", g.address).Info("BLE device disconnected successfully")
	return nil
}
