package testutils

import (
	"bytes"
	"fmt"
	"sync"

	blelib "github.com/go-ble/ble"
	"github.com/srg/blerpc/pkg/device"
)

// Operation kinds recorded by FakeGatt
const (
	OpDiscover        = "discover"
	OpRead            = "read"
	OpWrite           = "write"
	OpSetNotification = "set_notification"
	OpWriteDescriptor = "write_descriptor"
	OpClose           = "close"
)

// Op is one request a FakeGatt received
type Op struct {
	Kind           string
	Service        string
	Characteristic string
	Descriptor     string
	Value          []byte
	Enabled        bool
}

// FakeDriver is a scripted device.Driver. Each Connect returns a new
// FakeGatt over the configured profile; tests drive completions by emitting
// events on it.
type FakeDriver struct {
	mu         sync.Mutex
	profile    *blelib.Profile
	connectErr error
	failures   map[string]error
	gatts      []*FakeGatt
	addresses  []string
	auto       bool
	values     map[string][]byte
}

// NewFakeDriver creates a driver whose devices expose profile
func NewFakeDriver(profile *blelib.Profile) *FakeDriver {
	return &FakeDriver{
		profile:  profile,
		failures: make(map[string]error),
		values:   make(map[string][]byte),
	}
}

// WithAutoRespond makes every connection behave like a live peripheral:
// it connects, discovers and completes requests on its own. Reads return the
// last written value or the profile value.
func (d *FakeDriver) WithAutoRespond() *FakeDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.auto = true
	return d
}

func (d *FakeDriver) autoRespond() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.auto
}

func valueKey(service, characteristic string) string {
	return service + "/" + characteristic
}

// SetValue sets what auto-responded reads of the characteristic return
func (d *FakeDriver) SetValue(service, characteristic string, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[valueKey(device.NormalizeUUID(service), device.NormalizeUUID(characteristic))] = bytes.Clone(value)
}

// value returns the stored or profile value of a characteristic
func (d *FakeDriver) value(service, characteristic string) []byte {
	d.mu.Lock()
	v, ok := d.values[valueKey(service, characteristic)]
	d.mu.Unlock()
	if ok {
		return v
	}

	c, err := device.FindCharacteristic(d.profile, device.MustParseUUID(service), device.MustParseUUID(characteristic))
	if err != nil {
		return nil
	}
	return bytes.Clone(c.Value)
}

// FailConnect makes subsequent Connect calls return err; nil restores success
func (d *FakeDriver) FailConnect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// FailOp makes the given operation kind return err synchronously on current
// and future connections; nil restores success.
func (d *FakeDriver) FailOp(kind string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, kind)
		return
	}
	d.failures[kind] = err
}

func (d *FakeDriver) failure(kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures[kind]
}

// Connect implements device.Driver
func (d *FakeDriver) Connect(address string, handler device.Handler) (device.Gatt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.addresses = append(d.addresses, address)
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	g := &FakeGatt{
		driver:  d,
		handler: handler,
		profile: d.profile,
		Address: address,
	}
	d.gatts = append(d.gatts, g)
	if d.auto {
		go g.EmitConnected()
	}
	return g, nil
}

// Connects returns how many times Connect was called
func (d *FakeDriver) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.addresses)
}

// Gatts returns every connection handed out, oldest first
func (d *FakeDriver) Gatts() []*FakeGatt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeGatt(nil), d.gatts...)
}

// Last returns the most recent connection, or nil
func (d *FakeDriver) Last() *FakeGatt {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.gatts) == 0 {
		return nil
	}
	return d.gatts[len(d.gatts)-1]
}

// FakeGatt records every request and lets tests emit completion events
type FakeGatt struct {
	Address string

	driver  *FakeDriver
	handler device.Handler
	profile *blelib.Profile

	mu     sync.Mutex
	ops    []Op
	closed bool
}

func (g *FakeGatt) record(op Op) error {
	g.mu.Lock()
	g.ops = append(g.ops, op)
	g.mu.Unlock()
	if err := g.driver.failure(op.Kind); err != nil {
		return err
	}
	if g.driver.autoRespond() {
		go g.respond(op)
	}
	return nil
}

// respond completes op the way a healthy peripheral would
func (g *FakeGatt) respond(op Op) {
	switch op.Kind {
	case OpDiscover:
		g.EmitServicesDiscovered(device.StatusSuccess)
	case OpRead:
		g.EmitRead(op.Service, op.Characteristic, device.StatusSuccess, g.driver.value(op.Service, op.Characteristic))
	case OpWrite:
		g.driver.SetValue(op.Service, op.Characteristic, op.Value)
		g.EmitWrite(op.Service, op.Characteristic, device.StatusSuccess, nil)
	case OpWriteDescriptor:
		g.EmitDescriptorWrite(op.Service, op.Characteristic, op.Descriptor, op.Value, device.StatusSuccess)
	}
}

// DiscoverServices implements device.Gatt
func (g *FakeGatt) DiscoverServices() error {
	return g.record(Op{Kind: OpDiscover})
}

// Validate implements device.Gatt
func (g *FakeGatt) Validate(service, characteristic, descriptor blelib.UUID, access device.Access) error {
	return device.ValidateProfile(g.profile, service, characteristic, descriptor, access)
}

// Read implements device.Gatt
func (g *FakeGatt) Read(service, characteristic blelib.UUID) error {
	return g.record(Op{Kind: OpRead, Service: device.UUIDKey(service), Characteristic: device.UUIDKey(characteristic)})
}

// Write implements device.Gatt
func (g *FakeGatt) Write(service, characteristic blelib.UUID, value []byte) error {
	return g.record(Op{Kind: OpWrite, Service: device.UUIDKey(service), Characteristic: device.UUIDKey(characteristic), Value: bytes.Clone(value)})
}

// SetNotification implements device.Gatt
func (g *FakeGatt) SetNotification(service, characteristic blelib.UUID, enabled bool) error {
	return g.record(Op{Kind: OpSetNotification, Service: device.UUIDKey(service), Characteristic: device.UUIDKey(characteristic), Enabled: enabled})
}

// WriteDescriptor implements device.Gatt
func (g *FakeGatt) WriteDescriptor(service, characteristic, descriptor blelib.UUID, value []byte) error {
	return g.record(Op{
		Kind:           OpWriteDescriptor,
		Service:        device.UUIDKey(service),
		Characteristic: device.UUIDKey(characteristic),
		Descriptor:     device.UUIDKey(descriptor),
		Value:          bytes.Clone(value),
	})
}

// Close implements device.Gatt
func (g *FakeGatt) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return g.record(Op{Kind: OpClose})
}

// Closed reports whether Close was called
func (g *FakeGatt) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Ops returns every recorded request, optionally filtered by kind
func (g *FakeGatt) Ops(kinds ...string) []Op {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(kinds) == 0 {
		return append([]Op(nil), g.ops...)
	}
	var out []Op
	for _, op := range g.ops {
		for _, k := range kinds {
			if op.Kind == k {
				out = append(out, op)
				break
			}
		}
	}
	return out
}

// Count returns how many requests of the given kind were recorded
func (g *FakeGatt) Count(kind string) int {
	return len(g.Ops(kind))
}

// Emit delivers ev to the connection handler
func (g *FakeGatt) Emit(ev device.Event) {
	g.handler(ev)
}

// EmitConnected reports a successful connection
func (g *FakeGatt) EmitConnected() {
	g.Emit(device.Event{Kind: device.ConnectionStateChanged, State: device.StateConnected, Status: device.StatusSuccess})
}

// EmitDisconnected reports a lost or failed connection
func (g *FakeGatt) EmitDisconnected(status device.Status) {
	g.Emit(device.Event{Kind: device.ConnectionStateChanged, State: device.StateDisconnected, Status: status})
}

// EmitServicesDiscovered reports the end of service discovery
func (g *FakeGatt) EmitServicesDiscovered(status device.Status) {
	g.Emit(device.Event{Kind: device.ServicesDiscovered, Status: status})
}

// EmitRead completes a characteristic read
func (g *FakeGatt) EmitRead(service, characteristic string, status device.Status, value []byte) {
	g.Emit(device.Event{
		Kind:           device.CharacteristicRead,
		Status:         status,
		Service:        device.MustParseUUID(service),
		Characteristic: device.MustParseUUID(characteristic),
		Value:          value,
	})
}

// EmitWrite completes a characteristic write
func (g *FakeGatt) EmitWrite(service, characteristic string, status device.Status, value []byte) {
	g.Emit(device.Event{
		Kind:           device.CharacteristicWrite,
		Status:         status,
		Service:        device.MustParseUUID(service),
		Characteristic: device.MustParseUUID(characteristic),
		Value:          value,
	})
}

// EmitDescriptorWrite completes a descriptor write of value
func (g *FakeGatt) EmitDescriptorWrite(service, characteristic, descriptor string, value []byte, status device.Status) {
	g.Emit(device.Event{
		Kind:           device.DescriptorWrite,
		Status:         status,
		Service:        device.MustParseUUID(service),
		Characteristic: device.MustParseUUID(characteristic),
		Descriptor:     device.MustParseUUID(descriptor),
		Value:          value,
	})
}

// EmitNotification delivers a characteristic value change
func (g *FakeGatt) EmitNotification(service, characteristic string, value []byte) {
	g.Emit(device.Event{
		Kind:           device.CharacteristicChanged,
		Status:         device.StatusSuccess,
		Service:        device.MustParseUUID(service),
		Characteristic: device.MustParseUUID(characteristic),
		Value:          value,
	})
}

func (op Op) String() string {
	return fmt.Sprintf("%s %s/%s/%s %v enabled=%t", op.Kind, op.Service, op.Characteristic, op.Descriptor, op.Value, op.Enabled)
}
