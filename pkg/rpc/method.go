package rpc

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/srg/blerpc/pkg/device"
)

// MethodType is the GATT operation a method maps onto
type MethodType int

const (
	MethodUnknown MethodType = iota
	MethodRead
	MethodWrite
	MethodSubscribe
)

func (t MethodType) String() string {
	switch t {
	case MethodRead:
		return "READ"
	case MethodWrite:
		return "WRITE"
	case MethodSubscribe:
		return "SUBSCRIBE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Method identifies one remote procedure: the characteristic it targets and
// the operation performed on it. Methods are immutable once passed to a
// Channel.
type Method struct {
	Name           string
	Service        ble.UUID
	Characteristic ble.UUID
	// Descriptor toggles notifications for SUBSCRIBE methods.
	// Defaults to the Client Characteristic Configuration descriptor.
	Descriptor ble.UUID
	Type       MethodType
}

// NewMethod builds a Method from UUID strings in any notation accepted by
// device.ParseUUID. The descriptor may be empty.
func NewMethod(name string, typ MethodType, service, characteristic, descriptor string) (*Method, error) {
	svc, err := device.ParseUUID(service)
	if err != nil {
		return nil, fmt.Errorf("method %s: service: %w", name, err)
	}
	char, err := device.ParseUUID(characteristic)
	if err != nil {
		return nil, fmt.Errorf("method %s: characteristic: %w", name, err)
	}

	m := &Method{Name: name, Service: svc, Characteristic: char, Type: typ}
	if descriptor != "" {
		if m.Descriptor, err = device.ParseUUID(descriptor); err != nil {
			return nil, fmt.Errorf("method %s: descriptor: %w", name, err)
		}
	}
	return m, nil
}

// MustMethod is like NewMethod but panics on malformed UUIDs.
// Intended for package-level method tables.
func MustMethod(name string, typ MethodType, service, characteristic, descriptor string) *Method {
	m, err := NewMethod(name, typ, service, characteristic, descriptor)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Method) descriptor() ble.UUID {
	if len(m.Descriptor) == 0 && m.Type == MethodSubscribe {
		return device.ClientCharacteristicConfig
	}
	return m.Descriptor
}

func (m *Method) String() string {
	if m == nil {
		return "<nil>"
	}
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("%s %s/%s", m.Type, device.UUIDKey(m.Service), device.UUIDKey(m.Characteristic))
}
