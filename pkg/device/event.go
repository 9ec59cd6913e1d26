package device

import (
	"fmt"

	"github.com/go-ble/ble"
)

// EventKind identifies the asynchronous callback an Event represents
type EventKind int

const (
	ConnectionStateChanged EventKind = iota + 1
	ServicesDiscovered
	CharacteristicRead
	CharacteristicWrite
	DescriptorWrite
	CharacteristicChanged
)

func (k EventKind) String() string {
	switch k {
	case ConnectionStateChanged:
		return "connection_state_changed"
	case ServicesDiscovered:
		return "services_discovered"
	case CharacteristicRead:
		return "characteristic_read"
	case CharacteristicWrite:
		return "characteristic_write"
	case DescriptorWrite:
		return "descriptor_write"
	case CharacteristicChanged:
		return "characteristic_changed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Status is the outcome code carried by a completion event
type Status int

const (
	StatusSuccess Status = 0x00
	StatusFailure Status = 0x101
)

// Success reports whether the status denotes a successful operation
func (s Status) Success() bool {
	return s == StatusSuccess
}

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return fmt.Sprintf("0x%04x", int(s))
}

// ConnectionState is the link state reported by ConnectionStateChanged
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnected
)

func (s ConnectionState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// Event is a single asynchronous callback from a Gatt.
//
// Service and Characteristic identify the target of characteristic and
// descriptor events. Value holds the bytes read, the bytes notified, the
// response of a write when the device returns one, or the value written to a
// descriptor. Err optionally carries the underlying cause of a non-success
// status.
type Event struct {
	Kind   EventKind
	Status Status
	State  ConnectionState

	Service        ble.UUID
	Characteristic ble.UUID
	Descriptor     ble.UUID
	Value          []byte

	Err error
}
