package device

import (
	"fmt"

	"github.com/go-ble/ble"
)

// Access is the characteristic capability an operation requires
type Access int

const (
	AccessRead Access = iota + 1
	AccessWrite
	AccessNotify
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "readable"
	case AccessWrite:
		return "writable"
	case AccessNotify:
		return "notifiable"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Handler receives asynchronous completion events from a Gatt.
// It may be invoked from any goroutine and must not block.
type Handler func(Event)

// Driver opens GATT connections to physical devices
type Driver interface {
	// Connect starts connecting to the device with the given address.
	// The returned Gatt reports progress through handler, starting with a
	// ConnectionStateChanged event.
	Connect(address string, handler Handler) (Gatt, error)
}

// Gatt is a single GATT connection.
//
// Every operation except Validate, SetNotification and Close is asynchronous:
// a nil error means the request was accepted, and its outcome arrives later
// as an Event. A non-nil error means the request was rejected outright and no
// event will follow.
type Gatt interface {
	// DiscoverServices starts discovery; completion is a ServicesDiscovered event
	DiscoverServices() error

	// Validate reports whether the device exposes the characteristic (and the
	// descriptor, when non-nil) with the given capability. Errors are
	// *ValidationError.
	Validate(service, characteristic, descriptor ble.UUID, access Access) error

	// Read starts a characteristic read; completion is a CharacteristicRead event
	Read(service, characteristic ble.UUID) error

	// Write starts a characteristic write; completion is a CharacteristicWrite event
	Write(service, characteristic ble.UUID, value []byte) error

	// SetNotification enables or disables local delivery of CharacteristicChanged
	// events for the characteristic.
	SetNotification(service, characteristic ble.UUID, enabled bool) error

	// WriteDescriptor starts a descriptor write; completion is a DescriptorWrite event
	WriteDescriptor(service, characteristic, descriptor ble.UUID, value []byte) error

	// Close releases the connection. No events are delivered after Close returns.
	Close() error
}

// Client Characteristic Configuration values toggling notifications
var (
	EnableNotificationValue  = []byte{0x01, 0x00}
	DisableNotificationValue = []byte{0x00, 0x00}
)

// ClientCharacteristicConfig is the descriptor that toggles notifications
var ClientCharacteristicConfig = ble.ClientCharacteristicConfigUUID
