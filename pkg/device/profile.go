package device

import (
	"github.com/go-ble/ble"
)

// FindCharacteristic looks up a characteristic in a discovered profile.
// Errors are *ValidationError.
func FindCharacteristic(p *ble.Profile, service, characteristic ble.UUID) (*ble.Characteristic, error) {
	if p == nil {
		return nil, &ValidationError{Reason: ServiceNotFound, Service: UUIDKey(service)}
	}
	for _, svc := range p.Services {
		if !SameUUID(svc.UUID, service) {
			continue
		}
		for _, c := range svc.Characteristics {
			if SameUUID(c.UUID, characteristic) {
				return c, nil
			}
		}
		return nil, &ValidationError{Reason: CharacteristicNotFound, Service: UUIDKey(service), Characteristic: UUIDKey(characteristic)}
	}
	return nil, &ValidationError{Reason: ServiceNotFound, Service: UUIDKey(service)}
}

// FindDescriptor looks up a descriptor of c. The Client Characteristic
// Configuration descriptor is also found through c.CCCD, which some
// platforms populate without listing it among the descriptors.
func FindDescriptor(c *ble.Characteristic, descriptor ble.UUID) *ble.Descriptor {
	for _, d := range c.Descriptors {
		if SameUUID(d.UUID, descriptor) {
			return d
		}
	}
	if c.CCCD != nil && SameUUID(descriptor, ClientCharacteristicConfig) {
		return c.CCCD
	}
	return nil
}

// HasAccess reports whether the characteristic properties allow access
func HasAccess(p ble.Property, access Access) bool {
	switch access {
	case AccessRead:
		return p&ble.CharRead != 0
	case AccessWrite:
		return p&(ble.CharWrite|ble.CharWriteNR) != 0
	case AccessNotify:
		return p&(ble.CharNotify|ble.CharIndicate) != 0
	default:
		return false
	}
}

// ValidateProfile checks that a discovered profile exposes the characteristic,
// and the descriptor when non-nil, with the given access.
func ValidateProfile(p *ble.Profile, service, characteristic, descriptor ble.UUID, access Access) error {
	c, err := FindCharacteristic(p, service, characteristic)
	if err != nil {
		return err
	}
	if len(descriptor) > 0 && FindDescriptor(c, descriptor) == nil {
		return &ValidationError{
			Reason:         DescriptorNotFound,
			Service:        UUIDKey(service),
			Characteristic: UUIDKey(characteristic),
			Descriptor:     UUIDKey(descriptor),
		}
	}
	if !HasAccess(c.Property, access) {
		return &ValidationError{
			Reason:         PropertyUnsupported,
			Service:        UUIDKey(service),
			Characteristic: UUIDKey(characteristic),
			Access:         access,
		}
	}
	return nil
}
