package device

import (
	"errors"
	"fmt"
)

// ValidationReason classifies a ValidationError
type ValidationReason string

const (
	ServiceNotFound        ValidationReason = "service_not_found"
	CharacteristicNotFound ValidationReason = "characteristic_not_found"
	DescriptorNotFound     ValidationReason = "descriptor_not_found"
	PropertyUnsupported    ValidationReason = "property_unsupported"
)

// ValidationError reports that a device does not expose the GATT attribute an
// operation needs.
type ValidationError struct {
	Reason         ValidationReason
	Service        string
	Characteristic string
	Descriptor     string
	Access         Access
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Reason {
	case ServiceNotFound:
		return fmt.Sprintf("device does not have service %s", e.Service)
	case CharacteristicNotFound:
		return fmt.Sprintf("service %s does not have characteristic %s", e.Service, e.Characteristic)
	case DescriptorNotFound:
		return fmt.Sprintf("characteristic %s in service %s does not have descriptor %s", e.Characteristic, e.Service, e.Descriptor)
	case PropertyUnsupported:
		return fmt.Sprintf("characteristic %s on service %s is not %s", e.Characteristic, e.Service, e.Access)
	default:
		return string(e.Reason)
	}
}

// Is allows errors.Is to compare ValidationError values by Reason
func (e *ValidationError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Predefined sentinel errors for validation failures
var (
	ErrServiceNotFound        = &ValidationError{Reason: ServiceNotFound}
	ErrCharacteristicNotFound = &ValidationError{Reason: CharacteristicNotFound}
	ErrDescriptorNotFound     = &ValidationError{Reason: DescriptorNotFound}
	ErrPropertyUnsupported    = &ValidationError{Reason: PropertyUnsupported}
)

// APIError reports a GATT request that was rejected before it reached the device
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s rejected", e.Op)
	}
	return fmt.Sprintf("%s rejected: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *APIError when the target has no Op, otherwise compares Op
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// ErrAPI matches every APIError
var ErrAPI = &APIError{}

// StatusError reports a completion event with a non-success status
type StatusError struct {
	Op     string
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: status=%s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: status=%s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *StatusError when the target has no Op, otherwise compares Op
func (e *StatusError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// ErrStatus matches every StatusError
var ErrStatus = &StatusError{}

// ConnectionFailure represents the specific kind of connection failure
type ConnectionFailure string

const (
	NotConnected     ConnectionFailure = "not_connected"
	AlreadyConnected ConnectionFailure = "already_connected"
	BluetoothOff     ConnectionFailure = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	Failure ConnectionFailure
	Msg     string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Failure)
	}
	return fmt.Sprintf("%s: %s", e.Failure, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by Failure
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.Failure == t.Failure
}

// Predefined sentinel errors for connection failures
var (
	ErrNotConnected     = &ConnectionError{Failure: NotConnected}
	ErrAlreadyConnected = &ConnectionError{Failure: AlreadyConnected}
	ErrBluetoothOff     = &ConnectionError{Failure: BluetoothOff}
)

// IsConnectionFailure reports whether err is a ConnectionError of the given kind
func IsConnectionFailure(err error, failure ConnectionFailure) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.Failure == failure
	}
	return false
}
