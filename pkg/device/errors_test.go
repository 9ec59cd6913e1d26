package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		sentinel error
		message  string
	}{
		{
			name:     "missing service",
			err:      &ValidationError{Reason: ServiceNotFound, Service: "180f"},
			sentinel: ErrServiceNotFound,
			message:  "device does not have service 180f",
		},
		{
			name:     "missing characteristic",
			err:      &ValidationError{Reason: CharacteristicNotFound, Service: "180f", Characteristic: "2a19"},
			sentinel: ErrCharacteristicNotFound,
			message:  "service 180f does not have characteristic 2a19",
		},
		{
			name:     "missing descriptor",
			err:      &ValidationError{Reason: DescriptorNotFound, Service: "180f", Characteristic: "2a19", Descriptor: "2902"},
			sentinel: ErrDescriptorNotFound,
			message:  "characteristic 2a19 in service 180f does not have descriptor 2902",
		},
		{
			name:     "unsupported property",
			err:      &ValidationError{Reason: PropertyUnsupported, Service: "180f", Characteristic: "2a19", Access: AccessNotify},
			sentinel: ErrPropertyUnsupported,
			message:  "characteristic 2a19 on service 180f is not notifiable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
			assert.NotErrorIs(t, tt.err, ErrAPI)
		})
	}
}

func TestAPIAndStatusErrors(t *testing.T) {
	cause := errors.New("busy")
	apiErr := &APIError{Op: "write", Err: cause}

	assert.ErrorIs(t, apiErr, ErrAPI)
	assert.ErrorIs(t, apiErr, &APIError{Op: "write"})
	assert.NotErrorIs(t, apiErr, &APIError{Op: "read"})
	assert.ErrorIs(t, apiErr, cause)
	assert.Equal(t, "write rejected: busy", apiErr.Error())

	statusErr := &StatusError{Op: "read", Status: StatusFailure}
	assert.ErrorIs(t, statusErr, ErrStatus)
	assert.Equal(t, "read failed: status=0x0101", statusErr.Error())
}

func TestConnectionError(t *testing.T) {
	err := fmt.Errorf("%w: link lost", ErrNotConnected)

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotErrorIs(t, err, ErrBluetoothOff)
	assert.True(t, IsConnectionFailure(err, NotConnected))
	assert.False(t, IsConnectionFailure(errors.New("other"), NotConnected))
	assert.Equal(t, "bluetooth_off: adapter is powered down", (&ConnectionError{Failure: BluetoothOff, Msg: "adapter is powered down"}).Error())
}
