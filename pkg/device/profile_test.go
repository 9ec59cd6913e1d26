package device

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *ble.Profile {
	cccd := &ble.Descriptor{UUID: ble.ClientCharacteristicConfigUUID}
	return &ble.Profile{
		Services: []*ble.Service{
			{
				UUID: ble.UUID16(0x180f),
				Characteristics: []*ble.Characteristic{
					{
						UUID:        ble.UUID16(0x2a19),
						Property:    ble.CharRead | ble.CharNotify,
						Descriptors: []*ble.Descriptor{cccd},
						CCCD:        cccd,
					},
				},
			},
			{
				UUID: ble.MustParse("00001802-0000-1000-8000-00805f9b34fb"),
				Characteristics: []*ble.Characteristic{
					{UUID: ble.UUID16(0x2a06), Property: ble.CharWriteNR},
				},
			},
		},
	}
}

func TestValidateProfile(t *testing.T) {
	p := testProfile()
	battery := ble.UUID16(0x180f)
	level := ble.UUID16(0x2a19)

	tests := []struct {
		name           string
		service        ble.UUID
		characteristic ble.UUID
		descriptor     ble.UUID
		access         Access
		want           error
	}{
		{name: "readable", service: battery, characteristic: level, access: AccessRead},
		{name: "notifiable with CCCD", service: battery, characteristic: level, descriptor: ble.ClientCharacteristicConfigUUID, access: AccessNotify},
		{name: "write without response counts as writable", service: ble.UUID16(0x1802), characteristic: ble.UUID16(0x2a06), access: AccessWrite},
		{name: "not writable", service: battery, characteristic: level, access: AccessWrite, want: ErrPropertyUnsupported},
		{name: "missing service", service: ble.UUID16(0x180d), characteristic: level, access: AccessRead, want: ErrServiceNotFound},
		{name: "missing characteristic", service: battery, characteristic: ble.UUID16(0x2a37), access: AccessRead, want: ErrCharacteristicNotFound},
		{name: "missing descriptor", service: battery, characteristic: level, descriptor: ble.UUID16(0x2901), access: AccessNotify, want: ErrDescriptorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(p, tt.service, tt.characteristic, tt.descriptor, tt.access)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFindDescriptor_CCCDField(t *testing.T) {
	cccd := &ble.Descriptor{UUID: ble.ClientCharacteristicConfigUUID}
	c := &ble.Characteristic{UUID: ble.UUID16(0x2a37), Property: ble.CharNotify, CCCD: cccd}

	assert.Same(t, cccd, FindDescriptor(c, ClientCharacteristicConfig))
	assert.Nil(t, FindDescriptor(c, ble.UUID16(0x2901)))
}

func TestFindCharacteristic_NilProfile(t *testing.T) {
	_, err := FindCharacteristic(nil, ble.UUID16(0x180f), ble.UUID16(0x2a19))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceNotFound)
}
