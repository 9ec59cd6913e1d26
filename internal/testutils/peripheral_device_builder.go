package testutils

import (
	"encoding/json"
	"fmt"
	"strings"

	blelib "github.com/go-ble/ble"
	"github.com/srg/blerpc/pkg/device"
)

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID        string   `json:"uuid"`
	Properties  string   `json:"properties,omitempty"` // e.g., "read,write,notify"
	Value       []byte   `json:"value,omitempty"`
	Descriptors []string `json:"descriptors,omitempty"`
	NoCCCD      bool     `json:"no_cccd,omitempty"` // omit the CCCD on notifying characteristics
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the complete device profile for mocking
type DeviceProfileConfig struct {
	Services []ServiceConfig `json:"services"`
}

// PeripheralDeviceBuilder builds the GATT profile of a mocked peripheral
type PeripheralDeviceBuilder struct {
	profile DeviceProfileConfig
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder() *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		profile: DeviceProfileConfig{
			Services: []ServiceConfig{},
		},
	}
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralDeviceBuilder {
	return b.WithCharacteristicConfig(CharacteristicConfig{UUID: uuid, Properties: properties, Value: value})
}

// WithCharacteristicConfig adds a fully specified characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristicConfig(char CharacteristicConfig) *PeripheralDeviceBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	lastServiceIdx := len(b.profile.Services) - 1
	b.profile.Services[lastServiceIdx].Characteristics = append(
		b.profile.Services[lastServiceIdx].Characteristics, char)
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.profile = config
	return b
}

// parseCharacteristicProperties converts a comma separated property list to ble.Property flags
func parseCharacteristicProperties(props string) blelib.Property {
	if props == "" {
		return blelib.CharRead | blelib.CharWrite | blelib.CharNotify // default
	}

	var property blelib.Property
	for _, p := range strings.Split(props, ",") {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "read":
			property |= blelib.CharRead
		case "write":
			property |= blelib.CharWrite
		case "write_nr", "writenr":
			property |= blelib.CharWriteNR
		case "notify":
			property |= blelib.CharNotify
		case "indicate":
			property |= blelib.CharIndicate
		default:
			panic(fmt.Sprintf("unknown characteristic property %q", p))
		}
	}
	return property
}

// Build creates the ble.Profile described by the builder. Notifying
// characteristics get a Client Characteristic Configuration descriptor unless
// NoCCCD is set.
func (b *PeripheralDeviceBuilder) Build() *blelib.Profile {
	profile := &blelib.Profile{}
	for _, svcConfig := range b.profile.Services {
		bleService := &blelib.Service{
			UUID: device.MustParseUUID(svcConfig.UUID),
		}

		for _, charConfig := range svcConfig.Characteristics {
			bleChar := &blelib.Characteristic{
				UUID:     device.MustParseUUID(charConfig.UUID),
				Property: parseCharacteristicProperties(charConfig.Properties),
				Value:    charConfig.Value,
			}
			for _, d := range charConfig.Descriptors {
				bleChar.Descriptors = append(bleChar.Descriptors, &blelib.Descriptor{UUID: device.MustParseUUID(d)})
			}
			if device.HasAccess(bleChar.Property, device.AccessNotify) && !charConfig.NoCCCD {
				cccd := &blelib.Descriptor{UUID: blelib.ClientCharacteristicConfigUUID}
				bleChar.Descriptors = append(bleChar.Descriptors, cccd)
				bleChar.CCCD = cccd
			}
			bleService.Characteristics = append(bleService.Characteristics, bleChar)
		}
		profile.Services = append(profile.Services, bleService)
	}
	return profile
}

// GetServices returns the configured services
func (b *PeripheralDeviceBuilder) GetServices() []ServiceConfig {
	return b.profile.Services
}
