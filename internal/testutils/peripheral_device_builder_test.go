package testutils

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// PeripheralDeviceBuilderTestSuite tests PeripheralDeviceBuilder functionality
type PeripheralDeviceBuilderTestSuite struct {
	suite.Suite
}

func (s *PeripheralDeviceBuilderTestSuite) TestNotifyingCharacteristicGetsCCCD() {
	// GOAL: Verify notifying characteristics expose a CCCD unless opted out
	//
	// TEST SCENARIO: build notify, indicate, no_cccd and read chars → profile JSON → CCCD only where expected

	profile := NewPeripheralDeviceBuilder().
		WithService("180D").
		WithCharacteristic("2A37", "notify", nil).
		WithCharacteristic("2A38", "read", []byte{1}).
		WithCharacteristicConfig(CharacteristicConfig{UUID: "2A39", Properties: "indicate"}).
		WithCharacteristicConfig(CharacteristicConfig{UUID: "2A3A", Properties: "notify", NoCCCD: true}).
		Build()

	NewJSONAsserter(s.T()).AssertProfile(profile, `{
		"services": [{
			"uuid": "180d",
			"characteristics": [
				{"uuid": "2a37", "properties": "notify", "cccd": true, "descriptors": [{"uuid": "2902"}]},
				{"uuid": "2a38", "properties": "read", "cccd": false, "descriptors": []},
				{"uuid": "2a39", "properties": "indicate", "cccd": true, "descriptors": [{"uuid": "2902"}]},
				{"uuid": "2a3a", "properties": "notify", "cccd": false, "descriptors": []}
			]
		}]
	}`)
}

func (s *PeripheralDeviceBuilderTestSuite) TestFromJSON() {
	// GOAL: Verify JSON profiles build the same structure as the fluent API
	//
	// TEST SCENARIO: JSON with two services and extra descriptors → Build → matches fluent build

	fromJSON := CreateMockPeripheralDeviceFromJSON(`{
		"services": [
			{"uuid": "%s", "characteristics": [{"uuid": "2A19", "properties": "read,notify", "descriptors": ["2901"]}]},
			{"uuid": "1802", "characteristics": [{"uuid": "2A06", "properties": "write_nr"}]}
		]
	}`, "180F").Build()

	fluent := CreateMockPeripheralDevice().
		WithService("180F").
		WithCharacteristicConfig(CharacteristicConfig{UUID: "2A19", Properties: "read,notify", Descriptors: []string{"2901"}}).
		WithService("1802").
		WithCharacteristic("2A06", "write_nr", nil).
		Build()

	NewJSONAsserter(s.T()).
		WithOptions(WithIgnoreExtraKeys(false)).
		Assert(ProfileToJSON(fromJSON), ProfileToJSON(fluent))

	NewJSONAsserter(s.T()).AssertProfile(fromJSON, `{
		"services": [
			{"uuid": "180f", "characteristics": [{"uuid": "2a19", "properties": "read,notify", "descriptors": [{"uuid": "2901"}, {"uuid": "2902"}]}]},
			{"uuid": "1802", "characteristics": [{"uuid": "2a06", "properties": "write_nr", "descriptors": []}]}
		]
	}`)
}

func (s *PeripheralDeviceBuilderTestSuite) TestDefaultProperties() {
	profile := NewPeripheralDeviceBuilder().
		WithService("FFE0").
		WithCharacteristic("FFE1", "", nil).
		Build()

	s.Equal("read,write,notify", formatCharacteristicProperties(profile.Services[0].Characteristics[0].Property))
}

func (s *PeripheralDeviceBuilderTestSuite) TestMisuse() {
	s.Panics(func() {
		NewPeripheralDeviceBuilder().WithCharacteristic("2A19", "read", nil)
	}, "characteristic without a service MUST panic")

	s.Panics(func() {
		NewPeripheralDeviceBuilder().WithService("180F").WithCharacteristic("2A19", "broadcast", nil).Build()
	}, "unknown property MUST panic")

	s.Panics(func() {
		NewPeripheralDeviceBuilder().FromJSON(`{"services": [`)
	}, "malformed JSON MUST panic")
}

func TestPeripheralDeviceBuilder(t *testing.T) {
	suite.Run(t, new(PeripheralDeviceBuilderTestSuite))
}
