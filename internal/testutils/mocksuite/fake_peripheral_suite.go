// Package mocksuite provides a testify suite that swaps the production BLE
// driver for a simulated peripheral.
package mocksuite

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/internal/devicefactory"
	"github.com/srg/blerpc/internal/testutils"
	"github.com/srg/blerpc/pkg/device"
	"github.com/stretchr/testify/suite"
)

// FakePeripheralSuite replaces devicefactory.DriverFactory with an
// auto-responding testutils.FakeDriver for every test.
//
// Basic usage (default battery service at 50%):
//
//	type BatterySuite struct {
//	    mocksuite.FakePeripheralSuite
//	}
//
// Custom profile:
//
//	func (s *HeartRateSuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("180D").
//	        WithCharacteristic("2A37", "notify", nil)
//
//	    s.FakePeripheralSuite.SetupTest() // Call parent last to apply configuration
//	}
type FakePeripheralSuite struct {
	suite.Suite

	Helper *testutils.TestHelper
	Logger *logrus.Logger

	// Driver is the simulated peripheral of the current test
	Driver *testutils.FakeDriver

	OriginalDriverFactory func(*logrus.Logger, time.Duration) device.Driver
	PeripheralBuilder     *testutils.PeripheralDeviceBuilder
}

// SetupSuite runs once before all tests in the suite
func (s *FakePeripheralSuite) SetupSuite() {
	s.Helper = testutils.NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.OriginalDriverFactory = devicefactory.DriverFactory

	s.T().Cleanup(func() {
		devicefactory.DriverFactory = s.OriginalDriverFactory
	})
}

// SetupTest installs the fake driver built from the configured peripheral
func (s *FakePeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = createDefaultPeripheralBuilder()
	}

	s.Driver = testutils.NewFakeDriver(s.PeripheralBuilder.Build()).WithAutoRespond()
	driver := s.Driver
	devicefactory.DriverFactory = func(*logrus.Logger, time.Duration) device.Driver {
		return driver
	}
}

// TearDownTest restores the production factory and resets the peripheral
func (s *FakePeripheralSuite) TearDownTest() {
	devicefactory.DriverFactory = s.OriginalDriverFactory
	s.PeripheralBuilder = nil
	s.Driver = nil
}

// WithPeripheral returns the peripheral builder for fluent configuration
func (s *FakePeripheralSuite) WithPeripheral() *testutils.PeripheralDeviceBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = testutils.NewPeripheralDeviceBuilder()
	}
	return s.PeripheralBuilder
}

// LastGatt waits for the first connection of the current test
func (s *FakePeripheralSuite) LastGatt(timeout time.Duration) *testutils.FakeGatt {
	s.Require().Eventually(func() bool { return s.Driver.Last() != nil }, timeout, time.Millisecond, "device MUST be connected")
	return s.Driver.Last()
}

// createDefaultPeripheralBuilder creates a peripheral with the Battery
// Service (180F) whose level (2A19) reads 50%.
func createDefaultPeripheralBuilder() *testutils.PeripheralDeviceBuilder {
	return testutils.CreateMockPeripheralDeviceFromJSON(`
		{
			"services": [
				{
					"uuid": "180F",
					"characteristics": [
						{ "uuid": "2A19", "properties": "read,notify", "value": [50] }
					]
				}
			]
		}`)
}
