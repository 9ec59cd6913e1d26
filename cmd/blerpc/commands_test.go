package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/internal/testutils"
	"github.com/srg/blerpc/internal/testutils/mocksuite"
	"github.com/srg/blerpc/pkg/services"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs blerpc commands against a simulated peripheral
type CommandTestSuite struct {
	mocksuite.FakePeripheralSuite
	noColor bool
}

func (s *CommandTestSuite) SetupTest() {
	s.WithPeripheral().
		WithService(services.BatteryServiceUUID).
		WithCharacteristic(services.BatteryLevelUUID, "read,notify", []byte{50}).
		WithService(services.HeartRateServiceUUID).
		WithCharacteristic(services.HeartRateMeasurementUUID, "notify", nil).
		WithService(services.ImmediateAlertServiceUUID).
		WithCharacteristic(services.AlertLevelUUID, "write_nr", nil)
	s.FakePeripheralSuite.SetupTest()

	s.noColor = color.NoColor
	color.NoColor = true

	// Commands share package-level flag state between runs
	batteryWatch = false
	heartRateCount = 0
	methodsJSON = false
	for _, name := range []string{"log-level", "config", "byte-order"} {
		s.Require().NoError(rootCmd.PersistentFlags().Set(name, ""))
	}
	s.Require().NoError(rootCmd.PersistentFlags().Set("verbose", "false"))
	s.Require().NoError(rootCmd.PersistentFlags().Set("timeout", "2s"))
}

func (s *CommandTestSuite) TearDownTest() {
	color.NoColor = s.noColor
	s.FakePeripheralSuite.TearDownTest()
}

// ExecuteCommand runs the root command with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func (s *CommandTestSuite) TestBatteryRead() {
	// GOAL: Verify the battery command reads and prints the level
	//
	// TEST SCENARIO: peripheral reports 50% → blerpc battery → "Battery level: 50%"

	out, err := s.ExecuteCommand(rootCmd, "battery", TestDeviceAddress)
	s.Require().NoError(err)
	testutils.NewTextAsserter(s.T()).Assert(out, "Battery level: 50%")

	g := s.Driver.Last()
	s.Equal(1, g.Count(testutils.OpRead))
	s.Eventually(g.Closed, waitFor, time.Millisecond, "connection MUST be closed when the command ends")
}

func (s *CommandTestSuite) TestBatteryReadLittleEndian() {
	s.Driver.SetValue(services.BatteryServiceUUID, services.BatteryLevelUUID, []byte{87})

	out, err := s.ExecuteCommand(rootCmd, "--byte-order", "little", "battery", TestDeviceAddress)
	s.Require().NoError(err)
	testutils.NewTextAsserter(s.T()).Assert(out, "Battery level: 87%")
}

func (s *CommandTestSuite) TestAlert() {
	// GOAL: Verify the alert command writes the encoded level
	//
	// TEST SCENARIO: blerpc alert <addr> high → one write of {2} → confirmation printed

	out, err := s.ExecuteCommand(rootCmd, "alert", TestDeviceAddress, "high")
	s.Require().NoError(err)
	testutils.NewTextAsserter(s.T()).Assert(out, "Alert level set to high")

	writes := s.Driver.Last().Ops(testutils.OpWrite)
	s.Require().Len(writes, 1)
	s.Equal([]byte{2}, writes[0].Value)
}

func (s *CommandTestSuite) TestAlertRejectsUnknownLevel() {
	_, err := s.ExecuteCommand(rootCmd, "alert", TestDeviceAddress, "deafening")
	s.ErrorContains(err, "unknown alert level")
	s.Zero(s.Driver.Connects(), "invalid arguments MUST NOT connect")
}

func (s *CommandTestSuite) TestHeartRateCount() {
	// GOAL: Verify --count stops the stream after N measurements
	//
	// TEST SCENARIO: blerpc heart-rate --count 2 → sensor keeps notifying → exactly 2 lines printed

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.ExecuteCommand(rootCmd, "heart-rate", TestDeviceAddress, "--count", "2")
		done <- result{out, err}
	}()

	g := s.LastGatt(waitFor)
	s.Require().Eventually(func() bool { return g.Count(testutils.OpWriteDescriptor) >= 1 }, waitFor, time.Millisecond)

	// Keep notifying until the command has printed enough
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(waitFor)
	for {
		select {
		case res := <-done:
			s.Require().NoError(res.err)
			testutils.NewTextAsserter(s.T()).Assert(res.out, "Heart rate: 72 bpm (contact)\nHeart rate: 72 bpm (contact)")
			return
		case <-ticker.C:
			g.EmitNotification(services.HeartRateServiceUUID, services.HeartRateMeasurementUUID, []byte{0x06, 72})
		case <-deadline:
			s.FailNow("heart-rate command did not finish")
		}
	}
}

func (s *CommandTestSuite) TestMethodsJSON() {
	out, err := s.ExecuteCommand(rootCmd, "methods", "--json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `[
		{"name": "Battery.ReadLevel", "type": "READ", "service": "180f", "characteristic": "2a19", "size": 1},
		{"name": "Battery.SubscribeLevel", "type": "SUBSCRIBE", "service": "180f", "characteristic": "2a19", "size": 1},
		{"name": "HeartRate.SubscribeMeasurement", "type": "SUBSCRIBE", "service": "180d", "characteristic": "2a37", "size": 2},
		{"name": "ImmediateAlert.SetLevel", "type": "WRITE", "service": "1802", "characteristic": "2a06", "size": 1}
	]`)
}

func (s *CommandTestSuite) TestInvalidLogLevel() {
	_, err := s.ExecuteCommand(rootCmd, "--log-level", "chatty", "battery", TestDeviceAddress)
	s.ErrorContains(err, "invalid log level")
}

func (s *CommandTestSuite) TestUnreachableDevice() {
	s.Driver.FailConnect(assertError("adapter unavailable"))

	_, err := s.ExecuteCommand(rootCmd, "battery", TestDeviceAddress)
	s.Require().Error(err)
	s.Contains(FormatUserError(err), "adapter unavailable")
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestCommandTestSuite(t *testing.T) {
	suite.Run(t, new(CommandTestSuite))
}
