package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/srg/blerpc/internal/testutils"
	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/rpc"
	"github.com/srg/blerpc/pkg/services"
	"github.com/srg/blerpc/pkg/wire"
	"github.com/stretchr/testify/suite"
)

const waitFor = 2 * time.Second

type ServicesTestSuite struct {
	suite.Suite
	helper  *testutils.TestHelper
	driver  *testutils.FakeDriver
	channel *rpc.Channel
}

func (s *ServicesTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	profile := testutils.CreateMockPeripheralDeviceFromJSON(`
	{
		"services": [
			{ "uuid": "180F", "characteristics": [ { "uuid": "2A19", "properties": "read,notify" } ] },
			{ "uuid": "180D", "characteristics": [ { "uuid": "2A37", "properties": "notify" } ] },
			{ "uuid": "1802", "characteristics": [ { "uuid": "2A06", "properties": "write_nr" } ] }
		]
	}`).Build()

	s.driver = testutils.NewFakeDriver(profile)
	s.channel = rpc.NewChannel("AA:BB:CC:DD:EE:FF", s.driver, wire.Default, rpc.WithLogger(s.helper.Logger))
	s.T().Cleanup(func() { _ = s.channel.Close() })
}

func (s *ServicesTestSuite) handshake() *testutils.FakeGatt {
	s.Require().Eventually(func() bool { return s.driver.Last() != nil }, waitFor, time.Millisecond)
	g := s.driver.Last()
	g.EmitConnected()
	s.waitOps(g, testutils.OpDiscover, 1)
	g.EmitServicesDiscovered(device.StatusSuccess)
	return g
}

func (s *ServicesTestSuite) waitOps(g *testutils.FakeGatt, kind string, n int) {
	s.Require().Eventually(func() bool { return g.Count(kind) >= n }, waitFor, time.Millisecond)
}

func (s *ServicesTestSuite) TestBatteryReadLevel() {
	client := services.NewBatteryClient(s.channel)

	type result struct {
		level *services.BatteryLevel
		err   error
	}
	out := make(chan result, 1)
	go func() {
		level, err := client.ReadLevel(context.Background())
		out <- result{level, err}
	}()

	g := s.handshake()
	s.waitOps(g, testutils.OpRead, 1)
	g.EmitRead(services.BatteryServiceUUID, services.BatteryLevelUUID, device.StatusSuccess, []byte{87})

	select {
	case res := <-out:
		s.Require().NoError(res.err)
		s.Equal(uint8(87), res.level.Percent)
	case <-time.After(waitFor):
		s.FailNow("read did not complete")
	}
}

func (s *ServicesTestSuite) TestBatterySubscribeLevel() {
	client := services.NewBatteryClient(s.channel)
	updates := make(chan uint8, 1)
	sub := client.SubscribeLevel(context.Background(), func(level *services.BatteryLevel) {
		updates <- level.Percent
	})
	defer sub.Cancel()

	g := s.handshake()
	s.waitOps(g, testutils.OpWriteDescriptor, 1)
	g.EmitDescriptorWrite(services.BatteryServiceUUID, services.BatteryLevelUUID, "2902", device.EnableNotificationValue, device.StatusSuccess)
	s.Require().Eventually(sub.Controller().Subscribed, waitFor, time.Millisecond)

	g.EmitNotification(services.BatteryServiceUUID, services.BatteryLevelUUID, []byte{42})
	select {
	case v := <-updates:
		s.Equal(uint8(42), v)
	case <-time.After(waitFor):
		s.FailNow("notification was not delivered")
	}
}

func (s *ServicesTestSuite) TestHeartRateMeasurement() {
	client := services.NewHeartRateClient(s.channel)
	updates := make(chan services.HeartRateMeasurement, 1)
	sub := client.SubscribeMeasurement(context.Background(), func(m *services.HeartRateMeasurement) {
		updates <- *m
	})
	defer sub.Cancel()

	g := s.handshake()
	s.waitOps(g, testutils.OpWriteDescriptor, 1)
	g.EmitDescriptorWrite(services.HeartRateServiceUUID, services.HeartRateMeasurementUUID, "2902", device.EnableNotificationValue, device.StatusSuccess)
	s.Require().Eventually(sub.Controller().Subscribed, waitFor, time.Millisecond)

	g.EmitNotification(services.HeartRateServiceUUID, services.HeartRateMeasurementUUID, []byte{0x06, 72})
	select {
	case m := <-updates:
		s.Equal(uint8(72), m.BPM)
		s.True(m.ContactDetected())
	case <-time.After(waitFor):
		s.FailNow("measurement was not delivered")
	}
}

func (s *ServicesTestSuite) TestImmediateAlertSetLevel() {
	client := services.NewImmediateAlertClient(s.channel)

	out := make(chan error, 1)
	go func() {
		out <- client.SetLevel(context.Background(), services.AlertHigh)
	}()

	g := s.handshake()
	s.waitOps(g, testutils.OpWrite, 1)
	s.Equal([]byte{2}, g.Ops(testutils.OpWrite)[0].Value)
	g.EmitWrite(services.ImmediateAlertServiceUUID, services.AlertLevelUUID, device.StatusSuccess, nil)

	select {
	case err := <-out:
		s.NoError(err)
	case <-time.After(waitFor):
		s.FailNow("write did not complete")
	}
}

func TestServicesTestSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}
