package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srg/blerpc/internal/testutils"
	"github.com/srg/blerpc/pkg/device"
	"github.com/srg/blerpc/pkg/rpc"
	"github.com/srg/blerpc/pkg/services"
	"github.com/stretchr/testify/suite"
)

const waitFor = 2 * time.Second

// StreamTestSuite runs streamUpdates against a scripted heart rate sensor
type StreamTestSuite struct {
	suite.Suite
	driver *testutils.FakeDriver
	client *services.HeartRateClient
	buf    *NotificationBuffer[services.HeartRateMeasurement]
}

func (s *StreamTestSuite) SetupTest() {
	helper := testutils.NewTestHelper(s.T())
	profile := testutils.CreateMockPeripheralDevice().
		WithService(services.HeartRateServiceUUID).
		WithCharacteristic(services.HeartRateMeasurementUUID, "notify", nil).
		Build()

	s.driver = testutils.NewFakeDriver(profile)
	registry := rpc.NewRegistry(s.driver, nil, helper.Logger)
	s.T().Cleanup(registry.Close)
	s.client = services.NewHeartRateClient(registry.Channel(TestDeviceAddress))

	var err error
	s.buf, err = NewNotificationBuffer[services.HeartRateMeasurement](16)
	s.Require().NoError(err)
}

const TestDeviceAddress = "00:00:00:00:00:01"

func (s *StreamTestSuite) subscribe(ctx context.Context) *rpc.Subscription {
	return s.client.SubscribeMeasurement(ctx, func(m *services.HeartRateMeasurement) {
		s.NoError(s.buf.Push(*m))
	})
}

// activate completes connection, discovery and the CCCD write
func (s *StreamTestSuite) activate() *testutils.FakeGatt {
	s.Require().Eventually(func() bool { return s.driver.Last() != nil }, waitFor, time.Millisecond)
	g := s.driver.Last()
	g.EmitConnected()
	s.Require().Eventually(func() bool { return g.Count(testutils.OpDiscover) == 1 }, waitFor, time.Millisecond)
	g.EmitServicesDiscovered(device.StatusSuccess)
	s.Require().Eventually(func() bool { return g.Count(testutils.OpWriteDescriptor) == 1 }, waitFor, time.Millisecond)
	g.EmitDescriptorWrite(services.HeartRateServiceUUID, services.HeartRateMeasurementUUID, "2902", device.EnableNotificationValue, device.StatusSuccess)
	return g
}

type streamResult struct {
	printed []uint8
	n       int
	err     error
}

func (s *StreamTestSuite) run(ctx context.Context, sub *rpc.Subscription, opts streamOptions) <-chan streamResult {
	out := make(chan streamResult, 1)
	go func() {
		var printed []uint8
		n, err := streamUpdates(ctx, sub, s.buf, opts, func(m services.HeartRateMeasurement) {
			printed = append(printed, m.BPM)
		})
		out <- streamResult{printed: printed, n: n, err: err}
	}()
	return out
}

func (s *StreamTestSuite) await(out <-chan streamResult) streamResult {
	select {
	case res := <-out:
		return res
	case <-time.After(waitFor):
		s.FailNow("stream did not finish")
		return streamResult{}
	}
}

func (s *StreamTestSuite) TestStopsAtLimit() {
	// GOAL: Verify the stream ends by itself after --count updates
	//
	// TEST SCENARIO: subscribe → 3 notifications with limit 2 → 2 printed, nil error

	ctx := context.Background()
	sub := s.subscribe(ctx)
	defer sub.Cancel()

	subscribed := make(chan struct{})
	out := s.run(ctx, sub, streamOptions{
		Limit:        2,
		OnSubscribed: func() { close(subscribed) },
	})

	g := s.activate()
	select {
	case <-subscribed:
	case <-time.After(waitFor):
		s.FailNow("OnSubscribed MUST run once the subscription is active")
	}

	for _, bpm := range []uint8{60, 61, 62} {
		g.EmitNotification(services.HeartRateServiceUUID, services.HeartRateMeasurementUUID, []byte{0, bpm})
	}

	res := s.await(out)
	s.NoError(res.err)
	s.Equal(2, res.n)
	s.Equal([]uint8{60, 61}, res.printed)
}

func (s *StreamTestSuite) TestInterruptEndsStream() {
	// GOAL: Verify Ctrl+C ends the stream with context.Canceled
	//
	// TEST SCENARIO: subscribe → cancel context → context.Canceled returned

	ctx, cancel := context.WithCancel(context.Background())
	sub := s.subscribe(ctx)
	out := s.run(ctx, sub, streamOptions{})

	s.activate()
	cancel()

	res := s.await(out)
	s.ErrorIs(res.err, context.Canceled)
}

func (s *StreamTestSuite) TestSubscriptionFailureEndsStream() {
	// GOAL: Verify a lost connection surfaces as ErrSubscriptionEnded
	//
	// TEST SCENARIO: subscribe → activate → remote disconnect → ErrSubscriptionEnded with call failure

	ctx := context.Background()
	sub := s.subscribe(ctx)
	out := s.run(ctx, sub, streamOptions{})

	g := s.activate()
	s.Require().Eventually(sub.Controller().Subscribed, waitFor, time.Millisecond)
	g.EmitDisconnected(device.StatusFailure)

	res := s.await(out)
	s.ErrorIs(res.err, ErrSubscriptionEnded)
	s.ErrorIs(res.err, rpc.ErrCallFailed)
}

func (s *StreamTestSuite) TestSubscribeTimeout() {
	// GOAL: Verify an unresponsive device does not hang the CLI
	//
	// TEST SCENARIO: subscribe → device never connects → DeadlineExceeded after SubscribeTimeout

	ctx := context.Background()
	sub := s.subscribe(ctx)
	defer sub.Cancel()

	res := s.await(s.run(ctx, sub, streamOptions{SubscribeTimeout: 50 * time.Millisecond}))
	s.True(errors.Is(res.err, context.DeadlineExceeded), "MUST time out, got %v", res.err)
	s.Zero(res.n)
}

func TestStreamTestSuite(t *testing.T) {
	suite.Run(t, new(StreamTestSuite))
}
