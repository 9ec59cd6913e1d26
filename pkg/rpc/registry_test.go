package rpc

import (
	"testing"
	"time"

	"github.com/srg/blerpc/internal/testutils"
	"github.com/srg/blerpc/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *testutils.FakeDriver) {
	driver := testutils.NewFakeDriver(testProfile()).WithAutoRespond()
	return NewRegistry(driver, wire.Default, testutils.NewTestHelper(t).Logger), driver
}

func TestRegistryChannelIsSharedPerAddress(t *testing.T) {
	// GOAL: Verify one channel exists per device address regardless of spelling
	//
	// TEST SCENARIO: Channel(upper) → Channel(lower, padded) → same channel → other address → new channel

	r, _ := newTestRegistry(t)
	defer r.Close()

	a := r.Channel(testAddress)
	b := r.Channel("  aa:bb:cc:dd:ee:ff ")
	assert.Same(t, a, b, "addresses differing in case and padding MUST share a channel")
	assert.Equal(t, testAddress, a.Address())

	other := r.Channel("11:22:33:44:55:66")
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDisconnect(t *testing.T) {
	// GOAL: Verify Disconnect closes the channel and the next lookup creates a fresh one
	//
	// TEST SCENARIO: read through channel → Disconnect → gatt closed, late calls fail → Channel → new channel

	r, driver := newTestRegistry(t)
	defer r.Close()

	ch := r.Channel(testAddress)
	resp, err := Call[batteryLevel](t.Context(), ch, readLevel, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), resp.Value, "profile without value MUST read as the zero message")

	assert.True(t, r.Disconnect(testAddress))
	assert.False(t, r.Disconnect(testAddress), "second disconnect MUST report no channel")
	assert.Equal(t, 0, r.Len())
	assert.Eventually(t, driver.Last().Closed, time.Second, time.Millisecond, "connection MUST be closed")

	_, err = Call[batteryLevel](t.Context(), ch, readLevel, nil)
	assert.ErrorIs(t, err, ErrCallFailed, "calls on a disconnected channel MUST fail")

	assert.NotSame(t, ch, r.Channel(testAddress), "lookup after disconnect MUST create a new channel")
}

func TestRegistryClose(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Channel(testAddress)
	r.Channel("11:22:33:44:55:66")

	r.Close()
	assert.Equal(t, 0, r.Len())
}
