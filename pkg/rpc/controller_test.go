package rpc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_CancelFiresCallbackOnce(t *testing.T) {
	ctrl := NewController()
	var calls int
	ctrl.OnCancel(func() { calls++ })

	ctrl.Cancel()
	ctrl.Cancel()

	assert.True(t, ctrl.IsCanceled())
	assert.Equal(t, 1, calls, "cancel callback MUST fire at most once")
}

func TestController_OnCancelAfterCancelRunsImmediately(t *testing.T) {
	ctrl := NewController()
	ctrl.Cancel()

	var calls int
	ctrl.OnCancel(func() { calls++ })
	assert.Equal(t, 1, calls)

	ctrl.Cancel()
	assert.Equal(t, 1, calls, "a callback run immediately MUST NOT be stored")
}

func TestController_OnCancelReplacesPreviousCallback(t *testing.T) {
	ctrl := NewController()
	var first, second int
	ctrl.OnCancel(func() { first++ })
	ctrl.OnCancel(func() { second++ })

	ctrl.Cancel()

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestController_CallbackMayCancelAgain(t *testing.T) {
	ctrl := NewController()
	var calls int
	ctrl.OnCancel(func() {
		calls++
		ctrl.Cancel()
	})

	ctrl.Cancel()
	assert.Equal(t, 1, calls)
}

func TestController_FailureIsIndependentOfCancel(t *testing.T) {
	ctrl := NewController()
	assert.False(t, ctrl.Failed())
	assert.Equal(t, "", ctrl.ErrorText())
	assert.NoError(t, ctrl.Err())

	ctrl.SetFailed("boom")
	ctrl.Cancel()

	assert.True(t, ctrl.Failed())
	assert.True(t, ctrl.IsCanceled())
	assert.Equal(t, "boom", ctrl.ErrorText())

	err := ctrl.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallFailed)
	assert.Equal(t, "rpc call failed: boom", err.Error())
}

func TestController_Reset(t *testing.T) {
	ctrl := NewController()
	var calls int
	ctrl.OnCancel(func() { calls++ })
	ctrl.SetFailed("boom")
	ctrl.subscribeSucceeded()

	ctrl.Reset()

	assert.False(t, ctrl.IsCanceled())
	assert.False(t, ctrl.Failed())
	assert.False(t, ctrl.Subscribed())
	assert.Equal(t, "", ctrl.ErrorText())

	ctrl.Cancel()
	assert.Equal(t, 0, calls, "reset MUST drop the registered callback")
}

func TestController_SubscribedHook(t *testing.T) {
	ctrl := NewController()
	var calls int
	ctrl.OnSubscribed(func() { calls++ })

	ctrl.subscribeSucceeded()

	assert.True(t, ctrl.Subscribed())
	assert.Equal(t, 1, calls)
}

func TestController_ConcurrentCancelAndRegister(t *testing.T) {
	// GOAL: Verify a callback registered concurrently with Cancel is never lost and never runs twice
	//
	// TEST SCENARIO: race OnCancel against Cancel many times → each controller's callback fires exactly once
	for i := 0; i < 200; i++ {
		ctrl := NewController()
		var calls atomic.Int32
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctrl.OnCancel(func() { calls.Add(1) })
		}()
		go func() {
			defer wg.Done()
			ctrl.Cancel()
		}()
		wg.Wait()
		require.Equal(t, int32(1), calls.Load(), "iteration %d", i)
	}
}

func TestNewControllerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewControllerWithContext(ctx)
	assert.False(t, ctrl.IsCanceled())

	cancel()
	assert.Eventually(t, ctrl.IsCanceled, time.Second, time.Millisecond)
}
