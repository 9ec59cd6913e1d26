package rpc

import (
	"strings"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/pkg/device"
)

// Registry keeps one Channel per device address
type Registry struct {
	driver device.Driver
	codec  Codec
	opts   []Option
	logger *logrus.Logger

	mu       sync.Mutex // serializes channel creation
	channels *hashmap.Map[string, *Channel]
}

// NewRegistry creates a registry whose channels share driver, codec and opts
func NewRegistry(driver device.Driver, codec Codec, logger *logrus.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		driver:   driver,
		codec:    codec,
		opts:     append([]Option{WithLogger(logger)}, opts...),
		logger:   logger,
		channels: hashmap.New[string, *Channel](),
	}
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Channel returns the channel for address, creating it on first use
func (r *Registry) Channel(address string) *Channel {
	key := normalizeAddress(address)
	if ch, ok := r.channels.Get(key); ok {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels.Get(key); ok {
		return ch
	}
	ch := NewChannel(address, r.driver, r.codec, r.opts...)
	r.channels.Set(key, ch)
	r.logger.WithField("address", address).Debug("Channel created")
	return ch
}

// Disconnect closes and forgets the channel for address.
// It reports whether a channel existed.
func (r *Registry) Disconnect(address string) bool {
	key := normalizeAddress(address)

	r.mu.Lock()
	ch, ok := r.channels.Get(key)
	if ok {
		r.channels.Del(key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := ch.Close(); err != nil {
		r.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Warn("Failed to close channel")
	}
	return true
}

// Len returns the number of live channels
func (r *Registry) Len() int {
	return r.channels.Len()
}

// Close disconnects every channel
func (r *Registry) Close() {
	var addresses []string
	r.channels.Range(func(key string, _ *Channel) bool {
		addresses = append(addresses, key)
		return true
	})
	for _, address := range addresses {
		r.Disconnect(address)
	}
}
