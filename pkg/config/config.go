package config

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/pkg/wire"
	"gopkg.in/yaml.v3"
)

// MaxNotificationBuffer guards against accidental misconfiguration of the
// CLI notification buffer
const MaxNotificationBuffer uint32 = 1024 * 1024

// Byte orders accepted by ByteOrder
const (
	BigEndian    = "big"
	LittleEndian = "little"
)

// Config holds application configuration
type Config struct {
	LogLevel           logrus.Level  `yaml:"log_level"`
	ByteOrder          string        `yaml:"byte_order" default:"big"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout" default:"10s"`
	NotificationBuffer uint32        `yaml:"notification_buffer" default:"64"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.LogLevel = logrus.InfoLevel
	return cfg
}

// Load reads a YAML configuration file on top of the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults and validates it
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if _, err := ParseByteOrder(c.ByteOrder); err != nil {
		return err
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.NotificationBuffer == 0 {
		return fmt.Errorf("notification_buffer must be > 0")
	}
	if c.NotificationBuffer > MaxNotificationBuffer {
		return fmt.Errorf("notification_buffer %d exceeds maximum %d", c.NotificationBuffer, MaxNotificationBuffer)
	}
	return nil
}

// ParseByteOrder maps "big" or "little" to a binary.ByteOrder
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BigEndian, "":
		return binary.BigEndian, nil
	case LittleEndian:
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("byte_order must be %q or %q, got %q", BigEndian, LittleEndian, name)
	}
}

// Codec returns the wire codec for the configured byte order
func (c *Config) Codec() (*wire.Codec, error) {
	order, err := ParseByteOrder(c.ByteOrder)
	if err != nil {
		return nil, err
	}
	return wire.NewCodec(order), nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
