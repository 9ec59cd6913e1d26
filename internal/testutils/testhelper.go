package testutils

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelper carries the per-test logger shared by channels and drivers
type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a helper with a debug logger on stderr
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	return &TestHelper{T: t, Logger: logger}
}

// CreateMockPeripheralDevice starts a peripheral profile builder
func CreateMockPeripheralDevice() *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder()
}

// CreateMockPeripheralDeviceFromJSON starts a peripheral profile builder from JSON
func CreateMockPeripheralDeviceFromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder().FromJSON(jsonStrFmt, args...)
}
