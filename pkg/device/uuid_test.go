package device

import (
	"strings"
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// 16-bit UUID formats
		{name: "16-bit UUID lowercase", input: "2902", expected: "2902"},
		{name: "16-bit UUID uppercase", input: "2A19", expected: "2a19"},
		{name: "16-bit UUID with 0x prefix lowercase", input: "0x2902", expected: "2902"},
		{name: "16-bit UUID with 0X prefix uppercase", input: "0X2902", expected: "2902"},

		// Bluetooth SIG base UUID format (should extract 16-bit form)
		{name: "Full Bluetooth SIG UUID with dashes", input: "00002902-0000-1000-8000-00805f9b34fb", expected: "2902"},
		{name: "Full Bluetooth SIG UUID without dashes", input: "0000290200001000800000805f9b34fb", expected: "2902"},
		{name: "Full Bluetooth SIG UUID uppercase", input: "00002A37-0000-1000-8000-00805F9B34FB", expected: "2a37"},

		// Custom 128-bit UUIDs (should NOT be shortened)
		{name: "Custom UUID - wrong prefix", input: "AA002902-0000-1000-8000-00805f9b34fb", expected: "aa00290200001000800000805f9b34fb"},
		{name: "Custom UUID - wrong suffix", input: "00002902-1234-5678-9abc-def012345678", expected: "00002902123456789abcdef012345678"},
		{name: "Custom UUID", input: "6e400001-b5a3-f393-e0a9-e50e24dcca9e", expected: "6e400001b5a3f393e0a9e50e24dcca9e"},

		// Edge cases
		{name: "Empty string", input: "", expected: ""},
		{name: "Surrounding spaces", input: " 180F ", expected: "180f"},
		{name: "32-bit UUID format", input: "12345678", expected: "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}

func TestNormalizeUUIDs(t *testing.T) {
	input := []string{"2902", "0x180d", "00002a37-0000-1000-8000-00805f9b34fb"}
	assert.Equal(t, []string{"2902", "180d", "2a37"}, NormalizeUUIDs(input))
}

// Test edge cases that should NOT be shortened
func TestNormalizeUUID_NoShortening(t *testing.T) {
	inputs := []string{
		"AA002902-0000-1000-8000-00805f9b34fb",
		"00002902-1234-5678-9abc-def012345678",
		"0000290200001000800000805f9b34fb00",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			result := NormalizeUUID(input)
			assert.NotEqual(t, "2902", result)
			assert.Equal(t, strings.ToLower(strings.ReplaceAll(input, "-", "")), result)
		})
	}
}

func TestUUIDKey(t *testing.T) {
	short := ble.UUID16(0x2a19)
	long := ble.MustParse("00002a19-0000-1000-8000-00805f9b34fb")

	assert.Equal(t, "2a19", UUIDKey(short))
	assert.Equal(t, "2a19", UUIDKey(long))
	assert.True(t, SameUUID(short, long), "16-bit and SIG base forms MUST share a key")
	assert.False(t, SameUUID(short, ble.UUID16(0x2a37)))
	assert.Equal(t, "", UUIDKey(nil))
}

func TestParseUUID(t *testing.T) {
	u, err := ParseUUID("0x2A19")
	require.NoError(t, err)
	assert.True(t, u.Equal(ble.UUID16(0x2a19)))

	u, err = ParseUUID("6E400001-B5A3-F393-E0A9-E50E24DCCA9E")
	require.NoError(t, err)
	assert.Equal(t, "6e400001b5a3f393e0a9e50e24dcca9e", UUIDKey(u))

	_, err = ParseUUID("")
	assert.Error(t, err)

	_, err = ParseUUID("zz")
	assert.Error(t, err)

	assert.Panics(t, func() { MustParseUUID("not-a-uuid") })
}

func TestValidateUUID(t *testing.T) {
	got, err := ValidateUUID("180F", "0x2a19")
	require.NoError(t, err)
	assert.Equal(t, []string{"180f", "2a19"}, got)

	_, err = ValidateUUID()
	assert.Error(t, err)

	_, err = ValidateUUID("180f", "")
	assert.ErrorContains(t, err, "index 1")
}

func TestShortenUUID(t *testing.T) {
	assert.Equal(t, "6e400001", ShortenUUID("6e400001b5a3f393e0a9e50e24dcca9e"))
	assert.Equal(t, "2a19", ShortenUUID("2a19"))
}
