package device

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID 0000xxxx-0000-1000-8000-00805f9b34fb
const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the internal BLE library format (lowercase, no dashes).
// Strips a 0x prefix if present (e.g., "0x2902" -> "2902").
// For full 128-bit UUIDs in Bluetooth SIG base format (0000xxxx-0000-1000-8000-00805f9b34fb),
// extracts the 16-bit short form (xxxx).
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}

// NormalizeUUIDs normalizes a slice of UUID strings to internal format
func NormalizeUUIDs(uuids []string) []string {
	result := make([]string, len(uuids))
	for i, uuid := range uuids {
		result[i] = NormalizeUUID(uuid)
	}
	return result
}

// UUIDKey returns the normalized string form of u, suitable as a map key.
// Equal UUIDs in 16-bit and SIG base 128-bit form share a key.
func UUIDKey(u ble.UUID) string {
	if len(u) == 0 {
		return ""
	}
	return NormalizeUUID(u.String())
}

// SameUUID reports whether a and b identify the same attribute
func SameUUID(a, b ble.UUID) bool {
	return UUIDKey(a) == UUIDKey(b)
}

// ParseUUID parses any accepted UUID notation into a ble.UUID
func ParseUUID(uuid string) (ble.UUID, error) {
	normalized := NormalizeUUID(uuid)
	if normalized == "" {
		return nil, fmt.Errorf("UUID cannot be empty")
	}
	u, err := ble.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID %q: %w", uuid, err)
	}
	return u, nil
}

// MustParseUUID is like ParseUUID but panics on malformed input
func MustParseUUID(uuid string) ble.UUID {
	u, err := ParseUUID(uuid)
	if err != nil {
		panic(err)
	}
	return u
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Returns the first eight characters for long UUIDs and short UUIDs by themselves.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// ValidateUUID validates that UUID strings are non-empty and well-formed.
// Returns normalized UUID strings or an error.
func ValidateUUID(uuids ...string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("at least one UUID is required")
	}

	result := make([]string, 0, len(uuids))
	for i, uuid := range uuids {
		if uuid == "" {
			return nil, fmt.Errorf("UUID at index %d cannot be empty", i)
		}
		if _, err := ParseUUID(uuid); err != nil {
			return nil, fmt.Errorf("invalid UUID format at index %d: %s", i, uuid)
		}
		result = append(result, NormalizeUUID(uuid))
	}
	return result, nil
}
