package goble

import (
	"github.com/go-ble/ble"
)

var propertyNames = []struct {
	value ble.Property
	name  string
}{
	{ble.CharBroadcast, "Broadcast"},
	{ble.CharRead, "Read"},
	{ble.CharWriteNR, "WriteWithoutResponse"},
	{ble.CharWrite, "Write"},
	{ble.CharNotify, "Notify"},
	{ble.CharIndicate, "Indicate"},
	{ble.CharSignedWrite, "AuthenticatedSignedWrites"},
	{ble.CharExtended, "ExtendedProperties"},
}

// PropertyNames returns the human-readable names of the flags set in p
func PropertyNames(p ble.Property) []string {
	names := make([]string, 0, len(propertyNames))
	for _, prop := range propertyNames {
		if p&prop.value != 0 {
			names = append(names, prop.name)
		}
	}
	return names
}

// writeWithoutResponse reports whether writes to c must skip the response
func writeWithoutResponse(c *ble.Characteristic) bool {
	return c.Property&ble.CharWrite == 0 && c.Property&ble.CharWriteNR != 0
}

// indicateOnly reports whether c delivers values by indication only
func indicateOnly(c *ble.Characteristic) bool {
	return c.Property&ble.CharNotify == 0 && c.Property&ble.CharIndicate != 0
}
