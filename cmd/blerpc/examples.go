//go:build !darwin

package main

const (
	exampleDeviceAddress = "AA:BB:CC:DD:EE:FF"
	deviceAddressNote    = "Device address format: MAC address, case-insensitive\n  Example: AA:BB:CC:DD:EE:FF"
)
