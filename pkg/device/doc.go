// Package device defines the GATT capability surface the RPC channel drives.
//
// A Driver opens a Gatt connection to a device address. Every Gatt operation
// is a request that completes later through an Event delivered to the
// connection's Handler, so a single consumer can serialize all GATT traffic
// without blocking.
package device
