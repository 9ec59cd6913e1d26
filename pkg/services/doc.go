// Package services declares typed RPC stubs for standard GATT services.
//
// Each service is a set of wire messages and rpc.Methods plus a small client
// wrapping an rpc.Channel. Messages follow the fixed-size wire layout of
// package wire.
package services
