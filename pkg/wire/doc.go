// Package wire converts Go structs to and from the fixed-layout byte blobs
// exposed by BLE characteristics.
//
// A message is a struct whose exported fields carry a half-open byte range in
// a `wire` tag. The total message size is declared on a blank field:
//
//	type BatteryLevel struct {
//	    _     struct{} `wire:"size=1"`
//	    Level uint8    `wire:"0:1"`
//	}
//
// Supported field kinds are integers (1, 2, 4 or 8 bytes wide), bool (1 byte),
// named integer enums, nested messages (struct or pointer to struct) and
// fixed-length byte blobs ([N]byte or []byte). Strings and floating point
// values are rejected with ErrUnsupportedType.
//
// Fields holding their zero value are treated as absent and leave their bytes
// zeroed on encode. Multi-byte integers use the Codec's byte order.
package wire
