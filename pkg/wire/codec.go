package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Enum is implemented by integer types whose values form a closed set.
// Decoding a value for which Defined reports false fails with ErrUnknownEnum.
type Enum interface {
	Defined() bool
}

// Codec encodes and decodes messages with a fixed byte order.
// It holds no other state and is safe for concurrent use.
type Codec struct {
	order binary.ByteOrder
}

// NewCodec creates a Codec. A nil order selects big-endian.
func NewCodec(order binary.ByteOrder) *Codec {
	if order == nil {
		order = binary.BigEndian
	}
	return &Codec{order: order}
}

// ByteOrder returns the order applied to multi-byte integers
func (c *Codec) ByteOrder() binary.ByteOrder {
	return c.order
}

// Encode packs msg, a struct or pointer to struct, into its declared size.
// A message without fields and size encodes to an empty slice.
func (c *Codec) Encode(msg any) ([]byte, error) {
	v := reflect.ValueOf(msg)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, &CodecError{Kind: UnsupportedType, Msg: "cannot encode a nil message"}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, &CodecError{Kind: UnsupportedType, Msg: fmt.Sprintf("%T is not a struct", msg)}
	}
	return c.encodeValue(v)
}

func (c *Codec) encodeValue(v reflect.Value) ([]byte, error) {
	l := layoutOf(v.Type())
	if err := l.validate(); err != nil {
		return nil, err
	}
	if l.Size == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, l.Size)
	for _, f := range l.Fields {
		fv := v.Field(f.index)
		if fv.IsZero() {
			continue
		}

		raw, err := c.encodeField(l, f, fv)
		if err != nil {
			return nil, err
		}

		dst := buf[f.Range.From:f.Range.To]
		if !isZeroBytes(dst) {
			return nil, layoutError(l, f.Name, "byte range %s intersects another field", f.Range)
		}
		copy(dst, raw)
	}
	return buf, nil
}

func (c *Codec) encodeField(l *Layout, f Field, fv reflect.Value) ([]byte, error) {
	width := f.Range.Width()
	switch f.kind {
	case kindInt:
		return c.putUint(width, uint64(fv.Int())), nil
	case kindUint:
		return c.putUint(width, fv.Uint()), nil
	case kindBool:
		return []byte{1}, nil
	case kindMessage, kindMessagePtr:
		if f.kind == kindMessagePtr {
			fv = fv.Elem()
		}
		raw, err := c.encodeValue(fv)
		if err != nil {
			return nil, err
		}
		if len(raw) != width {
			return nil, layoutError(l, f.Name, "nested message size %d does not match byte range width %d", len(raw), width)
		}
		return raw, nil
	case kindBlobArray:
		raw := make([]byte, fv.Len())
		reflect.Copy(reflect.ValueOf(raw), fv)
		return raw, nil
	case kindBlobSlice:
		raw := fv.Bytes()
		if len(raw) != width {
			return nil, layoutError(l, f.Name, "byte blob length %d does not match byte range width %d", len(raw), width)
		}
		return raw, nil
	}
	return nil, &CodecError{Kind: UnsupportedType, Message: l.Name, Field: f.Name, Msg: fmt.Sprintf("unsupported field type %s", f.typ)}
}

func (c *Codec) putUint(width int, x uint64) []byte {
	out := make([]byte, width)
	switch width {
	case 1:
		out[0] = byte(x)
	case 2:
		c.order.PutUint16(out, uint16(x))
	case 4:
		c.order.PutUint32(out, uint32(x))
	case 8:
		c.order.PutUint64(out, x)
	}
	return out
}

func (c *Codec) uint(raw []byte) uint64 {
	switch len(raw) {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(c.order.Uint16(raw))
	case 4:
		return uint64(c.order.Uint32(raw))
	default:
		return c.order.Uint64(raw)
	}
}

// Decode unpacks data into out, which must be a non-nil pointer to a struct.
// Empty data yields the zero message; any other length must equal the
// declared size.
func (c *Codec) Decode(data []byte, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return &CodecError{Kind: UnsupportedType, Msg: fmt.Sprintf("decode target %T must be a non-nil pointer to a struct", out)}
	}
	return c.decodeValue(data, v.Elem())
}

func (c *Codec) decodeValue(data []byte, v reflect.Value) error {
	l := layoutOf(v.Type())
	if err := l.validate(); err != nil {
		return err
	}

	v.Set(reflect.Zero(v.Type()))
	if len(data) == 0 {
		return nil
	}
	if len(data) != l.Size {
		return &CodecError{Kind: SizeMismatch, Message: l.Name, Msg: fmt.Sprintf("message declares %d bytes, got %d", l.Size, len(data))}
	}

	for _, f := range l.Fields {
		raw := data[f.Range.From:f.Range.To]
		fv := v.Field(f.index)

		switch f.kind {
		case kindInt:
			shift := 64 - 8*uint(len(raw))
			fv.SetInt(int64(c.uint(raw)<<shift) >> shift)
		case kindUint:
			fv.SetUint(c.uint(raw))
		case kindBool:
			fv.SetBool(raw[0] != 0)
		case kindMessage:
			if err := c.decodeValue(raw, fv); err != nil {
				return err
			}
		case kindMessagePtr:
			nested := reflect.New(f.typ.Elem())
			if err := c.decodeValue(raw, nested.Elem()); err != nil {
				return err
			}
			fv.Set(nested)
		case kindBlobArray:
			reflect.Copy(fv, reflect.ValueOf(raw))
		case kindBlobSlice:
			fv.SetBytes(bytes.Clone(raw))
		}

		if (f.kind == kindInt || f.kind == kindUint) && !enumDefined(fv) {
			return &CodecError{Kind: UnknownEnum, Message: l.Name, Field: f.Name, Msg: fmt.Sprintf("value %v is not defined for %s", fv.Interface(), f.typ)}
		}
	}
	return nil
}

func enumDefined(fv reflect.Value) bool {
	if e, ok := fv.Interface().(Enum); ok {
		return e.Defined()
	}
	if fv.CanAddr() {
		if e, ok := fv.Addr().Interface().(Enum); ok {
			return e.Defined()
		}
	}
	return true
}

func isZeroBytes(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

// Default is the big-endian codec
var Default = NewCodec(binary.BigEndian)

// Encode packs msg with the big-endian codec
func Encode(msg any) ([]byte, error) {
	return Default.Encode(msg)
}

// Decode unpacks data into out with the big-endian codec
func Decode(data []byte, out any) error {
	return Default.Decode(data, out)
}
