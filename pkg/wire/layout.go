package wire

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

const tagName = "wire"

type fieldKind int

const (
	kindUnsupported fieldKind = iota
	kindInt
	kindUint
	kindBool
	kindMessage
	kindMessagePtr
	kindBlobArray
	kindBlobSlice
)

// Range is a half-open [From, To) byte interval inside a message
type Range struct {
	From int
	To   int
}

// Width returns the number of bytes covered by the range
func (r Range) Width() int {
	return r.To - r.From
}

func (r Range) overlaps(o Range) bool {
	return r.From < o.To && o.From < r.To
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// Field describes one wire field of a message
type Field struct {
	Name     string
	Range    Range
	HasRange bool

	index int
	kind  fieldKind
	typ   reflect.Type
}

// Layout is the resolved wire description of a message type.
// Layouts are immutable and shared between goroutines.
type Layout struct {
	Name    string
	Size    int
	HasSize bool
	Fields  []Field

	typ reflect.Type
	err error // tag parse failure, reported on every use
}

var layouts sync.Map // reflect.Type -> *Layout

// LayoutOf returns the validated layout of msg, which must be a struct or a
// pointer to one.
func LayoutOf(msg any) (*Layout, error) {
	t := reflect.TypeOf(msg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &CodecError{Kind: UnsupportedType, Msg: fmt.Sprintf("%v is not a struct", t)}
	}
	l := layoutOf(t)
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func layoutOf(t reflect.Type) *Layout {
	if cached, ok := layouts.Load(t); ok {
		return cached.(*Layout)
	}
	l := parseLayout(t)
	actual, _ := layouts.LoadOrStore(t, l)
	return actual.(*Layout)
}

func parseLayout(t reflect.Type) *Layout {
	l := &Layout{Name: t.String(), typ: t}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(tagName)

		if sf.Name == "_" {
			if !tagged {
				continue
			}
			size, err := parseSize(tag)
			if err != nil {
				l.err = layoutError(l, "", "%v", err)
				return l
			}
			l.Size = size
			l.HasSize = true
			continue
		}
		if !sf.IsExported() || tag == "-" {
			continue
		}

		f := Field{
			Name:  sf.Name,
			index: i,
			kind:  classify(sf.Type),
			typ:   sf.Type,
		}
		if tagged {
			r, err := parseRange(tag)
			if err != nil {
				l.err = layoutError(l, sf.Name, "%v", err)
				return l
			}
			f.Range = r
			f.HasRange = true
		}
		l.Fields = append(l.Fields, f)
	}
	return l
}

// parseSize parses "size=N"
func parseSize(tag string) (int, error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(tag), "size=")
	if !ok {
		return 0, fmt.Errorf("malformed size tag %q, want \"size=N\"", tag)
	}
	size, err := strconv.Atoi(value)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("malformed size tag %q", tag)
	}
	return size, nil
}

// parseRange parses "from:to"
func parseRange(tag string) (Range, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(tag), ":")
	if !ok {
		return Range{}, fmt.Errorf("malformed byte range tag %q, want \"from:to\"", tag)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return Range{}, fmt.Errorf("malformed byte range start in %q", tag)
	}
	e, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return Range{}, fmt.Errorf("malformed byte range end in %q", tag)
	}
	return Range{From: f, To: e}, nil
}

func classify(t reflect.Type) fieldKind {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindUint
	case reflect.Bool:
		return kindBool
	case reflect.Struct:
		return kindMessage
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return kindMessagePtr
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindBlobArray
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return kindBlobSlice
		}
	}
	return kindUnsupported
}

// validate checks every field against the declared size and its siblings.
// Overlaps are reported on the later declared field.
func (l *Layout) validate() error {
	if l.err != nil {
		return l.err
	}
	if len(l.Fields) > 0 && !l.HasSize {
		return layoutError(l, "", "message with fields must declare its size")
	}

	for i, f := range l.Fields {
		if f.kind == kindUnsupported {
			return &CodecError{Kind: UnsupportedType, Message: l.Name, Field: f.Name, Msg: fmt.Sprintf("unsupported field type %s", f.typ)}
		}
		if !f.HasRange {
			return layoutError(l, f.Name, "field has no byte range")
		}

		r := f.Range
		switch {
		case r.From < 0:
			return layoutError(l, f.Name, "byte range %s must not be negative", r)
		case r.From >= r.To:
			return layoutError(l, f.Name, "byte range %s beginning must be lower than its end", r)
		case r.To > l.Size:
			return layoutError(l, f.Name, "byte range %s exceeds message size %d", r, l.Size)
		}

		switch f.kind {
		case kindInt, kindUint:
			switch r.Width() {
			case 1, 2, 4, 8:
			default:
				return layoutError(l, f.Name, "numeric field must be 1, 2, 4 or 8 bytes wide, got %d", r.Width())
			}
		case kindBool:
			if r.Width() != 1 {
				return layoutError(l, f.Name, "boolean field must be 1 byte wide, got %d", r.Width())
			}
		case kindBlobArray:
			if f.typ.Len() != r.Width() {
				return layoutError(l, f.Name, "byte blob length %d does not match byte range width %d", f.typ.Len(), r.Width())
			}
		}

		for _, prev := range l.Fields[:i] {
			if prev.Range.overlaps(r) {
				return layoutError(l, f.Name, "byte range %s intersects field %q byte range %s", r, prev.Name, prev.Range)
			}
		}
	}
	return nil
}
