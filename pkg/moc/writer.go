package moc

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
)

// Encodable is a class instance the Writer can serialize.
type Encodable interface {
	MOCClass() int
	EncodeMOC(w *Writer)
}

// Writer builds a stream with the same layout Reader consumes. Strings and
// class objects written twice are emitted as back-references, so shared
// identities survive a round trip.
type Writer struct {
	buf    bytes.Buffer
	header Header
	order  ByteOrder

	bitBuf   byte
	bitCount int

	refs  map[any]int
	count int

	err error
}

// NewWriter creates a writer for the given header.
func NewWriter(h Header) *Writer {
	return &Writer{
		header: h,
		order:  h.ByteOrder(),
		refs:   make(map[any]int),
	}
}

// Version returns the format version being written.
func (w *Writer) Version() int { return w.header.Version }

// Err returns the first encoding error.
func (w *Writer) Err() error { return w.err }

func (w *Writer) flushBits() {
	if w.bitCount > 0 {
		w.buf.WriteByte(w.bitBuf)
		w.bitBuf = 0
		w.bitCount = 0
	}
}

// WriteBit appends one packed boolean.
func (w *Writer) WriteBit(v bool) {
	if v {
		w.bitBuf |= 1 << (7 - w.bitCount)
	}
	w.bitCount++
	if w.bitCount == 8 {
		w.flushBits()
	}
}

// WriteNum appends a variable-length count. Values must fit in 29 bits.
func (w *Writer) WriteNum(n int) {
	w.flushBits()
	switch {
	case n < 0 || n >= 1<<29:
		w.fail(fmt.Errorf("%w: num %d out of range", ErrUnencodable, n))
	case n < 1<<7:
		w.buf.WriteByte(byte(n))
	case n < 1<<14:
		w.buf.WriteByte(byte(n>>7) | 0x80)
		w.buf.WriteByte(byte(n & 0x7F))
	case n < 1<<21:
		w.buf.WriteByte(byte(n>>14) | 0x80)
		w.buf.WriteByte(byte(n>>7) | 0x80)
		w.buf.WriteByte(byte(n & 0x7F))
	default:
		w.buf.WriteByte(byte(n>>22) | 0x80)
		w.buf.WriteByte(byte(n>>15) | 0x80)
		w.buf.WriteByte(byte(n>>8) | 0x80)
		w.buf.WriteByte(byte(n))
	}
}

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v byte) {
	w.flushBits()
	w.buf.WriteByte(v)
}

// WriteShort appends a 16-bit integer.
func (w *Writer) WriteShort(v int16) {
	w.flushBits()
	w.buf.Write(w.order.AppendUint16(nil, uint16(v)))
}

// WriteInt appends a 32-bit integer.
func (w *Writer) WriteInt(v int32) {
	w.flushBits()
	w.buf.Write(w.order.AppendUint32(nil, uint32(v)))
}

// WriteLong appends a 64-bit integer.
func (w *Writer) WriteLong(v int64) {
	w.flushBits()
	w.buf.Write(w.order.AppendUint64(nil, uint64(v)))
}

// WriteFloat appends an IEEE-754 single.
func (w *Writer) WriteFloat(v float32) {
	w.flushBits()
	w.buf.Write(w.order.AppendUint32(nil, math.Float32bits(v)))
}

// WriteDouble appends an IEEE-754 double.
func (w *Writer) WriteDouble(v float64) {
	w.flushBits()
	w.buf.Write(w.order.AppendUint64(nil, math.Float64bits(v)))
}

// WriteString appends a length-prefixed string without a tag.
func (w *Writer) WriteString(s string) {
	w.WriteNum(len(s))
	w.buf.WriteString(s)
}

// WriteObject appends a tagged value. Supported values are nil, string,
// []any, []int32, []uint16 (widened to int32), []float64, []float32 and
// Encodable.
func (w *Writer) WriteObject(v any) {
	if w.err != nil {
		return
	}
	switch x := v.(type) {
	case nil:
		w.WriteNum(TagNull)

	case string:
		if w.backRef(x) {
			return
		}
		w.WriteNum(TagString)
		w.WriteString(x)
		w.register(x)

	case []any:
		w.WriteNum(TagObjectArray)
		w.WriteNum(len(x))
		for _, e := range x {
			w.WriteObject(e)
		}

	case []int32:
		w.WriteNum(TagInt32Array)
		w.WriteNum(len(x))
		for _, e := range x {
			w.WriteInt(e)
		}

	case []uint16:
		w.WriteNum(TagInt32Array)
		w.WriteNum(len(x))
		for _, e := range x {
			w.WriteInt(int32(e))
		}

	case []float64:
		w.WriteNum(TagFloat64Array)
		w.WriteNum(len(x))
		for _, e := range x {
			w.WriteDouble(e)
		}

	case []float32:
		w.WriteNum(TagFloat32Array)
		w.WriteNum(len(x))
		for _, e := range x {
			w.WriteFloat(e)
		}

	case Encodable:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			w.WriteNum(TagNull)
			return
		}
		if w.backRef(x) {
			return
		}
		w.WriteNum(x.MOCClass())
		x.EncodeMOC(w)
		w.register(x)

	default:
		w.fail(fmt.Errorf("%w: %T", ErrUnencodable, v))
	}
}

func (w *Writer) backRef(v any) bool {
	if !reflect.TypeOf(v).Comparable() {
		return false
	}
	idx, ok := w.refs[v]
	if !ok {
		return false
	}
	w.WriteNum(TagBackRef)
	w.WriteInt(int32(idx))
	return true
}

func (w *Writer) register(v any) {
	if reflect.TypeOf(v).Comparable() {
		if _, ok := w.refs[v]; !ok {
			w.refs[v] = w.count
		}
	}
	w.count++
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Body returns the bytes written so far, without header or end marker.
func (w *Writer) Body() []byte {
	w.flushBits()
	return w.buf.Bytes()
}

// Encode serializes root as a complete stream: header, root object and end
// marker.
func Encode(h Header, root any) ([]byte, error) {
	if h.Version < VersionInitial || h.Version > VersionCurrent {
		return nil, &VersionError{Version: h.Version}
	}
	w := NewWriter(h)
	w.WriteObject(root)
	end := uint32(EndMarker)
	w.WriteInt(int32(end))
	if w.err != nil {
		return nil, w.err
	}
	out := make([]byte, 0, HeaderSize+w.buf.Len())
	out = append(out, h.bytes()...)
	return append(out, w.Body()...), nil
}
