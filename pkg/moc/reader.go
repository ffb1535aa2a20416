package moc

import (
	"fmt"
	"math"
)

// Factory decodes the body of one class instance. Factories report failures
// through Reader.Fail; the reader's sticky error short-circuits every later
// read.
type Factory func(r *Reader) any

// Registry maps class numbers to factories.
type Registry map[int]Factory

// Reader is a sequential cursor over a fully resident stream body.
//
// Reads past the end of the buffer set a sticky ErrEOF and return zero
// values, so decoders can read a whole record and check Err once.
type Reader struct {
	data   []byte
	pos    int
	order  ByteOrder
	header Header

	bitBuf   byte
	bitCount int

	registry Registry
	loaded   []any
	intern   map[string]string

	main    Allocator
	scratch Allocator

	err error
}

// NewReader parses the stream header and positions the cursor at the start
// of the body. Both pools default to Heap.
func NewReader(data []byte, reg Registry) (*Reader, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	r := NewBodyReader(data[HeaderSize:], h, reg)
	return r, nil
}

// NewBodyReader reads a headerless body with an explicit header.
func NewBodyReader(body []byte, h Header, reg Registry) *Reader {
	return &Reader{
		data:     body,
		order:    h.ByteOrder(),
		header:   h,
		registry: reg,
		intern:   make(map[string]string),
		main:     Heap{},
		scratch:  Heap{},
	}
}

// SetAllocators selects the pools used for decoded arrays. Float arrays go
// to main; int arrays go to scratch because decoders narrow them.
func (r *Reader) SetAllocators(main, scratch Allocator) {
	if main != nil {
		r.main = main
	}
	if scratch != nil {
		r.scratch = scratch
	}
}

// Main returns the model-lifetime pool.
func (r *Reader) Main() Allocator { return r.main }

// Scratch returns the transient decode pool.
func (r *Reader) Scratch() Allocator { return r.scratch }

// Header returns the stream header.
func (r *Reader) Header() Header { return r.header }

// Version returns the declared format version.
func (r *Reader) Version() int { return r.header.Version }

// Offset returns the cursor position within the body.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns the number of unread body bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Fail records err unless an earlier error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Loaded returns the number of objects available for back-references.
func (r *Reader) Loaded() int { return len(r.loaded) }

// Intern returns the canonical copy of s for this load.
func (r *Reader) Intern(s string) string {
	if v, ok := r.intern[s]; ok {
		return v
	}
	r.intern[s] = s
	return s
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrEOF, n, r.pos, len(r.data)-r.pos)
		return false
	}
	return true
}

func (r *Reader) take(n int) []byte {
	r.bitCount = 0
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Rollback moves the cursor back by n bytes.
func (r *Reader) Rollback(n int) {
	r.bitCount = 0
	if r.err != nil {
		return
	}
	if n < 0 || n > r.pos {
		r.err = fmt.Errorf("%w: %d bytes at offset %d", ErrRollback, n, r.pos)
		return
	}
	r.pos -= n
}

// ReadBit reads one packed boolean. Bits are consumed most significant
// first, eight per byte.
func (r *Reader) ReadBit() bool {
	if r.bitCount == 0 {
		if !r.need(1) {
			return false
		}
		r.bitBuf = r.data[r.pos]
		r.pos++
	}
	bit := r.bitBuf>>(7-r.bitCount)&1 == 1
	r.bitCount = (r.bitCount + 1) % 8
	return bit
}

// ReadNum reads a variable-length unsigned count.
func (r *Reader) ReadNum() int {
	b := r.take(1)
	if b == nil {
		return 0
	}
	v := int(b[0] & 0x7F)
	if b[0]&0x80 == 0 {
		return v
	}
	for i := 1; i < 4; i++ {
		if !r.need(1) {
			return 0
		}
		c := r.data[r.pos]
		r.pos++
		if i == 3 {
			return v<<8 | int(c)
		}
		v = v<<7 | int(c&0x7F)
		if c&0x80 == 0 {
			return v
		}
	}
	return v
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadShort reads a 16-bit integer.
func (r *Reader) ReadShort() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(r.order.Uint16(b))
}

// ReadInt reads a 32-bit integer.
func (r *Reader) ReadInt() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(r.order.Uint32(b))
}

// ReadLong reads a 64-bit integer.
func (r *Reader) ReadLong() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(r.order.Uint64(b))
}

// ReadFloat reads an IEEE-754 single.
func (r *Reader) ReadFloat() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(r.order.Uint32(b))
}

// ReadDouble reads an IEEE-754 double.
func (r *Reader) ReadDouble() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(r.order.Uint64(b))
}

// ReadStringRef reads a length-prefixed string and returns a slice of the
// underlying buffer. The slice is only valid while the buffer is.
func (r *Reader) ReadStringRef() []byte {
	n := r.ReadNum()
	return r.take(n)
}

// ReadString reads a length-prefixed string into an owned copy.
func (r *Reader) ReadString() string {
	return string(r.ReadStringRef())
}

// ReadObject reads one tagged value: nil, string, []any, []int32,
// []float64, []float32, a back-referenced object or a registered class.
func (r *Reader) ReadObject() any {
	if r.err != nil {
		return nil
	}
	start := r.pos
	tag := r.ReadNum()
	if r.err != nil {
		return nil
	}

	switch tag {
	case TagNull:
		return nil

	case TagString:
		s := r.Intern(r.ReadString())
		if r.err != nil {
			return nil
		}
		r.loaded = append(r.loaded, s)
		return s

	case TagObjectArray:
		n := r.ReadNum()
		// every element is at least one tag byte
		if !r.fits(n, 1) {
			return nil
		}
		arr := make([]any, n)
		for i := range arr {
			arr[i] = r.ReadObject()
			if r.err != nil {
				return nil
			}
		}
		return arr

	case TagInt32Array:
		n := r.ReadNum()
		if !r.fits(n, 4) {
			return nil
		}
		arr := r.scratch.Int32s(n)
		for i := range arr {
			arr[i] = r.ReadInt()
		}
		return arr

	case TagFloat64Array:
		n := r.ReadNum()
		if !r.fits(n, 8) {
			return nil
		}
		arr := make([]float64, n)
		for i := range arr {
			arr[i] = r.ReadDouble()
		}
		return arr

	case TagFloat32Array:
		n := r.ReadNum()
		if !r.fits(n, 4) {
			return nil
		}
		arr := r.main.Float32s(n)
		for i := range arr {
			arr[i] = r.ReadFloat()
		}
		return arr

	case TagBackRef:
		idx := int(r.ReadInt())
		if r.err != nil {
			return nil
		}
		if idx < 0 || idx >= len(r.loaded) {
			r.Fail(&ReferenceError{Index: idx, Loaded: len(r.loaded)})
			return nil
		}
		return r.loaded[idx]
	}

	f, ok := r.registry[tag]
	if !ok {
		r.Fail(&ClassError{Class: tag, Offset: start})
		return nil
	}
	v := f(r)
	if r.err != nil {
		return nil
	}
	r.loaded = append(r.loaded, v)
	return v
}

// fits checks that n elements of at least size bytes each can still be read.
func (r *Reader) fits(n, size int) bool {
	if r.err != nil {
		return false
	}
	if n > r.Remaining()/size {
		r.err = fmt.Errorf("%w: array of %d elements at offset %d, %d bytes left", ErrEOF, n, r.pos, r.Remaining())
		return false
	}
	return true
}

// ReadEnd consumes the end marker.
func (r *Reader) ReadEnd() error {
	if r.err != nil {
		return r.err
	}
	if uint32(r.ReadInt()) != EndMarker {
		r.Fail(fmt.Errorf("%w: missing end marker at offset %d", ErrEOF, r.pos))
	}
	return r.err
}

// ReadRoot reads the root object followed by the end marker.
func (r *Reader) ReadRoot() (any, error) {
	root := r.ReadObject()
	if err := r.ReadEnd(); err != nil {
		return nil, err
	}
	return root, nil
}

// Expect reads an object and asserts its type. A nil object yields the zero
// value of T without error.
func Expect[T any](r *Reader, what string) T {
	var zero T
	v := r.ReadObject()
	if v == nil || r.err != nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		r.Fail(fmt.Errorf("%w: %s is %T, want %T", ErrUnexpectedObject, what, v, zero))
		return zero
	}
	return t
}

// ExpectList reads an object array and asserts every element's type. Nil
// elements are rejected.
func ExpectList[T any](r *Reader, what string) []T {
	arr := Expect[[]any](r, what)
	if arr == nil {
		return nil
	}
	out := make([]T, len(arr))
	for i, v := range arr {
		t, ok := v.(T)
		if !ok {
			var zero T
			r.Fail(fmt.Errorf("%w: %s[%d] is %T, want %T", ErrUnexpectedObject, what, i, v, zero))
			return nil
		}
		out[i] = t
	}
	return out
}
