// Package wire implements the fixed, length-prefixed binary format used for
// argument values, results and capability objects. Nothing on the wire is
// self-describing: every decode is driven by an expected type or layout.
//
// Integers are little-endian. Vector counts are ULEB128. Options are a
// one-byte discriminant (0 or 1) followed by the payload iff present.
package wire

import (
	"io"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

const (
	// MaxULEB128Bytes bounds length encodings to 32-bit values.
	MaxULEB128Bytes = 5

	U128Size = 16
	U256Size = 32
)

var (
	ErrMalformedLength    = ierrors.New("malformed length prefix")
	ErrUnexpectedEOF      = ierrors.New("unexpected end of value bytes")
	ErrTrailingBytes      = ierrors.New("trailing bytes after value")
	ErrInvalidBoolValue   = ierrors.New("boolean byte is neither 0 nor 1")
	ErrInvalidOptionValue = ierrors.New("option discriminant is neither 0 nor 1")
	ErrNonCanonicalLength = ierrors.New("length prefix is not minimally encoded")
)

// WriteLen appends the ULEB128 encoding of n.
func WriteLen(w io.Writer, n int) error {
	v := uint64(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := stream.Write(w, b); err != nil {
			return ierrors.Wrap(err, "unable to write length prefix")
		}
		if v == 0 {
			return nil
		}
	}
}

// EncodeLen returns the ULEB128 encoding of n.
func EncodeLen(n int) []byte {
	buf := stream.NewByteBuffer()
	_ = WriteLen(buf, n)

	return lo.PanicOnErr(buf.Bytes())
}

// Reader decodes wire bytes with explicit position tracking so callers can
// reject trailing garbage.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Done fails unless every byte has been consumed.
func (r *Reader) Done() error {
	if r.pos != len(r.data) {
		return ierrors.Wrapf(ErrTrailingBytes, "%d bytes remain", len(r.data)-r.pos)
	}

	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++

	return b, nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ierrors.Wrapf(ErrUnexpectedEOF, "need %d bytes, have %d", n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

// ReadLen decodes a ULEB128 length, rejecting overlong and oversized
// encodings so every value has exactly one byte representation.
func (r *Reader) ReadLen() (int, error) {
	var value uint64
	var shift uint
	for i := 0; i < MaxULEB128Bytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, ierrors.Wrap(ErrMalformedLength, "truncated length prefix")
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, ErrNonCanonicalLength
			}
			if value > uint64(^uint32(0)) {
				return 0, ierrors.Wrap(ErrMalformedLength, "length exceeds 32 bits")
			}

			return int(value), nil
		}
		shift += 7
	}

	return 0, ierrors.Wrap(ErrMalformedLength, "length prefix too long")
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, ErrInvalidBoolValue
	}

	return b == 1, nil
}

// ReadOption decodes the discriminant and returns whether a payload follows.
func (r *Reader) ReadOption() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, ErrInvalidOptionValue
	}

	return b == 1, nil
}

func (r *Reader) ReadUint(width int) (uint64, error) {
	b, err := r.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	var value uint64
	for i := width - 1; i >= 0; i-- {
		value = value<<8 | uint64(b[i])
	}

	return value, nil
}

func (r *Reader) ReadAddress() (vmtype.Address, error) {
	b, err := r.ReadBytes(vmtype.AddressLength)
	if err != nil {
		return vmtype.Address{}, err
	}

	return vmtype.AddressFromBytes(b)
}

// Encode helpers for the primitive shapes used as transaction inputs.

func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}

	return []byte{0}
}

func EncodeU8(v uint8) []byte {
	return []byte{v}
}

func EncodeU16(v uint16) []byte {
	return encodeUint(uint64(v), 2)
}

func EncodeU32(v uint32) []byte {
	return encodeUint(uint64(v), 4)
}

func EncodeU64(v uint64) []byte {
	return encodeUint(v, 8)
}

func EncodeAddress(a vmtype.Address) []byte {
	b := make([]byte, vmtype.AddressLength)
	copy(b, a[:])

	return b
}

// EncodeString encodes a string as a ULEB128 byte count plus raw bytes.
func EncodeString(s string) []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_ = WriteLen(buf, len(s))
	_, _ = buf.Write([]byte(s))

	return lo.PanicOnErr(buf.Bytes())
}

// EncodeOptionNone is the encoding of an absent optional of any type.
func EncodeOptionNone() []byte {
	return []byte{0}
}

// EncodeOptionSome prefixes payload with the present discriminant.
func EncodeOptionSome(payload []byte) []byte {
	return append([]byte{1}, payload...)
}

// EncodeVector concatenates pre-encoded elements behind a ULEB128 count.
func EncodeVector(elements ...[]byte) []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_ = WriteLen(buf, len(elements))
	for _, element := range elements {
		_, _ = buf.Write(element)
	}

	return lo.PanicOnErr(buf.Bytes())
}

func encodeUint(v uint64, width int) []byte {
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		b[i] = byte(v >> (8 * i))
	}

	return b
}
