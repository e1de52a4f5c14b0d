package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

func TestLenRoundtrip(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 16383, 16384, 1<<32 - 1} {
		reader := wire.NewReader(wire.EncodeLen(n))
		decoded, err := reader.ReadLen()
		require.NoError(t, err, n)
		require.Equal(t, n, decoded)
		require.NoError(t, reader.Done())
	}
}

func TestLenRejectsNonCanonical(t *testing.T) {
	// 0x80 0x00 encodes zero with a needless continuation byte.
	_, err := wire.NewReader([]byte{0x80, 0x00}).ReadLen()
	require.ErrorIs(t, err, wire.ErrNonCanonicalLength)

	_, err = wire.NewReader([]byte{0x80}).ReadLen()
	require.ErrorIs(t, err, wire.ErrMalformedLength)

	// Six continuation bytes exceed the 32-bit budget.
	_, err = wire.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).ReadLen()
	require.ErrorIs(t, err, wire.ErrMalformedLength)
}

func TestReadBool(t *testing.T) {
	v, err := wire.NewReader(wire.EncodeBool(true)).ReadBool()
	require.NoError(t, err)
	require.True(t, v)

	_, err = wire.NewReader([]byte{2}).ReadBool()
	require.ErrorIs(t, err, wire.ErrInvalidBoolValue)

	_, err = wire.NewReader(nil).ReadBool()
	require.ErrorIs(t, err, wire.ErrUnexpectedEOF)
}

func TestReadOption(t *testing.T) {
	some, err := wire.NewReader(wire.EncodeOptionSome(wire.EncodeU8(7))).ReadOption()
	require.NoError(t, err)
	require.True(t, some)

	none, err := wire.NewReader(wire.EncodeOptionNone()).ReadOption()
	require.NoError(t, err)
	require.False(t, none)

	_, err = wire.NewReader([]byte{9}).ReadOption()
	require.ErrorIs(t, err, wire.ErrInvalidOptionValue)
}

func TestReadUint(t *testing.T) {
	reader := wire.NewReader(wire.EncodeU64(0xdeadbeefcafe))
	v, err := reader.ReadUint(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeefcafe), v)
	require.NoError(t, reader.Done())

	reader = wire.NewReader(wire.EncodeU16(0x1234))
	small, err := reader.ReadUint(2)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1234), small)
}

func TestReadAddress(t *testing.T) {
	addr, err := vmtype.AddressFromHex("0xabcd")
	require.NoError(t, err)

	reader := wire.NewReader(wire.EncodeAddress(addr))
	decoded, err := reader.ReadAddress()
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	_, err = wire.NewReader([]byte{1, 2, 3}).ReadAddress()
	require.ErrorIs(t, err, wire.ErrUnexpectedEOF)
}

func TestTrailingBytes(t *testing.T) {
	reader := wire.NewReader(append(wire.EncodeBool(false), 0xff))
	_, err := reader.ReadBool()
	require.NoError(t, err)
	require.ErrorIs(t, reader.Done(), wire.ErrTrailingBytes)
}

func TestEncodeVector(t *testing.T) {
	encoded := wire.EncodeVector(wire.EncodeU8(1), wire.EncodeU8(2), wire.EncodeU8(3))
	reader := wire.NewReader(encoded)
	count, err := reader.ReadLen()
	require.NoError(t, err)
	require.Equal(t, 3, count)
	payload, err := reader.ReadBytes(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, payload)
	require.NoError(t, reader.Done())
}
