package vmtype_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

func TestAddressFromHex(t *testing.T) {
	addr, err := vmtype.AddressFromHex("0x1")
	require.NoError(t, err)
	require.Equal(t, vmtype.StdAddress, addr)

	addr, err = vmtype.AddressFromHex("0x0000000000000000000000000000000000000000000000000000000000000002")
	require.NoError(t, err)
	require.Equal(t, vmtype.FrameworkAddress, addr)

	_, err = vmtype.AddressFromHex("0x" + string(make([]byte, 65)))
	require.Error(t, err)

	_, err = vmtype.AddressFromHex("0xzz")
	require.Error(t, err)
}

func TestAddressRoundtrip(t *testing.T) {
	addr, err := vmtype.AddressFromHex("0xdeadbeef")
	require.NoError(t, err)

	decoded, err := vmtype.AddressFromBytes(addr.Bytes())
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	_, err = vmtype.AddressFromBytes([]byte{0x01, 0x02})
	require.ErrorIs(t, err, vmtype.ErrInvalidAddressLength)
}

func TestAddressString(t *testing.T) {
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", vmtype.StdAddress.String())
	require.True(t, vmtype.Address{}.IsZero())
	require.False(t, vmtype.StdAddress.IsZero())
}

func TestIdentifierValidation(t *testing.T) {
	for _, valid := range []string{"init", "my_module", "Coin", "_private", "v2"} {
		require.NoError(t, vmtype.ValidateIdentifier(valid), valid)
	}
	for _, invalid := range []string{"", "2fast", "with-dash", "with space", "emoji💥"} {
		require.Error(t, vmtype.ValidateIdentifier(invalid), invalid)
	}
}
