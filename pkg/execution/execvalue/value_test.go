package execvalue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func TestObjectValueCoinShapeDetection(t *testing.T) {
	coin := &execvalue.Coin{ID: tpkg.RandObjectID(), Balance: 7}
	coinType := vmtype.NewStructTag(vmtype.FrameworkAddress, vmtype.CoinModuleName, vmtype.CoinStructName, vmtype.U64Tag())

	obj, err := execvalue.NewObjectValue(coinType, true, false, coin.Bytes())
	require.NoError(t, err)
	require.NotNil(t, obj.Coin)
	require.Nil(t, obj.Contents)
	require.Equal(t, uint64(7), obj.Coin.Balance)

	id, err := obj.ID()
	require.NoError(t, err)
	require.Equal(t, coin.ID, id)

	// Malformed coin contents are rejected at construction.
	_, err = execvalue.NewObjectValue(coinType, true, false, tpkg.RandBytes(10))
	require.Error(t, err)
}

func TestObjectValueGenericContents(t *testing.T) {
	id := tpkg.RandObjectID()
	contents := append(id[:], tpkg.RandBytes(16)...)

	obj, err := execvalue.NewObjectValue(vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault"), false, false, contents)
	require.NoError(t, err)
	require.Nil(t, obj.Coin)

	got, err := obj.ID()
	require.NoError(t, err)
	require.Equal(t, id, got)

	b, err := obj.SerializedBytes(0)
	require.NoError(t, err)
	require.Equal(t, contents, b)

	require.ErrorIs(t, obj.EnsurePublicTransferEligible(), execution.ErrObjectNotTransferable)
}

func TestSerializedBytesSizeBound(t *testing.T) {
	v := execvalue.NewPureValue(tpkg.RandBytes(100))

	_, err := v.SerializedBytes(100)
	require.NoError(t, err)
	_, err = v.SerializedBytes(0)
	require.NoError(t, err)
	_, err = v.SerializedBytes(99)
	require.ErrorIs(t, err, execution.ErrValueTooLarge)
}

func TestReceivingValueSerialization(t *testing.T) {
	r := &execvalue.ReceivingValue{ID: tpkg.RandObjectID(), Version: 5}

	b, err := r.SerializedBytes(0)
	require.NoError(t, err)
	require.Len(t, b, vmtype.AddressLength+8)
	require.Equal(t, r.ID[:], b[:vmtype.AddressLength])
	require.Equal(t, []byte{5, 0, 0, 0, 0, 0, 0, 0}, b[vmtype.AddressLength:])
}
