package arglayout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/arglayout"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

func asciiTag() vmtype.TypeTag {
	return vmtype.NewStructTag(vmtype.StdAddress, vmtype.AsciiModuleName, vmtype.AsciiStructName)
}

func utf8Tag() vmtype.TypeTag {
	return vmtype.NewStructTag(vmtype.StdAddress, vmtype.UTF8ModuleName, vmtype.UTF8StructName)
}

func optionTag(inner vmtype.TypeTag) vmtype.TypeTag {
	return vmtype.NewStructTag(vmtype.StdAddress, vmtype.OptionModuleName, vmtype.OptionStructName, inner)
}

func TestLayoutFor(t *testing.T) {
	for _, tt := range []struct {
		name string
		typ  vmtype.TypeTag
		kind arglayout.LayoutKind
	}{
		{"bool", vmtype.BoolTag(), arglayout.LayoutBool},
		{"u64", vmtype.U64Tag(), arglayout.LayoutU64},
		{"u256", vmtype.U256Tag(), arglayout.LayoutU256},
		{"address", vmtype.AddressTag(), arglayout.LayoutAddress},
		{"ascii string", asciiTag(), arglayout.LayoutAscii},
		{"utf8 string", utf8Tag(), arglayout.LayoutUTF8},
	} {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := arglayout.LayoutFor(tt.typ)
			require.NoError(t, err)
			require.Equal(t, tt.kind, layout.Kind)
			require.Nil(t, layout.Elem)
		})
	}

	t.Run("nested containers", func(t *testing.T) {
		layout, err := arglayout.LayoutFor(vmtype.VectorTag(optionTag(vmtype.U8Tag())))
		require.NoError(t, err)
		require.Equal(t, arglayout.LayoutVector, layout.Kind)
		require.Equal(t, arglayout.LayoutOption, layout.Elem.Kind)
		require.Equal(t, arglayout.LayoutU8, layout.Elem.Elem.Kind)
	})

	t.Run("non-primitives are rejected", func(t *testing.T) {
		_, err := arglayout.LayoutFor(vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault"))
		require.ErrorIs(t, err, arglayout.ErrNotPrimitive)

		_, err = arglayout.LayoutFor(vmtype.SignerTag())
		require.ErrorIs(t, err, arglayout.ErrNotPrimitive)

		_, err = arglayout.LayoutFor(vmtype.TypeParamTag(0))
		require.ErrorIs(t, err, arglayout.ErrNotPrimitive)

		// A container of a non-primitive is itself non-primitive.
		_, err = arglayout.LayoutFor(vmtype.VectorTag(vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault")))
		require.ErrorIs(t, err, arglayout.ErrNotPrimitive)
	})
}

func TestValidate(t *testing.T) {
	mustLayout := func(typ vmtype.TypeTag) *arglayout.Layout {
		layout, err := arglayout.LayoutFor(typ)
		require.NoError(t, err)

		return layout
	}

	t.Run("scalars", func(t *testing.T) {
		require.NoError(t, mustLayout(vmtype.BoolTag()).Validate(wire.EncodeBool(true)))
		require.NoError(t, mustLayout(vmtype.U64Tag()).Validate(wire.EncodeU64(42)))
		require.NoError(t, mustLayout(vmtype.AddressTag()).Validate(wire.EncodeAddress(tpkg.RandAddress())))

		// A bool must be exactly 0 or 1.
		err := mustLayout(vmtype.BoolTag()).Validate([]byte{0x02})
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)
	})

	t.Run("trailing bytes are rejected", func(t *testing.T) {
		err := mustLayout(vmtype.U64Tag()).Validate(append(wire.EncodeU64(42), 0x00))
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)
	})

	t.Run("truncation is rejected", func(t *testing.T) {
		err := mustLayout(vmtype.U64Tag()).Validate(wire.EncodeU32(42))
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)

		err = mustLayout(vmtype.VectorTag(vmtype.U64Tag())).Validate(wire.EncodeLen(3))
		require.ErrorIs(t, err, execution.ErrInvalidValueBytes)
	})

	t.Run("strings", func(t *testing.T) {
		ascii := mustLayout(asciiTag())
		require.NoError(t, ascii.Validate(wire.EncodeString("hello")))
		require.ErrorIs(t, ascii.Validate(wire.EncodeString("héllo")), execution.ErrInvalidValueBytes)

		utf8 := mustLayout(utf8Tag())
		require.NoError(t, utf8.Validate(wire.EncodeString("héllo")))
		require.ErrorIs(t, utf8.Validate(append(wire.EncodeLen(1), 0xff)), execution.ErrInvalidValueBytes)
	})

	t.Run("options", func(t *testing.T) {
		layout := mustLayout(optionTag(vmtype.U64Tag()))
		require.NoError(t, layout.Validate(wire.EncodeOptionNone()))
		require.NoError(t, layout.Validate(wire.EncodeOptionSome(wire.EncodeU64(1))))
		require.ErrorIs(t, layout.Validate(wire.EncodeOptionSome(nil)), execution.ErrInvalidValueBytes)
		require.ErrorIs(t, layout.Validate([]byte{0x02}), execution.ErrInvalidValueBytes)
	})

	t.Run("vectors", func(t *testing.T) {
		layout := mustLayout(vmtype.VectorTag(vmtype.U16Tag()))
		require.NoError(t, layout.Validate(wire.EncodeVector(wire.EncodeU16(1), wire.EncodeU16(2))))
		require.NoError(t, layout.Validate(wire.EncodeLen(0)))

		// Count says three, payload holds two.
		short := append(wire.EncodeLen(3), wire.EncodeU16(1)...)
		short = append(short, wire.EncodeU16(2)...)
		require.ErrorIs(t, layout.Validate(short), execution.ErrInvalidValueBytes)
	})
}

func TestAmplification(t *testing.T) {
	const maxValueDepth = 128

	require.Equal(t, uint64(1), arglayout.Amplification(vmtype.BoolTag(), maxValueDepth))
	require.Equal(t, uint64(1), arglayout.Amplification(vmtype.U64Tag(), maxValueDepth))
	require.Equal(t, uint64(2), arglayout.Amplification(vmtype.U128Tag(), maxValueDepth))
	require.Equal(t, uint64(2), arglayout.Amplification(vmtype.AddressTag(), maxValueDepth))
	require.Equal(t, uint64(2), arglayout.Amplification(asciiTag(), maxValueDepth))

	// Options add a level, vectors are flat.
	require.Equal(t, uint64(3), arglayout.Amplification(optionTag(vmtype.AddressTag()), maxValueDepth))
	require.Equal(t, uint64(2), arglayout.Amplification(vmtype.VectorTag(vmtype.U128Tag()), maxValueDepth))
	require.Equal(t, uint64(1), arglayout.Amplification(vmtype.VectorTag(vmtype.VectorTag(vmtype.U8Tag())), maxValueDepth))

	// Non-primitive types amplify by depth.
	require.Equal(t, uint64(maxValueDepth), arglayout.Amplification(vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault"), maxValueDepth))
}

func TestAdmissibleSize(t *testing.T) {
	require.Equal(t, uint64(1000), arglayout.AdmissibleSize(vmtype.U64Tag(), 1000, 128))
	require.Equal(t, uint64(500), arglayout.AdmissibleSize(vmtype.AddressTag(), 1000, 128))
	require.Equal(t, uint64(7), arglayout.AdmissibleSize(vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault"), 1000, 128))
}
