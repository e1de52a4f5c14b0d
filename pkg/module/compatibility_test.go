package module_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func TestCheckInclusion(t *testing.T) {
	old := coinModule(vmtype.StdAddress)

	t.Run("identical modules pass", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		require.NoError(t, module.CheckInclusion(old, next, false))
		require.NoError(t, module.CheckInclusion(old, next, true))
	})

	t.Run("additions pass unless exact", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions = append(next.Functions, module.Function{Name: "withdraw", Visibility: module.VisibilityPublic})
		require.NoError(t, module.CheckInclusion(old, next, false))
		require.ErrorIs(t, module.CheckInclusion(old, next, true), module.ErrIncompatible)

		next = coinModule(vmtype.StdAddress)
		next.Structs = append(next.Structs, module.Struct{Name: "Receipt", Abilities: vmtype.AbilityDrop})
		require.NoError(t, module.CheckInclusion(old, next, false))
		require.ErrorIs(t, module.CheckInclusion(old, next, true), module.ErrIncompatible)
	})

	t.Run("removal fails", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions = next.Functions[:1]
		require.ErrorIs(t, module.CheckInclusion(old, next, false), module.ErrIncompatible)

		next = coinModule(vmtype.StdAddress)
		next.Structs = next.Structs[1:]
		require.ErrorIs(t, module.CheckInclusion(old, next, false), module.ErrIncompatible)
	})

	t.Run("any edit fails", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions[2].Visibility = module.VisibilityPrivate
		require.ErrorIs(t, module.CheckInclusion(old, next, false), module.ErrIncompatible)

		next = coinModule(vmtype.StdAddress)
		next.Structs[0].Fields[1].Type = vmtype.U128Tag()
		require.ErrorIs(t, module.CheckInclusion(old, next, false), module.ErrIncompatible)
	})
}

func TestCheckCompatible(t *testing.T) {
	old := coinModule(vmtype.StdAddress)

	t.Run("new declarations pass", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Structs = append(next.Structs, module.Struct{Name: "Receipt", Abilities: vmtype.AbilityDrop})
		next.Functions = append(next.Functions, module.Function{Name: "withdraw", Visibility: module.VisibilityPublic})
		require.NoError(t, module.CheckCompatible(old, next))
	})

	t.Run("struct layout is frozen", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Structs[0].Fields = append(next.Structs[0].Fields, module.Field{Name: "extra", Type: vmtype.BoolTag()})
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)

		next = coinModule(vmtype.StdAddress)
		next.Structs[0].Fields[1].Name = "amount"
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("abilities may not change", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Structs[1].Abilities |= vmtype.AbilityDrop
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("public function signatures are frozen", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions[2].Returns = append(next.Functions[2].Returns, module.Plain(vmtype.BoolTag()))
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)

		next = coinModule(vmtype.StdAddress)
		next.Functions[2].Parameters[0] = module.Plain(vmtype.U64Tag())
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("public function may not disappear", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions = next.Functions[:2]
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("public may not lose visibility", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions[2].Visibility = module.VisibilityPrivate
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("entry may become public", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions[1].IsEntry = false
		require.NoError(t, module.CheckCompatible(old, next))
	})

	t.Run("entry may not become private non-entry", func(t *testing.T) {
		old := coinModule(vmtype.StdAddress)
		old.Functions[1].Visibility = module.VisibilityPrivate

		next := coinModule(vmtype.StdAddress)
		next.Functions[1].Visibility = module.VisibilityPrivate
		next.Functions[1].IsEntry = false
		require.ErrorIs(t, module.CheckCompatible(old, next), module.ErrIncompatible)
	})

	t.Run("private non-entry functions are free", func(t *testing.T) {
		next := coinModule(vmtype.StdAddress)
		next.Functions[0].Parameters = nil
		next.Functions[0].Returns = []module.SigType{module.Plain(vmtype.BoolTag())}
		require.NoError(t, module.CheckCompatible(old, next))
	})
}
