package module_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func coinModule(self vmtype.Address) *module.Module {
	return &module.Module{
		Name:        "vault",
		SelfAddress: self,
		Structs: []module.Struct{
			{
				Name:      "Vault",
				Abilities: vmtype.AbilityKey | vmtype.AbilityStore,
				Fields: []module.Field{
					{Name: "id", Type: vmtype.NewStructTag(vmtype.FrameworkAddress, "object", "ID")},
					{Name: "balance", Type: vmtype.U64Tag()},
				},
			},
			{
				Name:       "Entry",
				Abilities:  vmtype.AbilityStore,
				TypeParams: 1,
				Fields: []module.Field{
					{Name: "value", Type: vmtype.TypeParamTag(0)},
				},
			},
		},
		Functions: []module.Function{
			{
				Name:       "init",
				Visibility: module.VisibilityPrivate,
				Parameters: []module.SigType{
					module.MutRef(vmtype.NewStructTag(vmtype.FrameworkAddress, "tx_context", "TxContext")),
				},
				Instructions: 12,
			},
			{
				Name:       "deposit",
				Visibility: module.VisibilityPublic,
				IsEntry:    true,
				Parameters: []module.SigType{
					module.MutRef(vmtype.NewStructTag(self, "vault", "Vault")),
					module.Plain(vmtype.U64Tag()),
				},
				Instructions: 40,
			},
			{
				Name:       "balance",
				Visibility: module.VisibilityPublic,
				Parameters: []module.SigType{
					module.Ref(vmtype.NewStructTag(self, "vault", "Vault")),
				},
				Returns:      []module.SigType{module.Plain(vmtype.U64Tag())},
				Instructions: 8,
			},
		},
	}
}

func TestModuleBytesRoundtrip(t *testing.T) {
	original := coinModule(vmtype.StdAddress)

	decoded, err := module.FromBytes(original.Bytes())
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	_, err := module.FromBytes([]byte("definitely not a module"))
	require.ErrorIs(t, err, module.ErrMalformedModule)

	_, err = module.FromBytes(nil)
	require.ErrorIs(t, err, module.ErrMalformedModule)

	// Truncating a valid encoding must fail, not panic.
	b := coinModule(vmtype.StdAddress).Bytes()
	_, err = module.FromBytes(b[:len(b)/2])
	require.ErrorIs(t, err, module.ErrMalformedModule)
}

func TestDeserializeBundle(t *testing.T) {
	first := coinModule(vmtype.StdAddress)
	second := coinModule(vmtype.StdAddress)
	second.Name = "vault_v2"

	modules, err := module.DeserializeBundle([][]byte{first.Bytes(), second.Bytes()})
	require.NoError(t, err)
	require.Len(t, modules, 2)
	require.Equal(t, vmtype.Identifier("vault"), modules[0].Name)
	require.Equal(t, vmtype.Identifier("vault_v2"), modules[1].Name)

	_, err = module.DeserializeBundle([][]byte{first.Bytes(), {0xff}})
	require.ErrorIs(t, err, module.ErrMalformedModule)
}

func TestCheckRejectsDuplicates(t *testing.T) {
	m := coinModule(vmtype.StdAddress)
	require.NoError(t, m.Check())

	m.Functions = append(m.Functions, module.Function{Name: "deposit", Visibility: module.VisibilityPublic})
	require.ErrorIs(t, m.Check(), module.ErrDuplicateDeclaration)
}

func TestSubstituteSelfAddress(t *testing.T) {
	assigned := vmtype.Address{31: 0x42}
	m := coinModule(vmtype.Address{})

	module.SubstituteSelfAddress([]*module.Module{m}, assigned)

	require.Equal(t, assigned, m.SelfAddress)
	// Self-referential parameter types follow the module.
	require.Equal(t, assigned, m.Functions[1].Parameters[0].Type.Struct.Address)
	// Foreign types stay untouched.
	require.Equal(t, vmtype.FrameworkAddress, m.Structs[0].Fields[0].Type.Struct.Address)
}
