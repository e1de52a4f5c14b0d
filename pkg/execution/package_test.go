package execution_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func TestPackageDigestOrderIndependence(t *testing.T) {
	moduleA := tpkg.RandBytes(64)
	moduleB := tpkg.RandBytes(80)
	depX := tpkg.RandObjectID()
	depY := tpkg.RandObjectID()

	digest := execution.PackageDigest([][]byte{moduleA, moduleB}, []vmtype.ObjectID{depX, depY})
	reordered := execution.PackageDigest([][]byte{moduleB, moduleA}, []vmtype.ObjectID{depY, depX})
	require.Equal(t, digest, reordered)

	// Any change to content or dependency set changes the digest.
	require.NotEqual(t, digest, execution.PackageDigest([][]byte{moduleA}, []vmtype.ObjectID{depX, depY}))
	require.NotEqual(t, digest, execution.PackageDigest([][]byte{moduleA, moduleB}, []vmtype.ObjectID{depX}))
}

func TestPackageTypeOrigins(t *testing.T) {
	firstID := tpkg.RandObjectID()
	vault := tpkg.NewTestModule("vault", firstID.Address(), []module.Struct{
		{Name: "Vault", Abilities: vmtype.AbilityKey},
	}, nil)

	first := tpkg.NewTestPackage(firstID, vault)

	origin, ok := first.TypeOrigin("vault", "Vault")
	require.True(t, ok)
	require.Equal(t, firstID, origin)

	// The upgraded version keeps the origin of existing types and assigns
	// its own storage id to new ones.
	secondID := tpkg.RandObjectID()
	vaultV2 := tpkg.NewTestModule("vault", firstID.Address(), []module.Struct{
		{Name: "Vault", Abilities: vmtype.AbilityKey},
		{Name: "Receipt", Abilities: vmtype.AbilityDrop},
	}, nil)
	second := execution.UpgradedPackage(secondID, first, []*module.Module{vaultV2}, [][]byte{vaultV2.Bytes()}, nil, nil)

	require.Equal(t, first.RuntimeID, second.RuntimeID)
	require.Equal(t, uint64(2), second.Version)

	origin, ok = second.TypeOrigin("vault", "Vault")
	require.True(t, ok)
	require.Equal(t, firstID, origin)

	origin, ok = second.TypeOrigin("vault", "Receipt")
	require.True(t, ok)
	require.Equal(t, secondID, origin)

	_, ok = second.TypeOrigin("vault", "Unknown")
	require.False(t, ok)
}

func TestPackageLinkage(t *testing.T) {
	depFirstID := tpkg.RandObjectID()
	depModule := tpkg.NewTestModule("lib", depFirstID.Address(), nil, nil)
	dep := tpkg.NewTestPackage(depFirstID, depModule)

	depSecondID := tpkg.RandObjectID()
	depV2 := execution.UpgradedPackage(depSecondID, dep, []*module.Module{depModule}, [][]byte{depModule.Bytes()}, nil, nil)

	pkgID := tpkg.RandObjectID()
	m := tpkg.NewTestModule("app", pkgID.Address(), nil, nil)
	pkg := execution.NewPackage(pkgID, []*module.Module{m}, [][]byte{m.Bytes()}, []*execution.Package{depV2}, []vmtype.ObjectID{depSecondID})

	// Linkage maps the dependency's stable runtime id to the storage id of
	// the version linked against.
	require.Equal(t, depSecondID.Address(), pkg.Linkage[depFirstID.Address()])
	require.Equal(t, []vmtype.ObjectID{depSecondID}, pkg.Dependencies)
}

func TestMissingDependenciesError(t *testing.T) {
	first := tpkg.RandObjectID()
	second := tpkg.RandObjectID()
	err := &execution.MissingDependenciesError{IDs: []vmtype.ObjectID{first, second}}

	require.ErrorIs(t, err, execution.ErrMissingDependency)
	require.Contains(t, err.Error(), first.String())
	require.Contains(t, err.Error(), second.String())
}
