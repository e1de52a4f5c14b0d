package storebackend_test

import (
	"testing"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/require"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/tpkg"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/storebackend"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func randObjectRecord() *execution.ObjectRecord {
	id := tpkg.RandObjectID()

	return &execution.ObjectRecord{
		ID:                id,
		Version:           3,
		Type:              vmtype.NewStructTag(tpkg.RandAddress(), "vault", "Vault"),
		HasPublicTransfer: true,
		Contents:          append(id[:], tpkg.RandBytes(8)...),
	}
}

func TestObjectRoundtrip(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	first := randObjectRecord()
	second := randObjectRecord()
	require.NoError(t, store.WriteObject(first))
	require.NoError(t, store.WriteObject(second))

	records, err := store.ReadObjects([]vmtype.ObjectID{second.ID, first.ID})
	require.NoError(t, err)
	require.Equal(t, []*execution.ObjectRecord{second, first}, records)
}

func TestReadObjectsMissingFailsBatch(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	record := randObjectRecord()
	require.NoError(t, store.WriteObject(record))

	missing := tpkg.RandObjectID()
	_, err := store.ReadObjects([]vmtype.ObjectID{record.ID, missing})
	require.ErrorIs(t, err, execution.ErrObjectNotFound)
	require.ErrorContains(t, err, missing.String())
}

func TestPackageRoundtrip(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	depID := tpkg.RandObjectID()
	dep := tpkg.NewTestPackage(depID, tpkg.NewTestModule("lib", depID.Address(), nil, nil))
	require.NoError(t, store.WritePackage(dep))

	id := tpkg.RandObjectID()
	m := tpkg.NewTestModule("vault", id.Address(),
		[]module.Struct{{Name: "Vault", Abilities: vmtype.AbilityKey | vmtype.AbilityStore}},
		[]module.Function{{Name: "balance", Visibility: module.VisibilityPublic,
			Returns: []module.SigType{module.Plain(vmtype.U64Tag())}, Instructions: 5}})
	pkg := execution.NewPackage(id, []*module.Module{m}, [][]byte{m.Bytes()},
		[]*execution.Package{dep}, []vmtype.ObjectID{depID})
	require.NoError(t, store.WritePackage(pkg))

	packages, err := store.ReadPackages([]vmtype.ObjectID{id})
	require.NoError(t, err)
	require.Len(t, packages, 1)
	loaded := packages[0]

	require.Equal(t, pkg.StorageID, loaded.StorageID)
	require.Equal(t, pkg.RuntimeID, loaded.RuntimeID)
	require.Equal(t, pkg.Version, loaded.Version)
	require.Equal(t, pkg.ModuleBytes, loaded.ModuleBytes)
	require.Equal(t, pkg.Dependencies, loaded.Dependencies)
	require.Equal(t, pkg.Linkage, loaded.Linkage)
	require.Equal(t, pkg.Modules, loaded.Modules)

	origin, ok := loaded.TypeOrigin("vault", "Vault")
	require.True(t, ok)
	require.Equal(t, id, origin)
}

func TestPackageRoundtripAcrossUpgrade(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	firstID := tpkg.RandObjectID()
	v1Module := tpkg.NewTestModule("vault", firstID.Address(),
		[]module.Struct{{Name: "Vault", Abilities: vmtype.AbilityKey}}, nil)
	first := tpkg.NewTestPackage(firstID, v1Module)

	secondID := tpkg.RandObjectID()
	v2Module := tpkg.NewTestModule("vault", firstID.Address(), []module.Struct{
		{Name: "Vault", Abilities: vmtype.AbilityKey},
		{Name: "Receipt", Abilities: vmtype.AbilityDrop},
	}, nil)
	second := execution.UpgradedPackage(secondID, first, []*module.Module{v2Module}, [][]byte{v2Module.Bytes()}, nil, nil)
	require.NoError(t, store.WritePackage(second))

	packages, err := store.ReadPackages([]vmtype.ObjectID{secondID})
	require.NoError(t, err)
	loaded := packages[0]

	// The stable runtime identity and per-type origins survive storage.
	require.Equal(t, firstID, loaded.RuntimeID)
	require.Equal(t, uint64(2), loaded.Version)
	require.Equal(t, firstID.Address(), loaded.Modules[0].SelfAddress)

	origin, ok := loaded.TypeOrigin("vault", "Vault")
	require.True(t, ok)
	require.Equal(t, firstID, origin)
	origin, ok = loaded.TypeOrigin("vault", "Receipt")
	require.True(t, ok)
	require.Equal(t, secondID, origin)
}

func TestReadPackagesReportsAllMissing(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	first := tpkg.RandObjectID()
	second := tpkg.RandObjectID()
	_, err := store.ReadPackages([]vmtype.ObjectID{first, second})
	require.ErrorIs(t, err, execution.ErrMissingDependency)

	var missingErr *execution.MissingDependenciesError
	require.ErrorAs(t, err, &missingErr)
	require.Equal(t, []vmtype.ObjectID{first, second}, missingErr.IDs)
}

func TestApplyChanges(t *testing.T) {
	store := storebackend.New(mapdb.NewMapDB())

	mutated := randObjectRecord()
	deleted := randObjectRecord()
	require.NoError(t, store.WriteObject(mutated))
	require.NoError(t, store.WriteObject(deleted))

	createdID := tpkg.RandObjectID()
	transferID := tpkg.RandObjectID()
	pkgID := tpkg.RandObjectID()
	pkg := tpkg.NewTestPackage(pkgID, tpkg.NewTestModule("vault", pkgID.Address(), nil, nil))

	newContents := append(append([]byte(nil), mutated.ID[:]...), tpkg.RandBytes(8)...)
	changes := &execution.ObjectChanges{
		Created: []execution.ObjectWrite{{
			ID:       createdID,
			Type:     mutated.Type,
			Contents: append(createdID[:], tpkg.RandBytes(8)...),
		}},
		Mutated: []execution.ObjectWrite{{
			ID:                mutated.ID,
			Type:              mutated.Type,
			HasPublicTransfer: mutated.HasPublicTransfer,
			Contents:          newContents,
		}},
		Deleted: []vmtype.ObjectID{deleted.ID},
		Transferred: []execution.Transfer{{
			ID:        transferID,
			Type:      mutated.Type,
			Recipient: tpkg.RandAddress(),
			Contents:  append(transferID[:], tpkg.RandBytes(8)...),
		}},
		Packages: []*execution.Package{pkg},
	}
	require.NoError(t, store.ApplyChanges(changes, 7))

	records, err := store.ReadObjects([]vmtype.ObjectID{createdID, mutated.ID, transferID})
	require.NoError(t, err)
	for _, record := range records {
		require.Equal(t, uint64(7), record.Version)
	}
	require.Equal(t, newContents, records[1].Contents)
	require.True(t, records[2].HasPublicTransfer)

	_, err = store.ReadObjects([]vmtype.ObjectID{deleted.ID})
	require.ErrorIs(t, err, execution.ErrObjectNotFound)

	packages, err := store.ReadPackages([]vmtype.ObjectID{pkgID})
	require.NoError(t, err)
	require.Equal(t, pkgID, packages[0].StorageID)
}
