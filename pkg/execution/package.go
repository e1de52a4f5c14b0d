package execution

import (
	"bytes"
	"sort"

	"github.com/iotaledger/hive.go/ds/orderedmap"
	"github.com/iotaledger/hive.go/ierrors"
	"golang.org/x/crypto/blake2b"

	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// TypeOriginKey names one datatype declared somewhere in a package's version
// history.
type TypeOriginKey struct {
	Module vmtype.Identifier
	Name   vmtype.Identifier
}

// Package is one deployed, immutable package version. A new version is a new
// Package value; the old one is never mutated.
type Package struct {
	// StorageID is unique per version.
	StorageID vmtype.ObjectID
	// RuntimeID is stable across upgrades; code links against it.
	RuntimeID vmtype.ObjectID
	// Version starts at 1 and increments per upgrade.
	Version uint64

	Modules      []*module.Module
	ModuleBytes  [][]byte
	Dependencies []vmtype.ObjectID

	// TypeOrigins maps every declared datatype to the storage id of the
	// package version that first declared it, so type identity survives
	// upgrades.
	TypeOrigins *orderedmap.OrderedMap[TypeOriginKey, vmtype.ObjectID]

	// Linkage maps the runtime id of every dependency to the storage version
	// this package was built against.
	Linkage map[vmtype.Address]vmtype.Address
}

// NewPackage assembles a freshly published package. Every declared type
// originates here.
func NewPackage(storageID vmtype.ObjectID, modules []*module.Module, moduleBytes [][]byte, dependencies []*Package, depIDs []vmtype.ObjectID) *Package {
	p := &Package{
		StorageID:    storageID,
		RuntimeID:    storageID,
		Version:      1,
		Modules:      modules,
		ModuleBytes:  moduleBytes,
		Dependencies: depIDs,
		TypeOrigins:  orderedmap.New[TypeOriginKey, vmtype.ObjectID](),
		Linkage:      linkageFor(dependencies),
	}
	for _, m := range modules {
		for i := range m.Structs {
			p.TypeOrigins.Set(TypeOriginKey{Module: m.Name, Name: m.Structs[i].Name}, storageID)
		}
	}

	return p
}

// UpgradedPackage assembles the next version of predecessor. Types already
// declared keep their origin; new types originate at the new storage id.
func UpgradedPackage(storageID vmtype.ObjectID, predecessor *Package, modules []*module.Module, moduleBytes [][]byte, dependencies []*Package, depIDs []vmtype.ObjectID) *Package {
	p := &Package{
		StorageID:    storageID,
		RuntimeID:    predecessor.RuntimeID,
		Version:      predecessor.Version + 1,
		Modules:      modules,
		ModuleBytes:  moduleBytes,
		Dependencies: depIDs,
		TypeOrigins:  orderedmap.New[TypeOriginKey, vmtype.ObjectID](),
		Linkage:      linkageFor(dependencies),
	}
	for _, m := range modules {
		for i := range m.Structs {
			key := TypeOriginKey{Module: m.Name, Name: m.Structs[i].Name}
			if origin, exists := predecessor.TypeOrigins.Get(key); exists {
				p.TypeOrigins.Set(key, origin)

				continue
			}
			p.TypeOrigins.Set(key, storageID)
		}
	}

	return p
}

func linkageFor(dependencies []*Package) map[vmtype.Address]vmtype.Address {
	linkage := make(map[vmtype.Address]vmtype.Address, len(dependencies))
	for _, dep := range dependencies {
		linkage[dep.RuntimeID.Address()] = dep.StorageID.Address()
	}

	return linkage
}

// Module returns the named module of this version.
func (p *Package) Module(name vmtype.Identifier) (*module.Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}

	return nil, false
}

// TypeOrigin resolves the defining storage id of a declared datatype.
func (p *Package) TypeOrigin(moduleName vmtype.Identifier, structName vmtype.Identifier) (vmtype.ObjectID, bool) {
	return p.TypeOrigins.Get(TypeOriginKey{Module: moduleName, Name: structName})
}

// PackageDigest computes the deterministic content digest bound by upgrade
// tickets: a hash over every module's bytes and every dependency id, each
// set in lexical order.
func PackageDigest(moduleBytes [][]byte, dependencies []vmtype.ObjectID) [32]byte {
	sortedModules := make([][]byte, len(moduleBytes))
	copy(sortedModules, moduleBytes)
	sort.Slice(sortedModules, func(i, j int) bool {
		return bytes.Compare(sortedModules[i], sortedModules[j]) < 0
	})
	sortedDeps := make([]vmtype.ObjectID, len(dependencies))
	copy(sortedDeps, dependencies)
	sort.Slice(sortedDeps, func(i, j int) bool {
		return bytes.Compare(sortedDeps[i][:], sortedDeps[j][:]) < 0
	})

	hash, err := blake2b.New256(nil)
	if err != nil {
		panic(ierrors.Wrap(err, "blake2b initialization cannot fail"))
	}
	for _, b := range sortedModules {
		hash.Write(b)
	}
	for _, dep := range sortedDeps {
		hash.Write(dep[:])
	}

	var digest [32]byte
	copy(digest[:], hash.Sum(nil))

	return digest
}
