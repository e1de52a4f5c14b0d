// Package storebackend persists objects and packages in a key-value store
// and applies execution changesets atomically through batched mutations.
package storebackend

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

const (
	storeKeyPrefixObjects  byte = 0
	storeKeyPrefixPackages byte = 1
)

// Store is the persistent backend behind the execution core's object and
// package reads. All state transitions travel through ApplyChanges.
type Store struct {
	objects  kvstore.KVStore
	packages kvstore.KVStore

	lock syncutils.RWMutex
}

func New(store kvstore.KVStore) *Store {
	return &Store{
		objects:  lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{storeKeyPrefixObjects})),
		packages: lo.PanicOnErr(store.WithExtendedRealm(kvstore.Realm{storeKeyPrefixPackages})),
	}
}

// ReadObjects performs a batch lookup. A single missing id fails the whole
// batch.
func (s *Store) ReadObjects(ids []vmtype.ObjectID) ([]*execution.ObjectRecord, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	records := make([]*execution.ObjectRecord, len(ids))
	for i, id := range ids {
		value, err := s.objects.Get(id.Bytes())
		if err != nil {
			if ierrors.Is(err, kvstore.ErrKeyNotFound) {
				return nil, ierrors.Wrapf(execution.ErrObjectNotFound, "object %s", id.String())
			}

			return nil, ierrors.Wrapf(err, "unable to read object %s", id.String())
		}

		record, err := objectRecordFromBytes(id, value)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to decode object %s", id.String())
		}
		records[i] = record
	}

	return records, nil
}

// ReadPackages performs a batch lookup, reporting every missing id in one
// error.
func (s *Store) ReadPackages(ids []vmtype.ObjectID) ([]*execution.Package, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	packages := make([]*execution.Package, len(ids))
	var missing []vmtype.ObjectID
	for i, id := range ids {
		value, err := s.packages.Get(id.Bytes())
		if err != nil {
			if ierrors.Is(err, kvstore.ErrKeyNotFound) {
				missing = append(missing, id)

				continue
			}

			return nil, ierrors.Wrapf(err, "unable to read package %s", id.String())
		}

		pkg, err := packageFromBytes(id, value)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to decode package %s", id.String())
		}
		packages[i] = pkg
	}
	if len(missing) > 0 {
		return nil, &execution.MissingDependenciesError{IDs: missing}
	}

	return packages, nil
}

// WriteObject stores one object record directly. Tests and genesis seeding
// use it; transaction writes go through ApplyChanges.
func (s *Store) WriteObject(record *execution.ObjectRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.objects.Set(record.ID.Bytes(), objectRecordBytes(record))
}

// WritePackage stores one package version directly.
func (s *Store) WritePackage(pkg *execution.Package) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.packages.Set(pkg.StorageID.Bytes(), packageBytes(pkg))
}

// ApplyChanges commits a changeset in one batch. Every written object gets
// the given version.
func (s *Store) ApplyChanges(changes *execution.ObjectChanges, version uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	objectMutations, err := s.objects.Batched()
	if err != nil {
		return ierrors.Wrap(err, "unable to open object batch")
	}
	packageMutations, err := s.packages.Batched()
	if err != nil {
		objectMutations.Cancel()

		return ierrors.Wrap(err, "unable to open package batch")
	}

	abort := func(err error) error {
		objectMutations.Cancel()
		packageMutations.Cancel()

		return err
	}

	for _, write := range changes.Created {
		if err := storeObjectWrite(objectMutations, write, version); err != nil {
			return abort(err)
		}
	}
	for _, write := range changes.Mutated {
		if err := storeObjectWrite(objectMutations, write, version); err != nil {
			return abort(err)
		}
	}
	for _, transfer := range changes.Transferred {
		write := execution.ObjectWrite{
			ID:                transfer.ID,
			Type:              transfer.Type,
			HasPublicTransfer: true,
			Contents:          transfer.Contents,
		}
		if err := storeObjectWrite(objectMutations, write, version); err != nil {
			return abort(err)
		}
	}
	for _, id := range changes.Deleted {
		if err := objectMutations.Delete(id.Bytes()); err != nil {
			return abort(err)
		}
	}
	for _, pkg := range changes.Packages {
		if err := packageMutations.Set(pkg.StorageID.Bytes(), packageBytes(pkg)); err != nil {
			return abort(err)
		}
	}

	if err := objectMutations.Commit(); err != nil {
		packageMutations.Cancel()

		return ierrors.Wrap(err, "unable to commit object mutations")
	}
	if err := packageMutations.Commit(); err != nil {
		return ierrors.Wrap(err, "unable to commit package mutations")
	}

	return nil
}

func storeObjectWrite(mutations kvstore.BatchedMutations, write execution.ObjectWrite, version uint64) error {
	record := &execution.ObjectRecord{
		ID:                write.ID,
		Version:           version,
		Type:              write.Type,
		HasPublicTransfer: write.HasPublicTransfer,
		Contents:          write.Contents,
	}

	return mutations.Set(record.ID.Bytes(), objectRecordBytes(record))
}
