package execution

import (
	"strings"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

// ObjectRecord is a stored object as the backend returns it. Contents are
// the object's serialized struct bytes.
type ObjectRecord struct {
	ID                vmtype.ObjectID
	Version           uint64
	Type              vmtype.TypeTag
	HasPublicTransfer bool
	Contents          []byte
}

// ObjectStore is the read side of the object backend. The core never writes
// individual objects; all writes travel in the changeset at finish.
type ObjectStore interface {
	// ReadObjects performs a batch lookup. A single missing id fails the
	// whole batch with ErrObjectNotFound naming the id.
	ReadObjects(ids []vmtype.ObjectID) ([]*ObjectRecord, error)
}

// PackageStore is the read side of the package backend. Staged packages are
// transaction-local and invisible here until committed.
type PackageStore interface {
	// ReadPackages performs a batch lookup. Missing ids fail the batch with
	// a MissingDependenciesError naming every unresolved id.
	ReadPackages(ids []vmtype.ObjectID) ([]*Package, error)
}

// MissingDependenciesError reports every package id a batch lookup could not
// resolve.
type MissingDependenciesError struct {
	IDs []vmtype.ObjectID
}

func (e *MissingDependenciesError) Error() string {
	return ierrors.Wrapf(ErrMissingDependency,
		"missing dependencies: %s",
		strings.Join(lo.Map(e.IDs, vmtype.ObjectID.String), ", "),
	).Error()
}

func (e *MissingDependenciesError) Unwrap() error {
	return ErrMissingDependency
}
