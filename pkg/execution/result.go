package execution

import (
	"time"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

// TimingKind marks whether a command attempt succeeded or aborted.
type TimingKind uint8

const (
	TimingSuccess TimingKind = iota
	TimingAbort
)

// Timing is one per-attempted-command measurement. A transaction that fails
// at command i produces exactly i+1 entries.
type Timing struct {
	Kind     TimingKind
	Duration time.Duration
}

// Event is one attributed event emitted during a call: the emitting module,
// the instruction range of the call for error reporting, and the payload.
type Event struct {
	Module          vmtype.ModuleID
	FunctionIndex   uint16
	LastInstruction uint16
	Type            vmtype.TypeTag
	Payload         []byte
}

// Transfer is one object handed to a new owner.
type Transfer struct {
	ID        vmtype.ObjectID
	Type      vmtype.TypeTag
	Recipient vmtype.Address
	Contents  []byte
}

// ObjectWrite is the final serialized state of a created or mutated object.
type ObjectWrite struct {
	ID                vmtype.ObjectID
	Type              vmtype.TypeTag
	HasPublicTransfer bool
	Contents          []byte
}

// ObjectChanges is the object-graph changeset of a successful execution. The
// storage collaborator applies it atomically at transaction finish; this
// layer never writes objects directly.
type ObjectChanges struct {
	Created     []ObjectWrite
	Mutated     []ObjectWrite
	Deleted     []vmtype.ObjectID
	Transferred []Transfer
	// Packages are the versions published or upgraded by this transaction,
	// in command order.
	Packages []*Package
}
