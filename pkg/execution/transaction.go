package execution

import (
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// Input is one untyped transaction input before resolution.
type Input interface {
	inputKind() string
}

// PureInput carries raw serialized bytes whose type is fixed by first use.
type PureInput struct {
	Bytes []byte
}

// ObjectInput references a stored object by id. The executor loads and types
// it through the object store.
type ObjectInput struct {
	ID vmtype.ObjectID
}

// ReceivingInput references an object sent to another object, to be claimed
// by the callee.
type ReceivingInput struct {
	ID      vmtype.ObjectID
	Version uint64
}

func (*PureInput) inputKind() string      { return "Pure" }
func (*ObjectInput) inputKind() string    { return "Object" }
func (*ReceivingInput) inputKind() string { return "Receiving" }

// Transaction is an ordered list of commands over a table of inputs.
type Transaction struct {
	Sender   vmtype.Address
	Digest   [32]byte
	Inputs   []Input
	Commands []Command
}
