package execution

import (
	"context"

	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// TxContextKind tells the VM whether the callee declared a trailing execution
// context parameter and with which reference kind.
type TxContextKind uint8

const (
	TxContextNone TxContextKind = iota
	TxContextImmutable
	TxContextMutable
)

// FunctionCall is one fully marshalled invocation handed to the external VM.
// All arguments are already serialized and type-checked; the VM runs the
// verified body and reports outputs without further policy decisions.
type FunctionCall struct {
	// Runtime is the stable module identity code links against.
	Runtime vmtype.ModuleID
	// Storage is the versioned module identity the call went through.
	Storage  vmtype.ModuleID
	Function vmtype.Identifier

	TypeArguments []vmtype.TypeTag
	// Arguments holds one serialized value per explicit parameter, with the
	// implicit context blob appended last when TxContext is not
	// TxContextNone.
	Arguments [][]byte

	TxContext TxContextKind

	// Linkage maps runtime package addresses to the storage versions the
	// callee package was built against.
	Linkage map[vmtype.Address]vmtype.Address
}

// MutableReferenceOutput is the post-call state of one by-mutable-reference
// argument, keyed by its position in the explicit argument list.
type MutableReferenceOutput struct {
	LocalIndex uint8
	Bytes      []byte
}

// CallResults is everything a VM invocation reports back.
type CallResults struct {
	MutableReferenceOutputs []MutableReferenceOutput
	ReturnValues            [][]byte
	// Events are the raw event payloads emitted during the call, in emission
	// order, with the type they were emitted at.
	Events []RawEvent
}

// RawEvent is an event as the VM reports it, before attribution.
type RawEvent struct {
	Type    vmtype.TypeTag
	Payload []byte
}

// VM executes already-validated function bodies. It is an external
// collaborator: errors it returns are translated into command errors by the
// caller.
type VM interface {
	ExecuteFunction(ctx context.Context, call *FunctionCall) (*CallResults, error)
}

// Verifier statically checks deserialized modules before installation.
type Verifier interface {
	VerifyModule(m *module.Module) error
}

// GasCharger exposes the byte-metered charge call-sites used by this layer.
// Pricing formulas live with the charger, not here; a failed charge aborts
// the command like any other error.
type GasCharger interface {
	ChargePublish(numBytes int) error
	ChargeUpgrade(numBytes int) error
}
