// Package tpkg provides fixtures and mock collaborators for tests.
package tpkg

import (
	"context"
	"crypto/rand"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func RandBytes(length int) []byte {
	b := make([]byte, length)
	lo.PanicOnErr(rand.Read(b))

	return b
}

func RandAddress() vmtype.Address {
	return vmtype.Address(Rand32ByteArray())
}

func RandObjectID() vmtype.ObjectID {
	return vmtype.ObjectID(Rand32ByteArray())
}

func RandDigest() [32]byte {
	return Rand32ByteArray()
}

func Rand32ByteArray() [32]byte {
	var arr [32]byte
	copy(arr[:], RandBytes(32))

	return arr
}

// NewTestModule assembles a module from declarations.
func NewTestModule(name string, selfAddress vmtype.Address, structs []module.Struct, functions []module.Function) *module.Module {
	return &module.Module{
		Name:        vmtype.Identifier(name),
		SelfAddress: selfAddress,
		Structs:     structs,
		Functions:   functions,
	}
}

// NewTestPackage assembles a deployed package from modules, serializing them
// with the production codec.
func NewTestPackage(id vmtype.ObjectID, modules ...*module.Module) *execution.Package {
	moduleBytes := make([][]byte, len(modules))
	for i, m := range modules {
		moduleBytes[i] = m.Bytes()
	}

	return execution.NewPackage(id, modules, moduleBytes, nil, nil)
}

// CallKey identifies a mocked function by its runtime module id and name.
func CallKey(moduleID vmtype.ModuleID, function vmtype.Identifier) string {
	return moduleID.String() + "::" + function.String()
}

// MockVM dispatches calls to registered handlers and records every call it
// receives.
type MockVM struct {
	Handlers map[string]func(call *execution.FunctionCall) (*execution.CallResults, error)
	Calls    []*execution.FunctionCall
}

func NewMockVM() *MockVM {
	return &MockVM{
		Handlers: make(map[string]func(call *execution.FunctionCall) (*execution.CallResults, error)),
	}
}

// Handle registers a handler for a function of a module.
func (m *MockVM) Handle(moduleID vmtype.ModuleID, function vmtype.Identifier, handler func(call *execution.FunctionCall) (*execution.CallResults, error)) {
	m.Handlers[CallKey(moduleID, function)] = handler
}

// HandleReturn registers a handler that returns fixed values.
func (m *MockVM) HandleReturn(moduleID vmtype.ModuleID, function vmtype.Identifier, returnValues ...[]byte) {
	m.Handle(moduleID, function, func(_ *execution.FunctionCall) (*execution.CallResults, error) {
		return &execution.CallResults{ReturnValues: returnValues}, nil
	})
}

func (m *MockVM) ExecuteFunction(_ context.Context, call *execution.FunctionCall) (*execution.CallResults, error) {
	m.Calls = append(m.Calls, call)

	handler, exists := m.Handlers[CallKey(call.Runtime, call.Function)]
	if !exists {
		return nil, ierrors.Errorf("no handler for %s", CallKey(call.Runtime, call.Function))
	}

	return handler(call)
}

// MockVerifier fails verification for the configured module names and
// accepts everything else.
type MockVerifier struct {
	FailingModules map[vmtype.Identifier]error
	Verified       []vmtype.Identifier
}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{FailingModules: make(map[vmtype.Identifier]error)}
}

func (v *MockVerifier) VerifyModule(m *module.Module) error {
	v.Verified = append(v.Verified, m.Name)
	if err, exists := v.FailingModules[m.Name]; exists {
		return err
	}

	return nil
}

// RecordingGasCharger records charged byte counts and can be primed to fail.
type RecordingGasCharger struct {
	PublishCharges []int
	UpgradeCharges []int
	FailWith       error
}

func (g *RecordingGasCharger) ChargePublish(numBytes int) error {
	if g.FailWith != nil {
		return g.FailWith
	}
	g.PublishCharges = append(g.PublishCharges, numBytes)

	return nil
}

func (g *RecordingGasCharger) ChargeUpgrade(numBytes int) error {
	if g.FailWith != nil {
		return g.FailWith
	}
	g.UpgradeCharges = append(g.UpgradeCharges, numBytes)

	return nil
}
