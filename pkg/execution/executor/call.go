package executor

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/arglayout"
	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

// functionKind classifies a callee by the calling convention it is subject
// to. Entry conventions gate what values may flow in; the non-entry
// convention taints the values that flow out.
type functionKind uint8

const (
	kindPrivateEntry functionKind = iota
	kindPublicEntry
	kindNonEntry
	kindInit
)

// callInfo is a resolved callee: the signature with type parameters
// substituted, the implicit trailing context stripped off, and the
// classification the argument checks key on.
type callInfo struct {
	pkg        *execution.Package
	mod        *module.Module
	fn         *module.Function
	fnIndex    int
	kind       functionKind
	txCtx      execution.TxContextKind
	hasWitness bool

	// parameters and returns carry substituted types; parameters exclude
	// the implicit context and, for initializers, the one-time witness.
	parameters []module.SigType
	returns    []module.SigType
}

func (ec *execContext) executeCall(cmd *execution.Call) error {
	moduleName, err := ec.resolver.Identifier(cmd.Module)
	if err != nil {
		return ierrors.Wrap(execution.ErrFunctionNotFound, err.Error())
	}
	functionName, err := ec.resolver.Identifier(cmd.Function)
	if err != nil {
		return ierrors.Wrap(execution.ErrFunctionNotFound, err.Error())
	}

	pkg, err := ec.PackageAt(cmd.Package.Address())
	if err != nil {
		return err
	}

	typeArgs := make([]vmtype.TypeTag, len(cmd.TypeArguments))
	for i, input := range cmd.TypeArguments {
		tag, err := ec.resolver.TypeTag(input)
		if err != nil {
			return execution.WithTypeArgumentIndex(err, i)
		}
		typeArgs[i] = tag
	}

	info, err := ec.resolveFunction(pkg, moduleName, functionName, typeArgs, false)
	if err != nil {
		return err
	}

	args, borrows, err := ec.buildArguments(info, cmd.Arguments)
	if err != nil {
		return err
	}

	results, err := ec.vmCall(info, typeArgs, args)
	if err != nil {
		return err
	}

	return ec.absorbCallResults(info, borrows, len(args), results)
}

// resolveFunction classifies the callee and substitutes its signature. All
// convention violations are rejected here, before any value is consumed.
func (ec *execContext) resolveFunction(pkg *execution.Package, moduleName vmtype.Identifier, functionName vmtype.Identifier, typeArgs []vmtype.TypeTag, initCall bool) (*callInfo, error) {
	mod, ok := pkg.Module(moduleName)
	if !ok {
		return nil, ierrors.Wrapf(execution.ErrFunctionNotFound, "module %s not found in package %s", moduleName, pkg.StorageID.String())
	}
	fn, fnIndex, ok := mod.Function(functionName)
	if !ok {
		return nil, ierrors.Wrapf(execution.ErrFunctionNotFound, "function %s not found in module %s", functionName, mod.ID().String())
	}

	info := &callInfo{pkg: pkg, mod: mod, fn: fn, fnIndex: fnIndex}

	switch {
	case initCall:
		info.kind = kindInit
	case functionName == vmtype.InitFunctionName && ec.executor.config.BanEntryInit:
		return nil, ierrors.Wrap(execution.ErrNonEntryFunctionInvoked, "module initializers cannot be called directly")
	case fn.Visibility == module.VisibilityPublic && fn.IsEntry:
		info.kind = kindPublicEntry
	case fn.Visibility == module.VisibilityPublic:
		info.kind = kindNonEntry
	case fn.IsEntry:
		info.kind = kindPrivateEntry
	case ec.mode.AllowArbitraryFunctionCalls:
		info.kind = kindNonEntry
	default:
		return nil, ierrors.Wrapf(execution.ErrNonEntryFunctionInvoked, "%s::%s is neither public nor entry", moduleName, functionName)
	}

	if !initCall {
		if pkg.RuntimeID.Address() == vmtype.FrameworkAddress && moduleName == vmtype.EventModuleName {
			return nil, ierrors.Wrapf(execution.ErrNonEntryFunctionInvoked, "%s::%s cannot be called directly", moduleName, functionName)
		}
		if isPrivilegedTransferFunction(pkg, moduleName, functionName) {
			return nil, ierrors.Wrapf(execution.ErrNonEntryFunctionInvoked, "%s::%s can only be called through its public wrapper", moduleName, functionName)
		}
	}

	if len(typeArgs) != int(fn.TypeParams) {
		return nil, ierrors.Wrapf(execution.ErrArityMismatch, "%s declares %d type parameters, got %d", functionName, fn.TypeParams, len(typeArgs))
	}

	parameters := make([]module.SigType, len(fn.Parameters))
	for i, param := range fn.Parameters {
		substituted, err := param.Type.Substitute(typeArgs)
		if err != nil {
			return nil, execution.InvariantViolationf("unable to substitute parameter %d of %s: %v", i, functionName, err)
		}
		parameters[i] = module.SigType{Ref: param.Ref, Type: substituted}
	}
	returns := make([]module.SigType, len(fn.Returns))
	for i, ret := range fn.Returns {
		substituted, err := ret.Type.Substitute(typeArgs)
		if err != nil {
			return nil, execution.InvariantViolationf("unable to substitute return %d of %s: %v", i, functionName, err)
		}
		if ret.Ref != module.RefNone && !ec.mode.AllowArbitraryValues {
			return nil, ierrors.Wrapf(execution.ErrInvalidPublicFunctionReturn, "return %d of %s", i, functionName)
		}
		returns[i] = module.SigType{Ref: ret.Ref, Type: substituted}
	}

	// Strip the implicit trailing execution context.
	if n := len(parameters); n > 0 {
		last := parameters[n-1]
		if last.Type.Kind == vmtype.TypeKindStruct && last.Type.Struct.IsTxContext() {
			switch last.Ref {
			case module.RefMutable:
				info.txCtx = execution.TxContextMutable
			case module.RefImmutable:
				info.txCtx = execution.TxContextImmutable
			default:
				return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "%s takes the execution context by value", functionName)
			}
			parameters = parameters[:n-1]
		}
	}

	// An initializer takes at most a one-time witness besides the context.
	if info.kind == kindInit {
		switch len(parameters) {
		case 0:
		case 1:
			info.hasWitness = true
			parameters = parameters[:0]
		default:
			return nil, ierrors.Wrapf(execution.ErrArityMismatch, "initializer of %s declares %d parameters", mod.Name, len(fn.Parameters))
		}
	}

	info.parameters = parameters
	info.returns = returns

	return info, nil
}

func isPrivilegedTransferFunction(pkg *execution.Package, moduleName vmtype.Identifier, functionName vmtype.Identifier) bool {
	if pkg.RuntimeID.Address() != vmtype.FrameworkAddress || moduleName != vmtype.TransferModuleName {
		return false
	}
	for _, name := range vmtype.PrivateTransferFunctions {
		if functionName == name {
			return true
		}
	}

	return false
}

// borrowRecord remembers one by-reference argument for post-call restore and
// write-back.
type borrowRecord struct {
	arg        execution.Argument
	localIndex int
	mutable    bool
	value      execvalue.Value
	paramType  vmtype.TypeTag
}

// remadeValue rebuilds a mutably borrowed value from its post-call bytes,
// keeping representation and provenance.
func remadeValue(original execvalue.Value, paramType vmtype.TypeTag, bytes []byte) (execvalue.Value, error) {
	switch original := original.(type) {
	case *execvalue.ObjectValue:
		return execvalue.NewObjectValue(original.Type, original.HasPublicTransfer, original.NonEntryProvenance, bytes)
	case *execvalue.RawValue:
		return execvalue.NewRawValue(paramType, original.Abilities, bytes, original.NonEntryProvenance), nil
	default:
		return nil, execution.InvariantViolationf("vm mutated a value that cannot be written back")
	}
}

// buildArguments checks and serializes one value per explicit parameter,
// enforcing arity, the borrow discipline, the entry privacy boundary and the
// per-parameter type rules.
func (ec *execContext) buildArguments(info *callInfo, args []execution.Argument) ([][]byte, []*borrowRecord, error) {
	if len(args) != len(info.parameters) {
		return nil, nil, ierrors.Wrapf(execution.ErrArityMismatch, "%s takes %d arguments, got %d", info.fn.Name, len(info.parameters), len(args))
	}

	serialized := make([][]byte, len(args))
	var borrows []*borrowRecord
	for i, arg := range args {
		param := info.parameters[i]

		var value execvalue.Value
		var err error
		switch param.Ref {
		case module.RefMutable:
			value, err = ec.arena.BorrowMut(arg)
		case module.RefImmutable:
			value, err = ec.arena.Borrow(arg)
		default:
			value, err = ec.arena.ByValue(arg)
		}
		if err != nil {
			return nil, nil, execution.WithArgumentIndex(err, i)
		}
		if param.Ref != module.RefNone {
			borrows = append(borrows, &borrowRecord{
				arg:        arg,
				localIndex: i,
				mutable:    param.Ref == module.RefMutable,
				value:      value,
				paramType:  param.Type,
			})
		}

		if (info.kind == kindPrivateEntry || info.kind == kindInit) && value.FromNonEntryCall() {
			return nil, nil, execution.WithArgumentIndex(
				ierrors.Wrapf(execution.ErrInvalidArgumentToPrivateEntry, "argument to %s", info.fn.Name), i)
		}

		checked, err := ec.checkValueType(value, param.Type, arg)
		if err != nil {
			return nil, nil, execution.WithArgumentIndex(err, i)
		}
		bytes, err := checked.SerializedBytes(ec.serializedValueBound())
		if err != nil {
			return nil, nil, execution.WithArgumentIndex(err, i)
		}
		serialized[i] = bytes
	}

	return serialized, borrows, nil
}

// serializedValueBound is the byte bound applied when a typed value is
// serialized into an argument. Zero disables the bound.
func (ec *execContext) serializedValueBound() uint64 {
	if !ec.executor.config.EnforceValueSizeBound || ec.mode.PackagesArePredefined {
		return 0
	}

	return ec.executor.config.MaxSerializedValueSize
}

// checkValueType admits a value for a parameter type. Untyped bytes are
// validated structurally against the primitive layout of the type, bounded
// by the amplification budget, and fixed to the type from then on.
func (ec *execContext) checkValueType(v execvalue.Value, paramType vmtype.TypeTag, arg execution.Argument) (execvalue.Value, error) {
	if ec.mode.AllowArbitraryValues {
		return v, nil
	}

	switch v := v.(type) {
	case *execvalue.RawValue:
		if !v.IsUntyped() {
			if !paramType.Equal(*v.Type) {
				return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "expected %s, got %s", paramType.String(), v.Type.String())
			}

			return v, nil
		}

		layout, err := arglayout.LayoutFor(paramType)
		if err != nil {
			return nil, ierrors.Wrapf(execution.ErrInvalidUsageOfPureArgument, "parameter type %s", paramType.String())
		}
		if err := layout.Validate(v.Bytes); err != nil {
			return nil, err
		}

		abilities, err := ec.resolver.Abilities(paramType)
		if err != nil {
			return nil, err
		}
		if err := ec.checkAmplifiedSize(paramType, abilities, len(v.Bytes)); err != nil {
			return nil, err
		}

		typed := execvalue.NewRawValue(paramType, abilities, v.Bytes, v.NonEntryProvenance)
		if arg.Kind == execution.ArgumentInput {
			// First use fixes the type for the rest of the transaction.
			if err := ec.arena.ReplaceInput(int(arg.Index), typed); err != nil {
				return nil, err
			}
		}

		return typed, nil

	case *execvalue.ObjectValue:
		if !paramType.Equal(v.Type) {
			return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "expected %s, got object of type %s", paramType.String(), v.Type.String())
		}

		return v, nil

	case *execvalue.ReceivingValue:
		if paramType.Kind != vmtype.TypeKindStruct {
			return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "expected %s, got a receiving reference", paramType.String())
		}
		inner, ok := paramType.Struct.IsReceiving()
		if !ok {
			return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "expected %s, got a receiving reference", paramType.String())
		}
		if v.Type != nil && !v.Type.Equal(inner) {
			return nil, ierrors.Wrapf(execution.ErrTypeMismatch, "receiving %s where %s is expected", v.Type.String(), inner.String())
		}
		v.Type = &inner

		return v, nil

	default:
		return nil, execution.InvariantViolationf("unknown value representation")
	}
}

// checkAmplifiedSize bounds serialized untyped bytes by the type's
// amplification factor. Values that cannot be duplicated are exempt, as is
// predefined-package execution.
func (ec *execContext) checkAmplifiedSize(paramType vmtype.TypeTag, abilities vmtype.Abilities, size int) error {
	config := ec.executor.config
	if config.MaxSerializedValueSize == 0 || !config.EnforceValueSizeBound || ec.mode.PackagesArePredefined || !abilities.HasCopy() {
		return nil
	}

	admissible := arglayout.AdmissibleSize(paramType, config.MaxSerializedValueSize, config.MaxValueDepth)
	if uint64(size) > admissible {
		return ierrors.Wrapf(execution.ErrValueTooLarge, "%d bytes of type %s exceed the admissible %d", size, paramType.String(), admissible)
	}

	return nil
}

// vmCall marshals the invocation, appending the implicit context blob when
// the callee declares one.
func (ec *execContext) vmCall(info *callInfo, typeArgs []vmtype.TypeTag, args [][]byte) (*execution.CallResults, error) {
	arguments := args
	if info.txCtx != execution.TxContextNone {
		arguments = append(append([][]byte{}, args...), ec.txContextBytes())
	}

	call := &execution.FunctionCall{
		Runtime:       vmtype.NewModuleID(info.pkg.RuntimeID.Address(), info.mod.Name),
		Storage:       vmtype.NewModuleID(info.pkg.StorageID.Address(), info.mod.Name),
		Function:      info.fn.Name,
		TypeArguments: typeArgs,
		Arguments:     arguments,
		TxContext:     info.txCtx,
		Linkage:       info.pkg.Linkage,
	}

	ec.executor.LogTrace("vm call", "function", call.Runtime.String()+"::"+call.Function.String(), "args", len(arguments))

	return ec.executor.vm.ExecuteFunction(ec.ctx, call)
}

// absorbCallResults folds the mutated context back, writes mutable-reference
// outputs into their slots, restores untouched borrows, converts return
// values and attributes emitted events.
func (ec *execContext) absorbCallResults(info *callInfo, borrows []*borrowRecord, explicitArgs int, results *execution.CallResults) error {
	mutated := make(map[int][]byte, len(results.MutableReferenceOutputs))
	for _, output := range results.MutableReferenceOutputs {
		mutated[int(output.LocalIndex)] = output.Bytes
	}

	if info.txCtx == execution.TxContextMutable {
		bytes, ok := mutated[explicitArgs]
		if ok {
			if err := ec.foldBackTxContext(bytes); err != nil {
				return err
			}
			delete(mutated, explicitArgs)
		}
	}

	for _, borrow := range borrows {
		restored := borrow.value
		if bytes, ok := mutated[borrow.localIndex]; ok {
			if !borrow.mutable {
				return execution.InvariantViolationf("vm mutated an immutably borrowed argument %d", borrow.localIndex)
			}
			updated, err := remadeValue(borrow.value, borrow.paramType, bytes)
			if err != nil {
				return err
			}
			restored = updated
		}
		if !borrow.mutable {
			continue
		}
		if err := ec.arena.Restore(borrow.arg, restored); err != nil {
			return err
		}
	}

	if len(results.ReturnValues) != len(info.returns) {
		return execution.InvariantViolationf("vm returned %d values for %d declared returns", len(results.ReturnValues), len(info.returns))
	}
	resultValues := make([]execvalue.Value, len(results.ReturnValues))
	for i, bytes := range results.ReturnValues {
		value, err := ec.makeResultValue(info, info.returns[i].Type, bytes)
		if err != nil {
			return err
		}
		resultValues[i] = value
	}
	ec.arena.PushResults(resultValues)

	eventModule := vmtype.NewModuleID(info.pkg.StorageID.Address(), info.mod.Name)
	if ec.executor.config.RelocateEventModule {
		eventModule = vmtype.NewModuleID(info.pkg.RuntimeID.Address(), info.mod.Name)
	}
	ec.emitEvents(eventModule, info.fnIndex, info.fn.Instructions, results.Events)

	return nil
}

// makeResultValue converts one return value. Types with the key ability
// become objects, publicly transferable iff they also have store.
func (ec *execContext) makeResultValue(info *callInfo, returnType vmtype.TypeTag, bytes []byte) (execvalue.Value, error) {
	abilities, err := ec.resolver.Abilities(returnType)
	if err != nil {
		return nil, err
	}
	nonEntryProvenance := info.kind == kindNonEntry

	if abilities.HasKey() {
		return execvalue.NewObjectValue(returnType, abilities.HasStore(), nonEntryProvenance, bytes)
	}

	return execvalue.NewRawValue(returnType, abilities, bytes, nonEntryProvenance), nil
}

// initArguments builds the implicit arguments of a module initializer: the
// optional one-time witness. The context blob is appended by vmCall.
func initArguments(info *callInfo) [][]byte {
	if info.hasWitness {
		return [][]byte{wire.EncodeBool(true)}
	}

	return nil
}
