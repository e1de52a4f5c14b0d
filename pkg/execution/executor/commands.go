package executor

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

func (ec *execContext) executeCommand(cmd execution.Command) error {
	switch cmd := cmd.(type) {
	case *execution.MakeVector:
		return ec.executeMakeVector(cmd)
	case *execution.TransferObjects:
		return ec.executeTransferObjects(cmd)
	case *execution.SplitCoins:
		return ec.executeSplitCoins(cmd)
	case *execution.MergeCoins:
		return ec.executeMergeCoins(cmd)
	case *execution.Call:
		return ec.executeCall(cmd)
	case *execution.Publish:
		return ec.executePublish(cmd)
	case *execution.Upgrade:
		return ec.executeUpgrade(cmd)
	default:
		return execution.InvariantViolationf("unknown command kind %s", execution.Name(cmd))
	}
}

// executeMakeVector assembles one vector value from per-element arguments.
// With a declared element type every element is checked against it; without
// one the elements must be objects and the first element fixes the type.
func (ec *execContext) executeMakeVector(cmd *execution.MakeVector) error {
	var elemType vmtype.TypeTag
	typeKnown := false
	if cmd.ElementType != nil {
		tag, err := ec.resolver.TypeTag(*cmd.ElementType)
		if err != nil {
			return execution.WithTypeArgumentIndex(err, 0)
		}
		elemType = tag
		typeKnown = true
	} else if len(cmd.Args) == 0 {
		return execution.InvariantViolationf("empty vector without a declared element type")
	}

	buf := stream.NewByteBuffer()
	// There can't be any errors.
	_, _ = buf.Write(wire.EncodeLen(len(cmd.Args)))

	nonEntryProvenance := false
	for i, arg := range cmd.Args {
		value, err := ec.arena.ByValue(arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i)
		}

		if !typeKnown {
			object, ok := value.(*execvalue.ObjectValue)
			if !ok {
				return execution.WithArgumentIndex(
					ierrors.Wrap(execution.ErrTypeMismatch, "element type can only be inferred from objects"), i)
			}
			elemType = object.Type
			typeKnown = true
		}

		checked, err := ec.checkValueType(value, elemType, arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i)
		}
		elemBytes, err := checked.SerializedBytes(ec.serializedValueBound())
		if err != nil {
			return execution.WithArgumentIndex(err, i)
		}
		// There can't be any errors.
		_, _ = buf.Write(elemBytes)

		if checked.FromNonEntryCall() {
			nonEntryProvenance = true
		}
	}

	vectorType := vmtype.VectorTag(elemType)
	abilities, err := ec.resolver.Abilities(vectorType)
	if err != nil {
		return err
	}
	bytes, err := buf.Bytes()
	if err != nil {
		return execution.InvariantViolationf("unable to assemble vector bytes: %v", err)
	}

	ec.arena.PushResults([]execvalue.Value{
		execvalue.NewRawValue(vectorType, abilities, bytes, nonEntryProvenance),
	})

	return nil
}

// executeTransferObjects hands each object to the recipient. Every object
// must be publicly transferable.
func (ec *execContext) executeTransferObjects(cmd *execution.TransferObjects) error {
	recipientValue, err := ec.arena.ByValue(cmd.Address)
	if err != nil {
		return execution.WithArgumentIndex(err, len(cmd.Objects))
	}
	recipient, err := ec.scalarAddress(recipientValue, cmd.Address)
	if err != nil {
		return execution.WithArgumentIndex(err, len(cmd.Objects))
	}

	for i, arg := range cmd.Objects {
		value, err := ec.arena.ByValue(arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i)
		}
		object, ok := value.(*execvalue.ObjectValue)
		if !ok {
			return execution.WithArgumentIndex(
				ierrors.Wrap(execution.ErrTypeMismatch, "only objects can be transferred"), i)
		}
		if err := object.EnsurePublicTransferEligible(); err != nil {
			return execution.WithArgumentIndex(err, i)
		}
		if err := ec.recordTransfer(object, recipient); err != nil {
			return execution.WithArgumentIndex(err, i)
		}
	}

	ec.arena.PushResults(nil)

	return nil
}

// executeSplitCoins splits one new coin per amount off the source coin.
func (ec *execContext) executeSplitCoins(cmd *execution.SplitCoins) error {
	coinValue, err := ec.arena.BorrowMut(cmd.Coin)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}
	coin, coinType, err := asCoin(coinValue)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}

	results := make([]execvalue.Value, 0, len(cmd.Amounts))
	for i, arg := range cmd.Amounts {
		amountValue, err := ec.arena.ByValue(arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
		amount, err := ec.scalarU64(amountValue, arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
		split, err := coin.Split(amount, ec.FreshID())
		if err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
		results = append(results, execvalue.NewCoinValue(coinType, split))
	}

	if err := ec.arena.Restore(cmd.Coin, coinValue); err != nil {
		return err
	}
	ec.arena.PushResults(results)

	return nil
}

// executeMergeCoins folds every source coin's balance into the target and
// deletes the sources.
func (ec *execContext) executeMergeCoins(cmd *execution.MergeCoins) error {
	targetValue, err := ec.arena.BorrowMut(cmd.Target)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}
	target, targetType, err := asCoin(targetValue)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}

	for i, arg := range cmd.Sources {
		sourceValue, err := ec.arena.ByValue(arg)
		if err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
		source, sourceType, err := asCoin(sourceValue)
		if err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
		if !sourceType.Equal(targetType) {
			return execution.WithArgumentIndex(
				ierrors.Wrapf(execution.ErrTypeMismatch, "cannot merge %s into %s", sourceType.String(), targetType.String()), i+1)
		}
		if err := target.Add(source.Balance); err != nil {
			return execution.WithArgumentIndex(err, i+1)
		}
	}

	if err := ec.arena.Restore(cmd.Target, targetValue); err != nil {
		return err
	}
	ec.arena.PushResults(nil)

	return nil
}

func asCoin(v execvalue.Value) (*execvalue.Coin, vmtype.TypeTag, error) {
	object, ok := v.(*execvalue.ObjectValue)
	if !ok || object.Coin == nil {
		return nil, vmtype.TypeTag{}, ierrors.Wrap(execution.ErrTypeMismatch, "expected a coin")
	}

	return object.Coin, object.Type, nil
}

// scalarAddress coerces a by-value argument into an address.
func (ec *execContext) scalarAddress(v execvalue.Value, arg execution.Argument) (vmtype.Address, error) {
	checked, err := ec.checkValueType(v, vmtype.AddressTag(), arg)
	if err != nil {
		return vmtype.Address{}, err
	}
	bytes, err := checked.SerializedBytes(0)
	if err != nil {
		return vmtype.Address{}, err
	}

	return vmtype.AddressFromBytes(bytes)
}

// scalarU64 coerces a by-value argument into a u64.
func (ec *execContext) scalarU64(v execvalue.Value, arg execution.Argument) (uint64, error) {
	checked, err := ec.checkValueType(v, vmtype.U64Tag(), arg)
	if err != nil {
		return 0, err
	}
	bytes, err := checked.SerializedBytes(0)
	if err != nil {
		return 0, err
	}
	reader := wire.NewReader(bytes)
	amount, err := reader.ReadUint(8)
	if err != nil {
		return 0, ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}
	if err := reader.Done(); err != nil {
		return 0, ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}

	return amount, nil
}
