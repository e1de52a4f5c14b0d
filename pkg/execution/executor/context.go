package executor

import (
	"context"
	"encoding/binary"

	"github.com/iotaledger/hive.go/ds/orderedmap"
	"github.com/iotaledger/hive.go/ierrors"
	"go.uber.org/atomic"
	"golang.org/x/crypto/blake2b"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/execution/typeresolver"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// execContext is the per-transaction state: the resolved input and result
// slots, the packages staged by publish and upgrade commands, the emitted
// events, and the object bookkeeping the final changeset is assembled from.
type execContext struct {
	executor *Executor
	ctx      context.Context
	mode     execution.Mode

	sender   vmtype.Address
	txDigest [32]byte

	arena    *execvalue.Arena
	resolver *typeresolver.Resolver

	// idsCreated counts fresh ids handed out so far; it seeds id derivation
	// and is folded back from the VM after mutable-context calls.
	idsCreated *atomic.Uint64

	// staged holds packages published or upgraded by this transaction, keyed
	// by runtime id. They shadow the package store for the rest of the
	// transaction and are dropped if their command fails.
	staged      *orderedmap.OrderedMap[vmtype.Address, *execution.Package]
	newPackages []*execution.Package

	events []execution.Event

	loadedObjects []*execution.ObjectRecord
	// inputObjects maps input slot index to the loaded record, for write-back
	// and deletion tracking at finish.
	inputObjects map[int]*execution.ObjectRecord

	transfers []execution.Transfer
}

func newExecContext(ctx context.Context, e *Executor, tx *execution.Transaction, mode execution.Mode) (*execContext, error) {
	ec := &execContext{
		executor:     e,
		ctx:          ctx,
		mode:         mode,
		sender:       tx.Sender,
		txDigest:     tx.Digest,
		idsCreated:   atomic.NewUint64(0),
		staged:       orderedmap.New[vmtype.Address, *execution.Package](),
		inputObjects: make(map[int]*execution.ObjectRecord),
	}
	ec.resolver = typeresolver.New(e.config, ec)

	values, err := ec.loadInputs(tx.Inputs)
	if err != nil {
		return nil, err
	}
	ec.arena = execvalue.NewArena(values)

	return ec, nil
}

// loadInputs materializes every transaction input. Object inputs are read
// from the store in one batch.
func (ec *execContext) loadInputs(inputs []execution.Input) ([]execvalue.Value, error) {
	objectIDs := make([]vmtype.ObjectID, 0, len(inputs))
	for _, input := range inputs {
		if object, ok := input.(*execution.ObjectInput); ok {
			objectIDs = append(objectIDs, object.ID)
		}
	}

	var records []*execution.ObjectRecord
	if len(objectIDs) > 0 {
		var err error
		records, err = ec.executor.objects.ReadObjects(objectIDs)
		if err != nil {
			return nil, err
		}
		if len(records) != len(objectIDs) {
			return nil, execution.InvariantViolationf("object store returned %d records for %d ids", len(records), len(objectIDs))
		}
	}

	values := make([]execvalue.Value, len(inputs))
	recordIndex := 0
	for i, input := range inputs {
		switch input := input.(type) {
		case *execution.PureInput:
			values[i] = execvalue.NewPureValue(input.Bytes)

		case *execution.ObjectInput:
			record := records[recordIndex]
			recordIndex++
			value, err := execvalue.NewObjectValue(record.Type, record.HasPublicTransfer, false, record.Contents)
			if err != nil {
				return nil, execution.WithArgumentIndex(err, i)
			}
			values[i] = value
			ec.inputObjects[i] = record
			ec.loadedObjects = append(ec.loadedObjects, record)

		case *execution.ReceivingInput:
			values[i] = &execvalue.ReceivingValue{ID: input.ID, Version: input.Version}

		default:
			return nil, execution.InvariantViolationf("unknown input kind at index %d", i)
		}
	}

	return values, nil
}

// FreshID derives the next deterministic object id from the transaction
// digest and the running creation counter.
func (ec *execContext) FreshID() vmtype.ObjectID {
	counter := ec.idsCreated.Inc() - 1

	var seed [40]byte
	copy(seed[:32], ec.txDigest[:])
	binary.LittleEndian.PutUint64(seed[32:], counter)

	return vmtype.ObjectID(blake2b.Sum256(seed[:]))
}

// PackageAt resolves the package currently linked at an address, with
// transaction-staged packages shadowing the store.
func (ec *execContext) PackageAt(address vmtype.Address) (*execution.Package, error) {
	if pkg, exists := ec.staged.Get(address); exists {
		return pkg, nil
	}
	var found *execution.Package
	ec.staged.ForEach(func(_ vmtype.Address, pkg *execution.Package) bool {
		if pkg.StorageID.Address() == address {
			found = pkg

			return false
		}

		return true
	})
	if found != nil {
		return found, nil
	}

	packages, err := ec.executor.packages.ReadPackages([]vmtype.ObjectID{vmtype.ObjectID(address)})
	if err != nil {
		return nil, err
	}
	if len(packages) != 1 {
		return nil, execution.InvariantViolationf("package store returned %d packages for one id", len(packages))
	}

	return packages[0], nil
}

// loadDependencies resolves every dependency id, failing with one error that
// names all unresolvable ids.
func (ec *execContext) loadDependencies(ids []vmtype.ObjectID) ([]*execution.Package, error) {
	dependencies := make([]*execution.Package, len(ids))
	var missing []vmtype.ObjectID
	for i, id := range ids {
		pkg, err := ec.PackageAt(id.Address())
		if err != nil {
			missing = append(missing, id)

			continue
		}
		dependencies[i] = pkg
	}
	if len(missing) > 0 {
		return nil, &execution.MissingDependenciesError{IDs: missing}
	}

	return dependencies, nil
}

// txContextBytes is the serialized execution context handed to the VM as the
// implicit trailing argument.
func (ec *execContext) txContextBytes() []byte {
	b := make([]byte, 0, 72)
	b = append(b, ec.sender[:]...)
	b = append(b, ec.txDigest[:]...)
	b = binary.LittleEndian.AppendUint64(b, ec.idsCreated.Load())

	return b
}

// foldBackTxContext absorbs the context state the VM mutated. Only the
// creation counter can change.
func (ec *execContext) foldBackTxContext(b []byte) error {
	if len(b) != 72 {
		return execution.InvariantViolationf("mutated context has %d bytes, expected 72", len(b))
	}
	counter := binary.LittleEndian.Uint64(b[64:])
	if counter < ec.idsCreated.Load() {
		return execution.InvariantViolationf("context creation counter went backwards")
	}
	ec.idsCreated.Store(counter)

	return nil
}

func (ec *execContext) emitEvents(module vmtype.ModuleID, functionIndex int, lastInstruction uint16, raw []execution.RawEvent) {
	for _, event := range raw {
		ec.events = append(ec.events, execution.Event{
			Module:          module,
			FunctionIndex:   uint16(functionIndex),
			LastInstruction: lastInstruction,
			Type:            event.Type,
			Payload:         event.Payload,
		})
	}
}

func (ec *execContext) recordTransfer(object *execvalue.ObjectValue, recipient vmtype.Address) error {
	id, err := object.ID()
	if err != nil {
		return err
	}
	contents, err := object.SerializedBytes(0)
	if err != nil {
		return err
	}
	ec.transfers = append(ec.transfers, execution.Transfer{
		ID:        id,
		Type:      object.Type,
		Recipient: recipient,
		Contents:  contents,
	})

	return nil
}

// finish validates end-of-transaction value state and assembles the
// changeset. Surviving object inputs are written back mutated; object inputs
// consumed without a transfer are deleted.
func (ec *execContext) finish() (*execution.ObjectChanges, error) {
	var leftover error
	ec.arena.LiveResults(func(command int, index int, v execvalue.Value) {
		if leftover != nil {
			return
		}
		switch v := v.(type) {
		case *execvalue.ObjectValue:
			leftover = execution.WithCommandIndex(
				ierrors.Wrapf(execution.ErrUnusedValueWithoutDrop, "result %d holds an unconsumed object", index), command)
		case *execvalue.RawValue:
			if v.Type != nil && !v.Abilities.HasDrop() && !ec.mode.AllowArbitraryValues {
				leftover = execution.WithCommandIndex(
					ierrors.Wrapf(execution.ErrUnusedValueWithoutDrop, "result %d survives without the drop ability", index), command)
			}
		}
	})
	if leftover != nil {
		return nil, leftover
	}

	changes := &execution.ObjectChanges{
		Packages: ec.newPackages,
	}

	transferredIDs := make(map[vmtype.ObjectID]struct{}, len(ec.transfers))
	for _, transfer := range ec.transfers {
		transferredIDs[transfer.ID] = struct{}{}
	}

	loadedIDs := make(map[vmtype.ObjectID]struct{}, len(ec.inputObjects))
	for slot, record := range ec.inputObjects {
		loadedIDs[record.ID] = struct{}{}

		value := ec.arena.InputValue(slot)
		if value == nil {
			// Consumed. Transfers carry their own write; anything else is
			// gone for good.
			if _, transferred := transferredIDs[record.ID]; !transferred {
				changes.Deleted = append(changes.Deleted, record.ID)
			}

			continue
		}
		object, ok := value.(*execvalue.ObjectValue)
		if !ok {
			return nil, execution.InvariantViolationf("object input slot %d no longer holds an object", slot)
		}
		contents, err := object.SerializedBytes(0)
		if err != nil {
			return nil, err
		}
		changes.Mutated = append(changes.Mutated, execution.ObjectWrite{
			ID:                record.ID,
			Type:              object.Type,
			HasPublicTransfer: object.HasPublicTransfer,
			Contents:          contents,
		})
	}

	// Transfers of ids the store never saw are creations.
	for _, transfer := range ec.transfers {
		if _, loaded := loadedIDs[transfer.ID]; !loaded {
			changes.Created = append(changes.Created, execution.ObjectWrite{
				ID:                transfer.ID,
				Type:              transfer.Type,
				HasPublicTransfer: true,
				Contents:          transfer.Contents,
			})
		}
	}
	changes.Transferred = ec.transfers

	return changes, nil
}
