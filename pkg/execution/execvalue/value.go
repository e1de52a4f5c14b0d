// Package execvalue holds the tagged representation of resolved argument and
// result values, and the borrow discipline over the slots they live in.
package execvalue

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

var (
	ErrInsufficientBalance = ierrors.New("insufficient coin balance")
	ErrBalanceOverflow     = ierrors.New("coin balance overflow")
	ErrNotAnObject         = ierrors.New("value is not an object")
)

// Value is a resolved argument or result. By-value consumption transfers
// ownership of the underlying bytes; by-reference access only borrows them.
type Value interface {
	// FromNonEntryCall reports whether the value's provenance includes a
	// non-entry call, which bars it from private entry and init functions.
	FromNonEntryCall() bool
	// IsCopyable reports whether by-value use duplicates instead of
	// consuming.
	IsCopyable() bool
	// SerializedBytes returns the wire encoding. maxSize 0 means unbounded;
	// otherwise exceeding it is an error.
	SerializedBytes(maxSize uint64) ([]byte, error)
}

// RawValue is a non-object value: either untyped client bytes (Type == nil)
// whose shape is fixed by first use, or a typed value produced by execution.
type RawValue struct {
	// Type is nil for client-supplied bytes that have not been type-checked
	// yet.
	Type      *vmtype.TypeTag
	Abilities vmtype.Abilities
	Bytes     []byte

	NonEntryProvenance bool
}

// NewPureValue wraps client-supplied bytes.
func NewPureValue(bytes []byte) *RawValue {
	return &RawValue{Bytes: bytes}
}

// NewRawValue wraps execution-produced bytes with their known type.
func NewRawValue(t vmtype.TypeTag, abilities vmtype.Abilities, bytes []byte, nonEntryProvenance bool) *RawValue {
	return &RawValue{Type: &t, Abilities: abilities, Bytes: bytes, NonEntryProvenance: nonEntryProvenance}
}

func (v *RawValue) FromNonEntryCall() bool {
	return v.NonEntryProvenance
}

func (v *RawValue) IsCopyable() bool {
	// Untyped bytes carry no consumption discipline yet.
	return v.Type == nil || v.Abilities.HasCopy()
}

func (v *RawValue) SerializedBytes(maxSize uint64) ([]byte, error) {
	if err := ensureSerializedSize(uint64(len(v.Bytes)), maxSize); err != nil {
		return nil, err
	}

	return v.Bytes, nil
}

// IsUntyped reports whether the bytes still await their first type check.
func (v *RawValue) IsUntyped() bool {
	return v.Type == nil
}

// ObjectValue is a versioned, identity-bearing value. Contents are either
// generic struct bytes or a structured coin.
type ObjectValue struct {
	Type              vmtype.TypeTag
	HasPublicTransfer bool

	// Contents holds the serialized struct bytes; nil iff Coin is set.
	Contents []byte
	Coin     *Coin

	NonEntryProvenance bool
}

// NewObjectValue wraps generic struct bytes, detecting the coin shape from
// the type tag.
func NewObjectValue(t vmtype.TypeTag, hasPublicTransfer bool, nonEntryProvenance bool, contents []byte) (*ObjectValue, error) {
	obj := &ObjectValue{
		Type:               t,
		HasPublicTransfer:  hasPublicTransfer,
		NonEntryProvenance: nonEntryProvenance,
	}
	if t.Kind == vmtype.TypeKindStruct {
		if _, isCoin := t.Struct.IsCoin(); isCoin {
			coin, err := CoinFromBytes(contents)
			if err != nil {
				return nil, err
			}
			obj.Coin = coin

			return obj, nil
		}
	}
	obj.Contents = contents

	return obj, nil
}

// NewCoinValue wraps an already-structured coin. The caller is responsible
// for t being a coin instantiation.
func NewCoinValue(t vmtype.TypeTag, coin *Coin) *ObjectValue {
	return &ObjectValue{Type: t, HasPublicTransfer: true, Coin: coin}
}

func (o *ObjectValue) FromNonEntryCall() bool {
	return o.NonEntryProvenance
}

// IsCopyable is always false for objects: identity forbids duplication.
func (o *ObjectValue) IsCopyable() bool {
	return false
}

func (o *ObjectValue) SerializedBytes(maxSize uint64) ([]byte, error) {
	var b []byte
	if o.Coin != nil {
		b = o.Coin.Bytes()
	} else {
		b = o.Contents
	}
	if err := ensureSerializedSize(uint64(len(b)), maxSize); err != nil {
		return nil, err
	}

	return b, nil
}

// ID extracts the object's identity. Objects lead with their id on the wire.
func (o *ObjectValue) ID() (vmtype.ObjectID, error) {
	if o.Coin != nil {
		return o.Coin.ID, nil
	}
	if len(o.Contents) < vmtype.AddressLength {
		return vmtype.ObjectID{}, execution.InvariantViolationf("object contents shorter than an id")
	}
	address, err := vmtype.AddressFromBytes(o.Contents[:vmtype.AddressLength])
	if err != nil {
		return vmtype.ObjectID{}, execution.InvariantViolationf("unable to read object id: %v", err)
	}

	return vmtype.ObjectID(address), nil
}

// EnsurePublicTransferEligible fails unless the object may be transferred
// outside its defining module.
func (o *ObjectValue) EnsurePublicTransferEligible() error {
	if !o.HasPublicTransfer {
		return ierrors.Wrapf(execution.ErrObjectNotTransferable, "object of type %s", o.Type.String())
	}

	return nil
}

// ReceivingValue references an object sent to another object; the callee
// claims it. The type is fixed lazily, on first type check.
type ReceivingValue struct {
	ID      vmtype.ObjectID
	Version uint64
	Type    *vmtype.TypeTag
}

func (r *ReceivingValue) FromNonEntryCall() bool {
	return false
}

func (r *ReceivingValue) IsCopyable() bool {
	return false
}

func (r *ReceivingValue) SerializedBytes(maxSize uint64) ([]byte, error) {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_, _ = buf.Write(r.ID[:])
	_ = stream.Write(buf, r.Version)

	b := lo.PanicOnErr(buf.Bytes())
	if err := ensureSerializedSize(uint64(len(b)), maxSize); err != nil {
		return nil, err
	}

	return b, nil
}

func ensureSerializedSize(size uint64, maxSize uint64) error {
	if maxSize != 0 && size > maxSize {
		return ierrors.Wrapf(execution.ErrValueTooLarge, "%d bytes exceeds admissible %d", size, maxSize)
	}

	return nil
}
