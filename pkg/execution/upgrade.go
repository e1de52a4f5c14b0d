package execution

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

// UpgradePolicy is the compatibility contract an upgrade must satisfy. The
// numeric values are ordered by restrictiveness and fixed by the framework's
// package module.
type UpgradePolicy uint8

const (
	// UpgradePolicyCompatible requires the full link- and layout-
	// compatibility check.
	UpgradePolicyCompatible UpgradePolicy = 0
	// UpgradePolicyAdditive requires the new module set to be a structural
	// superset of the old.
	UpgradePolicyAdditive UpgradePolicy = 128
	// UpgradePolicyDepOnly requires exact structural equality; only
	// dependencies may change.
	UpgradePolicyDepOnly UpgradePolicy = 192
)

// UpgradePolicyFromByte validates a user-supplied policy value.
func UpgradePolicyFromByte(b uint8) (UpgradePolicy, error) {
	switch UpgradePolicy(b) {
	case UpgradePolicyCompatible, UpgradePolicyAdditive, UpgradePolicyDepOnly:
		return UpgradePolicy(b), nil
	default:
		return 0, ierrors.Wrapf(ErrUnknownUpgradePolicy, "policy %d", b)
	}
}

// UpgradeCap is the capability object minted at publish time. Holding it
// grants authority over all future upgrades of the package.
type UpgradeCap struct {
	ID      vmtype.ObjectID
	Package vmtype.ObjectID
	Version uint64
	Policy  UpgradePolicy
}

// UpgradeTicket is the single-use capability authorizing exactly one upgrade
// execution: it binds the package id, a digest over the candidate modules
// and dependencies, and the policy to enforce.
type UpgradeTicket struct {
	Cap     vmtype.ObjectID
	Package vmtype.ObjectID
	Policy  UpgradePolicy
	Digest  []byte
}

// UpgradeReceipt records a completed upgrade, pairing the consumed ticket's
// capability with the new storage identity.
type UpgradeReceipt struct {
	Cap     vmtype.ObjectID
	Package vmtype.ObjectID
}

func (c *UpgradeCap) Bytes() []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_, _ = buf.Write(c.ID[:])
	_, _ = buf.Write(c.Package[:])
	_, _ = buf.Write(wire.EncodeU64(c.Version))
	_, _ = buf.Write(wire.EncodeU8(uint8(c.Policy)))

	return lo.PanicOnErr(buf.Bytes())
}

func (t *UpgradeTicket) Bytes() []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_, _ = buf.Write(t.Cap[:])
	_, _ = buf.Write(t.Package[:])
	_, _ = buf.Write(wire.EncodeU8(uint8(t.Policy)))
	_, _ = buf.Write(wire.EncodeLen(len(t.Digest)))
	_, _ = buf.Write(t.Digest)

	return lo.PanicOnErr(buf.Bytes())
}

func (r *UpgradeReceipt) Bytes() []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_, _ = buf.Write(r.Cap[:])
	_, _ = buf.Write(r.Package[:])

	return lo.PanicOnErr(buf.Bytes())
}

// UpgradeTicketFromBytes decodes a ticket from its wire form, rejecting
// trailing bytes.
func UpgradeTicketFromBytes(b []byte) (*UpgradeTicket, error) {
	reader := wire.NewReader(b)
	capID, err := reader.ReadAddress()
	if err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "unable to read ticket capability id")
	}
	packageID, err := reader.ReadAddress()
	if err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "unable to read ticket package id")
	}
	policyByte, err := reader.ReadByte()
	if err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "unable to read ticket policy")
	}
	policy, err := UpgradePolicyFromByte(policyByte)
	if err != nil {
		return nil, err
	}
	digestLen, err := reader.ReadLen()
	if err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "unable to read ticket digest length")
	}
	digest, err := reader.ReadBytes(digestLen)
	if err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "unable to read ticket digest")
	}
	if err := reader.Done(); err != nil {
		return nil, ierrors.Wrap(ErrInvalidValueBytes, "trailing bytes after ticket")
	}

	return &UpgradeTicket{
		Cap:     vmtype.ObjectID(capID),
		Package: vmtype.ObjectID(packageID),
		Policy:  policy,
		Digest:  append([]byte(nil), digest...),
	}, nil
}
