package execvalue

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

// Coin is the structured form of a balance-carrying object: its id followed
// by a little-endian u64 balance.
type Coin struct {
	ID      vmtype.ObjectID
	Balance uint64
}

// CoinFromBytes parses the wire form of a coin.
func CoinFromBytes(b []byte) (*Coin, error) {
	if len(b) != vmtype.AddressLength+8 {
		return nil, ierrors.Errorf("invalid coin encoding: expected %d bytes, got %d", vmtype.AddressLength+8, len(b))
	}

	coin := &Coin{Balance: binary.LittleEndian.Uint64(b[vmtype.AddressLength:])}
	copy(coin.ID[:], b[:vmtype.AddressLength])

	return coin, nil
}

func (c *Coin) Bytes() []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors.
	_, _ = buf.Write(c.ID[:])
	_ = stream.Write(buf, c.Balance)

	return lo.PanicOnErr(buf.Bytes())
}

// Split moves amount into a new coin with the given fresh id.
func (c *Coin) Split(amount uint64, newID vmtype.ObjectID) (*Coin, error) {
	if amount > c.Balance {
		return nil, ierrors.Wrapf(ErrInsufficientBalance, "requested %d, balance %d", amount, c.Balance)
	}
	c.Balance -= amount

	return &Coin{ID: newID, Balance: amount}, nil
}

// Add merges amount into the balance, refusing on overflow.
func (c *Coin) Add(amount uint64) error {
	if c.Balance > ^uint64(0)-amount {
		return ierrors.Wrapf(ErrBalanceOverflow, "balance %d plus %d", c.Balance, amount)
	}
	c.Balance += amount

	return nil
}
