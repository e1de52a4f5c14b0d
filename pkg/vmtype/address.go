package vmtype

import (
	"encoding/hex"

	"github.com/iotaledger/hive.go/ierrors"
)

const AddressLength = 32

var (
	ErrInvalidAddressLength = ierrors.New("invalid address length")
)

// Address is an account-level address in the VM's address space.
type Address [AddressLength]byte

// ObjectID identifies an object or a package version in storage. It shares
// the address space with Address: fresh ids are derived addresses.
type ObjectID Address

func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, ierrors.Wrapf(ErrInvalidAddressLength, "expected %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)

	return addr, nil
}

func AddressFromHex(s string) (Address, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) < 2*AddressLength {
		// short form, left-pad with zeros
		padded := make([]byte, 2*AddressLength)
		for i := range padded {
			padded[i] = '0'
		}
		copy(padded[2*AddressLength-len(s):], s)
		s = string(padded)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, ierrors.Wrap(err, "malformed hex address")
	}

	return AddressFromBytes(b)
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (o ObjectID) Bytes() []byte {
	return o[:]
}

func (o ObjectID) String() string {
	return Address(o).String()
}

func (o ObjectID) Address() Address {
	return Address(o)
}
