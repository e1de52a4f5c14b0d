package vmtype

import (
	"github.com/iotaledger/hive.go/ierrors"
)

// MaxIdentifierLength bounds module, function and datatype names. Matches the
// limit enforced by the bytecode format.
const MaxIdentifierLength = 128

var (
	ErrInvalidIdentifier = ierrors.New("invalid identifier")
)

// Identifier is a module, function or datatype name. A validated Identifier
// matches [A-Za-z_][A-Za-z0-9_]* and is non-empty.
type Identifier string

// NewIdentifier validates s under the strict syntax rules.
func NewIdentifier(s string) (Identifier, error) {
	if err := ValidateIdentifier(s); err != nil {
		return "", err
	}

	return Identifier(s), nil
}

// NewIdentifierUnchecked wraps s without validation. It preserves lenient
// deserialization behavior for configurations that predate strict checking.
func NewIdentifierUnchecked(s string) Identifier {
	return Identifier(s)
}

func ValidateIdentifier(s string) error {
	if len(s) == 0 {
		return ierrors.Wrap(ErrInvalidIdentifier, "empty identifier")
	}
	if len(s) > MaxIdentifierLength {
		return ierrors.Wrapf(ErrInvalidIdentifier, "identifier exceeds %d characters", MaxIdentifierLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return ierrors.Wrapf(ErrInvalidIdentifier, "identifier %q starts with a digit", s)
			}
		default:
			return ierrors.Wrapf(ErrInvalidIdentifier, "identifier %q contains illegal character %q", s, c)
		}
	}

	return nil
}

func (i Identifier) String() string {
	return string(i)
}

// ModuleID names a module within a package. The address is a runtime or a
// storage address depending on the context it is used in.
type ModuleID struct {
	Address Address
	Name    Identifier
}

func NewModuleID(address Address, name Identifier) ModuleID {
	return ModuleID{Address: address, Name: name}
}

func (m ModuleID) String() string {
	return m.Address.String() + "::" + m.Name.String()
}
