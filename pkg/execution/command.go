package execution

import (
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// ArgumentKind discriminates the three ways a command refers to a value.
type ArgumentKind uint8

const (
	// ArgumentInput points into the transaction's input table.
	ArgumentInput ArgumentKind = iota
	// ArgumentResult points at the whole result list of a prior command.
	ArgumentResult
	// ArgumentNestedResult points at one value of a prior command's results.
	ArgumentNestedResult
)

// Argument is a symbolic reference into the input table or a prior command's
// result table. Arguments are never mutated, only resolved.
type Argument struct {
	Kind ArgumentKind
	// Index is the input index for ArgumentInput, the command index
	// otherwise.
	Index uint16
	// Result is the result index within the command for ArgumentNestedResult.
	Result uint16
}

func InputArg(index uint16) Argument {
	return Argument{Kind: ArgumentInput, Index: index}
}

func ResultArg(command uint16) Argument {
	return Argument{Kind: ArgumentResult, Index: command}
}

func NestedResultArg(command uint16, result uint16) Argument {
	return Argument{Kind: ArgumentNestedResult, Index: command, Result: result}
}

// Command is one instruction of a transaction. Each concrete command is
// consumed exactly once by the dispatcher, in transaction order.
type Command interface {
	commandKind() string
}

// MakeVector assembles a vector value from per-element arguments. The
// element type may be omitted only when at least one element is an object,
// which then fixes the type.
type MakeVector struct {
	ElementType *vmtype.TypeInput
	Args        []Argument
}

// TransferObjects sends each object by value to the recipient address.
type TransferObjects struct {
	Objects []Argument
	Address Argument
}

// SplitCoins splits off one new coin per amount from the source coin.
type SplitCoins struct {
	Coin    Argument
	Amounts []Argument
}

// MergeCoins folds the balances of the source coins into the target,
// deleting the sources.
type MergeCoins struct {
	Target  Argument
	Sources []Argument
}

// Call invokes a function of a deployed package.
type Call struct {
	Package       vmtype.ObjectID
	Module        string
	Function      string
	TypeArguments []vmtype.TypeInput
	Arguments     []Argument
}

// Publish deploys a new package and runs its module initializers.
type Publish struct {
	Modules      [][]byte
	Dependencies []vmtype.ObjectID
}

// Upgrade installs a new version of a deployed package, consuming an upgrade
// ticket.
type Upgrade struct {
	Modules      [][]byte
	Dependencies []vmtype.ObjectID
	Package      vmtype.ObjectID
	Ticket       Argument
}

func (*MakeVector) commandKind() string      { return "MakeVector" }
func (*TransferObjects) commandKind() string { return "TransferObjects" }
func (*SplitCoins) commandKind() string      { return "SplitCoins" }
func (*MergeCoins) commandKind() string      { return "MergeCoins" }
func (*Call) commandKind() string            { return "Call" }
func (*Publish) commandKind() string         { return "Publish" }
func (*Upgrade) commandKind() string         { return "Upgrade" }

// Name returns the human-readable command kind for logs and errors.
func Name(c Command) string {
	return c.commandKind()
}
