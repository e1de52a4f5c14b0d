package execution

import (
	"github.com/iotaledger/hive.go/ierrors"
)

// User-attributable failures. Each one aborts the failing command and, with
// it, the remainder of the transaction.
var (
	ErrArityMismatch                 = ierrors.New("arity mismatch")
	ErrTypeMismatch                  = ierrors.New("argument type mismatch")
	ErrInvalidValueBytes             = ierrors.New("malformed value bytes")
	ErrInvalidUsageOfPureArgument    = ierrors.New("pure bytes supplied for a non-primitive parameter")
	ErrInvalidArgumentToPrivateEntry = ierrors.New("result of a non-entry call passed to a private entry function")
	ErrInvalidValueUsage             = ierrors.New("invalid usage of a moved or borrowed value")
	ErrArgumentOutOfRange            = ierrors.New("argument reference out of range")
	ErrNonEntryFunctionInvoked       = ierrors.New("can only call entry or public functions")
	ErrFunctionNotFound              = ierrors.New("function not found")
	ErrInvalidPublicFunctionReturn   = ierrors.New("public function returns a reference")
	ErrValueTooLarge                 = ierrors.New("serialized value exceeds admissible size")
	ErrObjectNotTransferable         = ierrors.New("object lacks public transfer eligibility")
	ErrUnusedValueWithoutDrop        = ierrors.New("unused result cannot be dropped")
	ErrMissingDependency             = ierrors.New("missing publish or upgrade dependency")
	ErrPackageIDDoesNotMatch         = ierrors.New("upgrade ticket is for a different package")
	ErrDigestDoesNotMatch            = ierrors.New("upgrade digest does not match ticket")
	ErrUnknownUpgradePolicy          = ierrors.New("unknown upgrade policy")
	ErrIncompatibleUpgrade           = ierrors.New("incompatible upgrade")
	ErrObjectNotFound                = ierrors.New("object not found")
)

// ErrInvariantViolation marks adapter defects. It is never user-attributable:
// callers must halt the enclosing execution instead of reporting it as an
// ordinary transaction failure.
var ErrInvariantViolation = ierrors.New("invariant violation")

// InvariantViolationf builds a fatal internal error.
func InvariantViolationf(format string, args ...any) error {
	return ierrors.Wrapf(ErrInvariantViolation, format, args...)
}

// IsInvariantViolation reports whether err indicates an adapter defect rather
// than a user error.
func IsInvariantViolation(err error) bool {
	return ierrors.Is(err, ErrInvariantViolation)
}

// CommandError tags a failure with the index of the failing command.
type CommandError struct {
	Index int
	Err   error
}

// WithCommandIndex wraps err unless it already carries a command index.
func WithCommandIndex(err error, index int) error {
	var commandErr *CommandError
	if ierrors.As(err, &commandErr) {
		return err
	}

	return &CommandError{Index: index, Err: err}
}

func (e *CommandError) Error() string {
	return ierrors.Wrapf(e.Err, "command %d", e.Index).Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ArgumentError tags a failure with the index of the offending argument
// within its command.
type ArgumentError struct {
	Index int
	Err   error
}

func WithArgumentIndex(err error, index int) error {
	return &ArgumentError{Index: index, Err: err}
}

func (e *ArgumentError) Error() string {
	return ierrors.Wrapf(e.Err, "argument %d", e.Index).Error()
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeArgumentError tags a type-resolution failure with the index of the
// offending type argument.
type TypeArgumentError struct {
	Index int
	Err   error
}

func WithTypeArgumentIndex(err error, index int) error {
	return &TypeArgumentError{Index: index, Err: err}
}

func (e *TypeArgumentError) Error() string {
	return ierrors.Wrapf(e.Err, "type argument %d", e.Index).Error()
}

func (e *TypeArgumentError) Unwrap() error {
	return e.Err
}
