package execvalue

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/execution"
)

type slotState uint8

const (
	// slotOwned holds a value with no outstanding borrows.
	slotOwned slotState = iota
	// slotExclusive has its value lent out mutably; it must be restored
	// before the command ends.
	slotExclusive
	// slotConsumed had its value taken by value.
	slotConsumed
)

type slot struct {
	value       Value
	state       slotState
	sharedCount int
}

// Arena owns every input and result slot of a transaction and enforces the
// borrow discipline over them: a value is either owned, lent out exclusively,
// borrowed shared any number of times, or consumed.
type Arena struct {
	inputs  []slot
	results [][]slot
}

// NewArena seeds the input slots. A nil value marks an input that could not
// be materialized and must never be referenced.
func NewArena(inputs []Value) *Arena {
	a := &Arena{inputs: make([]slot, len(inputs))}
	for i, v := range inputs {
		a.inputs[i].value = v
		if v == nil {
			a.inputs[i].state = slotConsumed
		}
	}

	return a
}

// PushResults appends the result slots of a finished command.
func (a *Arena) PushResults(values []Value) {
	slots := make([]slot, len(values))
	for i, v := range values {
		slots[i].value = v
		if v == nil {
			slots[i].state = slotConsumed
		}
	}
	a.results = append(a.results, slots)
}

// ResultCount returns the number of commands that have produced results.
func (a *Arena) ResultCount() int {
	return len(a.results)
}

// InputValue exposes the current value of an input slot, nil if consumed.
// Used to collect surviving mutable objects at the end of the transaction.
func (a *Arena) InputValue(index int) Value {
	if index >= len(a.inputs) || a.inputs[index].state != slotOwned {
		return nil
	}

	return a.inputs[index].value
}

// ReplaceInput swaps the value held by an owned input slot, preserving its
// borrow state. Used when an untyped input is fixed to its first-use type.
func (a *Arena) ReplaceInput(index int, v Value) error {
	if index >= len(a.inputs) {
		return execution.InvariantViolationf("input %d out of range", index)
	}
	a.inputs[index].value = v

	return nil
}

// LiveResults calls fn for every result value still owned at the end of the
// transaction, in command order.
func (a *Arena) LiveResults(fn func(command int, index int, v Value)) {
	for c, slots := range a.results {
		for i := range slots {
			if slots[i].state == slotOwned && slots[i].value != nil {
				fn(c, i, slots[i].value)
			}
		}
	}
}

// ByValue consumes the value in the slot. Copyable values are duplicated and
// the slot keeps its value.
func (a *Arena) ByValue(arg execution.Argument) (Value, error) {
	s, err := a.resolve(arg)
	if err != nil {
		return nil, err
	}
	switch {
	case s.state == slotConsumed:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value was already consumed")
	case s.state == slotExclusive:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value is mutably borrowed")
	case s.sharedCount > 0:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value is borrowed")
	}

	v := s.value
	if !v.IsCopyable() {
		s.value = nil
		s.state = slotConsumed
	}

	return v, nil
}

// Borrow takes a shared borrow of the value in the slot.
func (a *Arena) Borrow(arg execution.Argument) (Value, error) {
	s, err := a.resolve(arg)
	if err != nil {
		return nil, err
	}
	switch s.state {
	case slotConsumed:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value was already consumed")
	case slotExclusive:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value is mutably borrowed")
	}
	s.sharedCount++

	return s.value, nil
}

// BorrowMut takes the value out of the slot for exclusive mutable access.
// Restore puts it back.
func (a *Arena) BorrowMut(arg execution.Argument) (Value, error) {
	s, err := a.resolve(arg)
	if err != nil {
		return nil, err
	}
	switch {
	case s.state == slotConsumed:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value was already consumed")
	case s.state == slotExclusive:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value is already mutably borrowed")
	case s.sharedCount > 0:
		return nil, ierrors.Wrap(execution.ErrInvalidValueUsage, "value is borrowed")
	}

	v := s.value
	s.value = nil
	s.state = slotExclusive

	return v, nil
}

// Restore returns a mutably borrowed value to its slot. A restore into a
// slot that is not lent out exclusively is an internal bug, not a user error.
func (a *Arena) Restore(arg execution.Argument, v Value) error {
	s, err := a.resolve(arg)
	if err != nil {
		return execution.InvariantViolationf("restore of unresolvable argument: %v", err)
	}
	if s.state != slotExclusive {
		return execution.InvariantViolationf("restore into a slot that is not mutably borrowed")
	}
	s.value = v
	s.state = slotOwned

	return nil
}

// EndCommand releases all shared borrows. Any slot still lent out exclusively
// is an internal bug.
func (a *Arena) EndCommand() error {
	for i := range a.inputs {
		if err := endSlot(&a.inputs[i]); err != nil {
			return err
		}
	}
	for _, slots := range a.results {
		for i := range slots {
			if err := endSlot(&slots[i]); err != nil {
				return err
			}
		}
	}

	return nil
}

func endSlot(s *slot) error {
	if s.state == slotExclusive {
		return execution.InvariantViolationf("mutable borrow outlived its command")
	}
	s.sharedCount = 0

	return nil
}

func (a *Arena) resolve(arg execution.Argument) (*slot, error) {
	switch arg.Kind {
	case execution.ArgumentInput:
		if int(arg.Index) >= len(a.inputs) {
			return nil, ierrors.Wrapf(execution.ErrArgumentOutOfRange, "input %d of %d", arg.Index, len(a.inputs))
		}

		return &a.inputs[arg.Index], nil

	case execution.ArgumentResult:
		if int(arg.Index) >= len(a.results) {
			return nil, ierrors.Wrapf(execution.ErrArgumentOutOfRange, "result of command %d not available", arg.Index)
		}
		slots := a.results[arg.Index]
		if len(slots) != 1 {
			return nil, ierrors.Wrapf(execution.ErrArgumentOutOfRange, "command %d produced %d results, a nested result index is required", arg.Index, len(slots))
		}

		return &slots[0], nil

	case execution.ArgumentNestedResult:
		if int(arg.Index) >= len(a.results) {
			return nil, ierrors.Wrapf(execution.ErrArgumentOutOfRange, "result of command %d not available", arg.Index)
		}
		slots := a.results[arg.Index]
		if int(arg.Result) >= len(slots) {
			return nil, ierrors.Wrapf(execution.ErrArgumentOutOfRange, "result %d of command %d out of range", arg.Result, arg.Index)
		}

		return &slots[arg.Result], nil

	default:
		return nil, execution.InvariantViolationf("unknown argument kind %d", arg.Kind)
	}
}
