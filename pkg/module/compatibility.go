package module

import (
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	ErrIncompatible = ierrors.New("incompatible module change")
)

// CheckInclusion verifies that every declaration of old exists unchanged in
// next. With exact set, next may not declare anything beyond old either, so
// the two modules are structurally equal.
//
// Unchanged means byte-equal layouts and signatures: any edit to a struct
// field, an ability set, or a function signature is a violation.
func CheckInclusion(old *Module, next *Module, exact bool) error {
	for i := range old.Structs {
		oldStruct := &old.Structs[i]
		newStruct, ok := next.Struct(oldStruct.Name)
		if !ok {
			return ierrors.Wrapf(ErrIncompatible, "struct %s removed", oldStruct.Name)
		}
		if err := structsEqual(oldStruct, newStruct); err != nil {
			return err
		}
	}
	for i := range old.Functions {
		oldFunction := &old.Functions[i]
		newFunction, _, ok := next.Function(oldFunction.Name)
		if !ok {
			return ierrors.Wrapf(ErrIncompatible, "function %s removed", oldFunction.Name)
		}
		if err := functionsEqual(oldFunction, newFunction); err != nil {
			return err
		}
	}
	if exact {
		if len(next.Structs) != len(old.Structs) {
			return ierrors.Wrapf(ErrIncompatible, "module %s declares new structs", next.Name)
		}
		if len(next.Functions) != len(old.Functions) {
			return ierrors.Wrapf(ErrIncompatible, "module %s declares new functions", next.Name)
		}
	}

	return nil
}

// CheckCompatible verifies the link- and layout-compatibility rules for
// upgrades: existing datatype layouts are frozen, public functions keep
// their exact signatures, entry functions may not disappear, and abilities
// may not shrink. Private non-entry functions are free to change.
func CheckCompatible(old *Module, next *Module) error {
	for i := range old.Structs {
		oldStruct := &old.Structs[i]
		newStruct, ok := next.Struct(oldStruct.Name)
		if !ok {
			return ierrors.Wrapf(ErrIncompatible, "struct %s removed", oldStruct.Name)
		}
		if err := structsEqual(oldStruct, newStruct); err != nil {
			return err
		}
	}
	for i := range old.Functions {
		oldFunction := &old.Functions[i]
		if oldFunction.Visibility != VisibilityPublic && !oldFunction.IsEntry {
			continue
		}
		newFunction, _, ok := next.Function(oldFunction.Name)
		if !ok {
			return ierrors.Wrapf(ErrIncompatible, "function %s removed", oldFunction.Name)
		}
		if oldFunction.Visibility == VisibilityPublic && newFunction.Visibility != VisibilityPublic {
			return ierrors.Wrapf(ErrIncompatible, "function %s lost public visibility", oldFunction.Name)
		}
		if oldFunction.IsEntry && !newFunction.IsEntry && newFunction.Visibility != VisibilityPublic {
			return ierrors.Wrapf(ErrIncompatible, "function %s lost entry visibility", oldFunction.Name)
		}
		if err := signaturesEqual(oldFunction, newFunction); err != nil {
			return err
		}
	}

	return nil
}

func structsEqual(old *Struct, next *Struct) error {
	if old.Abilities != next.Abilities {
		return ierrors.Wrapf(ErrIncompatible, "struct %s changed abilities from %s to %s", old.Name, old.Abilities, next.Abilities)
	}
	if old.TypeParams != next.TypeParams {
		return ierrors.Wrapf(ErrIncompatible, "struct %s changed type parameter count", old.Name)
	}
	if len(old.Fields) != len(next.Fields) {
		return ierrors.Wrapf(ErrIncompatible, "struct %s changed field count", old.Name)
	}
	for i := range old.Fields {
		if old.Fields[i].Name != next.Fields[i].Name || !old.Fields[i].Type.Equal(next.Fields[i].Type) {
			return ierrors.Wrapf(ErrIncompatible, "struct %s changed layout at field %d", old.Name, i)
		}
	}

	return nil
}

func functionsEqual(old *Function, next *Function) error {
	if old.Visibility != next.Visibility || old.IsEntry != next.IsEntry {
		return ierrors.Wrapf(ErrIncompatible, "function %s changed visibility", old.Name)
	}

	return signaturesEqual(old, next)
}

func signaturesEqual(old *Function, next *Function) error {
	if old.TypeParams != next.TypeParams {
		return ierrors.Wrapf(ErrIncompatible, "function %s changed type parameter count", old.Name)
	}
	if len(old.Parameters) != len(next.Parameters) || len(old.Returns) != len(next.Returns) {
		return ierrors.Wrapf(ErrIncompatible, "function %s changed arity", old.Name)
	}
	for i := range old.Parameters {
		if !old.Parameters[i].Equal(next.Parameters[i]) {
			return ierrors.Wrapf(ErrIncompatible, "function %s changed parameter %d", old.Name, i)
		}
	}
	for i := range old.Returns {
		if !old.Returns[i].Equal(next.Returns[i]) {
			return ierrors.Wrapf(ErrIncompatible, "function %s changed return value %d", old.Name, i)
		}
	}

	return nil
}
