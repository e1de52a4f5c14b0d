// Package arglayout derives the serialized layout of primitive parameter
// types, validates raw client bytes against it, and computes the size
// amplification bound that caps how much memory a raw argument may expand
// into during execution.
package arglayout

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/vmtype"
	"github.com/objectledger/exec-core/pkg/wire"
)

// ErrNotPrimitive marks a type for which raw client bytes are not accepted.
var ErrNotPrimitive = ierrors.New("type does not admit raw argument bytes")

// LayoutKind enumerates the serialized shapes raw argument bytes may take.
type LayoutKind uint8

const (
	LayoutBool LayoutKind = iota
	LayoutU8
	LayoutU16
	LayoutU32
	LayoutU64
	LayoutU128
	LayoutU256
	LayoutAddress
	LayoutAscii
	LayoutUTF8
	LayoutOption
	LayoutVector
)

// Layout is the recursive serialized shape of a primitive type.
type Layout struct {
	Kind LayoutKind
	// Elem is set for LayoutOption and LayoutVector.
	Elem *Layout
}

// LayoutFor derives the layout of t, or ErrNotPrimitive if raw bytes are not
// admissible for it.
func LayoutFor(t vmtype.TypeTag) (*Layout, error) {
	switch t.Kind {
	case vmtype.TypeKindBool:
		return &Layout{Kind: LayoutBool}, nil
	case vmtype.TypeKindU8:
		return &Layout{Kind: LayoutU8}, nil
	case vmtype.TypeKindU16:
		return &Layout{Kind: LayoutU16}, nil
	case vmtype.TypeKindU32:
		return &Layout{Kind: LayoutU32}, nil
	case vmtype.TypeKindU64:
		return &Layout{Kind: LayoutU64}, nil
	case vmtype.TypeKindU128:
		return &Layout{Kind: LayoutU128}, nil
	case vmtype.TypeKindU256:
		return &Layout{Kind: LayoutU256}, nil
	case vmtype.TypeKindAddress:
		return &Layout{Kind: LayoutAddress}, nil

	case vmtype.TypeKindVector:
		elem, err := LayoutFor(*t.Elem)
		if err != nil {
			return nil, err
		}

		return &Layout{Kind: LayoutVector, Elem: elem}, nil

	case vmtype.TypeKindStruct:
		switch {
		case t.Struct.IsAsciiString():
			return &Layout{Kind: LayoutAscii}, nil
		case t.Struct.IsUTF8String():
			return &Layout{Kind: LayoutUTF8}, nil
		}
		if inner, ok := t.Struct.IsOption(); ok {
			elem, err := LayoutFor(inner)
			if err != nil {
				return nil, err
			}

			return &Layout{Kind: LayoutOption, Elem: elem}, nil
		}

		return nil, ierrors.Wrapf(ErrNotPrimitive, "struct %s", t.Struct.String())

	default:
		return nil, ierrors.Wrapf(ErrNotPrimitive, "type %s", t.String())
	}
}

// IsPrimitive reports whether raw client bytes are admissible for t.
func IsPrimitive(t vmtype.TypeTag) bool {
	_, err := LayoutFor(t)

	return err == nil
}

// Amplification returns the factor by which a raw argument of type t may
// grow during execution. Types for which no primitive layout exists amplify
// by the maximum value depth, since nesting rather than width dominates.
func Amplification(t vmtype.TypeTag, maxValueDepth uint64) uint64 {
	layout, err := LayoutFor(t)
	if err != nil {
		return maxValueDepth
	}

	return layoutAmplification(layout)
}

func layoutAmplification(l *Layout) uint64 {
	switch l.Kind {
	case LayoutBool, LayoutU8, LayoutU16, LayoutU32, LayoutU64:
		return 1
	case LayoutU128, LayoutU256, LayoutAddress, LayoutAscii, LayoutUTF8:
		return 2
	case LayoutOption:
		return 1 + layoutAmplification(l.Elem)
	case LayoutVector:
		return layoutAmplification(l.Elem)
	default:
		return 1
	}
}

// AdmissibleSize caps the serialized size of a raw argument so that its
// amplified in-memory footprint stays within budget. Zero means no raw bytes
// of this type are admissible at all.
func AdmissibleSize(t vmtype.TypeTag, budget uint64, maxValueDepth uint64) uint64 {
	factor := Amplification(t, maxValueDepth)
	if factor == 0 {
		return budget
	}

	return budget / factor
}

// Validate tells apart well-formed raw bytes of the layout from malformed
// ones, rejecting trailing bytes.
func (l *Layout) Validate(b []byte) error {
	r := wire.NewReader(b)
	if err := l.read(r); err != nil {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}
	if err := r.Done(); err != nil {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}

	return nil
}
