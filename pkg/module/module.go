// Package module models deserialized bytecode modules to the depth the
// execution core needs: declared datatypes with their layouts, function
// signatures with visibility and entry flags, and the self-address that
// publish and upgrade rewrite. Function bodies stay opaque; running them is
// the interpreter's business.
package module

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

var (
	ErrDuplicateDeclaration = ierrors.New("duplicate declaration")
	ErrUnknownDeclaration   = ierrors.New("unknown declaration")
)

// Visibility is the declared visibility class of a function.
type Visibility uint8

const (
	VisibilityPrivate Visibility = iota
	VisibilityFriend
	VisibilityPublic
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityFriend:
		return "friend"
	case VisibilityPublic:
		return "public"
	default:
		return "unknown"
	}
}

// RefKind is the reference discipline of a declared parameter or return type.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefImmutable
	RefMutable
)

// SigType is one entry of a declared signature. Type may contain type
// parameters which are substituted at call time.
type SigType struct {
	Ref  RefKind
	Type vmtype.TypeTag
}

func Plain(t vmtype.TypeTag) SigType {
	return SigType{Ref: RefNone, Type: t}
}

func Ref(t vmtype.TypeTag) SigType {
	return SigType{Ref: RefImmutable, Type: t}
}

func MutRef(t vmtype.TypeTag) SigType {
	return SigType{Ref: RefMutable, Type: t}
}

func (s SigType) Equal(other SigType) bool {
	return s.Ref == other.Ref && s.Type.Equal(other.Type)
}

// Function is a declared function. Instructions is the length of the compiled
// body, 0 for native functions; the dispatcher reports it as the error range
// of a failing call.
type Function struct {
	Name         vmtype.Identifier
	Visibility   Visibility
	IsEntry      bool
	TypeParams   uint8
	Parameters   []SigType
	Returns      []SigType
	Instructions uint16
}

// Field is one declared datatype field.
type Field struct {
	Name vmtype.Identifier
	Type vmtype.TypeTag
}

// Struct is a declared datatype with its memory layout.
type Struct struct {
	Name       vmtype.Identifier
	Abilities  vmtype.Abilities
	TypeParams uint8
	Fields     []Field
}

// Module is one deserialized module of a package.
type Module struct {
	Name vmtype.Identifier
	// SelfAddress is the address the module was compiled against. At publish
	// time the placeholder value is rewritten to the assigned package id; at
	// upgrade time to the predecessor's runtime id.
	SelfAddress vmtype.Address
	Structs     []Struct
	Functions   []Function
}

// Check validates internal consistency after decoding: unique declaration
// names and identifier syntax.
func (m *Module) Check() error {
	if err := vmtype.ValidateIdentifier(string(m.Name)); err != nil {
		return ierrors.Wrap(err, "invalid module name")
	}
	structNames := make(map[vmtype.Identifier]struct{}, len(m.Structs))
	for _, s := range m.Structs {
		if err := vmtype.ValidateIdentifier(string(s.Name)); err != nil {
			return ierrors.Wrapf(err, "invalid struct name in module %s", m.Name)
		}
		if _, ok := structNames[s.Name]; ok {
			return ierrors.Wrapf(ErrDuplicateDeclaration, "struct %s in module %s", s.Name, m.Name)
		}
		structNames[s.Name] = struct{}{}
	}
	functionNames := make(map[vmtype.Identifier]struct{}, len(m.Functions))
	for _, f := range m.Functions {
		if err := vmtype.ValidateIdentifier(string(f.Name)); err != nil {
			return ierrors.Wrapf(err, "invalid function name in module %s", m.Name)
		}
		if _, ok := functionNames[f.Name]; ok {
			return ierrors.Wrapf(ErrDuplicateDeclaration, "function %s in module %s", f.Name, m.Name)
		}
		functionNames[f.Name] = struct{}{}
	}

	return nil
}

// Function returns the declared function with the given name and its
// definition index.
func (m *Module) Function(name vmtype.Identifier) (*Function, int, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], i, true
		}
	}

	return nil, 0, false
}

func (m *Module) Struct(name vmtype.Identifier) (*Struct, bool) {
	for i := range m.Structs {
		if m.Structs[i].Name == name {
			return &m.Structs[i], true
		}
	}

	return nil, false
}

// HasInit reports whether the module declares an initializer.
func (m *Module) HasInit() bool {
	_, _, ok := m.Function(vmtype.InitFunctionName)

	return ok
}

func (m *Module) ID() vmtype.ModuleID {
	return vmtype.NewModuleID(m.SelfAddress, m.Name)
}

// SubstituteSelfAddress rewrites the compiled-against address of every module
// in the bundle to next, including every struct tag that refers to a sibling
// module through the old address. Self-referential identity placeholders in
// the bytecode resolve to the bundle's own address, so a single pass over the
// declared types covers them all.
func SubstituteSelfAddress(modules []*Module, next vmtype.Address) {
	for _, m := range modules {
		prev := m.SelfAddress
		m.SelfAddress = next
		for si := range m.Structs {
			for fi := range m.Structs[si].Fields {
				m.Structs[si].Fields[fi].Type = rewriteAddress(m.Structs[si].Fields[fi].Type, prev, next)
			}
		}
		for fi := range m.Functions {
			f := &m.Functions[fi]
			for pi := range f.Parameters {
				f.Parameters[pi].Type = rewriteAddress(f.Parameters[pi].Type, prev, next)
			}
			for ri := range f.Returns {
				f.Returns[ri].Type = rewriteAddress(f.Returns[ri].Type, prev, next)
			}
		}
	}
}

func rewriteAddress(t vmtype.TypeTag, prev vmtype.Address, next vmtype.Address) vmtype.TypeTag {
	switch t.Kind {
	case vmtype.TypeKindVector:
		elem := rewriteAddress(*t.Elem, prev, next)

		return vmtype.VectorTag(elem)
	case vmtype.TypeKindStruct:
		address := t.Struct.Address
		if address == prev {
			address = next
		}
		params := make([]vmtype.TypeTag, len(t.Struct.TypeParams))
		for i, param := range t.Struct.TypeParams {
			params[i] = rewriteAddress(param, prev, next)
		}

		return vmtype.NewStructTag(address, t.Struct.Module, t.Struct.Name, params...)
	default:
		return t
	}
}
