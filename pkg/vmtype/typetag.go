package vmtype

import (
	"strconv"
	"strings"

	"github.com/iotaledger/hive.go/ierrors"
)

var (
	ErrTypeTooDeep          = ierrors.New("type descriptor exceeds maximum nesting depth")
	ErrUnsubstitutedParam   = ierrors.New("unsubstituted type parameter")
	ErrTypeParamOutOfBounds = ierrors.New("type parameter index out of bounds")
)

// TypeKind discriminates the canonical type representation.
type TypeKind uint8

const (
	TypeKindBool TypeKind = iota
	TypeKindU8
	TypeKindU16
	TypeKindU32
	TypeKindU64
	TypeKindU128
	TypeKindU256
	TypeKindAddress
	TypeKindSigner
	TypeKindVector
	TypeKindStruct
	// TypeKindTypeParam only appears inside declared signatures of generic
	// functions and must be substituted before a tag is used as a value type.
	TypeKindTypeParam
)

// TypeTag is the canonical, fully resolved description of a runtime type.
type TypeTag struct {
	Kind TypeKind

	// Elem is set iff Kind == TypeKindVector.
	Elem *TypeTag
	// Struct is set iff Kind == TypeKindStruct.
	Struct *StructTag
	// Param is the parameter index iff Kind == TypeKindTypeParam.
	Param uint16
}

// StructTag names a concrete datatype instantiation.
type StructTag struct {
	Address    Address
	Module     Identifier
	Name       Identifier
	TypeParams []TypeTag
}

func BoolTag() TypeTag    { return TypeTag{Kind: TypeKindBool} }
func U8Tag() TypeTag      { return TypeTag{Kind: TypeKindU8} }
func U16Tag() TypeTag     { return TypeTag{Kind: TypeKindU16} }
func U32Tag() TypeTag     { return TypeTag{Kind: TypeKindU32} }
func U64Tag() TypeTag     { return TypeTag{Kind: TypeKindU64} }
func U128Tag() TypeTag    { return TypeTag{Kind: TypeKindU128} }
func U256Tag() TypeTag    { return TypeTag{Kind: TypeKindU256} }
func AddressTag() TypeTag { return TypeTag{Kind: TypeKindAddress} }
func SignerTag() TypeTag  { return TypeTag{Kind: TypeKindSigner} }

func VectorTag(elem TypeTag) TypeTag {
	return TypeTag{Kind: TypeKindVector, Elem: &elem}
}

func NewStructTag(address Address, module Identifier, name Identifier, typeParams ...TypeTag) TypeTag {
	return TypeTag{Kind: TypeKindStruct, Struct: &StructTag{
		Address:    address,
		Module:     module,
		Name:       name,
		TypeParams: typeParams,
	}}
}

func TypeParamTag(index uint16) TypeTag {
	return TypeTag{Kind: TypeKindTypeParam, Param: index}
}

// Equal reports exact structural equality. There is no coercion anywhere in
// the execution core, so this is the only type comparison used.
func (t TypeTag) Equal(other TypeTag) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TypeKindVector:
		return t.Elem.Equal(*other.Elem)
	case TypeKindStruct:
		return t.Struct.Equal(other.Struct)
	case TypeKindTypeParam:
		return t.Param == other.Param
	default:
		return true
	}
}

func (s *StructTag) Equal(other *StructTag) bool {
	if s.Address != other.Address || s.Module != other.Module || s.Name != other.Name {
		return false
	}
	if len(s.TypeParams) != len(other.TypeParams) {
		return false
	}
	for i := range s.TypeParams {
		if !s.TypeParams[i].Equal(other.TypeParams[i]) {
			return false
		}
	}

	return true
}

// Depth returns the nesting depth of the tag, counting vectors and struct
// type parameters. A scalar has depth 1.
func (t TypeTag) Depth() int {
	switch t.Kind {
	case TypeKindVector:
		return 1 + t.Elem.Depth()
	case TypeKindStruct:
		maxParam := 0
		for _, param := range t.Struct.TypeParams {
			if d := param.Depth(); d > maxParam {
				maxParam = d
			}
		}

		return 1 + maxParam
	default:
		return 1
	}
}

// Substitute replaces every type parameter with the corresponding entry of
// args, failing on out-of-bounds indices.
func (t TypeTag) Substitute(args []TypeTag) (TypeTag, error) {
	switch t.Kind {
	case TypeKindTypeParam:
		if int(t.Param) >= len(args) {
			return TypeTag{}, ierrors.Wrapf(ErrTypeParamOutOfBounds, "index %d with %d type arguments", t.Param, len(args))
		}

		return args[t.Param], nil
	case TypeKindVector:
		elem, err := t.Elem.Substitute(args)
		if err != nil {
			return TypeTag{}, err
		}

		return VectorTag(elem), nil
	case TypeKindStruct:
		if len(t.Struct.TypeParams) == 0 {
			return t, nil
		}
		params := make([]TypeTag, len(t.Struct.TypeParams))
		for i, param := range t.Struct.TypeParams {
			substituted, err := param.Substitute(args)
			if err != nil {
				return TypeTag{}, err
			}
			params[i] = substituted
		}

		return NewStructTag(t.Struct.Address, t.Struct.Module, t.Struct.Name, params...), nil
	default:
		return t, nil
	}
}

// HasTypeParams reports whether any type parameter remains in the tag.
func (t TypeTag) HasTypeParams() bool {
	switch t.Kind {
	case TypeKindTypeParam:
		return true
	case TypeKindVector:
		return t.Elem.HasTypeParams()
	case TypeKindStruct:
		for _, param := range t.Struct.TypeParams {
			if param.HasTypeParams() {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeKindBool:
		return "bool"
	case TypeKindU8:
		return "u8"
	case TypeKindU16:
		return "u16"
	case TypeKindU32:
		return "u32"
	case TypeKindU64:
		return "u64"
	case TypeKindU128:
		return "u128"
	case TypeKindU256:
		return "u256"
	case TypeKindAddress:
		return "address"
	case TypeKindSigner:
		return "signer"
	case TypeKindVector:
		return "vector<" + t.Elem.String() + ">"
	case TypeKindStruct:
		return t.Struct.String()
	case TypeKindTypeParam:
		return "$" + strconv.Itoa(int(t.Param))
	default:
		return "unknown"
	}
}

func (s *StructTag) String() string {
	base := s.Address.String() + "::" + s.Module.String() + "::" + s.Name.String()
	if len(s.TypeParams) == 0 {
		return base
	}
	params := make([]string, len(s.TypeParams))
	for i, param := range s.TypeParams {
		params[i] = param.String()
	}

	return base + "<" + strings.Join(params, ", ") + ">"
}
