package vmtype

// TypeInput is a user-supplied, unvalidated type descriptor as it arrives in
// a transaction. The type resolver canonicalizes it into a TypeTag.
type TypeInput struct {
	Kind TypeKind

	// Elem is set iff Kind == TypeKindVector.
	Elem *TypeInput
	// Struct is set iff Kind == TypeKindStruct.
	Struct *StructInput
}

// StructInput carries raw, unvalidated identifier strings.
type StructInput struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeInput
}

func BoolInput() TypeInput    { return TypeInput{Kind: TypeKindBool} }
func U8Input() TypeInput      { return TypeInput{Kind: TypeKindU8} }
func U16Input() TypeInput     { return TypeInput{Kind: TypeKindU16} }
func U32Input() TypeInput     { return TypeInput{Kind: TypeKindU32} }
func U64Input() TypeInput     { return TypeInput{Kind: TypeKindU64} }
func U128Input() TypeInput    { return TypeInput{Kind: TypeKindU128} }
func U256Input() TypeInput    { return TypeInput{Kind: TypeKindU256} }
func AddressInput() TypeInput { return TypeInput{Kind: TypeKindAddress} }
func SignerInput() TypeInput  { return TypeInput{Kind: TypeKindSigner} }

func VectorInput(elem TypeInput) TypeInput {
	return TypeInput{Kind: TypeKindVector, Elem: &elem}
}

func NewStructInput(address Address, module string, name string, typeParams ...TypeInput) TypeInput {
	return TypeInput{Kind: TypeKindStruct, Struct: &StructInput{
		Address:    address,
		Module:     module,
		Name:       name,
		TypeParams: typeParams,
	}}
}

// Depth returns the nesting depth of the descriptor, counting vectors and
// struct type parameters. A scalar has depth 1.
func (t TypeInput) Depth() int {
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
