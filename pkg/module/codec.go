package module

import (
	"io"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/vmtype"
)

// Binary module format. Length prefixes use the serializer's standard
// encodings; type tags are a kind byte followed by kind-specific payload.
const (
	formatVersion byte = 1

	// maxTypeNesting bounds recursive tag decoding against adversarial input.
	maxTypeNesting = 32
)

var (
	magic = [4]byte{'O', 'M', 'O', 'D'}

	ErrMalformedModule   = ierrors.New("malformed module bytes")
	ErrUnsupportedFormat = ierrors.New("unsupported module format version")
)

func (m *Module) Bytes() []byte {
	buf := stream.NewByteBuffer()

	// There can't be any errors writing to a byte buffer.
	_, _ = buf.Write(magic[:])
	_ = stream.Write(buf, formatVersion)
	_ = stream.Write(buf, [vmtype.AddressLength]byte(m.SelfAddress))
	_ = stream.WriteBytesWithSize(buf, []byte(m.Name), serializer.SeriLengthPrefixTypeAsByte)
	_ = stream.Write(buf, uint16(len(m.Structs)))
	for i := range m.Structs {
		writeStruct(buf, &m.Structs[i])
	}
	_ = stream.Write(buf, uint16(len(m.Functions)))
	for i := range m.Functions {
		writeFunction(buf, &m.Functions[i])
	}

	return lo.PanicOnErr(buf.Bytes())
}

// FromBytes decodes and checks a single module.
func FromBytes(b []byte) (*Module, error) {
	reader := stream.NewByteReader(b)

	var decodedMagic [4]byte
	if _, err := io.ReadFull(reader, decodedMagic[:]); err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read magic")
	}
	if decodedMagic != magic {
		return nil, ierrors.Wrap(ErrMalformedModule, "bad magic")
	}
	version, err := stream.Read[byte](reader)
	if err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read format version")
	}
	if version != formatVersion {
		return nil, ierrors.Wrapf(ErrUnsupportedFormat, "version %d", version)
	}

	m := &Module{}
	selfAddress, err := stream.Read[[vmtype.AddressLength]byte](reader)
	if err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read self address")
	}
	m.SelfAddress = vmtype.Address(selfAddress)

	nameBytes, err := stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsByte)
	if err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read module name")
	}
	m.Name = vmtype.Identifier(nameBytes)

	structCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read struct count")
	}
	if structCount > 0 {
		m.Structs = make([]Struct, structCount)
	}
	for i := range m.Structs {
		if err := readStruct(reader, &m.Structs[i]); err != nil {
			return nil, ierrors.Wrapf(err, "struct %d", i)
		}
	}

	functionCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(ErrMalformedModule, "unable to read function count")
	}
	if functionCount > 0 {
		m.Functions = make([]Function, functionCount)
	}
	for i := range m.Functions {
		if err := readFunction(reader, &m.Functions[i]); err != nil {
			return nil, ierrors.Wrapf(err, "function %d", i)
		}
	}

	if err := m.Check(); err != nil {
		return nil, err
	}

	return m, nil
}

// DeserializeBundle decodes a publish or upgrade module set in order.
func DeserializeBundle(moduleBytes [][]byte) ([]*Module, error) {
	modules := make([]*Module, len(moduleBytes))
	for i, b := range moduleBytes {
		m, err := FromBytes(b)
		if err != nil {
			return nil, ierrors.Wrapf(err, "module %d", i)
		}
		modules[i] = m
	}

	return modules, nil
}

func writeStruct(w io.Writer, s *Struct) {
	_ = stream.WriteBytesWithSize(w, []byte(s.Name), serializer.SeriLengthPrefixTypeAsByte)
	_ = stream.Write(w, uint8(s.Abilities))
	_ = stream.Write(w, s.TypeParams)
	_ = stream.Write(w, uint16(len(s.Fields)))
	for i := range s.Fields {
		_ = stream.WriteBytesWithSize(w, []byte(s.Fields[i].Name), serializer.SeriLengthPrefixTypeAsByte)
		writeTypeTag(w, s.Fields[i].Type)
	}
}

func readStruct(r io.Reader, s *Struct) error {
	nameBytes, err := stream.ReadBytesWithSize(r, serializer.SeriLengthPrefixTypeAsByte)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read struct name")
	}
	s.Name = vmtype.Identifier(nameBytes)

	abilities, err := stream.Read[uint8](r)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read abilities")
	}
	s.Abilities = vmtype.Abilities(abilities)

	if s.TypeParams, err = stream.Read[uint8](r); err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read type parameter count")
	}

	fieldCount, err := stream.Read[uint16](r)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read field count")
	}
	if fieldCount > 0 {
		s.Fields = make([]Field, fieldCount)
	}
	for i := range s.Fields {
		fieldName, err := stream.ReadBytesWithSize(r, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			return ierrors.Wrap(ErrMalformedModule, "unable to read field name")
		}
		s.Fields[i].Name = vmtype.Identifier(fieldName)
		if s.Fields[i].Type, err = readTypeTag(r, 0); err != nil {
			return err
		}
	}

	return nil
}

func writeFunction(w io.Writer, f *Function) {
	_ = stream.WriteBytesWithSize(w, []byte(f.Name), serializer.SeriLengthPrefixTypeAsByte)
	_ = stream.Write(w, uint8(f.Visibility))
	_ = stream.Write(w, f.IsEntry)
	_ = stream.Write(w, f.TypeParams)
	_ = stream.Write(w, f.Instructions)
	_ = stream.Write(w, uint16(len(f.Parameters)))
	for _, p := range f.Parameters {
		writeSigType(w, p)
	}
	_ = stream.Write(w, uint16(len(f.Returns)))
	for _, ret := range f.Returns {
		writeSigType(w, ret)
	}
}

func readFunction(r io.Reader, f *Function) error {
	nameBytes, err := stream.ReadBytesWithSize(r, serializer.SeriLengthPrefixTypeAsByte)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read function name")
	}
	f.Name = vmtype.Identifier(nameBytes)

	visibility, err := stream.Read[uint8](r)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read visibility")
	}
	if visibility > uint8(VisibilityPublic) {
		return ierrors.Wrapf(ErrMalformedModule, "unknown visibility %d", visibility)
	}
	f.Visibility = Visibility(visibility)

	if f.IsEntry, err = stream.Read[bool](r); err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read entry flag")
	}
	if f.TypeParams, err = stream.Read[uint8](r); err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read type parameter count")
	}
	if f.Instructions, err = stream.Read[uint16](r); err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read instruction count")
	}

	paramCount, err := stream.Read[uint16](r)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read parameter count")
	}
	if paramCount > 0 {
		f.Parameters = make([]SigType, paramCount)
	}
	for i := range f.Parameters {
		if f.Parameters[i], err = readSigType(r); err != nil {
			return err
		}
	}

	returnCount, err := stream.Read[uint16](r)
	if err != nil {
		return ierrors.Wrap(ErrMalformedModule, "unable to read return count")
	}
	if returnCount > 0 {
		f.Returns = make([]SigType, returnCount)
	}
	for i := range f.Returns {
		if f.Returns[i], err = readSigType(r); err != nil {
			return err
		}
	}

	return nil
}

// WriteType serializes one type tag in the module wire format. Other layers
// reuse it to persist typed records.
func WriteType(w io.Writer, t vmtype.TypeTag) {
	writeTypeTag(w, t)
}

// ReadType deserializes one type tag written by WriteType.
func ReadType(r io.Reader) (vmtype.TypeTag, error) {
	return readTypeTag(r, 0)
}

func writeSigType(w io.Writer, s SigType) {
	_ = stream.Write(w, uint8(s.Ref))
	writeTypeTag(w, s.Type)
}

func readSigType(r io.Reader) (SigType, error) {
	ref, err := stream.Read[uint8](r)
	if err != nil {
		return SigType{}, ierrors.Wrap(ErrMalformedModule, "unable to read reference kind")
	}
	if ref > uint8(RefMutable) {
		return SigType{}, ierrors.Wrapf(ErrMalformedModule, "unknown reference kind %d", ref)
	}
	t, err := readTypeTag(r, 0)
	if err != nil {
		return SigType{}, err
	}

	return SigType{Ref: RefKind(ref), Type: t}, nil
}

func writeTypeTag(w io.Writer, t vmtype.TypeTag) {
	_ = stream.Write(w, uint8(t.Kind))
	switch t.Kind {
	case vmtype.TypeKindVector:
		writeTypeTag(w, *t.Elem)
	case vmtype.TypeKindStruct:
		_ = stream.Write(w, [vmtype.AddressLength]byte(t.Struct.Address))
		_ = stream.WriteBytesWithSize(w, []byte(t.Struct.Module), serializer.SeriLengthPrefixTypeAsByte)
		_ = stream.WriteBytesWithSize(w, []byte(t.Struct.Name), serializer.SeriLengthPrefixTypeAsByte)
		_ = stream.Write(w, uint8(len(t.Struct.TypeParams)))
		for _, param := range t.Struct.TypeParams {
			writeTypeTag(w, param)
		}
	case vmtype.TypeKindTypeParam:
		_ = stream.Write(w, t.Param)
	}
}

func readTypeTag(r io.Reader, depth int) (vmtype.TypeTag, error) {
	if depth >= maxTypeNesting {
		return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "type nesting too deep")
	}
	kind, err := stream.Read[uint8](r)
	if err != nil {
		return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read type kind")
	}
	if kind > uint8(vmtype.TypeKindTypeParam) {
		return vmtype.TypeTag{}, ierrors.Wrapf(ErrMalformedModule, "unknown type kind %d", kind)
	}
	switch vmtype.TypeKind(kind) {
	case vmtype.TypeKindVector:
		elem, err := readTypeTag(r, depth+1)
		if err != nil {
			return vmtype.TypeTag{}, err
		}

		return vmtype.VectorTag(elem), nil
	case vmtype.TypeKindStruct:
		address, err := stream.Read[[vmtype.AddressLength]byte](r)
		if err != nil {
			return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read struct address")
		}
		moduleName, err := stream.ReadBytesWithSize(r, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read struct module")
		}
		structName, err := stream.ReadBytesWithSize(r, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read struct name")
		}
		paramCount, err := stream.Read[uint8](r)
		if err != nil {
			return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read type parameter count")
		}
		var params []vmtype.TypeTag
		if paramCount > 0 {
			params = make([]vmtype.TypeTag, paramCount)
		}
		for i := range params {
			if params[i], err = readTypeTag(r, depth+1); err != nil {
				return vmtype.TypeTag{}, err
			}
		}

		return vmtype.NewStructTag(vmtype.Address(address), vmtype.Identifier(moduleName), vmtype.Identifier(structName), params...), nil
	case vmtype.TypeKindTypeParam:
		param, err := stream.Read[uint16](r)
		if err != nil {
			return vmtype.TypeTag{}, ierrors.Wrap(ErrMalformedModule, "unable to read type parameter index")
		}

		return vmtype.TypeParamTag(param), nil
	default:
		return vmtype.TypeTag{Kind: vmtype.TypeKind(kind)}, nil
	}
}
