package storebackend

import (
	"bytes"
	"sort"

	"github.com/iotaledger/hive.go/ds/orderedmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

func objectRecordBytes(record *execution.ObjectRecord) []byte {
	byteBuffer := stream.NewByteBuffer()

	// There can't be any errors.
	_ = stream.Write(byteBuffer, record.Version)
	_ = stream.Write(byteBuffer, record.HasPublicTransfer)
	module.WriteType(byteBuffer, record.Type)
	_ = stream.WriteBytesWithSize(byteBuffer, record.Contents, serializer.SeriLengthPrefixTypeAsUint32)

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func objectRecordFromBytes(id vmtype.ObjectID, value []byte) (*execution.ObjectRecord, error) {
	reader := stream.NewByteReader(value)

	record := &execution.ObjectRecord{ID: id}

	var err error
	if record.Version, err = stream.Read[uint64](reader); err != nil {
		return nil, ierrors.Wrap(err, "unable to read version")
	}
	if record.HasPublicTransfer, err = stream.Read[bool](reader); err != nil {
		return nil, ierrors.Wrap(err, "unable to read transfer eligibility")
	}
	if record.Type, err = module.ReadType(reader); err != nil {
		return nil, ierrors.Wrap(err, "unable to read type")
	}
	if record.Contents, err = stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
		return nil, ierrors.Wrap(err, "unable to read contents")
	}

	return record, nil
}

func packageBytes(pkg *execution.Package) []byte {
	byteBuffer := stream.NewByteBuffer()

	// There can't be any errors.
	_ = stream.Write(byteBuffer, [vmtype.AddressLength]byte(pkg.RuntimeID))
	_ = stream.Write(byteBuffer, pkg.Version)

	_ = stream.Write(byteBuffer, uint16(len(pkg.ModuleBytes)))
	for _, moduleBytes := range pkg.ModuleBytes {
		_ = stream.WriteBytesWithSize(byteBuffer, moduleBytes, serializer.SeriLengthPrefixTypeAsUint32)
	}

	_ = stream.Write(byteBuffer, uint16(len(pkg.Dependencies)))
	for _, dep := range pkg.Dependencies {
		_ = stream.Write(byteBuffer, [vmtype.AddressLength]byte(dep))
	}

	_ = stream.Write(byteBuffer, uint16(pkg.TypeOrigins.Size()))
	pkg.TypeOrigins.ForEach(func(key execution.TypeOriginKey, origin vmtype.ObjectID) bool {
		_ = stream.WriteBytesWithSize(byteBuffer, []byte(key.Module), serializer.SeriLengthPrefixTypeAsByte)
		_ = stream.WriteBytesWithSize(byteBuffer, []byte(key.Name), serializer.SeriLengthPrefixTypeAsByte)
		_ = stream.Write(byteBuffer, [vmtype.AddressLength]byte(origin))

		return true
	})

	// Map iteration order is random, the persisted record must not be.
	linkageKeys := make([]vmtype.Address, 0, len(pkg.Linkage))
	for runtime := range pkg.Linkage {
		linkageKeys = append(linkageKeys, runtime)
	}
	sort.Slice(linkageKeys, func(i, j int) bool {
		return bytes.Compare(linkageKeys[i][:], linkageKeys[j][:]) < 0
	})
	_ = stream.Write(byteBuffer, uint16(len(linkageKeys)))
	for _, runtime := range linkageKeys {
		_ = stream.Write(byteBuffer, [vmtype.AddressLength]byte(runtime))
		_ = stream.Write(byteBuffer, [vmtype.AddressLength]byte(pkg.Linkage[runtime]))
	}

	return lo.PanicOnErr(byteBuffer.Bytes())
}

func packageFromBytes(storageID vmtype.ObjectID, value []byte) (*execution.Package, error) {
	reader := stream.NewByteReader(value)

	runtimeID, err := stream.Read[[vmtype.AddressLength]byte](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read runtime id")
	}
	version, err := stream.Read[uint64](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read version")
	}

	moduleCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read module count")
	}
	moduleBytes := make([][]byte, moduleCount)
	for i := range moduleBytes {
		if moduleBytes[i], err = stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsUint32); err != nil {
			return nil, ierrors.Wrapf(err, "unable to read module %d", i)
		}
	}

	depCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read dependency count")
	}
	dependencies := make([]vmtype.ObjectID, depCount)
	for i := range dependencies {
		dep, err := stream.Read[[vmtype.AddressLength]byte](reader)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read dependency %d", i)
		}
		dependencies[i] = vmtype.ObjectID(dep)
	}

	originCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read type origin count")
	}
	typeOrigins := orderedmap.New[execution.TypeOriginKey, vmtype.ObjectID]()
	for i := uint16(0); i < originCount; i++ {
		moduleName, err := stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read origin module %d", i)
		}
		structName, err := stream.ReadBytesWithSize(reader, serializer.SeriLengthPrefixTypeAsByte)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read origin name %d", i)
		}
		origin, err := stream.Read[[vmtype.AddressLength]byte](reader)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read origin id %d", i)
		}
		typeOrigins.Set(execution.TypeOriginKey{
			Module: vmtype.Identifier(moduleName),
			Name:   vmtype.Identifier(structName),
		}, vmtype.ObjectID(origin))
	}

	linkageCount, err := stream.Read[uint16](reader)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read linkage count")
	}
	linkage := make(map[vmtype.Address]vmtype.Address, linkageCount)
	for i := uint16(0); i < linkageCount; i++ {
		runtime, err := stream.Read[[vmtype.AddressLength]byte](reader)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read linkage key %d", i)
		}
		storage, err := stream.Read[[vmtype.AddressLength]byte](reader)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read linkage value %d", i)
		}
		linkage[vmtype.Address(runtime)] = vmtype.Address(storage)
	}

	modules, err := module.DeserializeBundle(moduleBytes)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to deserialize modules")
	}
	// The stored bytes keep their build-time self address; relink them to
	// the runtime identity they were installed under.
	module.SubstituteSelfAddress(modules, vmtype.Address(runtimeID))

	return &execution.Package{
		StorageID:    storageID,
		RuntimeID:    vmtype.ObjectID(runtimeID),
		Version:      version,
		Modules:      modules,
		ModuleBytes:  moduleBytes,
		Dependencies: dependencies,
		TypeOrigins:  typeOrigins,
		Linkage:      linkage,
	}, nil
}
