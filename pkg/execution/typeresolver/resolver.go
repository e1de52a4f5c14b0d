// Package typeresolver canonicalizes user-supplied type descriptors into
// fully resolved type tags, remapping named types to the package that
// originally defined them so type identity survives upgrades.
package typeresolver

import (
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

var (
	ErrTypeNotFound      = ierrors.New("type not found")
	ErrTypeTooDeep       = ierrors.New("type descriptor exceeds the maximum nesting depth")
	ErrTypeArityMismatch = ierrors.New("wrong number of type parameters")
)

// PackageSource resolves the package currently linked at an address. The
// executor backs it with its staged packages on top of the package store.
type PackageSource interface {
	PackageAt(address vmtype.Address) (*execution.Package, error)
}

// Resolver canonicalizes type descriptors against a package source under a
// protocol configuration.
type Resolver struct {
	config   *execution.ProtocolConfig
	packages PackageSource
}

func New(config *execution.ProtocolConfig, packages PackageSource) *Resolver {
	return &Resolver{config: config, packages: packages}
}

// Identifier validates a raw name according to the configured strictness.
func (r *Resolver) Identifier(raw string) (vmtype.Identifier, error) {
	if r.config.ValidateIdentifiers {
		return vmtype.NewIdentifier(raw)
	}
	if len(raw) == 0 || len(raw) > vmtype.MaxIdentifierLength {
		return "", ierrors.Wrapf(vmtype.ErrInvalidIdentifier, "length %d", len(raw))
	}

	return vmtype.NewIdentifierUnchecked(raw), nil
}

// TypeTag canonicalizes a user type descriptor. Struct references are
// resolved against the package linked at their address and, when the
// configuration asks for it, rewritten to the defining package's id.
func (r *Resolver) TypeTag(input vmtype.TypeInput) (vmtype.TypeTag, error) {
	if depth := input.Depth(); depth > r.config.MaxTypeArgumentDepth {
		return vmtype.TypeTag{}, ierrors.Wrapf(ErrTypeTooDeep, "depth %d exceeds %d", depth, r.config.MaxTypeArgumentDepth)
	}

	return r.typeTag(input)
}

func (r *Resolver) typeTag(input vmtype.TypeInput) (vmtype.TypeTag, error) {
	switch input.Kind {
	case vmtype.TypeKindVector:
		elem, err := r.typeTag(*input.Elem)
		if err != nil {
			return vmtype.TypeTag{}, err
		}

		return vmtype.VectorTag(elem), nil

	case vmtype.TypeKindStruct:
		return r.structTag(*input.Struct)

	case vmtype.TypeKindTypeParam:
		return vmtype.TypeTag{}, ierrors.Wrap(execution.ErrTypeMismatch, "type parameters are not allowed in transaction type arguments")

	default:
		return vmtype.TypeTag{Kind: input.Kind}, nil
	}
}

func (r *Resolver) structTag(input vmtype.StructInput) (vmtype.TypeTag, error) {
	moduleName, err := r.Identifier(input.Module)
	if err != nil {
		return vmtype.TypeTag{}, ierrors.Wrap(err, "invalid module name")
	}
	structName, err := r.Identifier(input.Name)
	if err != nil {
		return vmtype.TypeTag{}, ierrors.Wrap(err, "invalid datatype name")
	}

	pkg, err := r.packages.PackageAt(input.Address)
	if err != nil {
		return vmtype.TypeTag{}, err
	}
	mod, ok := pkg.Module(moduleName)
	if !ok {
		return vmtype.TypeTag{}, ierrors.Wrapf(ErrTypeNotFound, "module %s not found in package %s", moduleName, pkg.StorageID.String())
	}
	decl, ok := mod.Struct(structName)
	if !ok {
		return vmtype.TypeTag{}, ierrors.Wrapf(ErrTypeNotFound, "datatype %s not found in module %s", structName, mod.ID().String())
	}
	if len(input.TypeParams) != int(decl.TypeParams) {
		return vmtype.TypeTag{}, ierrors.Wrapf(ErrTypeArityMismatch, "%s::%s declares %d type parameters, got %d", moduleName, structName, decl.TypeParams, len(input.TypeParams))
	}

	address := pkg.StorageID
	if r.config.ResolveTypesToDefiningID {
		origin, ok := pkg.TypeOrigin(moduleName, structName)
		if !ok {
			if r.config.StrictTypeResolutionErrors {
				return vmtype.TypeTag{}, ierrors.Wrapf(ErrTypeNotFound, "no defining package for %s::%s", moduleName, structName)
			}

			return vmtype.TypeTag{}, execution.InvariantViolationf("no defining package for %s::%s", moduleName, structName)
		}
		address = origin
	}

	params := make([]vmtype.TypeTag, len(input.TypeParams))
	for i, param := range input.TypeParams {
		tag, err := r.typeTag(param)
		if err != nil {
			return vmtype.TypeTag{}, err
		}
		params[i] = tag
	}

	return vmtype.NewStructTag(vmtype.Address(address), moduleName, structName, params...), nil
}

// Abilities derives the ability set of a fully resolved type.
func (r *Resolver) Abilities(t vmtype.TypeTag) (vmtype.Abilities, error) {
	switch t.Kind {
	case vmtype.TypeKindBool, vmtype.TypeKindU8, vmtype.TypeKindU16, vmtype.TypeKindU32,
		vmtype.TypeKindU64, vmtype.TypeKindU128, vmtype.TypeKindU256, vmtype.TypeKindAddress:
		return vmtype.AbilitiesPrimitive, nil

	case vmtype.TypeKindSigner:
		return vmtype.AbilityDrop, nil

	case vmtype.TypeKindVector:
		elem, err := r.Abilities(*t.Elem)
		if err != nil {
			return 0, err
		}

		// A vector never has key; its other abilities follow the element.
		return elem.Intersect(vmtype.AbilitiesPrimitive), nil

	case vmtype.TypeKindStruct:
		pkg, err := r.packages.PackageAt(t.Struct.Address)
		if err != nil {
			return 0, err
		}
		mod, ok := pkg.Module(t.Struct.Module)
		if !ok {
			return 0, ierrors.Wrapf(ErrTypeNotFound, "module %s not found in package %s", t.Struct.Module, pkg.StorageID.String())
		}
		decl, ok := mod.Struct(t.Struct.Name)
		if !ok {
			return 0, ierrors.Wrapf(ErrTypeNotFound, "datatype %s not found in module %s", t.Struct.Name, mod.ID().String())
		}

		abilities := decl.Abilities
		for _, param := range t.Struct.TypeParams {
			paramAbilities, err := r.Abilities(param)
			if err != nil {
				return 0, err
			}
			// Conditional abilities: the instantiation only keeps copy,
			// drop and store where every type parameter has them too.
			masked := paramAbilities.Intersect(vmtype.AbilitiesPrimitive)
			if decl.Abilities.HasKey() {
				masked |= vmtype.AbilityKey
			}
			abilities = abilities.Intersect(masked)
		}

		return abilities, nil

	default:
		return 0, execution.InvariantViolationf("cannot derive abilities of type %s", t.String())
	}
}
