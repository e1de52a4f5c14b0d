package execution

import (
	"github.com/iotaledger/hive.go/runtime/options"
)

// ProtocolConfig is the read-only feature and limit surface consumed by the
// execution core. It is never mutated during execution; independent
// re-execution under the same config must yield identical results.
type ProtocolConfig struct {
	// MaxSerializedValueSize is the global byte budget a single user value
	// may amplify into. 0 disables the bound entirely.
	MaxSerializedValueSize uint64
	// MaxValueDepth is the worst-case amplification factor assumed for
	// types whose shape cannot be statically determined.
	MaxValueDepth uint64
	// MaxTypeArgumentDepth bounds recursion over user type descriptors.
	MaxTypeArgumentDepth int

	// ValidateIdentifiers enables strict identifier syntax checking on
	// user-supplied names.
	ValidateIdentifiers bool
	// ResolveTypesToDefiningID re-resolves named types to the address at
	// which they were originally defined so type identity survives upgrades.
	ResolveTypesToDefiningID bool
	// StrictTypeResolutionErrors turns a type absent from the resolved
	// package's origin table into a type-not-found error.
	StrictTypeResolutionErrors bool
	// EnforceValueSizeBound gates the amplification bound; exempt types
	// without the copy ability.
	EnforceValueSizeBound bool
	// BanEntryInit rejects transaction-level calls to module initializers.
	BanEntryInit bool
	// RelocateEventModule attributes emitted events to the module's original
	// defining package instead of the package the call went through.
	RelocateEventModule bool
	// DisallowNewModulesInDepOnly rejects dep-only upgrades that add or
	// remove modules.
	DisallowNewModulesInDepOnly bool
}

// NewProtocolConfig returns the current production configuration, with opts
// applied on top.
func NewProtocolConfig(opts ...options.Option[ProtocolConfig]) *ProtocolConfig {
	return options.Apply(&ProtocolConfig{
		MaxSerializedValueSize:      1024 * 1024,
		MaxValueDepth:               128,
		MaxTypeArgumentDepth:        16,
		ValidateIdentifiers:         true,
		ResolveTypesToDefiningID:    true,
		StrictTypeResolutionErrors:  true,
		EnforceValueSizeBound:       true,
		BanEntryInit:                true,
		RelocateEventModule:         true,
		DisallowNewModulesInDepOnly: true,
	}, opts)
}

func WithMaxSerializedValueSize(size uint64) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.MaxSerializedValueSize = size
	}
}

func WithMaxValueDepth(depth uint64) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.MaxValueDepth = depth
	}
}

func WithMaxTypeArgumentDepth(depth int) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.MaxTypeArgumentDepth = depth
	}
}

func WithIdentifierValidation(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.ValidateIdentifiers = enabled
	}
}

func WithDefiningIDResolution(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.ResolveTypesToDefiningID = enabled
	}
}

func WithStrictTypeResolutionErrors(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.StrictTypeResolutionErrors = enabled
	}
}

func WithValueSizeBound(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.EnforceValueSizeBound = enabled
	}
}

func WithEntryInitBan(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.BanEntryInit = enabled
	}
}

func WithEventRelocation(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.RelocateEventModule = enabled
	}
}

func WithDepOnlyModuleSetFrozen(enabled bool) options.Option[ProtocolConfig] {
	return func(c *ProtocolConfig) {
		c.DisallowNewModulesInDepOnly = enabled
	}
}
