package execution

// Mode is the capability table that parameterizes execution. Core logic is
// mode-agnostic; mode-dependent behavior is an ordinary conditional over
// these flags.
type Mode struct {
	// AllowArbitraryValues admits untyped bytes for any parameter shape and
	// silently dereferences reference returns. Inspection only.
	AllowArbitraryValues bool
	// AllowArbitraryFunctionCalls admits calls to private non-entry
	// functions. Inspection only.
	AllowArbitraryFunctionCalls bool
	// PackagesArePredefined keeps declared package identities instead of
	// assigning fresh ones, and disables size-amplification enforcement.
	// Used for genesis-style replay where identities are fixed up front.
	PackagesArePredefined bool
}

var (
	// ModeNormal is strict production execution.
	ModeNormal = Mode{}

	// ModeGenesis executes system transactions with predefined package
	// identities.
	ModeGenesis = Mode{PackagesArePredefined: true}

	// ModeInspect relaxes value and call checks for read-only inspection.
	ModeInspect = Mode{AllowArbitraryValues: true, AllowArbitraryFunctionCalls: true}
)
