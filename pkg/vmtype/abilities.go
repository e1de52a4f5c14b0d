package vmtype

import "strings"

// Abilities is the per-type capability set of the VM's type system.
type Abilities uint8

const (
	// AbilityCopy marks values that may be duplicated.
	AbilityCopy Abilities = 1 << iota
	// AbilityDrop marks values that may be discarded without consumption.
	AbilityDrop
	// AbilityStore marks values that may be embedded in stored objects and
	// transferred publicly.
	AbilityStore
	// AbilityKey marks types usable as object identity.
	AbilityKey

	AbilitiesNone Abilities = 0
	// AbilitiesPrimitive is the ability set of all primitive values.
	AbilitiesPrimitive = AbilityCopy | AbilityDrop | AbilityStore
)

func (a Abilities) HasCopy() bool  { return a&AbilityCopy != 0 }
func (a Abilities) HasDrop() bool  { return a&AbilityDrop != 0 }
func (a Abilities) HasStore() bool { return a&AbilityStore != 0 }
func (a Abilities) HasKey() bool   { return a&AbilityKey != 0 }

// Intersect returns the abilities common to both sets.
func (a Abilities) Intersect(other Abilities) Abilities {
	return a & other
}

func (a Abilities) String() string {
	if a == AbilitiesNone {
		return "none"
	}
	parts := make([]string, 0, 4)
	if a.HasCopy() {
		parts = append(parts, "copy")
	}
	if a.HasDrop() {
		parts = append(parts, "drop")
	}
	if a.HasStore() {
		parts = append(parts, "store")
	}
	if a.HasKey() {
		parts = append(parts, "key")
	}

	return strings.Join(parts, "+")
}
