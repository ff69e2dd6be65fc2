package registry

// Handle is the stable reference a builder receives for a declared
// definition. It stays valid for as long as the definition survives
// reconciliation; after retraction it goes inert and every method becomes a
// harmless no-op or stale read.
type Handle struct {
	def *Definition
}

// Tag returns the definition's opaque placeholder for use in declared text.
func (h *Handle) Tag() string { return h.def.tag }

// Name returns the declared name.
func (h *Handle) Name() string { return h.def.name }

// Kind returns the definition's namespace.
func (h *Handle) Kind() Kind { return h.def.kind }

// Value returns the most recently declared value. After retraction this is
// the last value the definition held.
func (h *Handle) Value() any { return h.def.value }

// Version returns the definition's current change version.
func (h *Handle) Version() int { return h.def.version }

// Remind flags the definition for re-emphasis in the next assembled step.
// The flag is consumed by the assembler; reminding a retracted definition
// has no effect.
func (h *Handle) Remind() {
	if h.def.retracted {
		return
	}
	h.def.reminded = true
}

// Disable suppresses the definition from assembled output while keeping its
// identity. The definition must still be redeclared each round to survive
// reconciliation.
func (h *Handle) Disable() {
	if h.def.retracted {
		return
	}
	h.def.disabled = true
}

// Enable lifts a prior Disable.
func (h *Handle) Enable() {
	if h.def.retracted {
		return
	}
	h.def.disabled = false
}

// Disabled reports whether the definition is currently suppressed.
func (h *Handle) Disabled() bool { return h.def.disabled }

// Retracted reports whether the definition has been reconciled away.
func (h *Handle) Retracted() bool { return h.def.retracted }
