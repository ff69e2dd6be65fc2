// Package registry tracks the named definitions a builder declares each
// round: system sections, template variables, tools and agents. Definitions
// follow a declare/reconcile protocol. Declaring a name admits it or updates
// it; any definition not redeclared by the time the round is reconciled is
// retracted. A definition keeps a stable Handle for as long as it stays
// declared, so builders can address it across rounds without string
// plumbing.
package registry

import (
	"fmt"
	"reflect"
	"sort"
)

// Kind partitions the definition namespace.
type Kind string

const (
	KindSystem   Kind = "system"
	KindVariable Kind = "variable"
	KindTool     Kind = "tool"
	KindAgent    Kind = "agent"
)

type defKey struct {
	kind Kind
	name string
}

// Definition is one named declaration tracked by the registry. All reads go
// through methods; definitions are mutated only by the registry and by their
// Handle.
type Definition struct {
	kind      Kind
	name      string
	value     any
	version   int
	tag       string
	disabled  bool
	reminded  bool
	declared  bool
	retracted bool
	handle    *Handle
}

// Kind returns the definition's namespace.
func (d *Definition) Kind() Kind { return d.kind }

// Name returns the declared name.
func (d *Definition) Name() string { return d.name }

// Value returns the most recently declared value.
func (d *Definition) Value() any { return d.value }

// Version starts at 1 and increments whenever a redeclaration changes the
// value. Variables and system sections compare by deep value equality; tools
// and agents compare by reference, since their values carry handlers.
func (d *Definition) Version() int { return d.version }

// Tag returns the opaque placeholder for this definition. Embedding the tag
// in declared text lets the assembler substitute the definition at render
// time. Tags are unique per admission; a retracted and re-admitted name gets
// a fresh tag.
func (d *Definition) Tag() string { return d.tag }

// Disabled reports whether the definition is currently suppressed.
func (d *Definition) Disabled() bool { return d.disabled }

// Registry is the per-engine definition table. It is not safe for concurrent
// use; the engine drives it from a single goroutine.
type Registry struct {
	defs   map[defKey]*Definition
	seq    []*Definition // declaration order of the current round
	tagSeq int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[defKey]*Definition)}
}

// BeginRound opens a new declaration cycle. Every definition must be
// redeclared during the cycle to survive the following Reconcile.
func (r *Registry) BeginRound() {
	r.seq = r.seq[:0]
	for _, d := range r.defs {
		d.declared = false
	}
}

// Declare admits or refreshes a definition and returns its stable handle.
// A known name keeps its identity; only a value change bumps the version.
// Declaring the same name twice within one round updates the value in place,
// it does not produce a second entry.
func (r *Registry) Declare(kind Kind, name string, value any) *Handle {
	k := defKey{kind: kind, name: name}
	d, ok := r.defs[k]
	if !ok {
		d = &Definition{
			kind:    kind,
			name:    name,
			value:   value,
			version: 1,
			tag:     r.newTag(kind),
		}
		d.handle = &Handle{def: d}
		r.defs[k] = d
	} else if !valuesEqual(kind, d.value, value) {
		d.value = value
		d.version++
	}
	if !d.declared {
		d.declared = true
		r.seq = append(r.seq, d)
	}
	return d.handle
}

// Reconcile retracts every definition that was not declared since the last
// BeginRound and returns the retracted entries sorted by kind and name.
// Retracted handles go inert; redeclaring the name later admits a fresh
// definition with a fresh handle and tag.
func (r *Registry) Reconcile() []*Definition {
	var retracted []*Definition
	for k, d := range r.defs {
		if !d.declared {
			d.retracted = true
			delete(r.defs, k)
			retracted = append(retracted, d)
		}
	}
	sort.Slice(retracted, func(i, j int) bool {
		if retracted[i].kind != retracted[j].kind {
			return retracted[i].kind < retracted[j].kind
		}
		return retracted[i].name < retracted[j].name
	})
	return retracted
}

// Active returns the definitions of one kind declared this round, in
// declaration order, excluding disabled ones.
func (r *Registry) Active(kind Kind) []*Definition {
	var out []*Definition
	for _, d := range r.seq {
		if d.kind == kind && !d.disabled {
			out = append(out, d)
		}
	}
	return out
}

// Declared returns the definitions of one kind declared this round in
// declaration order, including disabled ones.
func (r *Registry) Declared(kind Kind) []*Definition {
	var out []*Definition
	for _, d := range r.seq {
		if d.kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Lookup resolves a declared definition by kind and name. Disabled entries
// resolve too; disabling narrows presentation, not addressability.
func (r *Registry) Lookup(kind Kind, name string) (*Definition, bool) {
	d, ok := r.defs[defKey{kind: kind, name: name}]
	if !ok || !d.declared {
		return nil, false
	}
	return d, true
}

// DrainReminded returns the declared definitions flagged via Handle.Remind
// since the last drain, in declaration order, and clears the flags.
func (r *Registry) DrainReminded() []*Definition {
	var out []*Definition
	for _, d := range r.seq {
		if d.reminded {
			d.reminded = false
			out = append(out, d)
		}
	}
	return out
}

// Len reports the number of live definitions.
func (r *Registry) Len() int { return len(r.defs) }

func (r *Registry) newTag(kind Kind) string {
	r.tagSeq++
	return fmt.Sprintf("{{@%s%d}}", kindPrefix(kind), r.tagSeq)
}

func kindPrefix(kind Kind) string {
	switch kind {
	case KindSystem:
		return "s"
	case KindVariable:
		return "v"
	case KindTool:
		return "t"
	case KindAgent:
		return "a"
	default:
		return "d"
	}
}

// valuesEqual applies the per-kind change rule: deep equality for data
// values, reference identity for spec pointers carrying handlers.
func valuesEqual(kind Kind, a, b any) bool {
	if kind == KindTool || kind == KindAgent {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
