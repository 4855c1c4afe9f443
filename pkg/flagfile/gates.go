package flagfile

import "strings"

type gateEntry struct {
	key      string
	value    string
	hasValue bool
}

// GateSet is a comma-separated list of feature gate assignments, kept in
// the order the gates appear so that rewriting the list does not reorder it.
type GateSet struct {
	entries []gateEntry
}

// ParseGates splits a raw --feature-gates value into a GateSet. Entries
// without an = sign are kept as-is so an untouched list always serializes
// back to its original form.
func ParseGates(val string) *GateSet {
	gs := &GateSet{}
	if val == "" {
		return gs
	}
	for _, part := range strings.Split(val, ",") {
		key, value, found := strings.Cut(part, "=")
		gs.entries = append(gs.entries, gateEntry{key: key, value: value, hasValue: found})
	}
	return gs
}

// Get returns the value assigned to the gate and whether the gate is
// present. A valueless entry reports present with an empty value.
func (g *GateSet) Get(key string) (string, bool) {
	for _, e := range g.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Set assigns value to the gate, updating it in place when present and
// appending it otherwise.
func (g *GateSet) Set(key, value string) {
	for i, e := range g.entries {
		if e.key == key {
			g.entries[i] = gateEntry{key: key, value: value, hasValue: true}
			return
		}
	}
	g.entries = append(g.entries, gateEntry{key: key, value: value, hasValue: true})
}

// Len returns the number of gates in the set.
func (g *GateSet) Len() int { return len(g.entries) }

// String serializes the set back to --feature-gates form.
func (g *GateSet) String() string {
	parts := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		if e.hasValue {
			parts = append(parts, e.key+"="+e.value)
		} else {
			parts = append(parts, e.key)
		}
	}
	return strings.Join(parts, ",")
}
