// Package flagfile reads and rewrites the environment style file that
// carries kubelet's extra arguments, for example a line of the form
// KUBELET_FLAGS="--node-ip=10.0.0.4 --feature-gates=A=true". The file is
// parsed into a Document so that individual flags can be inspected and
// replaced without disturbing any other line or token in the file.
package flagfile

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DefaultVar is the variable conventionally holding kubelet's extra flags.
	DefaultVar = "KUBELET_FLAGS"

	// BinDirFlag points kubelet at the directory holding credential
	// provider binaries.
	BinDirFlag = "image-credential-provider-bin-dir"

	// ConfigFlag points kubelet at the credential provider config file.
	ConfigFlag = "image-credential-provider-config"

	// FeatureGatesFlag holds kubelet's comma-separated feature gate list.
	FeatureGatesFlag = "feature-gates"
)

// Document is a parsed flag file. All lines are retained verbatim; only the
// flag line is ever rebuilt, and only once a mutation has been applied.
// Serializing an unmodified Document yields the original bytes unchanged.
type Document struct {
	varName string
	raw     []byte
	lines   []string

	// flagIdx is the index into lines of the flag line, or -1 when the
	// file has no line beginning with varName=.
	flagIdx      int
	quote        byte
	unterminated bool
	tokens       []string
	dirty        bool
}

// Load reads the file at path and parses it. Any read failure is returned
// as-is; a file without the flag line is not an error.
func Load(fs afero.Fs, path, varName string) (*Document, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading flag file %s: %w", path, err)
	}
	return Parse(raw, varName), nil
}

// Parse builds a Document from raw file contents. Parsing never fails:
// a missing or malformed flag line is recorded and surfaced through
// HasFlagLine and Unterminated rather than reported as an error.
func Parse(raw []byte, varName string) *Document {
	if varName == "" {
		varName = DefaultVar
	}
	d := &Document{
		varName: varName,
		raw:     append([]byte(nil), raw...),
		lines:   strings.Split(string(raw), "\n"),
		flagIdx: -1,
	}
	prefix := varName + "="
	for i, line := range d.lines {
		if strings.HasPrefix(line, prefix) {
			d.flagIdx = i
			d.parseValue(line[len(prefix):])
			break
		}
	}
	return d
}

func (d *Document) parseValue(val string) {
	if len(val) > 0 && (val[0] == '"' || val[0] == '\'') {
		d.quote = val[0]
		if len(val) >= 2 && val[len(val)-1] == d.quote {
			val = val[1 : len(val)-1]
		} else {
			d.unterminated = true
			val = val[1:]
		}
	}
	d.tokens = strings.Fields(val)
}

// VarName returns the variable name the Document was parsed against.
func (d *Document) VarName() string { return d.varName }

// HasFlagLine reports whether the file contains a line for the variable.
func (d *Document) HasFlagLine() bool { return d.flagIdx >= 0 }

// Unterminated reports whether the flag line opened a quote that was never
// closed. Rebuilding the line closes the quote, so this only remains true
// for a Document that has not been mutated.
func (d *Document) Unterminated() bool { return d.unterminated }

// Flag returns the value of --name within the flag line, and whether the
// flag is present at all. A bare --name token reports present with an
// empty value. When the flag appears more than once the first value wins.
func (d *Document) Flag(name string) (string, bool) {
	bare := "--" + name
	valued := bare + "="
	for _, tok := range d.tokens {
		if tok == bare {
			return "", true
		}
		if strings.HasPrefix(tok, valued) {
			return tok[len(valued):], true
		}
	}
	return "", false
}

// SetFlag sets --name to value, replacing every existing occurrence in
// place. When the flag is absent it is appended to the end of the flag
// line; when the file has no flag line at all, one is created on
// serialization.
func (d *Document) SetFlag(name, value string) {
	bare := "--" + name
	valued := bare + "="
	replaced := false
	for i, tok := range d.tokens {
		if tok == bare || strings.HasPrefix(tok, valued) {
			d.tokens[i] = valued + value
			replaced = true
		}
	}
	if !replaced {
		d.tokens = append(d.tokens, valued+value)
	}
	d.dirty = true
}

// FeatureGates parses the current --feature-gates value into a GateSet.
// The set is a snapshot; write it back with SetFlag to take effect.
func (d *Document) FeatureGates() *GateSet {
	val, _ := d.Flag(FeatureGatesFlag)
	return ParseGates(val)
}

// DuplicateFlags returns the subset of names that appear more than once
// in the flag line.
func (d *Document) DuplicateFlags(names ...string) []string {
	var dups []string
	for _, name := range names {
		bare := "--" + name
		valued := bare + "="
		n := 0
		for _, tok := range d.tokens {
			if tok == bare || strings.HasPrefix(tok, valued) {
				n++
			}
		}
		if n > 1 {
			dups = append(dups, name)
		}
	}
	return dups
}

// Contains reports whether the serialized document contains the substring.
func (d *Document) Contains(s string) bool {
	return strings.Contains(string(d.Bytes()), s)
}

// Clone returns an independent copy of the Document.
func (d *Document) Clone() *Document {
	c := *d
	c.raw = append([]byte(nil), d.raw...)
	c.lines = append([]string(nil), d.lines...)
	c.tokens = append([]string(nil), d.tokens...)
	return &c
}

// Bytes serializes the Document. An unmodified Document round-trips to the
// exact bytes it was parsed from. A mutated Document has its flag line
// rebuilt from tokens, preserving the original quoting style; a missing
// flag line is appended at the end of the file.
func (d *Document) Bytes() []byte {
	if !d.dirty {
		return append([]byte(nil), d.raw...)
	}
	lines := append([]string(nil), d.lines...)
	if d.flagIdx >= 0 {
		lines[d.flagIdx] = d.renderFlagLine()
	} else if n := len(lines); n > 0 && lines[n-1] == "" {
		// Keep the trailing newline where the file ends with one.
		lines = append(lines[:n-1], d.renderFlagLine(), "")
	} else {
		lines = append(lines, d.renderFlagLine())
	}
	return []byte(strings.Join(lines, "\n"))
}

func (d *Document) renderFlagLine() string {
	q := d.quote
	if d.flagIdx < 0 {
		q = '"'
	}
	val := strings.Join(d.tokens, " ")
	if q == 0 {
		return d.varName + "=" + val
	}
	return d.varName + "=" + string(q) + val + string(q)
}
