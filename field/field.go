package field

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// fieldNameRe matches a field or variable name with at most one
// sub-package qualifier: spec.md §3.4 "[A-Za-z_][-+._/0-9A-Za-z]*
// with at most one '/'".
var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][-+._0-9A-Za-z]*(/[A-Za-z_][-+._0-9A-Za-z]*)?$`)

// Field is one (name, value) pair read from a field file.
type Field struct {
	Name       string // case-preserved canonical name, without the sub-package qualifier
	SubPackage string // "" unless the field name carried a "/subpkg" qualifier
	Value      string // raw, unsubstituted value
	Filename   string
	Line       int

	owner *File
}

// Verify is invoked by Set after a field's value changes; returning an
// error rejects the change and the previous value is kept.
type Verify func(f *Field, newValue string) error

// File is a field file: a case-insensitive map of fields, a parallel
// map of variables (defined with '=' rather than ':'), and a map of
// externally injected substitution variables.
type File struct {
	// Order preserves read/insertion order for deterministic emission.
	order     []string
	fields    map[string]*Field // keyed by lowercase name (qualifier included)
	variables map[string]string // keyed by lowercase name
	injected  map[string]string

	// AutoTransformVariables: when set, a bare ${name} with no built-in
	// match resolves against variables (§4.3).
	AutoTransformVariables bool

	// AllowSubPackage controls whether a "/subpkg" qualifier is legal on
	// field names read from this file.
	AllowSubPackage bool

	// PackageName is set by the Package field's verify hook once read.
	PackageName string

	verifiers map[string]Verify

	// resolving tracks field names currently being substituted, for
	// cyclic-reference detection (§4.3, §9 "Cyclic field references").
	resolving map[string]bool

	env Environment
}

// New returns an empty field file.
func New() *File {
	return &File{
		fields:    make(map[string]*Field),
		variables: make(map[string]string),
		injected:  make(map[string]string),
		verifiers: make(map[string]Verify),
		resolving: make(map[string]bool),
	}
}

// SetVerify registers a verify hook for the named field (case-insensitive).
func (ff *File) SetVerify(name string, v Verify) {
	ff.verifiers[strings.ToLower(name)] = v
}

// SetInjected records an externally-injected substitution variable.
func (ff *File) SetInjected(name, value string) {
	ff.injected[name] = value
}

func splitQualifier(name string) (base, subpkg string) {
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return name, ""
}

// Set creates or replaces a field by name. If a verify hook is
// registered for this field and it rejects newValue, the previous
// value (if any) is restored and the hook's error is returned.
func (ff *File) Set(name, value, filename string, line int) error {
	if !fieldNameRe.MatchString(name) {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("malformed field name %q", name))
	}
	base, subpkg := splitQualifier(name)
	if subpkg != "" && !ff.AllowSubPackage {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("sub-package qualifier not allowed here: %q", name))
	}

	key := strings.ToLower(name)
	existing, hadPrevious := ff.fields[key]
	var previousValue string
	if hadPrevious {
		previousValue = existing.Value
	} else {
		ff.order = append(ff.order, key)
	}

	f := &Field{Name: base, SubPackage: subpkg, Value: value, Filename: filename, Line: line, owner: ff}
	ff.fields[key] = f

	if v, ok := ff.verifiers[strings.ToLower(base)]; ok {
		if err := v(f, value); err != nil {
			if hadPrevious {
				f.Value = previousValue
				ff.fields[key] = existing
			} else {
				delete(ff.fields, key)
				ff.order = ff.order[:len(ff.order)-1]
			}
			return err
		}
	}
	return nil
}

// SetVariable creates or replaces a variable (defined with '=').
// Duplicate variables within one read are rejected by the parser, not
// here; Set here always overwrites (used both by the parser on first
// definition and by programmatic callers).
func (ff *File) SetVariable(name, value string) {
	ff.variables[strings.ToLower(name)] = value
}

// HasField reports whether name is defined.
func (ff *File) HasField(name string) bool {
	_, ok := ff.fields[strings.ToLower(name)]
	return ok
}

// FieldNames returns field names in read order.
func (ff *File) FieldNames() []string {
	out := make([]string, 0, len(ff.order))
	for _, key := range ff.order {
		out = append(out, ff.fields[key].Name)
	}
	return out
}

// SetPackageName records the owning file's package name, for use by a
// Package field's verify hook.
func (f *Field) SetPackageName(name string) {
	f.owner.PackageName = name
}

// RawValue returns a field's unsubstituted value.
func (ff *File) RawValue(name string) (string, bool) {
	f, ok := ff.fields[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return f.Value, true
}

// Get resolves name's value, expanding ${var} and $(expr) references.
// Returns Undefined if the field is not present.
func (ff *File) Get(name string) (string, error) {
	f, ok := ff.fields[strings.ToLower(name)]
	if !ok {
		return "", wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("field %q is not defined", name))
	}
	return ff.resolve(strings.ToLower(name), f.Value)
}
