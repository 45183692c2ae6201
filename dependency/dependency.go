package dependency

import (
	"fmt"
	"strings"

	"github.com/m2osw/wpkg-go/version"
)

// Operator is a version-constraint comparison operator.
type Operator string

const (
	OpNone        Operator = ""   // no version constraint ("any")
	OpLessLess    Operator = "<<" // strictly less than
	OpLessEqual   Operator = "<="
	OpEqual       Operator = "="
	OpGreaterEqual Operator = ">="
	OpGreaterGreater Operator = ">>"
)

// Atom is one dependency alternative: a package name with an optional
// version constraint and an optional architecture filter.
type Atom struct {
	Name   string
	Op     Operator
	Version version.Version // zero value when Op == OpNone

	// Architectures, when non-empty, restricts (or excludes, if Excluded
	// is true) the architectures this atom applies to.
	Architectures []string
	Excluded      bool
}

// Clause is a disjunction of atoms ("a | b | c").
type Clause struct {
	Alternatives []Atom
}

// Expression is an ordered, top-level conjunction of clauses
// ("clause1, clause2, ...").
type Expression struct {
	Clauses []Clause
}

// String renders an atom back to its canonical textual form.
func (a Atom) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	if a.Op != OpNone {
		fmt.Fprintf(&b, " (%s %s)", a.Op, a.Version.Canonicalize())
	}
	if len(a.Architectures) > 0 {
		b.WriteString(" [")
		if a.Excluded {
			b.WriteByte('!')
		}
		b.WriteString(strings.Join(a.Architectures, " "))
		b.WriteByte(']')
	}
	return b.String()
}

// String renders a clause back to its canonical textual form.
func (c Clause) String() string {
	parts := make([]string, len(c.Alternatives))
	for i, a := range c.Alternatives {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

// String renders an expression back to its canonical textual form.
func (e Expression) String() string {
	parts := make([]string, len(e.Clauses))
	for i, c := range e.Clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// Error reports a malformed dependency expression.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid dependency expression %q: %s", e.Input, e.Reason)
}

// Parse parses a full dependency field value into an Expression.
func Parse(s string) (Expression, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expression{}, nil
	}
	var expr Expression
	for _, clauseStr := range splitTop(s, ',') {
		clauseStr = strings.TrimSpace(clauseStr)
		if clauseStr == "" {
			continue
		}
		clause, err := parseClause(clauseStr)
		if err != nil {
			return Expression{}, err
		}
		expr.Clauses = append(expr.Clauses, clause)
	}
	return expr, nil
}

func parseClause(s string) (Clause, error) {
	var clause Clause
	for _, atomStr := range splitTop(s, '|') {
		atomStr = strings.TrimSpace(atomStr)
		if atomStr == "" {
			return Clause{}, &Error{s, "empty alternative"}
		}
		atom, err := parseAtom(atomStr)
		if err != nil {
			return Clause{}, err
		}
		clause.Alternatives = append(clause.Alternatives, atom)
	}
	return clause, nil
}

// splitTop splits s on sep at depth 0 (outside of parentheses/brackets).
func splitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseAtom(s string) (Atom, error) {
	atom := Atom{}
	rest := s

	if idx := strings.IndexByte(rest, '['); idx >= 0 {
		end := strings.IndexByte(rest[idx:], ']')
		if end < 0 {
			return Atom{}, &Error{s, "unterminated architecture filter"}
		}
		filter := rest[idx+1 : idx+end]
		rest = strings.TrimSpace(rest[:idx] + rest[idx+end+1:])
		filter = strings.TrimSpace(filter)
		if strings.HasPrefix(filter, "!") {
			atom.Excluded = true
			filter = filter[1:]
		}
		for _, arch := range strings.Fields(filter) {
			arch = strings.TrimPrefix(arch, "!")
			atom.Architectures = append(atom.Architectures, arch)
		}
	}

	if idx := strings.IndexByte(rest, '('); idx >= 0 {
		end := strings.IndexByte(rest[idx:], ')')
		if end < 0 {
			return Atom{}, &Error{s, "unterminated version constraint"}
		}
		constraint := strings.TrimSpace(rest[idx+1 : idx+end])
		rest = strings.TrimSpace(rest[:idx] + rest[idx+end+1:])

		op, verStr, err := splitConstraint(constraint)
		if err != nil {
			return Atom{}, &Error{s, err.Error()}
		}
		atom.Op = op
		if op != OpNone {
			v, err := version.Parse(verStr)
			if err != nil {
				return Atom{}, &Error{s, fmt.Sprintf("bad version constraint: %v", err)}
			}
			atom.Version = v
		}
	}

	atom.Name = strings.TrimSpace(rest)
	if atom.Name == "" {
		return Atom{}, &Error{s, "missing package name"}
	}
	if strings.ContainsAny(atom.Name, " \t") {
		return Atom{}, &Error{s, "package name contains whitespace"}
	}
	return atom, nil
}

func splitConstraint(s string) (Operator, string, error) {
	if s == "any" || s == "" {
		return OpNone, "", nil
	}
	ops := []Operator{OpLessLess, OpLessEqual, OpGreaterEqual, OpGreaterGreater, OpEqual}
	for _, op := range ops {
		if strings.HasPrefix(s, string(op)) {
			return op, strings.TrimSpace(s[len(op):]), nil
		}
	}
	return OpNone, "", fmt.Errorf("unrecognized operator in %q", s)
}

// Candidate describes a package being evaluated against a dependency
// expression: its name, version, architecture, and the virtual package
// names it provides.
type Candidate struct {
	Name         string
	Version      version.Version
	Architecture string
	Provides     []string
}

// matchesExact reports whether candidate c satisfies atom a by its own
// name, taking the version constraint and architecture filter into
// account. Provides is handled by Matches, not here.
func (a Atom) matchesExact(c Candidate) bool {
	if a.Name != c.Name {
		return false
	}
	if !a.architectureOK(c.Architecture) {
		return false
	}
	if a.Op == OpNone {
		return true
	}
	cmp := version.Cmp(c.Version, a.Version)
	switch a.Op {
	case OpLessLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpEqual:
		return cmp == 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpGreaterGreater:
		return cmp > 0
	}
	return false
}

func (a Atom) architectureOK(arch string) bool {
	if len(a.Architectures) == 0 || arch == "" {
		return true
	}
	listed := false
	for _, want := range a.Architectures {
		if want == arch {
			listed = true
			break
		}
	}
	if a.Excluded {
		return !listed
	}
	return listed
}

// Matches reports whether candidate c satisfies atom a: either an exact
// name/version/architecture match, or c provides the virtual package
// a.Name. A provides match only satisfies an atom without a version
// constraint (a virtual package carries no version of its own).
func (a Atom) Matches(c Candidate) bool {
	if a.matchesExact(c) {
		return true
	}
	if a.Op != OpNone {
		return false
	}
	for _, p := range c.Provides {
		if p == a.Name {
			return true
		}
	}
	return false
}

// Satisfy evaluates a clause against a lookup function that returns the
// installed/available candidate for a package name (ok=false if none).
// Alternatives are tried left to right; the first Candidate that
// satisfies its atom is returned, matching the leftmost-alternative
// resolution policy.
func (c Clause) Satisfy(lookup func(name string) (Candidate, bool)) (Atom, Candidate, bool) {
	for _, atom := range c.Alternatives {
		cand, ok := lookup(atom.Name)
		if ok && atom.Matches(cand) {
			return atom, cand, true
		}
		// A virtual package may be provided by an unrelated package name;
		// lookup is expected to also be consulted by provides-name, but
		// since lookup is keyed by package name, fall through only when
		// resolution is meant to search all installed packages — callers
		// needing provides-by-any-package should use SatisfyAmong.
	}
	return Atom{}, Candidate{}, false
}

// SatisfyAmong evaluates a clause against the full set of candidates
// (e.g. all installed packages), so that a provides-only virtual
// package can be found on any candidate, not just one named after the
// atom.
func (c Clause) SatisfyAmong(candidates []Candidate) (Atom, Candidate, bool) {
	for _, atom := range c.Alternatives {
		for _, cand := range candidates {
			if atom.Matches(cand) {
				return atom, cand, true
			}
		}
	}
	return Atom{}, Candidate{}, false
}

// Satisfied reports whether every clause in the expression is satisfied
// by some candidate in the given set.
func (e Expression) Satisfied(candidates []Candidate) bool {
	for _, clause := range e.Clauses {
		if _, _, ok := clause.SatisfyAmong(candidates); !ok {
			return false
		}
	}
	return true
}
