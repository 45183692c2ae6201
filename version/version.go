package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed Debian-style package version: epoch:upstream-revision.
type Version struct {
	Epoch    uint32
	Upstream string
	Revision string
}

// Error reports why a version string was rejected.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Parse parses a Debian version string: "[epoch:]upstream[-revision]".
// Either ':' or ';' separates the epoch (';' is accepted for compatibility
// with inputs produced by older tooling; Canonicalize always emits ':').
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, &Error{s, "empty version string"}
	}

	rest := s
	var epoch uint64

	if idx := strings.IndexAny(rest, ":;"); idx >= 0 {
		epochStr := rest[:idx]
		if epochStr == "" {
			return Version{}, &Error{s, "empty epoch"}
		}
		for _, r := range epochStr {
			if r < '0' || r > '9' {
				return Version{}, &Error{s, "epoch must be all digits"}
			}
		}
		var err error
		epoch, err = strconv.ParseUint(epochStr, 10, 31)
		if err != nil {
			return Version{}, &Error{s, "epoch does not fit in 31 bits"}
		}
		rest = rest[idx+1:]
	}

	upstream := rest
	revision := ""
	if idx := strings.LastIndex(rest, "-"); idx >= 0 {
		upstream = rest[:idx]
		revision = rest[idx+1:]
	}

	if upstream == "" {
		return Version{}, &Error{s, "empty upstream version"}
	}
	if !isDigit(rune(upstream[0])) {
		return Version{}, &Error{s, "upstream version must start with a digit"}
	}
	if !validRunes(upstream, upstreamValid) {
		return Version{}, &Error{s, "upstream version contains an invalid character"}
	}
	if !validRunes(revision, revisionValid) {
		return Version{}, &Error{s, "revision contains an invalid character"}
	}

	return Version{Epoch: uint32(epoch), Upstream: upstream, Revision: revision}, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func upstreamValid(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '+' || r == '.' || r == '~' || r == ':' || r == '-':
		return true
	}
	return false
}

func revisionValid(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '+' || r == '.' || r == '~':
		return true
	}
	return false
}

func validRunes(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}

// Canonicalize renders v, dropping a zero epoch and an empty revision.
func (v Version) Canonicalize() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d:", v.Epoch)
	}
	b.WriteString(v.Upstream)
	if v.Revision != "" {
		b.WriteByte('-')
		b.WriteString(v.Revision)
	}
	return b.String()
}

func (v Version) String() string { return v.Canonicalize() }

// IsZero reports whether v is the zero value (no upstream version parsed).
func (v Version) IsZero() bool { return v.Upstream == "" && v.Epoch == 0 && v.Revision == "" }

// Cmp compares two versions per the Debian algorithm: epoch numerically,
// then upstream and revision by alternating lexical/numeric runs.
func Cmp(a, b Version) int {
	if a.Epoch != b.Epoch {
		if a.Epoch < b.Epoch {
			return -1
		}
		return 1
	}
	if c := compareRuns(a.Upstream, b.Upstream); c != 0 {
		return c
	}
	return compareRuns(a.Revision, b.Revision)
}

// Cmp is a convenience comparing the receiver against other.
func (v Version) Cmp(other Version) int { return Cmp(v, other) }

// compareRuns implements dpkg's version-string comparison: the string is
// split into alternating non-digit and digit runs, starting with a
// (possibly empty) non-digit run. Non-digit runs compare by the
// order-of-character rule below; digit runs compare numerically.
func compareRuns(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		// Compare non-digit run.
		si, ei := nonDigitRun(a, i)
		sj, ej := nonDigitRun(b, j)
		if c := compareNonDigit(a[si:ei], b[sj:ej]); c != 0 {
			return c
		}
		i, j = ei, ej

		// Compare digit run.
		si, ei = digitRun(a, i)
		sj, ej = digitRun(b, j)
		ni := stripLeadingZeros(a[si:ei])
		nj := stripLeadingZeros(b[sj:ej])
		if c := compareNumeric(ni, nj); c != 0 {
			return c
		}
		i, j = ei, ej
	}
	return 0
}

func nonDigitRun(s string, from int) (int, int) {
	i := from
	for i < len(s) && !isDigit(rune(s[i])) {
		i++
	}
	return from, i
}

func digitRun(s string, from int) (int, int) {
	i := from
	for i < len(s) && isDigit(rune(s[i])) {
		i++
	}
	return from, i
}

func stripLeadingZeros(s string) string {
	i := 0
	for i < len(s) && s[i] == '0' {
		i++
	}
	return s[i:]
}

func compareNumeric(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// charOrder returns the comparison weight of a character appearing in a
// non-digit run: '~' sorts before end-of-string, end-of-string sorts
// before letters, letters sort before everything else (by ASCII value),
// matching the Debian algorithm.
func charOrder(r rune, exists bool) int {
	if !exists {
		return 0 // treated as "nothing": between '~' and any real character
	}
	if r == '~' {
		return -1
	}
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return 1000 + int(r)
	}
	return 2000 + int(r)
}

func compareNonDigit(a, b string) int {
	la, lb := len(a), len(b)
	n := la
	if lb > n {
		n = lb
	}
	for i := 0; i < n; i++ {
		var ra, rb rune
		var ea, eb bool
		if i < la {
			ra, ea = rune(a[i]), true
		}
		if i < lb {
			rb, eb = rune(b[i]), true
		}
		oa := charOrder(ra, ea)
		ob := charOrder(rb, eb)
		if oa != ob {
			if oa < ob {
				return -1
			}
			return 1
		}
	}
	return 0
}
