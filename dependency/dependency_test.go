package dependency

import (
	"testing"

	"github.com/m2osw/wpkg-go/version"
)

func mustParseVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	if err != nil {
		t.Fatalf("version.Parse(%q): %v", s, err)
	}
	return v
}

func TestParseSimpleAtom(t *testing.T) {
	expr, err := Parse("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if len(expr.Clauses) != 1 || len(expr.Clauses[0].Alternatives) != 1 {
		t.Fatalf("unexpected shape: %+v", expr)
	}
	a := expr.Clauses[0].Alternatives[0]
	if a.Name != "libfoo" || a.Op != OpNone {
		t.Errorf("got %+v", a)
	}
}

func TestParseVersionedAtom(t *testing.T) {
	expr, err := Parse("libfoo (>= 1.0)")
	if err != nil {
		t.Fatal(err)
	}
	a := expr.Clauses[0].Alternatives[0]
	if a.Name != "libfoo" || a.Op != OpGreaterEqual {
		t.Fatalf("got %+v", a)
	}
	if a.Version.Canonicalize() != "1.0" {
		t.Errorf("got version %q", a.Version.Canonicalize())
	}
}

func TestParseArchitectureFilter(t *testing.T) {
	expr, err := Parse("libfoo [amd64 arm64]")
	if err != nil {
		t.Fatal(err)
	}
	a := expr.Clauses[0].Alternatives[0]
	if a.Excluded {
		t.Errorf("expected not excluded")
	}
	if len(a.Architectures) != 2 || a.Architectures[0] != "amd64" || a.Architectures[1] != "arm64" {
		t.Errorf("got %+v", a.Architectures)
	}
}

func TestParseExcludedArchitectureFilter(t *testing.T) {
	expr, err := Parse("libfoo [!i386]")
	if err != nil {
		t.Fatal(err)
	}
	a := expr.Clauses[0].Alternatives[0]
	if !a.Excluded {
		t.Errorf("expected excluded")
	}
	if len(a.Architectures) != 1 || a.Architectures[0] != "i386" {
		t.Errorf("got %+v", a.Architectures)
	}
}

func TestParseAlternativesAndConjunction(t *testing.T) {
	expr, err := Parse("libfoo (>= 1.0), libbar | libbaz")
	if err != nil {
		t.Fatal(err)
	}
	if len(expr.Clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(expr.Clauses))
	}
	if len(expr.Clauses[0].Alternatives) != 1 {
		t.Errorf("first clause should have 1 alternative")
	}
	if len(expr.Clauses[1].Alternatives) != 2 {
		t.Errorf("second clause should have 2 alternatives")
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"libfoo (>= )",
		"libfoo (~~ 1.0)",
		"(>= 1.0)",
		"libfoo [unterminated",
	}
	for _, in := range cases {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}

// Spec example: atom "libfoo (>= 1.0), libbar | libbaz" against installed
// {libfoo 1.1, libbaz 2.0} is satisfied; against {libfoo 0.9, libbaz 2.0}
// it is unsatisfied.
func TestSatisfiedSpecExample(t *testing.T) {
	expr, err := Parse("libfoo (>= 1.0), libbar | libbaz")
	if err != nil {
		t.Fatal(err)
	}

	satisfiedSet := []Candidate{
		{Name: "libfoo", Version: mustParseVersion(t, "1.1")},
		{Name: "libbaz", Version: mustParseVersion(t, "2.0")},
	}
	if !expr.Satisfied(satisfiedSet) {
		t.Errorf("expected expression to be satisfied")
	}

	unsatisfiedSet := []Candidate{
		{Name: "libfoo", Version: mustParseVersion(t, "0.9")},
		{Name: "libbaz", Version: mustParseVersion(t, "2.0")},
	}
	if expr.Satisfied(unsatisfiedSet) {
		t.Errorf("expected expression to be unsatisfied")
	}
}

func TestMatchesProvides(t *testing.T) {
	atom, err := parseAtom("www-browser")
	if err != nil {
		t.Fatal(err)
	}
	cand := Candidate{Name: "firefox", Version: mustParseVersion(t, "1.0"), Provides: []string{"www-browser"}}
	if !atom.Matches(cand) {
		t.Errorf("expected provides match")
	}
}

func TestMatchesProvidesRejectsVersionedAtom(t *testing.T) {
	expr, err := Parse("www-browser (>= 99.0)")
	if err != nil {
		t.Fatal(err)
	}
	atom := expr.Clauses[0].Alternatives[0]
	cand := Candidate{Name: "firefox", Version: mustParseVersion(t, "1.0"), Provides: []string{"www-browser"}}
	if atom.Matches(cand) {
		t.Errorf("a versioned atom should not be satisfiable via provides")
	}
}

func TestClauseSatisfyAmongLeftmost(t *testing.T) {
	clause, err := parseClause("a | b")
	if err != nil {
		t.Fatal(err)
	}
	candidates := []Candidate{
		{Name: "a", Version: mustParseVersion(t, "1.0")},
		{Name: "b", Version: mustParseVersion(t, "1.0")},
	}
	atom, cand, ok := clause.SatisfyAmong(candidates)
	if !ok {
		t.Fatal("expected satisfaction")
	}
	if atom.Name != "a" || cand.Name != "a" {
		t.Errorf("expected leftmost alternative 'a' to win, got %+v", atom)
	}
}

func TestArchitectureExclusionBlocksMatch(t *testing.T) {
	expr, err := Parse("libfoo [!i386]")
	if err != nil {
		t.Fatal(err)
	}
	atom := expr.Clauses[0].Alternatives[0]
	cand := Candidate{Name: "libfoo", Architecture: "i386"}
	if atom.Matches(cand) {
		t.Errorf("expected i386 candidate to be excluded")
	}
	cand2 := Candidate{Name: "libfoo", Architecture: "amd64"}
	if !atom.Matches(cand2) {
		t.Errorf("expected amd64 candidate to match")
	}
}

func TestStringRoundTrip(t *testing.T) {
	in := "libfoo (>= 1.0) [amd64]"
	expr, err := Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	out := expr.String()
	expr2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parsing rendered form %q: %v", out, err)
	}
	if expr2.Clauses[0].Alternatives[0].Name != "libfoo" {
		t.Errorf("round trip lost name: %+v", expr2)
	}
}
