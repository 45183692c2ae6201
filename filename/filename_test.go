package filename

import "testing"

func TestParseLocalPath(t *testing.T) {
	f, err := Parse("/a/b/c.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if !f.IsAbsolute() {
		t.Errorf("expected absolute")
	}
	if got := f.Segments(); len(got) != 3 || got[2] != "c.tar.gz" {
		t.Errorf("got segments %v", got)
	}
	if f.Basename(true) != "c.tar" {
		t.Errorf("Basename(true) = %q", f.Basename(true))
	}
	if f.Extension() != "gz" {
		t.Errorf("Extension() = %q", f.Extension())
	}
	if f.PreviousExtension() != "tar" {
		t.Errorf("PreviousExtension() = %q", f.PreviousExtension())
	}
}

// Spec §8 scenario 2: parse("File://localhost/c|/a/b/c.tar.gz") yields
// scheme=file, drive=C, segments=[a,b,c.tar.gz], basename=c.tar,
// extension=gz, previous_extension=tar.
func TestParseFileURIWithDriveLetter(t *testing.T) {
	f, err := Parse("File://localhost/c|/a/b/c.tar.gz")
	if err != nil {
		t.Fatal(err)
	}
	if f.Scheme() != "file" {
		t.Errorf("Scheme() = %q, want file", f.Scheme())
	}
	if f.Drive() != "C" {
		t.Errorf("Drive() = %q, want C", f.Drive())
	}
	segs := f.Segments()
	want := []string{"a", "b", "c.tar.gz"}
	if len(segs) != len(want) {
		t.Fatalf("segments = %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segments[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
	if f.Basename(true) != "c.tar" {
		t.Errorf("Basename(true) = %q", f.Basename(true))
	}
	if f.Extension() != "gz" {
		t.Errorf("Extension() = %q", f.Extension())
	}
	if f.PreviousExtension() != "tar" {
		t.Errorf("PreviousExtension() = %q", f.PreviousExtension())
	}
}

func TestAppendChildRejectsBoundaryCrossing(t *testing.T) {
	f, err := Parse("/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.AppendChild("c/d"); err == nil {
		t.Errorf("expected error for boundary-crossing child name")
	}
}

func TestAppendChildRemoveCommonSegmentsRoundTrip(t *testing.T) {
	base, err := Parse("/a/b")
	if err != nil {
		t.Fatal(err)
	}
	child, err := base.AppendChild("x")
	if err != nil {
		t.Fatal(err)
	}
	rel := child.RemoveCommonSegments(base)
	segs := rel.Segments()
	if len(segs) != 1 || segs[0] != "x" {
		t.Errorf("RemoveCommonSegments() segments = %v, want [x]", segs)
	}
}

func TestReservedWindowsNameRejected(t *testing.T) {
	if _, err := Parse("/a/CON"); err == nil {
		t.Errorf("expected reserved-name error")
	}
	if _, err := Parse("/a/con.txt"); err == nil {
		t.Errorf("expected reserved-name error for con.txt")
	}
}

func TestIllegalCharacterRejected(t *testing.T) {
	if _, err := Parse("/a/b<c"); err == nil {
		t.Errorf("expected illegal-character error")
	}
}

func TestGlob(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"*.txt", "a.txt", true},
		{"*.txt", "a.tar", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"[a-c]x", "bx", true},
		{"[a-c]x", "dx", false},
		{"*", "anything", true},
	}
	for _, c := range cases {
		if got := Glob(c.pattern, c.name); got != c.want {
			t.Errorf("Glob(%q,%q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestAppendPathNormalizesDotDot(t *testing.T) {
	base, err := Parse("/a/b/c")
	if err != nil {
		t.Fatal(err)
	}
	out, err := base.AppendPath("../x")
	if err != nil {
		t.Fatal(err)
	}
	segs := out.Segments()
	want := []string{"a", "b", "x"}
	if len(segs) != len(want) {
		t.Fatalf("got %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segs[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
}
