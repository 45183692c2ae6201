package control

import (
	"strings"
	"testing"

	"github.com/m2osw/wpkg-go/field"
)

func TestPackageFieldSetsPackageName(t *testing.T) {
	cf := New()
	if err := cf.Set(Package, "libfoo", "", 1); err != nil {
		t.Fatal(err)
	}
	if cf.PackageName != "libfoo" {
		t.Errorf("got %q", cf.PackageName)
	}
}

func TestPackageFieldRejectsBadName(t *testing.T) {
	cf := New()
	if err := cf.Set(Package, "Lib Foo!", "", 1); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestVersionFieldValidated(t *testing.T) {
	cf := New()
	if err := cf.Set(Version, "1:2.3-4", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Version, "not a version!", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestArchitectureFieldClosedSet(t *testing.T) {
	cf := New()
	if err := cf.Set(Architecture, "any", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Architecture, "linux-amd64", "", 2); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Architecture, "plan9-amd64", "", 3); err == nil {
		t.Fatal("expected rejection of unrecognized OS")
	}
}

func TestPriorityClosedSet(t *testing.T) {
	cf := New()
	if err := cf.Set(Priority, "optional", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Priority, "urgent", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestSectionWithAreaAndSubSection(t *testing.T) {
	cf := New()
	if err := cf.Set(Section, "non-free/libs/extra-stuff", "", 1); err != nil {
		t.Fatal(err)
	}
}

func TestUrgencyWithComment(t *testing.T) {
	cf := New()
	if err := cf.Set(Urgency, "high because of a security fix", "", 1); err != nil {
		t.Fatal(err)
	}
}

func TestXSelectionClosedSet(t *testing.T) {
	cf := New()
	if err := cf.Set(XSelection, "hold", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(XSelection, "banish", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestMaintainerEmailList(t *testing.T) {
	cf := New()
	if err := cf.Set(Maintainer, "Jane Doe <jane@example.com>", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Uploaders, "Jane Doe <jane@example.com>, John Roe <john@example.com>", "", 2); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Maintainer, "not an email", "", 3); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestDateFieldRFC822(t *testing.T) {
	cf := New()
	if err := cf.Set(Date, "Mon, 02 Jan 2006 15:04:05 +0000", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Date, "not a date", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestHomepageURI(t *testing.T) {
	cf := New()
	if err := cf.Set(Homepage, "https://example.com/libfoo", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Homepage, "not a uri", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestStandardsVersionField(t *testing.T) {
	cf := New()
	if err := cf.Set(StandardsVersion, "3.9.6.1", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(StandardsVersion, "bogus", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestDependsFieldParsed(t *testing.T) {
	cf := New()
	if err := cf.Set(Depends, "libbar (>= 1.0), libbaz | libqux", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := cf.Set(Conflicts, "not ( valid", "", 2); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestConfFilesList(t *testing.T) {
	cf := New()
	raw := "/etc/foo.conf d41d8cd98f00b204e9800998ecf8427e\n/etc/bar.conf 0cc175b9c0f1b6a831c399e269772661\n"
	if err := cf.Set(ConfFiles, raw, "", 1); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFileList(ConfFiles, AutoDetect, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Name != "/etc/foo.conf" || entries[0].Hash != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("got %+v", entries)
	}
}

func TestFileListAutoDetectByColumnCount(t *testing.T) {
	cases := []struct {
		name string
		line string
		want FileListFormat
	}{
		{"Files", "/usr/bin/foo", FormatList},
		{"Files", "0755 /usr/bin/foo", FormatModeList},
		{"Checksums-Sha1", "abcd 123 /usr/bin/foo", FormatHashSum},
		{"Files", "0755 123 abcd /usr/bin/foo", FormatLongList},
		{"Files", "0755 root/0 root/0 123 1136214245 /usr/bin/foo", FormatMetadata},
	}
	for _, c := range cases {
		if got := detectFileListFormat(c.name, c.line); got != c.want {
			t.Errorf("%s: detected format %v, want %v", c.line, got, c.want)
		}
		entries, err := ParseFileList(c.name, AutoDetect, c.line)
		if err != nil {
			t.Fatalf("%s: %v", c.line, err)
		}
		if len(entries) != 1 {
			t.Fatalf("%s: expected 1 entry, got %d", c.line, len(entries))
		}
	}
}

func TestFileListFormatTokenOverride(t *testing.T) {
	raw := "longlist\n0755 123 abcd /usr/bin/foo\n"
	entries, err := ParseFileList(Files, AutoDetect, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Hash != "abcd" {
		t.Errorf("got %+v", entries)
	}
}

func TestFileListMetadataDeviceNumbers(t *testing.T) {
	raw := "0660 root/0 root/0 8,1 1136214245 /dev/sda1\n"
	entries, err := ParseFileList(Files, FormatMetadata, raw)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Major != 8 || entries[0].Minor != 1 {
		t.Errorf("got %+v", entries[0])
	}
}

func TestFullControlFileReadAndResolve(t *testing.T) {
	cf := New()
	src := "Package: libfoo\nVersion: 1.0-1\nArchitecture: any\nMaintainer: Jane Doe <jane@example.com>\nDescription: a test package\n long description\n"
	if err := field.Parse(strings.NewReader(src), cf.File); err != nil {
		t.Fatal(err)
	}
	v, err := cf.Get("Package")
	if err != nil {
		t.Fatal(err)
	}
	if v != "libfoo" {
		t.Errorf("got %q", v)
	}
}
