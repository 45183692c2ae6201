package pkgobj

import (
	"bytes"
	"testing"
)

func buildSamplePackage(t *testing.T) *Package {
	t.Helper()
	p := NewPackage()
	if err := p.Control.Set("Package", "libfoo", "", 1); err != nil {
		t.Fatal(err)
	}
	if err := p.Control.Set("Version", "1.0-1", "", 2); err != nil {
		t.Fatal(err)
	}
	if err := p.Control.Set("Architecture", "any", "", 3); err != nil {
		t.Fatal(err)
	}
	if err := p.Control.Set("Maintainer", "Jane Doe <jane@example.com>", "", 4); err != nil {
		t.Fatal(err)
	}
	p.Files = append(p.Files, PayloadFile{Path: "/usr/bin/foo", Mode: 0755, Body: []byte("#!/bin/sh\necho hi\n")})
	p.Files = append(p.Files, PayloadFile{Path: "/etc/foo.conf", Mode: 0644, Body: []byte("key=value\n")})
	p.conffiles["/etc/foo.conf"] = true
	p.Scripts.PostInst = "#!/bin/sh\nexit 0\n"
	return p
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	p := buildSamplePackage(t)

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFromDeb(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	name, err := loaded.Control.Get("Package")
	if err != nil {
		t.Fatal(err)
	}
	if name != "libfoo" {
		t.Errorf("Package = %q", name)
	}

	if !loaded.IsConffile("/etc/foo.conf") {
		t.Errorf("expected /etc/foo.conf to be a conffile")
	}
	if loaded.IsConffile("/usr/bin/foo") {
		t.Errorf("did not expect /usr/bin/foo to be a conffile")
	}

	if len(loaded.Files) != 2 {
		t.Fatalf("expected 2 payload files, got %d", len(loaded.Files))
	}
	for _, f := range loaded.Files {
		if f.MD5 == "" {
			t.Errorf("expected MD5 for %q", f.Path)
		}
	}

	if loaded.Scripts.PostInst != "#!/bin/sh\nexit 0\n" {
		t.Errorf("PostInst = %q", loaded.Scripts.PostInst)
	}
}

func TestLoadRejectsMissingDebianBinary(t *testing.T) {
	p := buildSamplePackage(t)
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	// Corrupt the stream so debian-binary cannot be found correctly.
	corrupted := buf.Bytes()[8:]
	if _, err := LoadFromDeb(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected an error reading a corrupted archive")
	}
}

func TestHasControlFileAndReadControlFile(t *testing.T) {
	p := buildSamplePackage(t)
	if !p.HasControlFile("control") {
		t.Error("expected control file present")
	}
	if p.HasControlFile("prerm") {
		t.Error("did not expect prerm to be present")
	}
	if !p.HasControlFile("postinst") {
		t.Error("expected postinst to be present")
	}
	content, err := p.ReadControlFile("postinst")
	if err != nil {
		t.Fatal(err)
	}
	if content != p.Scripts.PostInst {
		t.Errorf("got %q", content)
	}
}

func TestDigestStableUnderFileReordering(t *testing.T) {
	p1 := buildSamplePackage(t)
	p2 := NewPackage()
	p2.Control.Set("Package", "libfoo", "", 1)
	p2.Control.Set("Version", "1.0-1", "", 2)
	p2.Control.Set("Architecture", "any", "", 3)
	p2.Control.Set("Maintainer", "Jane Doe <jane@example.com>", "", 4)
	// Append in the opposite order.
	p2.Files = append(p2.Files, PayloadFile{Path: "/etc/foo.conf", Mode: 0644, Body: []byte("key=value\n")})
	p2.Files = append(p2.Files, PayloadFile{Path: "/usr/bin/foo", Mode: 0755, Body: []byte("#!/bin/sh\necho hi\n")})
	p2.conffiles["/etc/foo.conf"] = true
	p2.Scripts.PostInst = "#!/bin/sh\nexit 0\n"

	if p1.Digest() != p2.Digest() {
		t.Error("expected digest to be independent of file append order")
	}
}

func TestValidateFieldsDelegatesToControl(t *testing.T) {
	p := buildSamplePackage(t)
	ok, err := p.ValidateFields(`getfield("Package") == "libfoo"`)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected true")
	}
}
