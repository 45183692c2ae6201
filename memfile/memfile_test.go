package memfile

import (
	"bytes"
	"testing"
)

func TestTarRoundTrip(t *testing.T) {
	m := New(FormatTar)
	if err := m.AppendFile(FileInfo{Name: "a.txt", Mode: 0644}, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendFile(FileInfo{Name: "b.txt", Mode: 0644}, []byte("world")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.WriteFile(&buf); err != nil {
		t.Fatal(err)
	}

	m2 := New(FormatTar)
	if err := m2.ReadFile(&buf); err != nil {
		t.Fatal(err)
	}

	data, ok := m2.Get("a.txt")
	if !ok || string(data) != "hello" {
		t.Errorf("a.txt = %q, ok=%v", data, ok)
	}
	data, ok = m2.Get("b.txt")
	if !ok || string(data) != "world" {
		t.Errorf("b.txt = %q, ok=%v", data, ok)
	}
}

func TestArRoundTrip(t *testing.T) {
	m := New(FormatAr)
	if err := m.AppendFile(FileInfo{Name: "debian-binary"}, []byte("2.0\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendFile(FileInfo{Name: "control.tar", OriginalCompression: FormatGz}, []byte("fake-tar-bytes")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.WriteFile(&buf); err != nil {
		t.Fatal(err)
	}

	m2 := New(FormatAr)
	if err := m2.ReadFile(&buf); err != nil {
		t.Fatal(err)
	}
	data, ok := m2.Get("debian-binary")
	if !ok || string(data) != "2.0\n" {
		t.Errorf("debian-binary = %q, ok=%v", data, ok)
	}
	data, ok = m2.Get("control.tar")
	if !ok || string(data) != "fake-tar-bytes" {
		t.Errorf("control.tar = %q, ok=%v", data, ok)
	}
}

func TestArDuplicateMemberRejected(t *testing.T) {
	m := New(FormatAr)
	if err := m.AppendFile(FileInfo{Name: "a"}, []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendFile(FileInfo{Name: "a"}, []byte("2")); err == nil {
		t.Errorf("expected duplicate member error")
	}
}

func TestGzipCompressDecompressRoundTrip(t *testing.T) {
	m := New(FormatPlain)
	m.SetBytes([]byte("the quick brown fox jumps over the lazy dog"))

	compressed, err := m.Compress(FormatGz)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed.Bytes()) == 0 {
		t.Fatalf("expected non-empty compressed output")
	}

	decompressed, err := compressed.Decompress()
	if err != nil {
		t.Fatal(err)
	}
	if string(decompressed.Bytes()) != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("round trip mismatch: %q", decompressed.Bytes())
	}
}

func TestBzip2CompressDecompressRoundTrip(t *testing.T) {
	m := New(FormatPlain)
	m.SetBytes([]byte("bzip2 payload for round trip testing"))

	compressed, err := m.Compress(FormatBz2)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := compressed.Decompress()
	if err != nil {
		t.Fatal(err)
	}
	if string(decompressed.Bytes()) != "bzip2 payload for round trip testing" {
		t.Errorf("round trip mismatch: %q", decompressed.Bytes())
	}
}

func TestXzCompressDecompressRoundTrip(t *testing.T) {
	m := New(FormatPlain)
	m.SetBytes([]byte("xz payload for round trip testing"))

	compressed, err := m.Compress(FormatXz)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := compressed.Decompress()
	if err != nil {
		t.Fatal(err)
	}
	if string(decompressed.Bytes()) != "xz payload for round trip testing" {
		t.Errorf("round trip mismatch: %q", decompressed.Bytes())
	}
}

func TestFormatFromExtension(t *testing.T) {
	cases := []struct {
		name       string
		wantFormat Format
		wantBase   string
	}{
		{"control.tar.gz", FormatGz, "control.tar"},
		{"data.tar.bz2", FormatBz2, "data.tar"},
		{"data.tar.xz", FormatXz, "data.tar"},
		{"control.tar", FormatPlain, "control.tar"},
	}
	for _, c := range cases {
		gotFormat, gotBase := FormatFromExtension(c.name)
		if gotFormat != c.wantFormat || gotBase != c.wantBase {
			t.Errorf("FormatFromExtension(%q) = (%v,%q), want (%v,%q)", c.name, gotFormat, gotBase, c.wantFormat, c.wantBase)
		}
	}
}

func TestWpkgarRoundTrip(t *testing.T) {
	m := New(FormatWpkgar)
	digest := [16]byte{1, 2, 3}
	if err := m.AppendFile(FileInfo{
		Name:    "/usr/bin/foo",
		Mode:    0755,
		Size:    1234,
		HasMD5:  true,
		MD5:     digest,
	}, nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := m.WriteFile(&buf); err != nil {
		t.Fatal(err)
	}

	m2 := New(FormatWpkgar)
	if err := m2.ReadFile(&buf); err != nil {
		t.Fatal(err)
	}
	entries := m2.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "/usr/bin/foo" || entries[0].Size != 1234 || !entries[0].HasMD5 || entries[0].MD5 != digest {
		t.Errorf("got %+v", entries[0])
	}
}

func TestDirRewindAndNext(t *testing.T) {
	m := New(FormatTar)
	m.AppendFile(FileInfo{Name: "a"}, []byte("1"))
	m.AppendFile(FileInfo{Name: "b"}, []byte("2"))

	var names []string
	for {
		info, _, ok := m.DirNext()
		if !ok {
			break
		}
		names = append(names, info.Name)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 entries, got %v", names)
	}

	m.DirRewind()
	info, _, ok := m.DirNext()
	if !ok || info.Name != "a" {
		t.Errorf("expected rewind to restart at 'a', got %+v ok=%v", info, ok)
	}
}

func TestNormalizeLeadingDotSlash(t *testing.T) {
	m := New(FormatTar)
	m.AppendFile(FileInfo{Name: "./usr/bin/foo"}, []byte("x"))
	m.NormalizeLeadingDotSlash()
	entries := m.Entries()
	if entries[0].Name != "/usr/bin/foo" {
		t.Errorf("got %q", entries[0].Name)
	}
}

func TestReadWriteRawOffsets(t *testing.T) {
	m := New(FormatPlain)
	if _, err := m.Write([]byte("hello"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Write([]byte("world"), 10); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := m.Read(buf, 10); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "world" {
		t.Errorf("got %q", buf)
	}
}

func TestReadLine(t *testing.T) {
	m := New(FormatPlain)
	m.SetBytes([]byte("line1\nline2\nline3"))
	var offset int64
	var lines []string
	for {
		line, ok := m.ReadLine(&offset)
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	want := []string{"line1", "line2", "line3"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
