package memfile

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Format tags the content a MemoryFile holds.
type Format int

const (
	FormatPlain Format = iota
	FormatAr
	FormatTar
	FormatZip
	Format7z
	FormatWpkgar
	FormatGz
	FormatBz2
	FormatLzma
	FormatXz
)

func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatAr:
		return "ar"
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	case Format7z:
		return "7z"
	case FormatWpkgar:
		return "wpkgar"
	case FormatGz:
		return "gz"
	case FormatBz2:
		return "bz2"
	case FormatLzma:
		return "lzma"
	case FormatXz:
		return "xz"
	default:
		return "unknown"
	}
}

// IsCompressed reports whether f is one of the compression formats.
func (f Format) IsCompressed() bool {
	switch f {
	case FormatGz, FormatBz2, FormatLzma, FormatXz:
		return true
	default:
		return false
	}
}

// IsArchive reports whether f is one of the container formats with
// directory iteration.
func (f Format) IsArchive() bool {
	switch f {
	case FormatAr, FormatTar, FormatZip, Format7z, FormatWpkgar:
		return true
	default:
		return false
	}
}

// EntryType classifies one archive member.
type EntryType int

const (
	TypeRegular EntryType = iota
	TypeDirectory
	TypeSymlink
	TypeHardlink
	TypeCharDevice
	TypeBlockDevice
	TypeFifo
	TypeContinuous
)

// FileInfo describes one archive member.
type FileInfo struct {
	Name                string
	Type                EntryType
	Mode                int64
	UID, GID            int
	UserName, GroupName string
	Size                int64
	ModTime             time.Time
	DeviceMajor, DeviceMinor int64
	LinkTarget          string
	// OriginalCompression records the compression tag a member carried
	// before transparent fallback decompression, so a later emission can
	// re-apply it (§4.2 compression fallback).
	OriginalCompression Format
	MD5                 [16]byte
	HasMD5               bool
}

// entry is one in-memory archive member: its info plus payload.
type entry struct {
	info FileInfo
	data []byte
}

// MemoryFile is a typed in-memory byte buffer: either raw bytes (Plain
// or a pure compression format) or a directory of entries (an archive
// format).
type MemoryFile struct {
	Format   Format
	PackagePath string // recorded package path used when materializing entries

	raw     []byte
	cursor  int64

	entries []entry
	dirPos  int
}

// New creates an empty MemoryFile tagged with the given format.
func New(format Format) *MemoryFile {
	return &MemoryFile{Format: format}
}

// Size returns the logical size: len(raw) for non-archive formats, or
// the number of directory entries for archive formats.
func (m *MemoryFile) Size() int64 {
	if m.Format.IsArchive() {
		return int64(len(m.entries))
	}
	return int64(len(m.raw))
}

// Read copies up to len(buf) bytes starting at offset from the raw
// buffer. Only valid for non-archive formats.
func (m *MemoryFile) Read(buf []byte, offset int64) (int, error) {
	if m.Format.IsArchive() {
		return 0, wpkgerr.New(wpkgerr.InvalidParameter, "Read is not valid on an archive-format MemoryFile")
	}
	if offset < 0 || offset > int64(len(m.raw)) {
		return 0, wpkgerr.New(wpkgerr.InvalidParameter, "offset out of range")
	}
	n := copy(buf, m.raw[offset:])
	return n, nil
}

// Write places buf at offset in the raw buffer, growing it as needed.
func (m *MemoryFile) Write(buf []byte, offset int64) (int, error) {
	if m.Format.IsArchive() {
		return 0, wpkgerr.New(wpkgerr.InvalidParameter, "Write is not valid on an archive-format MemoryFile")
	}
	need := offset + int64(len(buf))
	if need > int64(len(m.raw)) {
		grown := make([]byte, need)
		copy(grown, m.raw)
		m.raw = grown
	}
	copy(m.raw[offset:], buf)
	return len(buf), nil
}

// ReadLine reads one '\n'-terminated line (without the terminator)
// starting at *offset, advancing it past the line. Reports false at
// end of buffer.
func (m *MemoryFile) ReadLine(offset *int64) (string, bool) {
	if *offset >= int64(len(m.raw)) {
		return "", false
	}
	rest := m.raw[*offset:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		line := string(rest)
		*offset += int64(len(rest))
		return line, true
	}
	line := string(rest[:idx])
	*offset += int64(idx) + 1
	return line, true
}

// Printf appends formatted text to the raw buffer.
func (m *MemoryFile) Printf(format string, args ...interface{}) {
	m.raw = append(m.raw, []byte(fmt.Sprintf(format, args...))...)
}

// Bytes returns the raw buffer directly (non-archive formats).
func (m *MemoryFile) Bytes() []byte { return m.raw }

// SetBytes replaces the raw buffer wholesale.
func (m *MemoryFile) SetBytes(b []byte) { m.raw = b }

// RawMd5sum computes the MD5 digest of the raw buffer.
func (m *MemoryFile) RawMd5sum() [16]byte {
	return md5.Sum(m.raw)
}

// Copy appends the MemoryFile's raw content to dst's raw buffer and
// returns the number of bytes copied.
func (m *MemoryFile) Copy(dst *MemoryFile) (int64, error) {
	if m.Format.IsArchive() {
		return 0, wpkgerr.New(wpkgerr.InvalidParameter, "Copy source must not be an archive-format MemoryFile")
	}
	dst.raw = append(dst.raw, m.raw...)
	return int64(len(m.raw)), nil
}

// Entries returns a copy of the archive's directory entries, in the
// order they were appended/parsed.
func (m *MemoryFile) Entries() []FileInfo {
	out := make([]FileInfo, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.info
	}
	return out
}

// DirRewind resets the directory iteration cursor to the start.
func (m *MemoryFile) DirRewind() { m.dirPos = 0 }

// DirNext yields the next (FileInfo, payload) pair and advances the
// cursor. ok is false once iteration is exhausted.
func (m *MemoryFile) DirNext() (info FileInfo, data []byte, ok bool) {
	if m.dirPos >= len(m.entries) {
		return FileInfo{}, nil, false
	}
	e := m.entries[m.dirPos]
	m.dirPos++
	return e.info, e.data, true
}

// AppendFile adds one member to an archive-format MemoryFile.
func (m *MemoryFile) AppendFile(info FileInfo, data []byte) error {
	if !m.Format.IsArchive() {
		return wpkgerr.New(wpkgerr.InvalidParameter, "AppendFile requires an archive-format MemoryFile")
	}
	for _, e := range m.entries {
		if e.info.Name == info.Name {
			return wpkgerr.New(wpkgerr.InvalidArchive, fmt.Sprintf("duplicate member name %q", info.Name))
		}
	}
	if info.Size == 0 {
		info.Size = int64(len(data))
	}
	m.entries = append(m.entries, entry{info: info, data: data})
	return nil
}

// Get returns the payload of the named member, if present.
func (m *MemoryFile) Get(name string) ([]byte, bool) {
	for _, e := range m.entries {
		if e.info.Name == name {
			return e.data, true
		}
	}
	return nil, false
}

// Has reports whether the named member is present.
func (m *MemoryFile) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// NormalizeLeadingDotSlash makes every entry name "/"-rooted: a leading
// "./" is replaced by "/" and any other relative name gets a "/"
// prefix, as the package layer does for data.tar members (§4.2).
func (m *MemoryFile) NormalizeLeadingDotSlash() {
	for i := range m.entries {
		m.entries[i].info.Name = strings.TrimPrefix(m.entries[i].info.Name, "./")
		if !strings.HasPrefix(m.entries[i].info.Name, "/") {
			m.entries[i].info.Name = "/" + m.entries[i].info.Name
		}
	}
}
