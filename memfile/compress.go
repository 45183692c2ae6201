package memfile

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Compress returns a new MemoryFile holding m's raw content compressed
// with the given format. m must not be an archive-format file; call
// Decompress/serialize it to raw bytes first.
func (m *MemoryFile) Compress(format Format) (*MemoryFile, error) {
	if m.Format.IsArchive() {
		return nil, wpkgerr.New(wpkgerr.InvalidParameter, "cannot compress an archive-format MemoryFile directly; serialize it first")
	}

	var buf bytes.Buffer
	switch format {
	case FormatGz:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(m.raw); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "gzip compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "gzip compress close", err)
		}
	case FormatBz2:
		w, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.Compatibility, "bzip2 writer", err)
		}
		if _, err := w.Write(m.raw); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "bzip2 compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "bzip2 compress close", err)
		}
	case FormatXz:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.Compatibility, "xz writer", err)
		}
		if _, err := w.Write(m.raw); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "xz compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "xz compress close", err)
		}
	case FormatLzma:
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.Compatibility, "lzma writer", err)
		}
		if _, err := w.Write(m.raw); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "lzma compress", err)
		}
		if err := w.Close(); err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.IoError, "lzma compress close", err)
		}
	default:
		return nil, wpkgerr.New(wpkgerr.Compatibility, fmt.Sprintf("unsupported compression format %s", format))
	}

	out := New(format)
	out.raw = buf.Bytes()
	return out, nil
}

// Decompress returns a new MemoryFile holding m's decompressed content,
// tagged FormatPlain.
func (m *MemoryFile) Decompress() (*MemoryFile, error) {
	var r io.Reader
	switch m.Format {
	case FormatGz:
		gr, err := gzip.NewReader(bytes.NewReader(m.raw))
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.InvalidArchive, "gzip decompress", err)
		}
		defer gr.Close()
		r = gr
	case FormatBz2:
		br, err := bzip2.NewReader(bytes.NewReader(m.raw), nil)
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.InvalidArchive, "bzip2 decompress", err)
		}
		defer br.Close()
		r = br
	case FormatXz:
		xr, err := xz.NewReader(bytes.NewReader(m.raw))
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.InvalidArchive, "xz decompress", err)
		}
		r = xr
	case FormatLzma:
		lr, err := lzma.NewReader(bytes.NewReader(m.raw))
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.InvalidArchive, "lzma decompress", err)
		}
		r = lr
	case FormatPlain:
		out := New(FormatPlain)
		out.raw = append([]byte{}, m.raw...)
		return out, nil
	default:
		return nil, wpkgerr.New(wpkgerr.Compatibility, fmt.Sprintf("unsupported compression format %s", m.Format))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "decompress read", err)
	}
	out := New(FormatPlain)
	out.raw = data
	return out, nil
}

// FormatFromExtension returns the compression Format implied by a
// filename's trailing extension, and the name with that extension
// stripped. Returns FormatPlain and the name unchanged when none of the
// recognized compression extensions match.
func FormatFromExtension(name string) (Format, string) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return FormatGz, strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".bz2"):
		return FormatBz2, strings.TrimSuffix(name, ".bz2")
	case strings.HasSuffix(name, ".lzma"):
		return FormatLzma, strings.TrimSuffix(name, ".lzma")
	case strings.HasSuffix(name, ".xz"):
		return FormatXz, strings.TrimSuffix(name, ".xz")
	default:
		return FormatPlain, name
	}
}

// Extension returns the filename extension conventionally used for a
// compression format ("" for FormatPlain).
func (f Format) Extension() string {
	switch f {
	case FormatGz:
		return ".gz"
	case FormatBz2:
		return ".bz2"
	case FormatLzma:
		return ".lzma"
	case FormatXz:
		return ".xz"
	default:
		return ""
	}
}
