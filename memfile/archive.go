package memfile

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/blakesmith/ar"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// ReadFile parses r's content into m according to m.Format. For plain
// and compression formats the bytes are stored as-is (a compressed file
// stays compressed; Decompress yields its plain content); for archive
// formats it populates the directory of entries.
func (m *MemoryFile) ReadFile(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "read", err)
	}

	switch m.Format {
	case FormatPlain:
		m.raw = data
		return nil
	case FormatGz, FormatBz2, FormatLzma, FormatXz:
		m.raw = data
		return nil
	case FormatAr:
		return m.readAr(data)
	case FormatTar:
		return m.readTar(data)
	case FormatZip:
		return m.readZip(data)
	case FormatWpkgar:
		return m.readWpkgar(data)
	case Format7z:
		return wpkgerr.New(wpkgerr.Compatibility, "7z archives are recognized but not supported")
	default:
		return wpkgerr.New(wpkgerr.Compatibility, fmt.Sprintf("unsupported format %s", m.Format))
	}
}

// WriteFile serializes m to w according to m.Format.
func (m *MemoryFile) WriteFile(w io.Writer) error {
	switch m.Format {
	case FormatPlain, FormatGz, FormatBz2, FormatLzma, FormatXz:
		_, err := w.Write(m.raw)
		return err
	case FormatAr:
		return m.writeAr(w)
	case FormatTar:
		return m.writeTar(w)
	case FormatZip:
		return m.writeZip(w)
	case FormatWpkgar:
		return m.writeWpkgar(w)
	case Format7z:
		return wpkgerr.New(wpkgerr.Compatibility, "7z archives are recognized but not supported")
	default:
		return wpkgerr.New(wpkgerr.Compatibility, fmt.Sprintf("unsupported format %s", m.Format))
	}
}

// --- ar ---

func (m *MemoryFile) readAr(data []byte) error {
	r := ar.NewReader(bytes.NewReader(data))
	seen := map[string]bool{}
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "reading ar header", err)
		}
		name := strings.TrimRight(header.Name, "/")
		if strings.Contains(name, "/") {
			return wpkgerr.New(wpkgerr.InvalidArchive, fmt.Sprintf("ar member name %q contains a slash", name))
		}
		if seen[name] {
			return wpkgerr.New(wpkgerr.InvalidArchive, fmt.Sprintf("duplicate ar member %q", name))
		}
		seen[name] = true

		buf := make([]byte, header.Size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, fmt.Sprintf("reading ar member %q", name), err)
		}

		compression, bareName := FormatFromExtension(name)
		payload := buf
		if compression != FormatPlain {
			sub := New(compression)
			sub.raw = buf
			decompressed, err := sub.Decompress()
			if err != nil {
				return err
			}
			payload = decompressed.raw
		}

		if err := m.AppendFile(FileInfo{
			Name:                bareName,
			Type:                TypeRegular,
			Mode:                int64(header.Mode),
			UID:                 header.Uid,
			GID:                 header.Gid,
			Size:                int64(len(payload)),
			ModTime:             header.ModTime,
			OriginalCompression: compression,
		}, payload); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryFile) writeAr(w io.Writer) error {
	aw := ar.NewWriter(w)
	if err := aw.WriteGlobalHeader(); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "ar global header", err)
	}
	for _, e := range m.entries {
		name := e.info.Name
		payload := e.data
		if e.info.OriginalCompression != FormatPlain {
			plain := New(FormatPlain)
			plain.raw = payload
			compressed, err := plain.Compress(e.info.OriginalCompression)
			if err != nil {
				return err
			}
			payload = compressed.raw
			name += e.info.OriginalCompression.Extension()
		}
		header := &ar.Header{
			Name:    name,
			Size:    int64(len(payload)),
			Mode:    0644,
			ModTime: time.Now(),
		}
		if e.info.Mode != 0 {
			header.Mode = e.info.Mode
		}
		if err := aw.WriteHeader(header); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("ar header for %q", name), err)
		}
		if _, err := aw.Write(payload); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("ar body for %q", name), err)
		}
	}
	return nil
}

// --- tar ---

func (m *MemoryFile) readTar(data []byte) error {
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "reading tar header", err)
		}
		buf := make([]byte, th.Size)
		if _, err := io.ReadFull(tr, buf); err != nil && th.Size > 0 {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, fmt.Sprintf("reading tar member %q", th.Name), err)
		}
		info := FileInfo{
			Name:        th.Name,
			Type:        tarTypeToEntryType(th.Typeflag),
			Mode:        th.Mode,
			UID:         th.Uid,
			GID:         th.Gid,
			UserName:    th.Uname,
			GroupName:   th.Gname,
			Size:        th.Size,
			ModTime:     th.ModTime,
			DeviceMajor: th.Devmajor,
			DeviceMinor: th.Devminor,
			LinkTarget:  th.Linkname,
		}
		if err := m.AppendFile(info, buf); err != nil {
			return err
		}
	}
	return nil
}

func tarTypeToEntryType(flag byte) EntryType {
	switch flag {
	case tar.TypeDir:
		return TypeDirectory
	case tar.TypeSymlink:
		return TypeSymlink
	case tar.TypeLink:
		return TypeHardlink
	case tar.TypeChar:
		return TypeCharDevice
	case tar.TypeBlock:
		return TypeBlockDevice
	case tar.TypeFifo:
		return TypeFifo
	case tar.TypeCont:
		return TypeContinuous
	default:
		return TypeRegular
	}
}

func entryTypeToTarFlag(t EntryType) byte {
	switch t {
	case TypeDirectory:
		return tar.TypeDir
	case TypeSymlink:
		return tar.TypeSymlink
	case TypeHardlink:
		return tar.TypeLink
	case TypeCharDevice:
		return tar.TypeChar
	case TypeBlockDevice:
		return tar.TypeBlock
	case TypeFifo:
		return tar.TypeFifo
	case TypeContinuous:
		return tar.TypeCont
	default:
		return tar.TypeReg
	}
}

func (m *MemoryFile) writeTar(w io.Writer) error {
	tw := tar.NewWriter(w)
	for _, e := range m.entries {
		modTime := e.info.ModTime
		if modTime.IsZero() {
			modTime = time.Now()
		}
		header := &tar.Header{
			Name:     e.info.Name,
			Typeflag: entryTypeToTarFlag(e.info.Type),
			Mode:     e.info.Mode,
			Uid:      e.info.UID,
			Gid:      e.info.GID,
			Uname:    e.info.UserName,
			Gname:    e.info.GroupName,
			Size:     int64(len(e.data)),
			ModTime:  modTime,
			Devmajor: e.info.DeviceMajor,
			Devminor: e.info.DeviceMinor,
			Linkname: e.info.LinkTarget,
		}
		if header.Mode == 0 {
			header.Mode = 0644
		}
		if err := tw.WriteHeader(header); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("tar header for %q", e.info.Name), err)
		}
		if _, err := tw.Write(e.data); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("tar body for %q", e.info.Name), err)
		}
	}
	return tw.Close()
}

// --- zip ---

func (m *MemoryFile) readZip(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return wpkgerr.Wrap(wpkgerr.InvalidArchive, "reading zip", err)
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, fmt.Sprintf("opening zip member %q", f.Name), err)
		}
		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, fmt.Sprintf("reading zip member %q", f.Name), err)
		}
		typ := TypeRegular
		if f.FileInfo().IsDir() {
			typ = TypeDirectory
		}
		if err := m.AppendFile(FileInfo{
			Name:    f.Name,
			Type:    typ,
			Mode:    int64(f.Mode()),
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
		}, buf); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryFile) writeZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range m.entries {
		fh := &zip.FileHeader{
			Name:     e.info.Name,
			Method:   zip.Deflate,
			Modified: e.info.ModTime,
		}
		fh.SetMode(os.FileMode(e.info.Mode))
		fw, err := zw.CreateHeader(fh)
		if err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("zip header for %q", e.info.Name), err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("zip body for %q", e.info.Name), err)
		}
	}
	return zw.Close()
}

// --- wpkgar (proprietary index format) ---
//
// Binary layout: a 4-byte magic "WPKA", a uint32 entry count, then per
// entry: length-prefixed name, mode/uid/gid/mtime/size/offset as
// uint64, a 1-byte original-compression tag, a 1-byte HasMD5 flag, and
// a 16-byte MD5 digest
// (zero when HasMD5 is false — only regular files carry one, per §4.2).

var wpkgarMagic = [4]byte{'W', 'P', 'K', 'A'}

func (m *MemoryFile) readWpkgar(data []byte) error {
	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != wpkgarMagic {
		return wpkgerr.New(wpkgerr.InvalidArchive, "bad wpkgar magic")
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar entry count", err)
	}
	for i := uint32(0); i < count; i++ {
		var nameLen uint32
		if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar name length", err)
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar name", err)
		}
		var fields [6]uint64
		if err := binary.Read(r, binary.BigEndian, &fields); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar fixed fields", err)
		}
		var compressionTag byte
		if err := binary.Read(r, binary.BigEndian, &compressionTag); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar compression tag", err)
		}
		var hasMD5 byte
		if err := binary.Read(r, binary.BigEndian, &hasMD5); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar md5 flag", err)
		}
		var digest [16]byte
		if err := binary.Read(r, binary.BigEndian, &digest); err != nil {
			return wpkgerr.Wrap(wpkgerr.InvalidArchive, "wpkgar md5 digest", err)
		}

		info := FileInfo{
			Name:                string(nameBuf),
			Mode:                int64(fields[0]),
			UID:                 int(fields[1]),
			GID:                 int(fields[2]),
			ModTime:             time.Unix(int64(fields[3]), 0),
			Size:                int64(fields[4]),
			OriginalCompression: Format(compressionTag),
			HasMD5:              hasMD5 != 0,
			MD5:                 digest,
		}
		// fields[5] is the offset into the referenced data container;
		// FileInfo has no field for it, so it is not kept on the entry.
		// Entries carry no payload since the wpkgar index describes
		// files stored elsewhere.
		if err := m.AppendFile(info, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryFile) writeWpkgar(w io.Writer) error {
	if _, err := w.Write(wpkgarMagic[:]); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "wpkgar magic", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(m.entries))); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "wpkgar entry count", err)
	}
	for _, e := range m.entries {
		name := []byte(e.info.Name)
		if err := binary.Write(w, binary.BigEndian, uint32(len(name))); err != nil {
			return err
		}
		if _, err := w.Write(name); err != nil {
			return err
		}
		fields := [6]uint64{
			uint64(e.info.Mode),
			uint64(e.info.UID),
			uint64(e.info.GID),
			uint64(e.info.ModTime.Unix()),
			uint64(e.info.Size),
			0, // offset: always written as 0
		}
		if err := binary.Write(w, binary.BigEndian, fields); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, byte(e.info.OriginalCompression)); err != nil {
			return err
		}
		hasMD5 := byte(0)
		if e.info.HasMD5 {
			hasMD5 = 1
		}
		if err := binary.Write(w, binary.BigEndian, hasMD5); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.info.MD5); err != nil {
			return err
		}
	}
	return nil
}
