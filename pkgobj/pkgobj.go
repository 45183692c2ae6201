package pkgobj

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m2osw/wpkg-go/control"
	"github.com/m2osw/wpkg-go/field"
	"github.com/m2osw/wpkg-go/memfile"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// debianBinaryVersion is the only value a debian-binary member may hold
// (spec.md §4.2/§4.7).
const debianBinaryVersion = "2.0\n"

// Scripts holds the maintainer scripts (§4.7 "optional preinst/postinst/
// prerm/postrm/conffiles/templates/config/shlibs/triggers").
type Scripts struct {
	PreInst   string
	PostInst  string
	PreRm     string
	PostRm    string
	Config    string
	Templates string
	Shlibs    string
	Triggers  string
}

// PayloadFile is one file carried in the package's data archive.
type PayloadFile struct {
	Path    string
	Mode    int64
	Body    []byte
	MD5     string
	ModTime time.Time
}

// reservedControlNames are the control.tar members with dedicated
// Scripts/md5sums/conffiles handling; anything else becomes an extra
// control file.
var reservedControlNames = map[string]bool{
	"control": true, "md5sums": true, "conffiles": true,
	"preinst": true, "postinst": true, "prerm": true, "postrm": true,
	"config": true, "templates": true, "shlibs": true, "triggers": true,
}

// Package is one loaded package: its control metadata, maintainer
// scripts, and payload.
type Package struct {
	Control           *control.File
	Scripts           Scripts
	Files             []PayloadFile
	ExtraControlFiles map[string]string
	conffiles         map[string]bool
	haveMd5sums       bool

	// controlCompression/dataCompression record the compression each
	// inner member carried, so WriteTo re-applies it (§4.2).
	controlCompression memfile.Format
	dataCompression     memfile.Format
}

// NewPackage returns an empty package ready for programmatic assembly.
func NewPackage() *Package {
	return &Package{
		Control:             control.New(),
		ExtraControlFiles:   make(map[string]string),
		conffiles:           make(map[string]bool),
		controlCompression: memfile.FormatGz,
		dataCompression:    memfile.FormatGz,
	}
}

// LoadFromDeb reads a complete .deb archive (ar container, debian-binary
// + control.tar[.*] + data.tar[.*]) from r.
//
// Grounded on deb/package.go's NewPackage, generalized to read through
// the memfile archive codec instead of ar/tar/gzip directly, and to
// populate a control.File instead of a flat Metadata struct.
func LoadFromDeb(r io.Reader) (*Package, error) {
	ar := memfile.New(memfile.FormatAr)
	if err := ar.ReadFile(r); err != nil {
		return nil, err
	}

	p := &Package{
		Control:           control.New(),
		ExtraControlFiles: make(map[string]string),
		conffiles:         make(map[string]bool),
	}

	binary, ok := ar.Get("debian-binary")
	if !ok || string(binary) != debianBinaryVersion {
		return nil, wpkgerr.New(wpkgerr.InvalidArchive, fmt.Sprintf("missing or unrecognized debian-binary (want %q)", debianBinaryVersion))
	}

	var haveControl bool
	for _, info := range ar.Entries() {
		switch {
		case strings.HasPrefix(info.Name, "control.tar"):
			haveControl = true
			p.controlCompression = info.OriginalCompression
			data, _ := ar.Get(info.Name)
			if err := p.readControlTar(data); err != nil {
				return nil, err
			}
		case strings.HasPrefix(info.Name, "data.tar"):
			p.dataCompression = info.OriginalCompression
			data, _ := ar.Get(info.Name)
			if err := p.readDataTar(data); err != nil {
				return nil, err
			}
		}
	}
	if !haveControl {
		return nil, wpkgerr.New(wpkgerr.InvalidArchive, "missing control.tar member")
	}
	if !p.haveMd5sums {
		return nil, wpkgerr.New(wpkgerr.InvalidArchive, "missing md5sums control member")
	}
	return p, nil
}

func (p *Package) readControlTar(data []byte) error {
	tf := memfile.New(memfile.FormatTar)
	if err := tf.ReadFile(bytes.NewReader(data)); err != nil {
		return err
	}
	tf.NormalizeLeadingDotSlash()

	for {
		info, payload, ok := tf.DirNext()
		if !ok {
			break
		}
		name := strings.TrimPrefix(info.Name, "/")
		switch name {
		case "control":
			cf := control.New()
			if err := field.Parse(bytes.NewReader(payload), cf.File); err != nil {
				return err
			}
			p.Control = cf
		case "md5sums":
			p.haveMd5sums = true
			p.applyMd5sums(string(payload))
		case "conffiles":
			for _, line := range strings.Split(strings.TrimSpace(string(payload)), "\n") {
				line = strings.TrimSpace(line)
				if line != "" {
					p.conffiles[line] = true
				}
			}
		case "preinst":
			p.Scripts.PreInst = string(payload)
		case "postinst":
			p.Scripts.PostInst = string(payload)
		case "prerm":
			p.Scripts.PreRm = string(payload)
		case "postrm":
			p.Scripts.PostRm = string(payload)
		case "config":
			p.Scripts.Config = string(payload)
		case "templates":
			p.Scripts.Templates = string(payload)
		case "shlibs":
			p.Scripts.Shlibs = string(payload)
		case "triggers":
			p.Scripts.Triggers = string(payload)
		default:
			if !reservedControlNames[name] {
				p.ExtraControlFiles[name] = string(payload)
			}
		}
	}
	return nil
}

func (p *Package) applyMd5sums(content string) {
	sums := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		sums[fields[1]] = fields[0]
	}
	for i := range p.Files {
		key := strings.TrimPrefix(p.Files[i].Path, "/")
		if sum, ok := sums[key]; ok {
			p.Files[i].MD5 = sum
		}
	}
}

func (p *Package) readDataTar(data []byte) error {
	tf := memfile.New(memfile.FormatTar)
	if err := tf.ReadFile(bytes.NewReader(data)); err != nil {
		return err
	}
	tf.NormalizeLeadingDotSlash()

	for {
		info, payload, ok := tf.DirNext()
		if !ok {
			break
		}
		if info.Type != memfile.TypeRegular {
			continue
		}
		sum := md5.Sum(payload)
		p.Files = append(p.Files, PayloadFile{
			Path:    info.Name,
			Mode:    info.Mode,
			Body:    payload,
			MD5:     hex.EncodeToString(sum[:]),
			ModTime: info.ModTime,
		})
	}
	return nil
}

// HasControlFile reports whether a control.tar member of the given name
// (e.g. "control", "preinst", an extra name) was present.
func (p *Package) HasControlFile(name string) bool {
	switch name {
	case "control":
		return p.Control != nil
	case "preinst":
		return p.Scripts.PreInst != ""
	case "postinst":
		return p.Scripts.PostInst != ""
	case "prerm":
		return p.Scripts.PreRm != ""
	case "postrm":
		return p.Scripts.PostRm != ""
	case "config":
		return p.Scripts.Config != ""
	case "templates":
		return p.Scripts.Templates != ""
	case "shlibs":
		return p.Scripts.Shlibs != ""
	case "triggers":
		return p.Scripts.Triggers != ""
	case "conffiles":
		return len(p.conffiles) > 0
	default:
		_, ok := p.ExtraControlFiles[name]
		return ok
	}
}

// ReadControlFile returns the decompressed content of a control.tar
// member. The original compression tag is not applied here (control
// members are kept decompressed in memory); WriteTo re-applies it.
func (p *Package) ReadControlFile(name string) (string, error) {
	switch name {
	case "preinst":
		return p.Scripts.PreInst, nil
	case "postinst":
		return p.Scripts.PostInst, nil
	case "prerm":
		return p.Scripts.PreRm, nil
	case "postrm":
		return p.Scripts.PostRm, nil
	case "config":
		return p.Scripts.Config, nil
	case "templates":
		return p.Scripts.Templates, nil
	case "shlibs":
		return p.Scripts.Shlibs, nil
	case "triggers":
		return p.Scripts.Triggers, nil
	default:
		if content, ok := p.ExtraControlFiles[name]; ok {
			return content, nil
		}
		return "", wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("control file %q is not present", name))
	}
}

// Conffiles returns the package's configuration-file paths.
func (p *Package) Conffiles() []string {
	out := make([]string, 0, len(p.conffiles))
	for name := range p.conffiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsConffile reports whether path is registered as a configuration file.
func (p *Package) IsConffile(path string) bool {
	return p.conffiles[path]
}

// ValidateFields evaluates expression against the package's control
// fields (§4.10 via the embedded control.File's expression context).
func (p *Package) ValidateFields(expression string) (bool, error) {
	return p.Control.ValidateFields(expression)
}

// WriteTo serializes the package as a complete .deb (ar container).
//
// Grounded on deb/package.go's WriteTo/buildDataArchive/
// buildControlArchive, generalized to go through the memfile archive
// codec and a control.File instead of hand-building tar headers for a
// flat Metadata struct.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	dataTar, md5sums, err := p.buildDataTar()
	if err != nil {
		return 0, err
	}
	controlTar, err := p.buildControlTar(md5sums)
	if err != nil {
		return 0, err
	}

	ar := memfile.New(memfile.FormatAr)
	if err := ar.AppendFile(memfile.FileInfo{Name: "debian-binary"}, []byte(debianBinaryVersion)); err != nil {
		return 0, err
	}
	if err := ar.AppendFile(memfile.FileInfo{Name: "control.tar", OriginalCompression: p.controlCompression}, controlTar); err != nil {
		return 0, err
	}
	if err := ar.AppendFile(memfile.FileInfo{Name: "data.tar", OriginalCompression: p.dataCompression}, dataTar); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := ar.WriteFile(&buf); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (p *Package) buildDataTar() ([]byte, map[string]string, error) {
	tf := memfile.New(memfile.FormatTar)
	md5sums := make(map[string]string)
	var installedSize int64

	files := make([]PayloadFile, len(p.Files))
	copy(files, p.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	for _, file := range files {
		name := "." + file.Path
		if !strings.HasPrefix(file.Path, "/") {
			name = "./" + file.Path
		}
		sum := md5.Sum(file.Body)
		md5sums[strings.TrimPrefix(file.Path, "/")] = hex.EncodeToString(sum[:])
		installedSize += int64(len(file.Body))

		mode := file.Mode
		if mode == 0 {
			mode = 0644
		}
		if err := tf.AppendFile(memfile.FileInfo{
			Name:    name,
			Mode:    mode,
			ModTime: modTimeOrNow(file.ModTime),
		}, file.Body); err != nil {
			return nil, nil, err
		}
	}

	var buf bytes.Buffer
	if err := tf.WriteFile(&buf); err != nil {
		return nil, nil, err
	}
	p.Control.Set(control.InstalledSize, strconv.FormatInt((installedSize+1023)/1024, 10), "", 0)
	return buf.Bytes(), md5sums, nil
}

func modTimeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (p *Package) buildControlTar(md5sums map[string]string) ([]byte, error) {
	tf := memfile.New(memfile.FormatTar)

	var controlBuf bytes.Buffer
	if err := p.Control.Write(&controlBuf, field.WriteRaw); err != nil {
		return nil, err
	}
	if err := tf.AppendFile(memfile.FileInfo{Name: "./control", Mode: 0644, ModTime: time.Now()}, controlBuf.Bytes()); err != nil {
		return nil, err
	}

	var paths []string
	for path := range md5sums {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	var md5Buf strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&md5Buf, "%s  %s\n", md5sums[path], path)
	}
	if err := tf.AppendFile(memfile.FileInfo{Name: "./md5sums", Mode: 0644, ModTime: time.Now()}, []byte(md5Buf.String())); err != nil {
		return nil, err
	}

	if len(p.conffiles) > 0 {
		names := p.Conffiles()
		content := strings.Join(names, "\n") + "\n"
		if err := tf.AppendFile(memfile.FileInfo{Name: "./conffiles", Mode: 0644, ModTime: time.Now()}, []byte(content)); err != nil {
			return nil, err
		}
	}

	scripts := map[string]string{
		"preinst": p.Scripts.PreInst, "postinst": p.Scripts.PostInst,
		"prerm": p.Scripts.PreRm, "postrm": p.Scripts.PostRm,
		"config": p.Scripts.Config, "templates": p.Scripts.Templates,
		"shlibs": p.Scripts.Shlibs, "triggers": p.Scripts.Triggers,
	}
	var scriptNames []string
	for name := range scripts {
		scriptNames = append(scriptNames, name)
	}
	sort.Strings(scriptNames)
	for _, name := range scriptNames {
		body := scripts[name]
		if body == "" {
			continue
		}
		if err := tf.AppendFile(memfile.FileInfo{Name: "./" + name, Mode: 0755, ModTime: time.Now()}, []byte(body)); err != nil {
			return nil, err
		}
	}

	var extraNames []string
	for name := range p.ExtraControlFiles {
		extraNames = append(extraNames, name)
	}
	sort.Strings(extraNames)
	for _, name := range extraNames {
		if reservedControlNames[name] {
			continue
		}
		if err := tf.AppendFile(memfile.FileInfo{Name: "./" + name, Mode: 0644, ModTime: time.Now()}, []byte(p.ExtraControlFiles[name])); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := tf.WriteFile(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest computes a deterministic SHA256 hash of the package's control
// fields, scripts, and payload, independent of file order and
// modification times (§4.7, grounded on deb/package.go's Digest).
func (p *Package) Digest() string {
	h := sha256.New()
	write := func(s string) { fmt.Fprintf(h, "%d:%s\x00", len(s), s) }

	for _, name := range p.Control.FieldNames() {
		raw, _ := p.Control.RawValue(name)
		write(name)
		write(raw)
	}

	write(p.Scripts.PreInst)
	write(p.Scripts.PostInst)
	write(p.Scripts.PreRm)
	write(p.Scripts.PostRm)
	write(p.Scripts.Config)
	write(p.Scripts.Templates)
	write(p.Scripts.Shlibs)
	write(p.Scripts.Triggers)

	files := make([]PayloadFile, len(p.Files))
	copy(files, p.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for _, f := range files {
		write(f.Path)
		write(strconv.FormatInt(f.Mode, 8))
		write(string(f.Body))
	}

	return hex.EncodeToString(h.Sum(nil))
}
