package control

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/m2osw/wpkg-go/dependency"
	"github.com/m2osw/wpkg-go/field"
	"github.com/m2osw/wpkg-go/version"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Well-known control field names, grounded on deb/constants.go's
// ControlField enum and extended per spec.md §4.4.
const (
	Package               = "Package"
	Version               = "Version"
	Architecture          = "Architecture"
	Maintainer            = "Maintainer"
	Uploaders             = "Uploaders"
	ChangedBy             = "Changed-By"
	Description           = "Description"
	Section               = "Section"
	Priority              = "Priority"
	Urgency               = "Urgency"
	XSelection            = "X-Selection"
	Homepage              = "Homepage"
	Bugs                  = "Bugs"
	VcsBrowser            = "Vcs-Browser"
	Essential             = "Essential"
	Depends               = "Depends"
	PreDepends            = "Pre-Depends"
	Recommends            = "Recommends"
	Suggests              = "Suggests"
	Enhances              = "Enhances"
	Conflicts             = "Conflicts"
	Breaks                = "Breaks"
	Replaces              = "Replaces"
	Provides              = "Provides"
	BuildDepends          = "Build-Depends"
	BuildConflicts        = "Build-Conflicts"
	Source                = "Source"
	InstalledSize         = "Installed-Size"
	Date                  = "Date"
	ChangesDate           = "Changes-Date"
	Files                 = "Files"
	ConfFiles             = "ConfFiles"
	ChecksumsSha1         = "Checksums-Sha1"
	ChecksumsSha256       = "Checksums-Sha256"
	StandardsVersion      = "Standards-Version"
	MinimumUpgradableVer  = "Minimum-Upgradable-Version"
	PackagerVersion       = "Packager-Version"
)

// dependencyFields lists every field whose value is a dependency
// expression (§4.4 "Depends, Pre-Depends, ... Build-*").
var dependencyFields = []string{
	Depends, PreDepends, Recommends, Suggests, Enhances,
	Conflicts, Breaks, Replaces, Provides,
	BuildDepends, BuildConflicts,
}

var fileListFields = []string{Files, ConfFiles, ChecksumsSha1, ChecksumsSha256}

var packageNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]*$`)

var priorities = map[string]bool{
	"required": true, "important": true, "standard": true,
	"optional": true, "extra": true,
}

var urgencyLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "emergency": true, "critical": true,
}

var selections = map[string]bool{
	"auto": true, "normal": true, "hold": true, "reject": true,
}

var sections = map[string]bool{
	"admin": true, "comm": true, "database": true, "debug": true, "devel": true,
	"doc": true, "editors": true, "education": true, "electronics": true,
	"embedded": true, "fonts": true, "games": true, "gnome": true, "graphics": true,
	"httpd": true, "interpreters": true, "java": true, "kde": true, "kernel": true,
	"libdevel": true, "libs": true, "lisp": true, "localization": true, "mail": true,
	"math": true, "metapackages": true, "misc": true, "net": true, "news": true,
	"ocaml": true, "oldlibs": true, "otherosfs": true, "perl": true, "php": true,
	"python": true, "ruby": true, "science": true, "shells": true, "sound": true,
	"tex": true, "text": true, "utils": true, "vcs": true, "video": true,
	"web": true, "x11": true, "xfce": true, "zope": true,
}

var architectureOSes = map[string]bool{
	"linux": true, "kfreebsd": true, "hurd": true, "darwin": true, "windows": true,
}

var architectureCPUs = map[string]bool{
	"i386": true, "amd64": true, "armel": true, "armhf": true, "arm64": true,
	"mips": true, "mipsel": true, "mips64el": true, "powerpc": true, "ppc64": true,
	"ppc64el": true, "s390x": true, "sparc": true, "riscv64": true, "all": true,
}

// File is a control file: a field.File specialized with verify hooks
// for every well-known control field.
type File struct {
	*field.File
}

// New returns an empty control file with all well-known field verify
// hooks installed.
func New() *File {
	cf := &File{File: field.New()}
	cf.AllowSubPackage = true
	cf.installVerifiers()
	return cf
}

func (cf *File) installVerifiers() {
	cf.SetVerify(Package, verifyPackage)
	cf.SetVerify(Version, verifyVersion)
	cf.SetVerify(Architecture, verifyArchitecture)
	cf.SetVerify(Priority, verifyClosedSet(Priority, priorities))
	cf.SetVerify(Section, verifySection)
	cf.SetVerify(Urgency, verifyUrgency)
	cf.SetVerify(XSelection, verifyClosedSet(XSelection, selections))
	cf.SetVerify(Maintainer, verifyEmailList)
	cf.SetVerify(Uploaders, verifyEmailList)
	cf.SetVerify(ChangedBy, verifyEmailList)
	cf.SetVerify(Date, verifyRFC822Date)
	cf.SetVerify(ChangesDate, verifyRFC822Date)
	cf.SetVerify(Homepage, verifyURI)
	cf.SetVerify(Bugs, verifyURI)
	cf.SetVerify(VcsBrowser, verifyURI)
	cf.SetVerify(StandardsVersion, verifyStandardsVersion)
	cf.SetVerify(MinimumUpgradableVer, verifyVersionField)
	cf.SetVerify(PackagerVersion, verifyVersionField)

	for _, name := range dependencyFields {
		cf.SetVerify(name, verifyDependencyExpression)
	}
	for _, name := range fileListFields {
		cf.SetVerify(name, verifyFileList)
	}
}

func verifyPackage(f *field.Field, newValue string) error {
	if !packageNameRe.MatchString(newValue) {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("malformed package name %q", newValue))
	}
	f.SetPackageName(newValue)
	return nil
}

func verifyVersionField(f *field.Field, newValue string) error {
	if _, err := version.Parse(newValue); err != nil {
		return wpkgerr.Wrap(wpkgerr.InvalidVersion, fmt.Sprintf("field %q", f.Name), err)
	}
	return nil
}

var verifyVersion = verifyVersionField

func verifyArchitecture(f *field.Field, newValue string) error {
	if newValue == "any" || newValue == "all" || newValue == "source" {
		return nil
	}
	parts := strings.SplitN(newValue, "-", 2)
	if len(parts) != 2 || !architectureOSes[parts[0]] || !architectureCPUs[parts[1]] {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("unrecognized architecture %q", newValue))
	}
	return nil
}

func verifyClosedSet(fieldName string, set map[string]bool) field.Verify {
	return func(f *field.Field, newValue string) error {
		if !set[strings.ToLower(strings.TrimSpace(newValue))] {
			return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("%s: unrecognized value %q", fieldName, newValue))
		}
		return nil
	}
}

func verifySection(f *field.Field, newValue string) error {
	name := newValue
	if idx := strings.IndexByte(newValue, '/'); idx >= 0 {
		name = newValue[idx+1:]
	}
	// Trailing sub-section ("libs/extra-stuff") is discarded for matching.
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		name = name[:idx]
	}
	if !sections[strings.ToLower(name)] {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("Section: unrecognized section %q", newValue))
	}
	return nil
}

func verifyUrgency(f *field.Field, newValue string) error {
	level := strings.Fields(newValue)
	if len(level) == 0 {
		return wpkgerr.New(wpkgerr.InvalidField, "Urgency: empty value")
	}
	if !urgencyLevels[strings.ToLower(level[0])] {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("Urgency: unrecognized level %q", level[0]))
	}
	return nil
}

func verifyEmailList(f *field.Field, newValue string) error {
	_, err := ParseEmailList(newValue)
	return err
}

func verifyRFC822Date(f *field.Field, newValue string) error {
	_, err := ParseRFC822Date(newValue)
	return err
}

func verifyURI(f *field.Field, newValue string) error {
	return ValidateURI(newValue)
}

func verifyStandardsVersion(f *field.Field, newValue string) error {
	return ValidateStandardsVersion(newValue)
}

func verifyDependencyExpression(f *field.Field, newValue string) error {
	_, err := dependency.Parse(newValue)
	return err
}

func verifyFileList(f *field.Field, newValue string) error {
	_, err := ParseFileList(f.Name, AutoDetect, newValue)
	return err
}
