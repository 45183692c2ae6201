package control

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// ParseEmailList parses an RFC822-style comma-separated address list, as
// used by Maintainer, Uploaders, and Changed-By.
func ParseEmailList(raw string) ([]*mail.Address, error) {
	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("malformed email list %q", raw), err)
	}
	return addrs, nil
}

// ParseRFC822Date parses Date/Changes-Date fields.
func ParseRFC822Date(raw string) (time.Time, error) {
	t, err := mail.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("malformed date %q", raw), err)
	}
	return t, nil
}

// ValidateURI checks Homepage/Bugs/Vcs-Browser fields.
func ValidateURI(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("malformed URI %q", raw))
	}
	return nil
}

var standardsVersionRe = regexp.MustCompile(`^\d+\.\d+(\.\d+(\.\d+)?)?$`)

// ValidateStandardsVersion checks the Standards-Version field
// (major.minor[.patch[.minor-patch]]).
func ValidateStandardsVersion(raw string) error {
	if !standardsVersionRe.MatchString(strings.TrimSpace(raw)) {
		return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("malformed Standards-Version %q", raw))
	}
	return nil
}

// FileListFormat identifies a file-list field's per-line column layout.
type FileListFormat int

const (
	// AutoDetect lets ParseFileList choose a format from the field name
	// and the first data line's column count.
	AutoDetect FileListFormat = iota
	FormatList
	FormatModeList
	FormatConfFiles
	FormatHashSum
	FormatLongList
	FormatMetadata
)

var fileListFormatNames = map[string]FileListFormat{
	"list":      FormatList,
	"modelist":  FormatModeList,
	"conffiles": FormatConfFiles,
	"md5sum":    FormatHashSum,
	"sha1":      FormatHashSum,
	"sha256":    FormatHashSum,
	"longlist":  FormatLongList,
	"metadata":  FormatMetadata,
}

// FileEntry is one row of a parsed file-list field.
type FileEntry struct {
	Name  string
	Mode  os.FileMode
	User  string
	UID   int
	Group string
	GID   int
	Size  int64
	Major int
	Minor int
	MTime time.Time
	Hash  string
}

// ParseFileList parses a Files/ConfFiles/Checksums-* field value.
// format == AutoDetect derives the layout from fieldName and the column
// count of the first data line, unless the first line is itself a bare
// format-name token, which always wins.
func ParseFileList(fieldName string, format FileListFormat, raw string) ([]FileEntry, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	if f, ok := fileListFormatNames[strings.ToLower(lines[0])]; ok && len(strings.Fields(lines[0])) == 1 {
		format = f
		lines = lines[1:]
	}

	if format == AutoDetect {
		format = detectFileListFormat(fieldName, lines[0])
	}

	entries := make([]FileEntry, 0, len(lines))
	for _, line := range lines {
		cols := strings.Fields(line)
		entry, err := parseFileListLine(format, cols)
		if err != nil {
			return nil, wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("%s: %q", fieldName, line), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func detectFileListFormat(fieldName, firstLine string) FileListFormat {
	switch strings.ToLower(fieldName) {
	case strings.ToLower(ConfFiles):
		return FormatConfFiles
	case strings.ToLower(ChecksumsSha1), strings.ToLower(ChecksumsSha256):
		return FormatHashSum
	}
	switch len(strings.Fields(firstLine)) {
	case 1:
		return FormatList
	case 2:
		return FormatModeList
	case 3:
		return FormatHashSum
	case 4:
		return FormatLongList
	default:
		return FormatMetadata
	}
}

func parseFileListLine(format FileListFormat, cols []string) (FileEntry, error) {
	var e FileEntry
	switch format {
	case FormatList:
		if len(cols) != 1 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 1 column (name)")
		}
		e.Name = cols[0]
	case FormatModeList:
		if len(cols) != 2 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 2 columns (mode name)")
		}
		mode, err := parseMode(cols[0])
		if err != nil {
			return e, err
		}
		e.Mode = mode
		e.Name = cols[1]
	case FormatConfFiles:
		if len(cols) != 2 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 2 columns (name md5)")
		}
		e.Name = cols[0]
		e.Hash = cols[1]
	case FormatHashSum:
		if len(cols) != 3 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 3 columns (hash size name)")
		}
		size, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return e, wpkgerr.Wrap(wpkgerr.InvalidField, "malformed size", err)
		}
		e.Hash = cols[0]
		e.Size = size
		e.Name = cols[2]
	case FormatLongList:
		if len(cols) != 4 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 4 columns (mode size md5 name)")
		}
		mode, err := parseMode(cols[0])
		if err != nil {
			return e, err
		}
		size, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return e, wpkgerr.Wrap(wpkgerr.InvalidField, "malformed size", err)
		}
		e.Mode = mode
		e.Size = size
		e.Hash = cols[2]
		e.Name = cols[3]
	case FormatMetadata:
		if len(cols) != 6 {
			return e, wpkgerr.New(wpkgerr.InvalidField, "expected 6 columns (mode user/uid group/gid size|major,minor mtime name)")
		}
		mode, err := parseMode(cols[0])
		if err != nil {
			return e, err
		}
		user, uid, err := splitNameID(cols[1])
		if err != nil {
			return e, err
		}
		group, gid, err := splitNameID(cols[2])
		if err != nil {
			return e, err
		}
		if major, minor, ok := splitDeviceNumbers(cols[3]); ok {
			e.Major, e.Minor = major, minor
		} else {
			size, err := strconv.ParseInt(cols[3], 10, 64)
			if err != nil {
				return e, wpkgerr.Wrap(wpkgerr.InvalidField, "malformed size/device-numbers", err)
			}
			e.Size = size
		}
		mtimeSec, err := strconv.ParseInt(cols[4], 10, 64)
		if err != nil {
			return e, wpkgerr.Wrap(wpkgerr.InvalidField, "malformed mtime", err)
		}
		e.Mode = mode
		e.User, e.UID = user, uid
		e.Group, e.GID = group, gid
		e.MTime = time.Unix(mtimeSec, 0)
		e.Name = cols[5]
	default:
		return e, wpkgerr.New(wpkgerr.InvalidField, "unknown file-list format")
	}
	return e, nil
}

func parseMode(raw string) (os.FileMode, error) {
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("malformed mode %q", raw), err)
	}
	return os.FileMode(v), nil
}

// splitNameID splits a "name/id" token (e.g. "root/0") as used by the
// metadata file-list format.
func splitNameID(raw string) (string, int, error) {
	idx := strings.IndexByte(raw, '/')
	if idx < 0 {
		return raw, 0, nil
	}
	id, err := strconv.Atoi(raw[idx+1:])
	if err != nil {
		return "", 0, wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("malformed id in %q", raw), err)
	}
	return raw[:idx], id, nil
}

func splitDeviceNumbers(raw string) (major, minor int, ok bool) {
	idx := strings.IndexByte(raw, ',')
	if idx < 0 {
		return 0, 0, false
	}
	ma, err1 := strconv.Atoi(raw[:idx])
	mi, err2 := strconv.Atoi(raw[idx+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return ma, mi, true
}
