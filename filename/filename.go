package filename

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Type distinguishes a locally-resolvable filename from a remote one.
type Type int

const (
	TypeUndefined Type = iota
	TypeDirect
	TypeUNC
)

var windowsReservedNames = map[string]bool{
	"CON": true, "AUX": true, "NUL": true, "PRN": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Filename is an immutable, value-like URI filename.
type Filename struct {
	original string
	typ      Type
	scheme   string
	username string
	password string
	domain   string
	port     string
	share    string
	drive    string // MS-DOS drive letter, uppercase, empty if none
	segments []string
	absolute bool
	anchor   string
	query    []queryVar
}

type queryVar struct {
	name  string
	value string
}

// Parse parses s into a Filename. Scheme defaults to "file" when absent.
func Parse(s string) (Filename, error) {
	if s == "" {
		return Filename{}, wpkgerr.New(wpkgerr.InvalidParameter, "empty filename")
	}

	f := Filename{original: s, typ: TypeDirect, scheme: "file"}

	rest := s
	if idx := strings.Index(rest, "://"); idx >= 0 {
		scheme := strings.ToLower(rest[:idx])
		switch scheme {
		case "file", "http", "https", "smb", "smbs":
			f.scheme = scheme
		default:
			return Filename{}, wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("unrecognized scheme %q", scheme))
		}
		rest = rest[idx+3:]
		if f.scheme != "file" {
			f.typ = TypeUNC
		}

		if authEnd := strings.IndexByte(rest, '/'); authEnd >= 0 {
			auth := rest[:authEnd]
			rest = rest[authEnd:]
			if err := f.parseAuthority(auth); err != nil {
				return Filename{}, err
			}
		} else if rest != "" {
			if err := f.parseAuthority(rest); err != nil {
				return Filename{}, err
			}
			rest = ""
		}
	}

	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		f.anchor = rest[idx+1:]
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		if err := f.parseQuery(rest[idx+1:]); err != nil {
			return Filename{}, err
		}
		rest = rest[:idx]
	}

	rest = expandHome(rest)

	if err := f.parsePath(rest); err != nil {
		return Filename{}, err
	}

	return f, nil
}

func (f *Filename) parseAuthority(auth string) error {
	if auth == "" {
		return nil
	}
	if idx := strings.IndexByte(auth, '@'); idx >= 0 {
		cred := auth[:idx]
		auth = auth[idx+1:]
		if cIdx := strings.IndexByte(cred, ':'); cIdx >= 0 {
			f.username = decode(cred[:cIdx])
			f.password = decode(cred[cIdx+1:])
		} else {
			f.username = decode(cred)
		}
	}
	if idx := strings.IndexByte(auth, ':'); idx >= 0 {
		f.port = auth[idx+1:]
		auth = auth[:idx]
	}
	f.domain = auth
	return nil
}

func (f *Filename) parseQuery(q string) error {
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		name := decode(kv[0])
		value := ""
		if len(kv) == 2 {
			value = decode(kv[1])
		}
		f.query = append(f.query, queryVar{name: name, value: value})
	}
	return nil
}

func decode(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if dec, err := url.QueryUnescape(s); err == nil {
		return dec
	}
	return s
}

func encode(s string) string {
	return url.QueryEscape(s)
}

func (f *Filename) parsePath(p string) error {
	p = strings.ReplaceAll(p, "\\", "/")

	// MS-DOS drive letter: "c|/..." or "c:/...", also after the leading
	// "/" that follows a URI authority ("file://host/c|/...").
	if len(p) >= 3 && p[0] == '/' && isAlpha(p[1]) && (p[2] == '|' || p[2] == ':') && (len(p) == 3 || p[3] == '/') {
		p = p[1:]
	}
	if len(p) >= 2 && isAlpha(p[0]) && (p[1] == '|' || p[1] == ':') && (len(p) == 2 || p[2] == '/') {
		f.drive = strings.ToUpper(p[:1])
		p = p[2:]
	}

	f.absolute = strings.HasPrefix(p, "/")
	p = strings.TrimPrefix(p, "/")

	var segs []string
	for _, raw := range strings.Split(p, "/") {
		if raw == "" {
			continue
		}
		seg := decode(raw)
		if f.typ == TypeDirect {
			if err := validateSegment(seg); err != nil {
				return err
			}
		}
		segs = append(segs, seg)
	}
	f.segments = segs
	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func validateSegment(seg string) error {
	if seg != strings.TrimSpace(seg) {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("segment %q has leading/trailing spaces", seg))
	}
	if strings.ContainsAny(seg, "\"<>|") {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("segment %q contains an illegal character", seg))
	}
	base := seg
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	if windowsReservedNames[strings.ToUpper(base)] {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("segment %q is a reserved name", seg))
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home := os.Getenv("HOME")
	if home == "" || !strings.HasPrefix(home, "/") || strings.HasPrefix(home, "~") {
		return p
	}
	return home + strings.TrimPrefix(p, "~")
}

// IsAbsolute reports whether the segments are rooted.
func (f Filename) IsAbsolute() bool { return f.absolute }

// Scheme returns the filename's scheme.
func (f Filename) Scheme() string { return f.scheme }

// Drive returns the MS-DOS drive letter (uppercase), or "" if none.
func (f Filename) Drive() string { return f.drive }

// Segments returns a copy of the ordered path segments.
func (f Filename) Segments() []string {
	out := make([]string, len(f.segments))
	copy(out, f.segments)
	return out
}

// Anchor returns the URI fragment.
func (f Filename) Anchor() string { return f.anchor }

// Query returns the value of a query variable and whether it was set.
func (f Filename) Query(name string) (string, bool) {
	for _, qv := range f.query {
		if qv.name == name {
			return qv.value, true
		}
	}
	return "", false
}

// Segment returns the i-th segment (0-based); negative indices count
// from the end, matching the teacher's style of small accessor methods.
func (f Filename) Segment(i int) (string, bool) {
	if i < 0 {
		i += len(f.segments)
	}
	if i < 0 || i >= len(f.segments) {
		return "", false
	}
	return f.segments[i], true
}

// Basename returns the last segment, optionally stripping only the
// final extension (lastExtOnly) or every extension.
func (f Filename) Basename(lastExtOnly bool) string {
	if len(f.segments) == 0 {
		return ""
	}
	last := f.segments[len(f.segments)-1]
	if lastExtOnly {
		if idx := strings.LastIndexByte(last, '.'); idx > 0 {
			return last[:idx]
		}
		return last
	}
	if idx := strings.IndexByte(last, '.'); idx > 0 {
		return last[:idx]
	}
	return last
}

// Extension returns the final extension of the last segment (without
// the dot), or "" if none.
func (f Filename) Extension() string {
	if len(f.segments) == 0 {
		return ""
	}
	last := f.segments[len(f.segments)-1]
	idx := strings.LastIndexByte(last, '.')
	if idx < 0 || idx == len(last)-1 {
		return ""
	}
	return last[idx+1:]
}

// PreviousExtension returns the extension preceding the final one
// (e.g. "tar" in "c.tar.gz"), or "" if there is none.
func (f Filename) PreviousExtension() string {
	if len(f.segments) == 0 {
		return ""
	}
	last := f.segments[len(f.segments)-1]
	lastDot := strings.LastIndexByte(last, '.')
	if lastDot <= 0 {
		return ""
	}
	rest := last[:lastDot]
	prevDot := strings.LastIndexByte(rest, '.')
	if prevDot < 0 || prevDot == len(rest)-1 {
		return ""
	}
	return rest[prevDot+1:]
}

// Dirname returns the directory portion (all but the last segment).
func (f Filename) Dirname(withDrive bool) string {
	segs := f.segments
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	var b strings.Builder
	if withDrive && f.drive != "" {
		b.WriteString(f.drive)
		b.WriteByte(':')
	}
	if f.absolute {
		b.WriteByte('/')
	}
	b.WriteString(strings.Join(segs, "/"))
	return b.String()
}

// FullPath renders the filename as a local path string. When
// replaceSlashes is true, '/' is rendered as the OS path separator.
func (f Filename) FullPath(replaceSlashes bool) string {
	var b strings.Builder
	if f.drive != "" {
		b.WriteString(f.drive)
		b.WriteByte(':')
	}
	if f.absolute {
		b.WriteByte('/')
	}
	b.WriteString(strings.Join(f.segments, "/"))
	out := b.String()
	if replaceSlashes && os.PathSeparator != '/' {
		out = strings.ReplaceAll(out, "/", string(os.PathSeparator))
	}
	return out
}

// String renders the filename back to a URI string for remote schemes,
// or a local path for "file".
func (f Filename) String() string {
	if f.scheme == "file" && f.typ == TypeDirect {
		return f.FullPath(false)
	}
	var b strings.Builder
	b.WriteString(f.scheme)
	b.WriteString("://")
	if f.username != "" {
		b.WriteString(encode(f.username))
		if f.password != "" {
			b.WriteByte(':')
			b.WriteString(encode(f.password))
		}
		b.WriteByte('@')
	}
	b.WriteString(f.domain)
	if f.port != "" {
		b.WriteByte(':')
		b.WriteString(f.port)
	}
	b.WriteString(f.FullPath(false))
	if len(f.query) > 0 {
		b.WriteByte('?')
		parts := make([]string, len(f.query))
		for i, qv := range f.query {
			parts[i] = encode(qv.name) + "=" + encode(qv.value)
		}
		b.WriteString(strings.Join(parts, "&"))
	}
	if f.anchor != "" {
		b.WriteByte('#')
		b.WriteString(f.anchor)
	}
	return b.String()
}

// AppendChild returns a new Filename with name appended as a single
// segment. name may not itself cross a directory boundary.
func (f Filename) AppendChild(name string) (Filename, error) {
	if strings.ContainsAny(name, "/\\") {
		return Filename{}, wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("child name %q crosses a directory boundary", name))
	}
	if f.typ == TypeDirect {
		if err := validateSegment(name); err != nil {
			return Filename{}, err
		}
	}
	out := f.clone()
	out.segments = append(out.segments, name)
	return out, nil
}

// AppendPath returns a new Filename with p's segments appended,
// normalizing "." and ".." the way a joined path would be.
func (f Filename) AppendPath(p string) (Filename, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	out := f.clone()
	for _, raw := range strings.Split(p, "/") {
		switch raw {
		case "", ".":
			continue
		case "..":
			if len(out.segments) > 0 {
				out.segments = out.segments[:len(out.segments)-1]
			}
		default:
			seg := decode(raw)
			if f.typ == TypeDirect {
				if err := validateSegment(seg); err != nil {
					return Filename{}, err
				}
			}
			out.segments = append(out.segments, seg)
		}
	}
	return out, nil
}

// RemoveCommonSegments returns the segments of f beyond the prefix it
// shares with other, when both name the same scheme/authority/port/
// credentials/share; otherwise f is returned unchanged as an absolute
// path.
func (f Filename) RemoveCommonSegments(other Filename) Filename {
	if f.scheme != other.scheme || f.domain != other.domain || f.port != other.port ||
		f.username != other.username || f.password != other.password || f.share != other.share {
		out := f.clone()
		out.absolute = true
		return out
	}
	i := 0
	for i < len(f.segments) && i < len(other.segments) && f.segments[i] == other.segments[i] {
		i++
	}
	out := f.clone()
	out.segments = append([]string{}, f.segments[i:]...)
	out.absolute = false
	return out
}

func (f Filename) clone() Filename {
	out := f
	out.segments = append([]string{}, f.segments...)
	out.query = append([]queryVar{}, f.query...)
	return out
}

// Glob reports whether name matches the shell-style glob pattern
// (supports ?, *, [a-z], and ? as the escape metacharacter before a
// literal ?, *, or [).
func Glob(pattern, name string) bool {
	return globMatch(pattern, name)
}

func globMatch(pattern, name string) bool {
	pi, ni := 0, 0
	starPi, starNi := -1, -1
	for ni < len(name) {
		if pi < len(pattern) {
			switch pattern[pi] {
			case '?':
				if pi+1 < len(pattern) && isMeta(pattern[pi+1]) {
					// escaped literal metacharacter
					if name[ni] == pattern[pi+1] {
						pi += 2
						ni++
						continue
					}
				} else {
					pi++
					ni++
					continue
				}
			case '*':
				starPi, starNi = pi, ni
				pi++
				continue
			case '[':
				end := strings.IndexByte(pattern[pi:], ']')
				if end > 0 {
					class := pattern[pi+1 : pi+end]
					if matchClass(class, name[ni]) {
						pi += end + 1
						ni++
						continue
					}
				}
			default:
				if pattern[pi] == name[ni] {
					pi++
					ni++
					continue
				}
			}
		}
		if starPi >= 0 {
			starNi++
			ni = starNi
			pi = starPi + 1
			continue
		}
		return false
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

func isMeta(c byte) bool { return c == '?' || c == '*' || c == '[' }

func matchClass(class string, c byte) bool {
	neg := false
	if strings.HasPrefix(class, "!") || strings.HasPrefix(class, "^") {
		neg = true
		class = class[1:]
	}
	matched := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				matched = true
			}
			i += 2
		} else if class[i] == c {
			matched = true
		}
	}
	return matched != neg
}

// SortedSegments is a small helper used by glob-listing callers to
// produce deterministic directory-entry ordering.
func SortedSegments(segs []string) []string {
	out := append([]string{}, segs...)
	sort.Strings(out)
	return out
}
