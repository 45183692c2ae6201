package field

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Parse reads one field-file entry (a run of fields/variables up to the
// first blank line or EOF) from r into ff. Grounded on deb/util.go's
// parseControlFile: leading whitespace continues the previous value,
// a lone "." on a continuation line means a blank line, "#" at column 0
// starts a comment, and a blank line terminates the entry.
func Parse(r io.Reader, ff *File) error {
	return parse(r, ff, "<input>")
}

// ParseAll reads every entry in r, stopping only at EOF; blank lines
// inside the stream separate entries but do not terminate parsing
// early the way Parse's single-entry contract does. Most field files
// (control files, status databases) hold exactly one entry per Parse
// call; ParseAll is for files like a multi-stanza Packages index.
func ParseAll(r io.Reader, filename string, newEntry func() *File) ([]*File, error) {
	var out []*File
	br := bufio.NewReader(r)
	for {
		ff := newEntry()
		consumed, err := parseEntry(br, ff, filename)
		if err != nil {
			return out, err
		}
		if consumed == 0 {
			// An entry with no field or variable (a repeated blank line,
			// a comment-only stanza) is skipped unless input is exhausted.
			if _, err := br.Peek(1); err != nil {
				break
			}
			continue
		}
		out = append(out, ff)
	}
	return out, nil
}

func parse(r io.Reader, ff *File, filename string) error {
	br := bufio.NewReader(r)
	_, err := parseEntry(br, ff, filename)
	return err
}

// parseEntry reads up to (and including) the blank line terminating one
// entry, or to EOF. It returns the number of non-comment lines consumed;
// zero means the entry held no field or variable.
func parseEntry(br *bufio.Reader, ff *File, filename string) (int, error) {
	var name, qualifier string
	var value strings.Builder
	var isVariable bool
	haveField := false
	lineNo := 0
	consumed := 0

	flush := func() error {
		if !haveField {
			return nil
		}
		haveField = false
		v := value.String()
		if isVariable {
			key := strings.ToLower(name)
			if _, dup := ff.variables[key]; dup {
				return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("%s:%d: duplicate variable %q", filename, lineNo, name))
			}
			ff.SetVariable(name, v)
			return nil
		}
		full := name
		if qualifier != "" {
			full = name + "/" + qualifier
		}
		if ff.HasField(full) {
			return wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("%s:%d: duplicate field %q", filename, lineNo, full))
		}
		return ff.Set(full, v, filename, lineNo)
	}

	for {
		line, err := br.ReadString('\n')
		atEOF := err == io.EOF
		if err != nil && !atEOF {
			return consumed, wpkgerr.Wrap(wpkgerr.IoError, fmt.Sprintf("%s: read error", filename), err)
		}
		line = strings.TrimRight(line, "\r\n")
		if atEOF && line == "" {
			break
		}
		lineNo++

		if line == "" {
			break
		}
		if line[0] == '#' {
			continue
		}
		consumed++

		if line[0] == ' ' || line[0] == '\t' {
			if !haveField {
				return consumed, wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("%s:%d: continuation line without a preceding field", filename, lineNo))
			}
			cont := strings.TrimLeft(line, " \t")
			if cont == "." {
				cont = ""
			}
			value.WriteByte('\n')
			value.WriteString(cont)
		} else {
			if err := flush(); err != nil {
				return consumed, err
			}

			sep := strings.IndexAny(line, ":=")
			if sep < 0 {
				return consumed, wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("%s:%d: expected ':' or '=' in %q", filename, lineNo, line))
			}
			isVariable = line[sep] == '='
			fullName := strings.TrimSpace(line[:sep])
			name, qualifier = splitQualifier(fullName)
			value.Reset()
			value.WriteString(strings.TrimSpace(line[sep+1:]))
			haveField = true
		}

		if atEOF {
			break
		}
	}

	if err := flush(); err != nil {
		return consumed, err
	}
	return consumed, nil
}
