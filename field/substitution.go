package field

import (
	"fmt"
	"strings"

	"github.com/m2osw/wpkg-go/expr"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Environment fields used by the expression evaluator's built-in
// functions (architecture(), os(), ...). Callers that need
// platform-specific values set these explicitly; an unset field
// evaluates to "".
type Environment struct {
	Architecture string
	OS           string
	Processor    string
	Triplet      string
	Vendor       string
	WpkgVersion  string
}

// SetEnvironment records the values the expression evaluator's
// platform built-ins return.
func (ff *File) SetEnvironment(env Environment) { ff.env = env }

// --- expr.Context ---

// The expr.Context interface requires these exact method names.
func (ff *File) Architecture() string { return ff.env.Architecture }
func (ff *File) OS() string           { return ff.env.OS }
func (ff *File) Processor() string    { return ff.env.Processor }
func (ff *File) Triplet() string      { return ff.env.Triplet }
func (ff *File) Vendor() string       { return ff.env.Vendor }
func (ff *File) WpkgVersion() string  { return ff.env.WpkgVersion }

// GetField implements expr.Context: it returns the field's resolved
// value, typed per spec.md §4.10 (fields whose name contains "version"
// are always strings).
func (ff *File) GetField(name string) (expr.Value, bool) {
	raw, err := ff.Get(name)
	if err != nil {
		return expr.Value{}, false
	}
	return expr.InferFieldValue(name, raw), true
}

// ValidateFields runs an expression against this field file's context
// and reports whether it evaluates to the integer 1 (§4.10).
func (ff *File) ValidateFields(expression string) (bool, error) {
	return expr.ValidateFields(expression, ff)
}

// resolve lazily expands ${var} and $(expr) references in value, using
// key (the lowercase field name, or a "v:"/"i:"-prefixed name for a
// variable/injected value) for cyclic-detection bookkeeping.
func (ff *File) resolve(key, value string) (string, error) {
	if key != "" {
		if ff.resolving[key] {
			return "", wpkgerr.New(wpkgerr.Cyclic, fmt.Sprintf("cyclic reference resolving %q", key))
		}
		ff.resolving[key] = true
		defer delete(ff.resolving, key)
	}

	var b strings.Builder
	i := 0
	for i < len(value) {
		c := value[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(value) || (value[i+1] != '{' && value[i+1] != '(') {
			// '$' not followed by '{' or '(' is literal.
			b.WriteByte('$')
			i++
			continue
		}

		open, close := value[i+1], byte('}')
		if open == '(' {
			close = ')'
		}
		end := matchingClose(value, i+2, open, close)
		if end < 0 {
			return "", wpkgerr.New(wpkgerr.InvalidField, fmt.Sprintf("unterminated %c%c...%c in %q", '$', open, close, value))
		}
		inner := value[i+2 : end]

		var expanded string
		var err error
		if open == '{' {
			expanded, err = ff.expandVariable(inner)
		} else {
			if strings.TrimSpace(inner) == "" {
				return "", wpkgerr.New(wpkgerr.InvalidField, "empty $(...) expression")
			}
			expanded, err = ff.expandExpression(inner)
		}
		if err != nil {
			return "", err
		}
		b.WriteString(expanded)
		i = end + 1
	}
	return b.String(), nil
}

// matchingClose finds the index of the close byte matching the opener
// implicitly already consumed, accounting for nesting of the same
// open/close pair.
func matchingClose(s string, from int, open, close byte) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (ff *File) expandExpression(src string) (string, error) {
	v, err := expr.Eval(src, ff)
	if err != nil {
		return "", wpkgerr.Wrap(wpkgerr.InvalidField, fmt.Sprintf("evaluating $(%s)", src), err)
	}
	switch v.Kind {
	case expr.KindString:
		return v.Str, nil
	default:
		return fmt.Sprint(renderExprValue(v)), nil
	}
}

func renderExprValue(v expr.Value) string {
	if v.Kind == expr.KindFloat {
		return fmt.Sprintf("%g", v.Float)
	}
	return fmt.Sprintf("%d", v.Int)
}

func (ff *File) expandVariable(name string) (string, error) {
	switch name {
	case "Newline":
		return "\n", nil
	case "Space":
		return " ", nil
	case "Tab":
		return "\t", nil
	case "wpkg:Version":
		return ff.env.WpkgVersion, nil
	case "wpkg:Upstream-Version":
		return upstreamPortion(ff.env.WpkgVersion), nil
	}

	if strings.HasPrefix(name, "F:") {
		fieldName := name[2:]
		key := strings.ToLower(fieldName)
		f, ok := ff.fields[key]
		if !ok {
			return "", wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("field %q referenced by ${F:%s} is not defined", fieldName, fieldName))
		}
		return ff.resolve(key, f.Value)
	}
	if strings.HasPrefix(name, "V:") {
		varName := strings.ToLower(name[2:])
		if v, ok := ff.variables[varName]; ok {
			return ff.resolve("v:"+varName, v)
		}
		return "", wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("variable %q referenced by ${V:%s} is not defined", name[2:], name[2:]))
	}

	// Bare ${name}: injected variables first, then (if enabled) plain
	// variables.
	if v, ok := ff.injected[name]; ok {
		return ff.resolve("i:"+name, v)
	}
	if ff.AutoTransformVariables {
		if v, ok := ff.variables[strings.ToLower(name)]; ok {
			return ff.resolve("v:"+strings.ToLower(name), v)
		}
	}
	return "", wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("variable %q is not defined", name))
}

func upstreamPortion(v string) string {
	rest := v
	if idx := strings.IndexAny(rest, ":;"); idx >= 0 {
		rest = rest[idx+1:]
	}
	if idx := strings.LastIndexByte(rest, '-'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}
