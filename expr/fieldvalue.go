package expr

import (
	"strconv"
	"strings"

	"github.com/m2osw/wpkg-go/version"
)

// versionCompare evaluates the versioncmp(a,b) built-in using the
// Debian version-comparison algorithm, returning -1, 0, or 1.
func versionCompare(a, b string) int {
	va, errA := version.Parse(a)
	vb, errB := version.Parse(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return version.Cmp(va, vb)
}

// InferFieldValue types a raw control-field string the way getfield()
// does: fields whose name case-insensitively contains "version" are
// always strings; otherwise the raw text is classified as a hex literal
// ("0x..."), an octal literal (leading zero, digits only), a decimal
// integer, a float, or else left as a string.
func InferFieldValue(name, raw string) Value {
	if strings.Contains(strings.ToLower(name), "version") {
		return strVal(raw)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return strVal(raw)
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "-0x") {
		if v, err := strconv.ParseInt(trimmed, 0, 64); err == nil {
			return intVal(v)
		}
	}

	if len(trimmed) > 1 && trimmed[0] == '0' && isAllDigits(trimmed[1:]) {
		if v, err := strconv.ParseInt(trimmed, 8, 64); err == nil {
			return intVal(v)
		}
	}

	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return intVal(v)
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return floatVal(f)
	}

	return strVal(raw)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
