package field

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteMode selects which of a field file's contents Write emits.
type WriteMode int

const (
	// WriteFieldsOnly emits fields but no variables.
	WriteFieldsOnly WriteMode = iota
	// WriteWithVariables emits variables (name = value) before the fields.
	WriteWithVariables
	// WriteRaw is like WriteFieldsOnly but resolves ${}/$() substitutions
	// before emission instead of writing the raw unsubstituted value.
	WriteRaw
)

// PriorityOrder lists field names (case-insensitive) that, when present,
// are emitted first and in this order; any remaining fields follow in
// read order.
var PriorityOrder = []string{"Package", "Version", "Architecture"}

// Write emits ff in the given mode to w.
func (ff *File) Write(w io.Writer, mode WriteMode) error {
	if mode == WriteWithVariables {
		for _, key := range sortedKeys(ff.variables) {
			if err := writeField(w, key, ff.variables[key], false); err != nil {
				return err
			}
		}
	}

	ordered := ff.orderedFieldNames()
	for _, name := range ordered {
		f := ff.fields[strings.ToLower(name)]
		value := f.Value
		if mode == WriteRaw {
			resolved, err := ff.Get(name)
			if err != nil {
				return err
			}
			value = resolved
		}
		full := f.Name
		if f.SubPackage != "" {
			full = f.Name + "/" + f.SubPackage
		}
		if err := writeField(w, full, value, true); err != nil {
			return err
		}
	}
	return nil
}

// orderedFieldNames places PriorityOrder members first (when present),
// followed by the rest in read order.
func (ff *File) orderedFieldNames() []string {
	seen := make(map[string]bool, len(ff.order))
	var out []string
	for _, name := range PriorityOrder {
		key := strings.ToLower(name)
		if f, ok := ff.fields[key]; ok && !seen[key] {
			out = append(out, f.Name)
			seen[key] = true
		}
	}
	for _, key := range ff.order {
		if seen[key] {
			continue
		}
		out = append(out, ff.fields[key].Name)
		seen[key] = true
	}
	return out
}

// writeField emits "name: value" when isField is true and the variable
// form "name = value" otherwise.
func writeField(w io.Writer, name, value string, isField bool) error {
	sep := " ="
	if isField {
		sep = ":"
	}
	lines := strings.Split(value, "\n")
	first := lines[0]
	if first == "" && len(lines) == 1 {
		_, err := fmt.Fprintf(w, "%s%s\n", name, sep)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s %s\n", name, sep, first); err != nil {
		return err
	}
	for _, line := range lines[1:] {
		if line == "" {
			if _, err := fmt.Fprint(w, " .\n"); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, " %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
