// Package dependency parses and evaluates Debian-style dependency
// expressions: "name [(op version)] [[!]arch1 arch2 …]", alternatives
// joined by '|', clauses separated by ',' at the top level.
//
// Grounded on deb/package.go's Depends/PreDepends/Conflicts/Breaks/
// Replaces/Provides string-slice fields and deb/util.go's splitList from
// the teacher repository, generalized from "comma-separated raw atom
// strings" into a parsed atom/clause model with version operators and
// architecture filters, evaluated against the version package's
// comparison algorithm.
package dependency
