// Package manager implements the package database: admindir layout, the
// exclusive transaction lock, the install/configure/remove/purge state
// machine, and dependency resolution against the set of installed
// packages.
//
// No teacher component implements install/remove state transitions (the
// teacher only builds and indexes packages); this is the largest
// addition in this module. Grounded in idiom on deb/repository.go's
// directory-scanning (NewRepositoryFromDir) and file-writing
// (WriteToDir) style for the admindir layout, and on
// manifest/repository.go's Listener/event-emission pattern for
// transaction progress reporting, adapted here into output.Emit calls
// tagged with the output package's Module constants.
package manager
