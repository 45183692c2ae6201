package manager

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m2osw/wpkg-go/control"
	"github.com/m2osw/wpkg-go/dependency"
	"github.com/m2osw/wpkg-go/field"
	"github.com/m2osw/wpkg-go/filename"
	"github.com/m2osw/wpkg-go/output"
	"github.com/m2osw/wpkg-go/pkgobj"
	"github.com/m2osw/wpkg-go/version"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// Unpack validates p's Depends, Conflicts and Breaks against the
// installed set, copies its payload files under InstPath, and runs
// preinst/the extraction step, leaving the package Unpacked. Pre-Depends
// is not checked here: Unpack calls resolveDependencies with
// checkPreDepends false (spec.md §4.8).
func (m *Manager) Unpack(ctx context.Context, p *pkgobj.Package) error {
	name, err := p.Control.Get(control.Package)
	if err != nil {
		return err
	}

	output.Logf(output.Info, output.ModuleValidateInstallation, name, "validate", "validating dependencies for %1", name)
	if err := m.resolveDependencies(p, false); err != nil {
		return err
	}

	if err := m.writeStatus(name, HalfInstalled); err != nil {
		return err
	}

	output.Logf(output.Info, output.ModuleUnpackPackage, name, "unpack", "running preinst for %1", name)
	preinst, _ := p.ReadControlFile("preinst")
	if err := m.runner.Run(ctx, name, "preinst", preinst, "install"); err != nil {
		return err
	}

	oldMd5, err := m.readMd5sums(name)
	if err != nil {
		return err
	}

	if err := m.extractPayload(name, p, oldMd5); err != nil {
		return err
	}

	if err := m.writeAdmindir(name, p); err != nil {
		return err
	}

	output.Logf(output.Info, output.ModuleUnpackPackage, name, "unpack", "%1 unpacked", name)
	return m.writeStatus(name, Unpacked)
}

// Configure runs postinst "configure" for an Unpacked package, leaving
// it Installed on success. A script failure leaves the package
// HalfConfigured, matching dpkg's own partial-failure state.
func (m *Manager) Configure(ctx context.Context, name string) error {
	st, err := m.PackageStatus(name)
	if err != nil {
		return err
	}
	if st != Unpacked && st != HalfConfigured {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("%s is %s, not unpacked", name, st))
	}

	postinst, err := m.GetControlFile(name, "postinst", false)
	body := ""
	if err == nil {
		body = string(postinst.Bytes())
	}

	output.Logf(output.Info, output.ModuleConfigurePackage, name, "configure", "running postinst configure for %1", name)
	if err := m.runner.Run(ctx, name, "postinst", body, "configure"); err != nil {
		m.writeStatus(name, HalfConfigured)
		return err
	}

	return m.writeStatus(name, Installed)
}

// Remove runs prerm "remove", deletes every non-conffile payload file,
// then runs postrm "remove", leaving the package in the ConfigFiles
// state with its conffiles still present on disk.
func (m *Manager) Remove(ctx context.Context, name string) error {
	st, err := m.PackageStatus(name)
	if err != nil {
		return err
	}
	if st != Installed && st != HalfConfigured {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("%s is %s, not installed", name, st))
	}

	output.Logf(output.Info, output.ModuleValidateRemoval, name, "remove", "validating removal of %1", name)
	if err := m.writeStatus(name, Removing); err != nil {
		return err
	}
	output.Logf(output.Info, output.ModuleDeconfigurePackage, name, "remove", "deconfiguring %1", name)

	prerm, _ := m.GetControlFile(name, "prerm", false)
	prermBody := ""
	if prerm != nil {
		prermBody = string(prerm.Bytes())
	}
	output.Logf(output.Info, output.ModuleRemovePackage, name, "remove", "running prerm remove for %1", name)
	if err := m.runner.Run(ctx, name, "prerm", prermBody, "remove"); err != nil {
		return err
	}

	if err := m.deleteNonConffiles(name); err != nil {
		return err
	}

	postrm, _ := m.GetControlFile(name, "postrm", false)
	postrmBody := ""
	if postrm != nil {
		postrmBody = string(postrm.Bytes())
	}
	output.Logf(output.Info, output.ModuleRemovePackage, name, "remove", "running postrm remove for %1", name)
	if err := m.runner.Run(ctx, name, "postrm", postrmBody, "remove"); err != nil {
		return err
	}

	return m.writeStatus(name, ConfigFiles)
}

// Purge deletes a package's remaining conffiles and its admindir entry,
// returning it to NotInstalled.
func (m *Manager) Purge(ctx context.Context, name string) error {
	st, err := m.PackageStatus(name)
	if err != nil {
		return err
	}
	if st != ConfigFiles && st != NotInstalled {
		return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("%s is %s, not in config-files state", name, st))
	}

	if err := m.writeStatus(name, Purging); err != nil {
		return err
	}

	for _, path := range m.conffilePaths(name) {
		target, err := m.targetFilename(path)
		if err == nil {
			target.UnlinkRF()
		}
	}

	dir, err := m.packageDir(name)
	if err != nil {
		return err
	}
	if err := dir.UnlinkRF(); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "removing admindir entry", err)
	}
	return nil
}

// resolveDependencies checks p's Depends (and, when checkPreDepends,
// Pre-Depends) against the installed set, and rejects unpack if any
// installed package Conflicts or Breaks with p. Pre-Depends alternatives
// must resolve to a package that is Installed, not merely Unpacked.
func (m *Manager) resolveDependencies(p *pkgobj.Package, checkPreDepends bool) error {
	installed, err := m.installedCandidates()
	if err != nil {
		return err
	}

	fields := []string{control.Depends}
	if checkPreDepends {
		fields = append(fields, control.PreDepends)
	}

	for _, fname := range fields {
		raw, _ := p.Control.Get(fname)
		if raw == "" {
			continue
		}
		expr, err := dependency.Parse(raw)
		if err != nil {
			return err
		}
		cands := installed
		if fname == control.PreDepends {
			cands = nil
			for _, c := range installed {
				if st, err := m.PackageStatus(c.Name); err == nil && st == Installed {
					cands = append(cands, c)
				}
			}
		}
		for _, clause := range expr.Clauses {
			_, _, ok := clause.SatisfyAmong(cands)
			if !ok {
				return wpkgerr.New(wpkgerr.Undefined, fmt.Sprintf("unsatisfied dependency %q", clause.String()))
			}
		}
	}

	name, _ := p.Control.Get(control.Package)
	for _, conflictField := range []string{control.Conflicts, control.Breaks} {
		raw, _ := p.Control.Get(conflictField)
		if raw == "" {
			continue
		}
		expr, err := dependency.Parse(raw)
		if err != nil {
			return err
		}
		for _, clause := range expr.Clauses {
			if _, cand, ok := clause.SatisfyAmong(installed); ok && cand.Name != name {
				return wpkgerr.New(wpkgerr.InvalidParameter, fmt.Sprintf("%s conflicts with installed package %s", name, cand.Name))
			}
		}
	}
	return nil
}

// installedCandidates builds the dependency.Candidate set for every
// package currently Installed, Unpacked or HalfConfigured;
// resolveDependencies narrows it to Installed packages for Pre-Depends
// (spec.md §4.8).
func (m *Manager) installedCandidates() ([]dependency.Candidate, error) {
	names, err := m.ListInstalledPackages()
	if err != nil {
		return nil, err
	}
	var out []dependency.Candidate
	for _, name := range names {
		st, err := m.PackageStatus(name)
		if err != nil || (st != Installed && st != Unpacked && st != HalfConfigured) {
			continue
		}
		cf, err := m.readControlFile(name)
		if err != nil {
			continue
		}
		verRaw, _ := cf.Get(control.Version)
		arch, _ := cf.Get(control.Architecture)
		var provides []string
		if raw, _ := cf.Get(control.Provides); raw != "" {
			if expr, err := dependency.Parse(raw); err == nil {
				for _, clause := range expr.Clauses {
					for _, atom := range clause.Alternatives {
						provides = append(provides, atom.Name)
					}
				}
			}
		}
		ver, _ := version.Parse(verRaw)
		out = append(out, dependency.Candidate{Name: name, Version: ver, Architecture: arch, Provides: provides})
	}
	return out, nil
}

// extractPayload writes p's payload files under InstPath. oldMd5, the
// previously-installed package's recorded md5sums (nil/empty on a fresh
// install), drives the conffile policy: a conffile whose on-disk content
// still hashes to the old recorded md5 is untouched since the last
// install and is replaced outright; one that has been modified is kept,
// with the new version written alongside as "<path>.wpkg-new" (§4.8).
func (m *Manager) extractPayload(name string, p *pkgobj.Package, oldMd5 map[string]string) error {
	scope := m.progress.Push("extracting "+name, uint64(len(p.Files)))
	defer scope.Pop()

	for i, pf := range p.Files {
		scope.Update(uint64(i))
		target, err := m.targetFilename(pf.Path)
		if err != nil {
			return err
		}
		os.MkdirAll(target.Dirname(true), 0755)

		if p.IsConffile(pf.Path) && m.conffileIsModified(target.FullPath(true), pf.Path, oldMd5) {
			newPath := target.FullPath(true) + ".wpkg-new"
			if err := os.WriteFile(newPath, pf.Body, os.FileMode(pf.Mode)); err != nil {
				return wpkgerr.Wrap(wpkgerr.IoError, "writing conffile replacement", err)
			}
			continue
		}
		if err := os.WriteFile(target.FullPath(true), pf.Body, os.FileMode(pf.Mode)); err != nil {
			return wpkgerr.Wrap(wpkgerr.IoError, "writing payload file", err)
		}
	}
	return nil
}

// conffileIsModified reports whether an existing on-disk conffile must
// be preserved rather than overwritten: it exists, and either there is
// no record of what the old package shipped there (a fresh install
// colliding with a pre-existing file) or its content no longer matches
// the old package's recorded md5sum.
func (m *Manager) conffileIsModified(targetPath, pkgPath string, oldMd5 map[string]string) bool {
	data, err := os.ReadFile(targetPath)
	if err != nil {
		return false
	}
	recorded, hadOld := oldMd5[pkgPath]
	if !hadOld {
		return true
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]) != recorded
}

// readMd5sums parses an already-installed package's recorded md5sums
// file into a path->hash map, keyed by the absolute payload path. A
// package with no admindir entry yet (fresh install) yields an empty
// map and no error.
func (m *Manager) readMd5sums(name string) (map[string]string, error) {
	dir, err := m.packageDir(name)
	if err != nil {
		return nil, err
	}
	child, err := dir.AppendChild("md5sums")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(child.FullPath(true))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "reading md5sums", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, wpkgerr.Wrap(wpkgerr.IoError, "reading md5sums", err)
	}
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out["/"+fields[1]] = fields[0]
	}
	return out, nil
}

// targetFilename resolves a payload path (absolute, "/"-rooted) against
// InstPath.
func (m *Manager) targetFilename(path string) (filename.Filename, error) {
	base, err := filename.Parse(m.instPath)
	if err != nil {
		return filename.Filename{}, err
	}
	return base.AppendPath(path)
}

// writeAdmindir records control, md5sums, scripts, and conffiles for a
// freshly-unpacked package under the database path.
func (m *Manager) writeAdmindir(name string, p *pkgobj.Package) error {
	dir, err := m.packageDir(name)
	if err != nil {
		return err
	}
	if err := dir.MkdirP(0755); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "creating package directory", err)
	}

	var controlBuf strings.Builder
	if err := p.Control.Write(&controlBuf, field.WriteFieldsOnly); err != nil {
		return err
	}
	if err := writeChild(dir, "control", controlBuf.String()); err != nil {
		return err
	}

	var md5Buf strings.Builder
	for _, pf := range p.Files {
		fmt.Fprintf(&md5Buf, "%s  %s\n", pf.MD5, strings.TrimPrefix(pf.Path, "/"))
	}
	if err := writeChild(dir, "md5sums", md5Buf.String()); err != nil {
		return err
	}

	scripts := map[string]string{
		"preinst":  p.Scripts.PreInst,
		"postinst": p.Scripts.PostInst,
		"prerm":    p.Scripts.PreRm,
		"postrm":   p.Scripts.PostRm,
	}
	for member, body := range scripts {
		if body == "" {
			continue
		}
		if err := writeChild(dir, member, body); err != nil {
			return err
		}
	}

	if conf := p.Conffiles(); len(conf) > 0 {
		if err := writeChild(dir, "conffiles", strings.Join(conf, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeChild(dir filename.Filename, name, content string) error {
	child, err := dir.AppendChild(name)
	if err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if name == "preinst" || name == "postinst" || name == "prerm" || name == "postrm" {
		mode = 0755
	}
	if err := os.WriteFile(child.FullPath(true), []byte(content), mode); err != nil {
		return wpkgerr.Wrap(wpkgerr.IoError, "writing "+name, err)
	}
	return nil
}

// deleteNonConffiles removes every installed payload file for name
// except its conffiles, which survive into the ConfigFiles state.
func (m *Manager) deleteNonConffiles(name string) error {
	md5sums, err := m.readMd5sums(name)
	if err != nil {
		return err
	}
	conf := make(map[string]bool)
	for _, p := range m.conffilePaths(name) {
		conf[p] = true
	}
	for path := range md5sums {
		if conf[path] {
			continue
		}
		target, err := m.targetFilename(path)
		if err != nil {
			continue
		}
		target.Unlink()
	}
	return nil
}

// conffilePaths returns the installed conffile paths recorded for name.
func (m *Manager) conffilePaths(name string) []string {
	dir, err := m.packageDir(name)
	if err != nil {
		return nil
	}
	child, err := dir.AppendChild("conffiles")
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(child.FullPath(true))
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
