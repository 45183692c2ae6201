package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m2osw/wpkg-go/pkgobj"
	"github.com/m2osw/wpkg-go/wpkgerr"
)

// fakeRunner records every script invocation instead of executing
// anything, so transition tests don't depend on a shell being present.
type fakeRunner struct {
	calls []string
	fail  map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, pkgName, script, body string, args ...string) error {
	r.calls = append(r.calls, script)
	if r.fail[script] {
		return errors.New("boom")
	}
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeRunner) {
	t.Helper()
	base := t.TempDir()
	m := New()
	m.SetRootPath(base)
	m.SetInstPath(filepath.Join(base, "inst"))
	m.SetDatabasePath(filepath.Join(base, "db"))
	if err := os.MkdirAll(m.InstPath(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(m.DatabasePath(), 0755); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{fail: make(map[string]bool)}
	m.SetScriptRunner(runner)
	return m, runner
}

func buildTestPackage(t *testing.T, name, version string) *pkgobj.Package {
	t.Helper()
	p := pkgobj.NewPackage()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(p.Control.Set("Package", name, "", 1))
	must(p.Control.Set("Version", version, "", 2))
	must(p.Control.Set("Architecture", "any", "", 3))
	must(p.Control.Set("Maintainer", "Jane Doe <jane@example.com>", "", 4))
	must(p.Control.Set("Description", "a test package\n long description", "", 5))
	p.Files = append(p.Files, pkgobj.PayloadFile{Path: "/usr/bin/" + name, Mode: 0755, Body: []byte("#!/bin/sh\n")})
	p.Files = append(p.Files, pkgobj.PayloadFile{Path: "/etc/" + name + ".conf", Mode: 0644, Body: []byte("key=value\n")})
	p.Scripts.PostInst = "#!/bin/sh\nexit 0\n"
	return p
}

func TestLockAndUnlock(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Lock("install"); err != nil {
		t.Fatal(err)
	}

	err := m.Lock("remove")
	if err == nil {
		t.Fatal("expected second lock to fail")
	}
	var werr *wpkgerr.Error
	if !errors.As(err, &werr) || werr.Kind != wpkgerr.Locked {
		t.Fatalf("expected a Locked error, got %v", err)
	}

	if err := m.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := m.Lock("remove"); err != nil {
		t.Fatalf("expected lock to succeed after unlock: %v", err)
	}
}

func TestUnlockWithoutLockIsNoop(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Unlock(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	m, runner := newTestManager(t)
	ctx := context.Background()

	p := buildTestPackage(t, "libfoo", "1.0-1")

	if err := m.Unpack(ctx, p); err != nil {
		t.Fatal(err)
	}
	st, err := m.PackageStatus("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if st != Unpacked {
		t.Fatalf("expected Unpacked, got %s", st)
	}

	if err := m.Configure(ctx, "libfoo"); err != nil {
		t.Fatal(err)
	}
	st, err = m.PackageStatus("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if st != Installed {
		t.Fatalf("expected Installed, got %s", st)
	}

	if !m.IsConffile("libfoo", "/etc/libfoo.conf") {
		t.Error("expected /etc/libfoo.conf to be recorded as a conffile")
	}

	short, _, err := m.GetDescription("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	_ = short // only checks that Description can be read back.

	if err := m.Remove(ctx, "libfoo"); err != nil {
		t.Fatal(err)
	}
	st, err = m.PackageStatus("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if st != ConfigFiles {
		t.Fatalf("expected ConfigFiles, got %s", st)
	}

	if _, err := os.Stat(filepath.Join(m.InstPath(), "usr", "bin", "libfoo")); !os.IsNotExist(err) {
		t.Error("expected non-conffile payload to be removed")
	}
	if _, err := os.Stat(filepath.Join(m.InstPath(), "etc", "libfoo.conf")); err != nil {
		t.Error("expected conffile to survive into config-files state")
	}

	if err := m.Purge(ctx, "libfoo"); err != nil {
		t.Fatal(err)
	}
	st, err = m.PackageStatus("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if st != NotInstalled {
		t.Fatalf("expected NotInstalled, got %s", st)
	}
	if _, err := os.Stat(filepath.Join(m.InstPath(), "etc", "libfoo.conf")); !os.IsNotExist(err) {
		t.Error("expected conffile to be removed by purge")
	}

	wantScripts := []string{"preinst", "postinst", "prerm", "postrm"}
	for _, want := range wantScripts {
		found := false
		for _, got := range runner.calls {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s to have run, calls were %v", want, runner.calls)
		}
	}
}

func TestUnpackFailsOnUnsatisfiedDependency(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	p := buildTestPackage(t, "needsbar", "1.0-1")
	if err := p.Control.Set("Depends", "libbar (>= 2.0)", "", 5); err != nil {
		t.Fatal(err)
	}

	err := m.Unpack(ctx, p)
	if err == nil {
		t.Fatal("expected unpack to fail on unsatisfied dependency")
	}
	var werr *wpkgerr.Error
	if !errors.As(err, &werr) || werr.Kind != wpkgerr.Undefined {
		t.Fatalf("expected an Undefined error, got %v", err)
	}
}

func TestUnpackSucceedsWhenDependencyInstalled(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	bar := buildTestPackage(t, "libbar", "2.0-1")
	if err := m.Unpack(ctx, bar); err != nil {
		t.Fatal(err)
	}
	if err := m.Configure(ctx, "libbar"); err != nil {
		t.Fatal(err)
	}

	foo := buildTestPackage(t, "needsbar", "1.0-1")
	if err := foo.Control.Set("Depends", "libbar (>= 2.0)", "", 5); err != nil {
		t.Fatal(err)
	}
	if err := m.Unpack(ctx, foo); err != nil {
		t.Fatalf("expected unpack to succeed once libbar is installed: %v", err)
	}
}

func TestConfigureFailureLeavesHalfConfigured(t *testing.T) {
	m, runner := newTestManager(t)
	ctx := context.Background()
	runner.fail["postinst"] = true

	p := buildTestPackage(t, "libfoo", "1.0-1")
	if err := m.Unpack(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := m.Configure(ctx, "libfoo"); err == nil {
		t.Fatal("expected configure to fail")
	}
	st, err := m.PackageStatus("libfoo")
	if err != nil {
		t.Fatal(err)
	}
	if st != HalfConfigured {
		t.Fatalf("expected HalfConfigured, got %s", st)
	}
}

func TestListInstalledPackages(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		p := buildTestPackage(t, name, "1.0-1")
		if err := m.Unpack(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	names, err := m.ListInstalledPackages()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected sorted [alpha zeta], got %v", names)
	}
}
