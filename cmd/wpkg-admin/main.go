// Command wpkg-admin is a thin CLI over the manager package's §6.4
// surface: load, unpack, configure, remove, and purge already-
// materialized .deb files against a local admindir, and query their
// recorded state and control fields.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/m2osw/wpkg-go/manager"
)

func main() {
	config := flag.String("config", "", "YAML config file seeding root/inst/database paths")
	root := flag.String("root-path", "", "target root filesystem (overrides -config)")
	inst := flag.String("inst-path", "", "installation target directory (overrides -config)")
	db := flag.String("database-path", "", "admindir path (overrides -config)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	m := manager.New()
	m.SetRootPath("/")
	m.SetInstPath("/")
	m.SetDatabasePath("/var/lib/wpkg")

	if *config != "" {
		cfg, err := manager.LoadConfig(*config)
		if err != nil {
			fmt.Fprintln(os.Stderr, "wpkg-admin:", err)
			os.Exit(1)
		}
		m.ApplyConfig(cfg)
	}

	if *root != "" {
		m.SetRootPath(*root)
	}
	if *inst != "" {
		m.SetInstPath(*inst)
	}
	if *db != "" {
		m.SetDatabasePath(*db)
	}

	var err error
	switch command {
	case "list":
		err = cmdList(m)
	case "status":
		err = cmdStatus(m, rest)
	case "unpack":
		err = cmdUnpack(m, rest)
	case "configure":
		err = cmdConfigure(m, rest)
	case "remove":
		err = cmdRemove(m, rest)
	case "purge":
		err = cmdPurge(m, rest)
	case "field":
		err = cmdField(m, rest)
	case "description":
		err = cmdDescription(m, rest)
	case "is-conffile":
		err = cmdIsConffile(m, rest)
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "wpkg-admin: unknown command %q\n", command)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "wpkg-admin:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: wpkg-admin [-config FILE] [-root-path P] [-inst-path P] [-database-path P] <command> [args]

commands:
  list                       list installed package names
  status <name>              print a package's recorded state
  unpack <deb-file>          validate, copy files, run preinst (-> unpacked)
  configure <name>           run postinst configure (-> installed)
  remove <name>              run prerm/postrm remove (-> config-files)
  purge <name>               delete conffiles and admindir entry
  field <name> <field>       print a resolved control field
  description <name>         print short and long description
  is-conffile <name> <path>  report whether path is a conffile`)
}

func cmdList(m *manager.Manager) error {
	names, err := m.ListInstalledPackages()
	if err != nil {
		return err
	}
	for _, name := range names {
		st, err := m.PackageStatus(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-32s %s\n", name, st)
	}
	return nil
}

func cmdStatus(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("status requires a package name")
	}
	st, err := m.PackageStatus(args[0])
	if err != nil {
		return err
	}
	fmt.Println(st)
	return nil
}

func cmdUnpack(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("unpack requires a .deb path")
	}
	p, err := m.LoadPackage(args[0])
	if err != nil {
		return err
	}
	if err := m.Lock("unpack"); err != nil {
		return err
	}
	defer m.Unlock()
	return m.Unpack(context.Background(), p)
}

func cmdConfigure(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("configure requires a package name")
	}
	if err := m.Lock("configure"); err != nil {
		return err
	}
	defer m.Unlock()
	return m.Configure(context.Background(), args[0])
}

func cmdRemove(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove requires a package name")
	}
	if err := m.Lock("remove"); err != nil {
		return err
	}
	defer m.Unlock()
	return m.Remove(context.Background(), args[0])
}

func cmdPurge(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("purge requires a package name")
	}
	if err := m.Lock("purge"); err != nil {
		return err
	}
	defer m.Unlock()
	return m.Purge(context.Background(), args[0])
}

func cmdField(m *manager.Manager, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("field requires a package name and a field name")
	}
	value, err := m.GetField(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func cmdDescription(m *manager.Manager, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("description requires a package name")
	}
	short, long, err := m.GetDescription(args[0])
	if err != nil {
		return err
	}
	fmt.Println(short)
	if long != "" {
		fmt.Println(long)
	}
	return nil
}

func cmdIsConffile(m *manager.Manager, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("is-conffile requires a package name and a path")
	}
	if m.IsConffile(args[0], args[1]) {
		fmt.Println("yes")
	} else {
		fmt.Println("no")
	}
	return nil
}
