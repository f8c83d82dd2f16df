// lvm CLI - runs, inspects and debugs melf programs
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lvm/manifest"
)

var log = commonlog.GetLogger("lvm.cli")

// Exit statuses
const (
	exitOK    = 0
	exitError = 1
	exitTrap  = 2
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitError)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		os.Exit(handleRunCommand(args))
	case "disasm":
		os.Exit(handleDisasmCommand(args))
	case "debug":
		os.Exit(handleDebugCommand(args))
	case "upgrade":
		os.Exit(handleUpgradeCommand(args))
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(exitError)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: lvm <command> [options] [file.melf]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run      Run a program until it halts, traps or exhausts its budget\n")
	fmt.Fprintf(os.Stderr, "  disasm   Print the header and instruction listing of a program\n")
	fmt.Fprintf(os.Stderr, "  debug    Step through a program interactively\n")
	fmt.Fprintf(os.Stderr, "  upgrade  Rewrite a program in the current melf version\n")
	fmt.Fprintf(os.Stderr, "\nWhen no file is given, [program] path from lvm.toml is used.\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  lvm run prog.melf                 # Run to completion\n")
	fmt.Fprintf(os.Stderr, "  lvm run -limit 1000 -dump prog.melf  # Run 1000 steps, print the stack\n")
	fmt.Fprintf(os.Stderr, "  lvm debug prog.melf               # Start the debugger\n")
	fmt.Fprintf(os.Stderr, "  lvm upgrade old.melf new.melf     # Translate a version 0 program\n")
}

// loadManifest returns the nearest lvm.toml, or the defaults when there is
// none.
func loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	log.Debugf("using manifest in %s", m.Dir)
	return m, nil
}

// programPath returns the file argument or the configured program path.
func programPath(fs *flag.FlagSet, cfg *manifest.Manifest) (string, error) {
	if fs.NArg() > 0 {
		return fs.Arg(0), nil
	}
	if p := cfg.ProgramPath(); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no program given and no [program] path in %s", manifest.FileName)
}

func configureLogging(verbosity int, cfg *manifest.Manifest) {
	commonlog.Configure(verbosity, cfg.LogFile())
}

// splitNames parses a comma-separated native list.
func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitError
}
