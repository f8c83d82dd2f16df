package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chazu/lvm/lib/natives"
	"github.com/chazu/lvm/melf"
	"github.com/chazu/lvm/vm"
)

// runOptions controls a single program run.
type runOptions struct {
	Limit   int64    // step budget, negative for unbounded
	Slice   int64    // steps between cancellation checks
	Trace   bool     // log every instruction
	Natives []string // registration order
	Dump    bool     // dump the stack when the run ends
}

// handleRunCommand processes the `lvm run` subcommand.
// Usage:
//
//	lvm run [-limit N] [-trace] [-natives a,b] [-v N] [-dump] [file.melf]
func handleRunCommand(args []string) int {
	cfg, err := loadManifest()
	if err != nil {
		return fail(err)
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	limit := fs.Int64("limit", cfg.Run.Limit, "Maximum instructions to execute (negative: no limit)")
	trace := fs.Bool("trace", cfg.Run.Trace, "Log every executed instruction (needs -v 2)")
	nativeList := fs.String("natives", strings.Join(cfg.Run.Natives, ","), "Comma-separated natives, in index order")
	verbosity := fs.Int("v", cfg.Log.Verbosity, "Log verbosity (-4 to 2)")
	dump := fs.Bool("dump", false, "Dump the operand stack when the run ends")
	fs.Parse(args)

	configureLogging(*verbosity, cfg)

	path, err := programPath(fs, cfg)
	if err != nil {
		return fail(err)
	}
	p, err := melf.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := runProgram(ctx, p, runOptions{
		Limit:   *limit,
		Slice:   cfg.Run.Slice,
		Trace:   *trace,
		Natives: splitNames(*nativeList),
		Dump:    *dump,
	}, os.Stdout)
	if m != nil {
		log.Infof("stopped at %d (halted: %t)", m.IP(), m.Halted())
	}

	var trapErr *vm.TrapError
	switch {
	case errors.As(err, &trapErr):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitTrap
	case err != nil:
		return fail(err)
	}
	return exitOK
}

// runProgram runs p on a fresh machine and returns the machine once it
// halts, traps, exhausts opts.Limit or ctx is cancelled. A trap is returned
// as a *vm.TrapError.
func runProgram(ctx context.Context, p *vm.Program, opts runOptions, out io.Writer) (*vm.Machine, error) {
	m := vm.NewMachine()
	m.Output = out
	m.Trace = opts.Trace
	if _, err := natives.Register(m, opts.Natives); err != nil {
		return nil, err
	}
	m.Load(p)

	var err error
	if opts.Limit < 0 {
		err = m.RunContext(ctx, opts.Slice)
	} else {
		err = runBudget(ctx, m, opts.Limit, opts.Slice)
	}

	if opts.Dump {
		if dumpErr := m.DumpStack(out); dumpErr != nil && err == nil {
			err = dumpErr
		}
	}
	return m, err
}

// runBudget executes at most limit instructions in chunks of slice,
// checking ctx between chunks.
func runBudget(ctx context.Context, m *vm.Machine, limit, slice int64) error {
	if slice <= 0 {
		return fmt.Errorf("slice must be positive, got %d", slice)
	}
	for limit > 0 && !m.Halted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(slice, limit)
		if err := m.Execute(n); err != nil {
			return err
		}
		limit -= n
	}
	return nil
}
