package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/lvm/lib/natives"
	"github.com/chazu/lvm/melf"
	"github.com/chazu/lvm/vm"
)

var debugCommands = []string{
	"break", "clear", "dis", "help", "ip", "jump", "mem", "quit",
	"reset", "restore", "run", "save", "stack", "step", "word",
}

// handleDebugCommand processes the `lvm debug` subcommand.
func handleDebugCommand(args []string) int {
	cfg, err := loadManifest()
	if err != nil {
		return fail(err)
	}

	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	nativeList := fs.String("natives", strings.Join(cfg.Run.Natives, ","), "Comma-separated natives, in index order")
	verbosity := fs.Int("v", cfg.Log.Verbosity, "Log verbosity (-4 to 2)")
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

	s, err := newDebugSession(p, splitNames(*nativeList), os.Stdout)
	if err != nil {
		return fail(err)
	}
	s.limit = cfg.Run.Limit

	fmt.Printf("lvm debugger: %s (%d instructions). Type 'help' for commands.\n", path, p.Len())
	runDebugREPL(s, cfg.HistoryPath())
	return exitOK
}

func runDebugREPL(s *debugSession, historyPath string) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range debugCommands {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	})

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
	}

	last := ""
	for {
		line, err := ln.Prompt("(lvm) ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			// Empty input repeats the previous command.
			line = last
		} else {
			ln.AppendHistory(line)
		}
		if line == "" {
			continue
		}
		last = line

		if s.execute(line) {
			break
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		} else {
			log.Warningf("cannot write history: %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// debugSession: command interpreter, independent of the terminal
// ---------------------------------------------------------------------------

type debugSession struct {
	dbg     *vm.Debugger
	program *vm.Program
	out     io.Writer
	limit   int64 // budget for run, negative for none
}

func newDebugSession(p *vm.Program, nativeNames []string, out io.Writer) (*debugSession, error) {
	m := vm.NewMachine()
	m.Output = out
	if _, err := natives.Register(m, nativeNames); err != nil {
		return nil, err
	}
	m.Load(p)
	return &debugSession{
		dbg:     vm.NewDebugger(m),
		program: p,
		out:     out,
		limit:   -1,
	}, nil
}

// execute runs one command line and reports whether the session should end.
func (s *debugSession) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]
	m := s.dbg.Machine()

	var err error
	switch cmd {
	case "quit", "exit", "q":
		return true

	case "help", "h", "?":
		s.help()

	case "step", "s":
		n := int64(1)
		if len(args) > 0 {
			n, err = strconv.ParseInt(args[0], 0, 64)
			if err == nil && n <= 0 {
				err = fmt.Errorf("step count must be positive, got %d", n)
			}
		}
		if err == nil {
			s.report(s.dbg.Step(n))
		}

	case "run", "continue", "c":
		s.report(s.dbg.Continue(s.limit))

	case "break", "b":
		if len(args) == 0 {
			fmt.Fprintf(s.out, "breakpoints: %v\n", s.dbg.Breakpoints())
			break
		}
		var ip uint64
		if ip, err = parseAddr(args[0]); err == nil {
			s.dbg.SetBreakpoint(ip)
			fmt.Fprintf(s.out, "breakpoint at %d\n", ip)
		}

	case "clear":
		var ip uint64
		if ip, err = parseArgAddr(args, 0); err == nil {
			s.dbg.ClearBreakpoint(ip)
		}

	case "stack":
		err = m.DumpStack(s.out)

	case "mem":
		var addr, n uint64
		if addr, err = parseArgAddr(args, 0); err == nil {
			n = 64
			if len(args) > 1 {
				n, err = parseAddr(args[1])
			}
		}
		if err == nil {
			err = m.DumpMemory(s.out, addr, n)
		}

	case "word":
		var addr uint64
		if addr, err = parseArgAddr(args, 0); err == nil {
			v, trap := m.Memory().Read(addr, vm.Width64)
			if trap != vm.TrapOK {
				err = fmt.Errorf("%s reading 8 bytes at %d", trap, addr)
				break
			}
			fmt.Fprintf(s.out, "%08x  %s\n", addr, vm.FormatWord(vm.WordU64(v)))
		}

	case "ip":
		s.where()
		s.effect()

	case "jump", "j":
		var ip uint64
		if ip, err = parseArgAddr(args, 0); err == nil {
			m.SetIP(ip)
			s.where()
		}

	case "dis":
		s.listing(5)

	case "save":
		if len(args) != 1 {
			err = errors.New("usage: save <file>")
			break
		}
		err = s.save(args[0])

	case "restore":
		if len(args) != 1 {
			err = errors.New("usage: restore <file>")
			break
		}
		if err = s.restore(args[0]); err == nil {
			s.where()
		}

	case "reset":
		m.Load(s.program)
		s.where()

	default:
		err = fmt.Errorf("unknown command %q (type help for commands)", cmd)
	}

	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *debugSession) help() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  step [n]        Execute n instructions (default 1)")
	fmt.Fprintln(s.out, "  run             Run to the next breakpoint, halt or trap")
	fmt.Fprintln(s.out, "  break [ip]      Set a breakpoint, or list them")
	fmt.Fprintln(s.out, "  clear ip        Remove a breakpoint")
	fmt.Fprintln(s.out, "  stack           Dump the operand stack")
	fmt.Fprintln(s.out, "  mem addr [n]    Hex dump n bytes of memory (default 64)")
	fmt.Fprintln(s.out, "  word addr       Show the 64-bit word at addr")
	fmt.Fprintln(s.out, "  ip              Show the current instruction and its stack effect")
	fmt.Fprintln(s.out, "  jump ip         Move the instruction pointer, e.g. past a trap")
	fmt.Fprintln(s.out, "  dis             List instructions around ip")
	fmt.Fprintln(s.out, "  save file       Write a machine snapshot")
	fmt.Fprintln(s.out, "  restore file    Load a machine snapshot")
	fmt.Fprintln(s.out, "  reset           Reload the program")
	fmt.Fprintln(s.out, "  quit            Leave the debugger")
}

func (s *debugSession) report(reason vm.StopReason, trap vm.Trap) {
	m := s.dbg.Machine()
	if trap != vm.TrapOK {
		fmt.Fprintf(s.out, "trap: %s at %d\n", trap, m.IP())
	} else {
		fmt.Fprintf(s.out, "stopped: %s\n", reason)
	}
	s.where()
}

func (s *debugSession) where() {
	m := s.dbg.Machine()
	ip := m.IP()
	state := ""
	if m.Halted() {
		state = " (halted)"
	}
	if ip < uint64(s.program.Len()) {
		fmt.Fprintf(s.out, "%04d  %s%s\n", ip, s.program.At(int(ip)), state)
	} else {
		fmt.Fprintf(s.out, "%04d  <end of program>%s\n", ip, state)
	}
}

// effect prints the stack effect of the instruction at ip and flags an
// underflow before it happens.
func (s *debugSession) effect() {
	m := s.dbg.Machine()
	ip := m.IP()
	if ip >= uint64(s.program.Len()) {
		return
	}
	info := vm.GetOpcodeInfo(s.program.At(int(ip)).Op)
	depth := m.Stack().Size()
	note := ""
	if info.StackPop > depth {
		note = " (underflow)"
	}
	fmt.Fprintf(s.out, "effect %s, stack depth %d%s\n", info.Effect(), depth, note)
}

// listing prints up to radius instructions either side of ip.
func (s *debugSession) listing(radius uint64) {
	ip := s.dbg.Machine().IP()
	start := uint64(0)
	if ip > radius {
		start = ip - radius
	}
	breaks := make(map[uint64]bool)
	for _, b := range s.dbg.Breakpoints() {
		breaks[b] = true
	}
	for i := start; i <= ip+radius && i < uint64(s.program.Len()); i++ {
		marker := "  "
		switch {
		case i == ip:
			marker = "=>"
		case breaks[i]:
			marker = " *"
		}
		fmt.Fprintf(s.out, "%s %04d  %s\n", marker, i, s.program.At(int(i)))
	}
}

func (s *debugSession) save(path string) error {
	data, err := vm.MarshalSnapshot(s.dbg.Machine().Snapshot())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "saved %d bytes to %s\n", len(data), path)
	return nil
}

func (s *debugSession) restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snap, err := vm.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	return s.dbg.Machine().Restore(snap)
}

func parseAddr(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseArgAddr(args []string, i int) (uint64, error) {
	if i >= len(args) {
		return 0, errors.New("missing address")
	}
	return parseAddr(args[i])
}
