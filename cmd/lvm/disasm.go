package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chazu/lvm/melf"
	"github.com/chazu/lvm/vm"
)

// handleDisasmCommand processes the `lvm disasm` subcommand.
func handleDisasmCommand(args []string) int {
	cfg, err := loadManifest()
	if err != nil {
		return fail(err)
	}
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	fs.Parse(args)

	path, err := programPath(fs, cfg)
	if err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	if err := disassemble(os.Stdout, filepath.Base(path), data); err != nil {
		return fail(fmt.Errorf("%s: %w", path, err))
	}
	return exitOK
}

// disassemble writes the header summary and listing of an encoded program.
// Version 0 programs are listed after translation.
func disassemble(w io.Writer, name string, data []byte) error {
	h, err := melf.ReadHeader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	p, err := melf.Unmarshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "; %s\n", h); err != nil {
		return err
	}
	return vm.WriteListing(w, name, p)
}

// handleUpgradeCommand processes the `lvm upgrade` subcommand.
// Usage:
//
//	lvm upgrade in.melf out.melf
func handleUpgradeCommand(args []string) int {
	fs := flag.NewFlagSet("upgrade", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: upgrade requires an input and an output path")
		return exitError
	}

	p, err := melf.ReadFile(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := melf.WriteFile(fs.Arg(1), p); err != nil {
		return fail(err)
	}
	fmt.Printf("Wrote %s (%d instructions, melf v%d)\n", fs.Arg(1), p.Len(), melf.Version)
	return exitOK
}
