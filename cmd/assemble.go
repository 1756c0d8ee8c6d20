package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goasm64/pkg/asm"
	"goasm64/pkg/logging"
	"goasm64/pkg/macho"
	"goasm64/pkg/watcher"
)

type assembleCommandParams struct {
	output      string
	entry       string
	logLevel    string
	disassemble bool
	watch       bool
	base        uint64
}

var assembleParams = assembleCommandParams{}

var assembleCommand = &cobra.Command{
	Use:   "assemble <input.s>",
	Short: "Assemble an ARM64 source file into a Mach-O executable",
	Long: `Assemble an ARM64 source file into a Mach-O executable.

The input is translated in two passes: the first computes the address of
every label, the second encodes each instruction and records a relocation
for every label reference. Relocations are resolved in place before the
executable is written.

If the '-d' option is supplied, an address/hex/binary dump of the final
machine code is printed after assembly.

If the '--watch' option is supplied, the process stays running and
reassembles the source file every time it changes on disk.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runAssemble(&assembleParams, args[0]))
	},
}

func runAssemble(params *assembleCommandParams, input string) int {
	level, err := logging.ParseLevel(params.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger := logging.New()
	logger.SetLevel(level)

	if err := assembleOnce(params, input, logger, os.Stdout); err != nil {
		reportError(os.Stderr, input, err)
		if !params.watch {
			return 1
		}
	}
	if !params.watch {
		return 0
	}
	return watchLoop(params, input, logger)
}

func assembleOnce(params *assembleCommandParams, input string, logger logging.Logger, out io.Writer) error {
	source, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	program, err := asm.Assemble(string(source), asm.Options{Base: params.base, Logger: logger})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Assembly successful! %d instructions\n", len(program.Code))

	entryAddr, err := program.EntryAddress(params.entry)
	if err != nil {
		return err
	}

	if err := macho.Write(params.output, macho.Image{
		Base:  program.Base,
		Entry: entryAddr,
		Code:  program.Code,
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Generated Mach-O executable: %s\n", params.output)
	fmt.Fprintf(out, "Text section: %d bytes\n", len(program.Code)*4)
	fmt.Fprintf(out, "Entry point: 0x%x\n", entryAddr)

	if params.disassemble {
		fmt.Fprintln(out, "\nDisassembly:")
		if err := program.Dump(out); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nRun with: ./%s\n", params.output)
	return nil
}

// watchLoop reassembles on every change to the input file until the
// process receives SIGINT or SIGTERM. Rebuild failures are reported
// and watching continues.
func watchLoop(params *assembleCommandParams, input string, logger logging.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(input, func(context.Context) {
		if err := assembleOnce(params, input, logger, os.Stdout); err != nil {
			reportError(os.Stderr, input, err)
		}
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger.Info("watching %v for changes", input)
	<-ctx.Done()
	return 0
}

func reportError(w io.Writer, input string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "Error: File '%s' not found\n", input)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func init() {
	setOutputFlag(assembleCommand.Flags(), &assembleParams.output)
	setDisassembleFlag(assembleCommand.Flags(), &assembleParams.disassemble)
	setEntryFlag(assembleCommand.Flags(), &assembleParams.entry)
	setBaseFlag(assembleCommand.Flags(), &assembleParams.base)
	setWatchFlag(assembleCommand.Flags(), &assembleParams.watch)
	setLogLevelFlag(assembleCommand.Flags(), &assembleParams.logLevel)
	RootCommand.AddCommand(assembleCommand)
}
