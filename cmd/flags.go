package cmd

import (
	"github.com/spf13/pflag"

	"goasm64/pkg/asm"
)

func setOutputFlag(fs *pflag.FlagSet, output *string) {
	fs.StringVarP(output, "output", "o", "a.out", "set the output executable path")
}

func setDisassembleFlag(fs *pflag.FlagSet, disassemble *bool) {
	fs.BoolVarP(disassemble, "disassemble", "d", false, "print an address/hex/binary dump of the assembled code")
}

func setEntryFlag(fs *pflag.FlagSet, entry *string) {
	fs.StringVarP(entry, "entry", "e", "_start", "set the entry point label")
}

func setBaseFlag(fs *pflag.FlagSet, base *uint64) {
	fs.Uint64VarP(base, "base", "b", asm.DefaultBase, "set the base address, 0x-prefixed hex accepted")
}

func setWatchFlag(fs *pflag.FlagSet, watch *bool) {
	fs.BoolVarP(watch, "watch", "w", false, "stay running and reassemble whenever the source file changes")
}

func setLogLevelFlag(fs *pflag.FlagSet, level *string) {
	fs.StringVarP(level, "log-level", "l", "warn", "set log level (debug, info, warn, error)")
}
