package cmd

import (
	"os"
	"path"

	"github.com/spf13/cobra"
)

// RootCommand is the base CLI command that all subcommands are added to.
var RootCommand = &cobra.Command{
	Use:   path.Base(os.Args[0]),
	Short: "ARM64 assembler for Apple Silicon",
	Long:  "A two-pass ARM64 assembler that produces Mach-O executables for Apple Silicon.",
}
