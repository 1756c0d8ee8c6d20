package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"goasm64/pkg/version"
)

func init() {
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			generateVersionOutput(os.Stdout)
		},
	}
	RootCommand.AddCommand(versionCommand)
}

func generateVersionOutput(out io.Writer) {
	fmt.Fprintln(out, "Version: "+version.Version)
	fmt.Fprintln(out, "Go Version: "+version.GoVersion)
	fmt.Fprintln(out, "Platform: "+version.Platform)
}
