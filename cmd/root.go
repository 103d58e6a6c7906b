package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/gStore/cmd/shell"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "gstore",
		Short: "observable in-process key-value registry",
		Long: fmt.Sprintf(`gStore (v%s)

A keyed, observable state registry written in Go. Values are shared
between components and every update is pushed to the subscribers
of the updated key.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gStore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gStore v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
