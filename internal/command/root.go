// Package command implements the sheetconv command line using Cobra.
package command

import (
	"fmt"
	"io"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...command.Version=..."
var Version = "dev"

// NewRootCommand builds the sheetconv command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetconv",
		Short: "Convert delimited text files into Excel workbooks",
		Long: `sheetconv converts .csv, .tsv, .txt, .psv and .dat files into .xlsx
workbooks. The field delimiter of each file is inferred from its first lines,
ignoring characters inside double quotes.

Usage:
  sheetconv convert <file or directory>... [flags]
  sheetconv sniff <file>`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Log every step")

	root.AddCommand(ConvertCommand())
	root.AddCommand(SniffCommand())
	root.AddCommand(VersionCommand())

	return root
}

// VersionCommand prints the build version
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sheetconv %s\n", Version)
		},
	}
}

// newLogger writes console logs to w. Without --verbose only warnings and
// errors are shown.
func newLogger(cmd *cobra.Command, cfg *config.Config, w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return logger.NewWithWriter(w, cfg.App.Env, level.String())
}
