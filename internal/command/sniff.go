package command

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/internal/repository/memory"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
	"github.com/rohit/sheetconv/internal/sniff"
	"github.com/spf13/cobra"
)

// SniffCommand reports the delimiter of a file without converting it
func SniffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sniff <file>",
		Short: "Show the delimiter inferred for a file",
		Long: `Show the delimiter sheetconv would use for a file, together with every
candidate character counted in the sampled lines.`,
		Args: cobra.ExactArgs(1),
		RunE: runSniff,
	}

	cmd.Flags().Int("sample-lines", 0, "Lines sniffed for the delimiter (default: SAMPLE_LINES or 2)")

	return cmd
}

func runSniff(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := newLogger(cmd, cfg, cmd.ErrOrStderr())
	sampleLines, _ := cmd.Flags().GetInt("sample-lines")

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	svc := convertservice.NewService(memory.NewJobRepository(), nil, log, cfg.Convert)
	report, err := svc.Sniff(f, sampleLines)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !report.Found {
		fmt.Fprintf(out, "%s: no delimiter found (charset %s)\n", args[0], report.Charset)
		return nil
	}

	fmt.Fprintf(out, "%s: delimiter %s (charset %s)\n", args[0], sniff.Name(report.Delimiter), report.Charset)
	if !parsers.ValidDelimiter(report.Delimiter) {
		fmt.Fprintln(out, "warning: this delimiter cannot split fields; the file would not be converted")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tCOUNT\tFIRST")
	for _, c := range report.Candidates {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", sniff.Name(c.Char), c.Count, c.First)
	}
	return tw.Flush()
}
