package command

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/internal/launcher"
	"github.com/rohit/sheetconv/internal/notify"
	"github.com/rohit/sheetconv/internal/repository/memory"
	"github.com/rohit/sheetconv/internal/scan"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
	"github.com/rohit/sheetconv/internal/sniff"
	"github.com/spf13/cobra"
)

// ErrSomeFailed is returned when at least one file could not be converted
var ErrSomeFailed = errors.New("some files were not converted")

// ConvertCommand converts files and directories into workbooks
func ConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file or directory>...",
		Short: "Convert delimited text files into .xlsx workbooks",
		Long: `Convert every given file, and every matching file below the given
directories, into an .xlsx workbook named after the source file.

A file whose delimiter cannot be determined is reported and skipped; the
remaining files are still converted.

Examples:
  # Convert two files into ./converted
  sheetconv convert orders.csv stock.txt

  # Convert a directory tree into ./out and open the results
  sheetconv convert ./exports --out ./out --open

  # Force a semicolon and mail the results
  sheetconv convert data.txt --delimiter semicolon --mail-to ops@example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConvert,
	}

	cmd.Flags().StringP("out", "o", "", "Output directory (default: OUTPUT_PATH or ./converted)")
	cmd.Flags().IntP("workers", "w", runtime.NumCPU(), "Files converted at once")
	cmd.Flags().String("pattern", "", "Glob used inside directories (default: INPUT_PATTERN or "+scan.DefaultPattern+")")
	cmd.Flags().StringP("delimiter", "d", "", "Use this delimiter instead of sniffing (e.g. ';', tab, pipe)")
	cmd.Flags().String("sheet", "", "Sheet name (default: source file name)")
	cmd.Flags().Int("sample-lines", 0, "Lines sniffed for the delimiter (default: SAMPLE_LINES or 2)")
	cmd.Flags().StringSlice("mail-to", nil, "E-mail the workbooks to these addresses (default: MAIL_TO)")
	cmd.Flags().String("subject", "", "Subject of the e-mail")
	cmd.Flags().Bool("open", false, "Open the workbooks with the default application")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := newLogger(cmd, cfg, cmd.ErrOrStderr())

	outDir, _ := cmd.Flags().GetString("out")
	workers, _ := cmd.Flags().GetInt("workers")
	pattern, _ := cmd.Flags().GetString("pattern")
	delimiterStr, _ := cmd.Flags().GetString("delimiter")
	sheet, _ := cmd.Flags().GetString("sheet")
	sampleLines, _ := cmd.Flags().GetInt("sample-lines")
	mailTo, _ := cmd.Flags().GetStringSlice("mail-to")
	subject, _ := cmd.Flags().GetString("subject")
	open, _ := cmd.Flags().GetBool("open")

	var delimiter rune
	if delimiterStr != "" {
		d, ok := parsers.ParseDelimiter(delimiterStr)
		if !ok {
			return fmt.Errorf("invalid delimiter %q", delimiterStr)
		}
		delimiter = d
	}
	if sampleLines < 0 {
		return fmt.Errorf("--sample-lines must not be negative")
	}
	if pattern == "" {
		pattern = cfg.Convert.Pattern
	}
	mailTo = notify.SplitRecipients(strings.Join(mailTo, ","))
	if len(mailTo) == 0 {
		mailTo = notify.SplitRecipients(cfg.SMTP.MailTo)
	}

	paths, err := scan.Expand(args, pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input files found")
	}

	svc := convertservice.NewService(memory.NewJobRepository(), nil, log, cfg.Convert)
	report := svc.ConvertBatch(cmd.Context(), paths, convertservice.BatchOptions{
		Options: convertservice.Options{
			OutputDir:   outDir,
			SampleLines: sampleLines,
			SheetName:   sheet,
			Delimiter:   delimiter,
		},
		Workers: workers,
	})

	printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)

	outputs := report.Outputs()
	if len(mailTo) > 0 && len(outputs) > 0 {
		mailer := notify.NewMailer(cfg.SMTP, log)
		msg := notify.Message{
			To:          mailTo,
			Subject:     subject,
			Body:        mailBody(report),
			Attachments: outputs,
		}
		if err := mailer.Send(cmd.Context(), msg); err != nil {
			log.Error().Err(err).Strs("to", mailTo).Msg("Could not e-mail workbooks")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Mailed %d workbook(s) to %v\n", len(outputs), mailTo)
		}
	}

	if open {
		launcher.OpenAll(outputs, log)
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d files: %w", len(report.Failed), len(paths), ErrSomeFailed)
	}
	return nil
}

func printReport(out, errOut io.Writer, report *convertservice.BatchReport) {
	for _, res := range report.Converted {
		how := "sniffed"
		if !res.Sniffed {
			how = "given"
		}
		fmt.Fprintf(out, "✓ %s → %s (%s delimiter %s, %d rows",
			filepath.Base(res.Source), res.Output, how, sniff.Name(res.Delimiter), res.Rows)
		if res.Skipped > 0 {
			fmt.Fprintf(out, ", %d skipped", res.Skipped)
		}
		fmt.Fprintln(out, ")")
	}
	for _, f := range report.Failed {
		fmt.Fprintf(errOut, "✗ %s: %v\n", f.Source, f.Err)
	}
	fmt.Fprintf(out, "%d converted, %d failed in %s\n",
		len(report.Converted), len(report.Failed), report.Duration.Round(time.Millisecond))
}

func mailBody(report *convertservice.BatchReport) string {
	body := fmt.Sprintf("%d file(s) converted.\n", len(report.Converted))
	for _, res := range report.Converted {
		body += fmt.Sprintf("\n%s: %d rows", filepath.Base(res.Output), res.Rows)
	}
	if len(report.Failed) > 0 {
		body += fmt.Sprintf("\n\n%d file(s) could not be converted:", len(report.Failed))
		for _, f := range report.Failed {
			body += fmt.Sprintf("\n%s: %v", filepath.Base(f.Source), f.Err)
		}
	}
	return body + "\n"
}
