package convertservice

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
	"golang.org/x/sync/errgroup"
)

// BatchOptions controls a batch conversion
type BatchOptions struct {
	Options
	// Workers bounds the number of files converted at once
	Workers int
}

// Failure is a file that could not be converted
type Failure struct {
	Source string
	Err    error
}

// BatchReport lists the outcome of every file in a batch, in input order
type BatchReport struct {
	Converted []*Result
	Failed    []Failure
	Jobs      []*models.Job
	Duration  time.Duration
}

// OK reports whether every file converted
func (r *BatchReport) OK() bool {
	return len(r.Failed) == 0
}

// Outputs returns the paths of the workbooks written
func (r *BatchReport) Outputs() []string {
	out := make([]string, 0, len(r.Converted))
	for _, res := range r.Converted {
		out = append(out, res.Output)
	}
	return out
}

// ConvertBatch converts paths concurrently. A file that fails is recorded in
// the report and the rest of the batch carries on. Sources that would share a
// workbook name get a numbered suffix (data.xlsx, data_2.xlsx, ...).
func (s *Service) ConvertBatch(ctx context.Context, paths []string, opts BatchOptions) *BatchReport {
	start := time.Now()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	jobs := make([]*models.Job, len(paths))

	names := outputNames(paths)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		jobOpts := opts.Options
		jobOpts.OutputName = names[i]
		if names[i] != parsers.OutputName(path) {
			s.logger.Info().Str("file", path).Str("output", names[i]).Msg("Workbook name already taken in batch, renamed")
		}

		g.Go(func() error {
			job := models.NewJob(filepath.Base(path), path)
			jobs[i] = job

			if err := s.jobRepo.Create(gctx, job); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = s.runJob(gctx, job, jobOpts)
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{Jobs: jobs}
	for i, path := range paths {
		if errs[i] != nil {
			report.Failed = append(report.Failed, Failure{Source: path, Err: errs[i]})
			continue
		}
		report.Converted = append(report.Converted, results[i])
	}
	report.Duration = time.Since(start)

	s.logger.Info().
		Int("files", len(paths)).
		Int("converted", len(report.Converted)).
		Int("failed", len(report.Failed)).
		Int64("duration_ms", report.Duration.Milliseconds()).
		Msg("Batch finished")

	return report
}

// outputNames gives every path a workbook name that no other path in the
// batch uses. Names are compared case-insensitively.
func outputNames(paths []string) []string {
	names := make([]string, len(paths))
	taken := make(map[string]bool, len(paths))
	for i, path := range paths {
		name := parsers.OutputName(path)
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}
