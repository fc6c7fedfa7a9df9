// Package batch converts every matching document in a directory,
// isolating failures per file and archiving processed sources.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/ledger"
	"github.com/docucast/docucast/internal/pipeline"
)

// Report is the outcome for one source file.
type Report struct {
	Source    string
	RunID     string
	Status    string // succeeded, failed
	AudioPath string
	Warnings  []string
	Err       error
}

// Runner walks a directory and feeds each matching file through the
// pipeline. One file's failure never stops the rest of the batch.
type Runner struct {
	cfg    config.Config
	pipe   *pipeline.Pipeline
	runs   *ledger.Ledger
	logger *slog.Logger
}

func NewRunner(cfg config.Config, pipe *pipeline.Pipeline, runs *ledger.Ledger, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		pipe:   pipe,
		runs:   runs,
		logger: logger.With(slog.String("component", "batch-runner")),
	}
}

// Run processes every matching file in dir, at most
// batch.max_concurrency at a time. Reports come back sorted by source
// path. Run itself only errors on discovery failure or cancellation;
// per-file problems live in the reports.
func (r *Runner) Run(ctx context.Context, dir string) ([]Report, error) {
	files, err := r.discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.logger.Info("no matching documents", slog.String("dir", dir))
		return nil, nil
	}

	jobs := make(chan string)
	reports := make([]Report, 0, len(files))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Batch.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				report := r.processFile(ctx, dir, path)
				mu.Lock()
				reports = append(reports, report)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Source < reports[j].Source })
	return reports, nil
}

// discover lists matching files directly under dir, sorted by name.
// Subdirectories, including the done directory, are never descended
// into.
func (r *Runner) discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range r.cfg.Batch.Extensions {
			if ext == strings.ToLower(allowed) {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) processFile(ctx context.Context, dir, path string) Report {
	report := Report{Source: path}
	logger := r.logger.With(slog.String("source", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return r.fail(ctx, report, logger, fmt.Errorf("read document: %w", err))
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res, err := r.pipe.Process(ctx, pipeline.Request{Name: base, Text: string(data)})
	if err != nil {
		return r.fail(ctx, report, logger, err)
	}
	report.RunID = res.RunID
	report.Status = "succeeded"
	report.AudioPath = res.AudioPath
	report.Warnings = res.Warnings

	if moved, err := r.moveToDone(dir, path); err != nil {
		logger.Warn("could not archive processed document", slog.String("error", err.Error()))
		report.Warnings = append(report.Warnings, fmt.Sprintf("archive failed: %v", err))
	} else {
		logger.Info("document archived", slog.String("dest", moved))
	}

	r.record(ctx, report, res)
	return report
}

func (r *Runner) fail(ctx context.Context, report Report, logger *slog.Logger, err error) Report {
	report.Status = "failed"
	report.Err = err
	if ctx.Err() == nil {
		logger.Error("document conversion failed", slog.String("error", err.Error()))
		r.record(ctx, report, nil)
	}
	return report
}

func (r *Runner) record(ctx context.Context, report Report, res *pipeline.Result) {
	rec := ledger.Record{
		RunID:  report.RunID,
		Source: report.Source,
		Status: report.Status,
	}
	if res != nil {
		rec.AudioPath = res.AudioPath
		rec.Duration = res.Duration
		rec.Warnings = len(res.Warnings)
	}
	if report.Err != nil {
		rec.Error = report.Err.Error()
	}
	if err := r.runs.Append(ctx, rec); err != nil {
		r.logger.Warn("ledger append failed", slog.String("error", err.Error()))
	}
}

// removeFile is swapped out in tests to exercise archive failures.
var removeFile = os.Remove

// moveToDone archives a processed source under dir's done directory.
// Name collisions get a numeric suffix rather than overwriting an
// earlier file. Link-then-remove keeps the claim atomic between
// concurrent workers sharing a done directory; if the source cannot be
// removed the link is undone so the document never exists in both
// places and gets reprocessed into a duplicate.
func (r *Runner) moveToDone(dir, path string) (string, error) {
	doneDir := filepath.Join(dir, r.cfg.Batch.DoneDir)
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return "", fmt.Errorf("create done dir: %w", err)
	}

	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; ; n++ {
		candidate := filepath.Join(doneDir, name)
		if n > 0 {
			candidate = filepath.Join(doneDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		}
		err := os.Link(path, candidate)
		if err == nil {
			if err := removeFile(path); err != nil {
				_ = os.Remove(candidate)
				return "", fmt.Errorf("remove source after archive: %w", err)
			}
			return candidate, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		// Filesystems without hard links fall back to a plain rename.
		if _, statErr := os.Stat(candidate); statErr == nil {
			continue
		}
		if renameErr := os.Rename(path, candidate); renameErr == nil {
			return candidate, nil
		}
		return "", fmt.Errorf("archive %s: %w", name, err)
	}
}
