package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/ledger"
	"github.com/docucast/docucast/internal/pipeline"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Output.AudioDir = filepath.Join(base, "audio")
	cfg.Output.TranscriptDir = filepath.Join(base, "transcripts")
	cfg.Output.DialogueDir = filepath.Join(base, "dialogue")
	cfg.LLM.Mode = "mock"
	cfg.TTS.Enabled = false
	return cfg
}

func newRunner(t *testing.T, cfg config.Config) *Runner {
	t.Helper()
	pipe, err := pipeline.New(cfg, newLogger())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	runs, err := ledger.Open(context.Background(), cfg.Ledger, newLogger())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })
	return NewRunner(cfg, pipe, runs, newLogger())
}

func writeDoc(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

func TestRunConvertsAndArchives(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt")
	writeDoc(t, dir, "beta.md")
	writeDoc(t, dir, "skipped.pdf")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeDoc(t, filepath.Join(dir, "nested"), "deep.txt")

	reports, err := newRunner(t, cfg).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	for _, rep := range reports {
		if rep.Status != "succeeded" {
			t.Fatalf("%s: expected success, got %v", rep.Source, rep.Err)
		}
	}

	for _, name := range []string{"alpha.txt", "beta.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s should have been moved out of the batch dir", name)
		}
		if _, err := os.Stat(filepath.Join(dir, cfg.Batch.DoneDir, name)); err != nil {
			t.Fatalf("%s missing from done dir: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "skipped.pdf")); err != nil {
		t.Fatalf("non-matching extension must be left alone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "deep.txt")); err != nil {
		t.Fatalf("subdirectories must not be descended into: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt")
	runner := newRunner(t, cfg)

	if _, err := runner.Run(context.Background(), dir); err != nil {
		t.Fatalf("first run: %v", err)
	}
	reports, err := runner.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("archived files must not be reprocessed, got %d reports", len(reports))
	}
}

func TestRunArchiveCollisionGetsSuffix(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	doneDir := filepath.Join(dir, cfg.Batch.DoneDir)
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(doneDir, "report.txt"), []byte("earlier run"), 0o644); err != nil {
		t.Fatalf("seed done dir: %v", err)
	}
	writeDoc(t, dir, "report.txt")

	if _, err := newRunner(t, cfg).Run(context.Background(), dir); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(doneDir, "report_1.txt")); err != nil {
		t.Fatalf("expected collision suffix report_1.txt: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(doneDir, "report.txt"))
	if err != nil || string(data) != "earlier run" {
		t.Fatalf("earlier archive must not be overwritten: %v", err)
	}
}

func TestMoveToDoneUndoesLinkWhenRemoveFails(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	path := writeDoc(t, dir, "alpha.txt")
	runner := newRunner(t, cfg)

	removeFile = func(string) error { return errors.New("device busy") }
	t.Cleanup(func() { removeFile = os.Remove })

	if _, err := runner.moveToDone(dir, path); err == nil {
		t.Fatal("expected archive error when the source cannot be removed")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, cfg.Batch.DoneDir, "alpha.txt")); !os.IsNotExist(err) {
		t.Fatal("half-archived copy must be cleaned up")
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt")
	if err := os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n"), 0o644); err != nil {
		t.Fatalf("write empty doc: %v", err)
	}

	reports, err := newRunner(t, cfg).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	byName := map[string]Report{}
	for _, rep := range reports {
		byName[filepath.Base(rep.Source)] = rep
	}
	if byName["empty.txt"].Status != "failed" || byName["empty.txt"].Err == nil {
		t.Fatalf("empty document should fail: %+v", byName["empty.txt"])
	}
	if byName["good.txt"].Status != "succeeded" {
		t.Fatalf("failure must not poison the rest of the batch: %+v", byName["good.txt"])
	}
	if _, err := os.Stat(filepath.Join(dir, "empty.txt")); err != nil {
		t.Fatalf("failed documents must stay in place: %v", err)
	}
}

func TestRunRecordsLedgerEntries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "runs.db")
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt")

	pipe, err := pipeline.New(cfg, newLogger())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	runs, err := ledger.Open(context.Background(), cfg.Ledger, newLogger())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(func() { _ = runs.Close() })

	if _, err := NewRunner(cfg, pipe, runs, newLogger()).Run(context.Background(), dir); err != nil {
		t.Fatalf("run: %v", err)
	}
	records, err := runs.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(records))
	}
	if records[0].Status != "succeeded" || records[0].RunID == "" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	writeDoc(t, dir, "alpha.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRunner(t, cfg).Run(ctx, dir); err == nil {
		t.Fatal("expected cancellation error")
	}
}
