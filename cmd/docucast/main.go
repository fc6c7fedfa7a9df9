package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/docucast/docucast/internal/batch"
	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/ledger"
	"github.com/docucast/docucast/internal/pipeline"
	"github.com/docucast/docucast/internal/telemetry"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		inputPath   string
		batchDir    string
		numChunks   int
		enableAudio bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&inputPath, "input", "", "Single document to convert")
	flag.StringVar(&batchDir, "dir", "", "Directory of documents to convert")
	flag.IntVar(&numChunks, "chunks", 0, "Number of chunks (0 = auto)")
	flag.BoolVar(&enableAudio, "audio", false, "Force audio synthesis on")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if enableAudio {
		cfg.TTS.Enabled = true
	}

	if (inputPath == "") == (batchDir == "") {
		logger.Error("exactly one of -input or -dir must be given")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to setup telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if inputPath != "" {
		if err := runSingle(ctx, pipe, logger, inputPath, numChunks); err != nil {
			logger.Error("conversion failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := runBatch(ctx, cfg, pipe, logger, batchDir); err != nil {
		logger.Error("batch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, pipe *pipeline.Pipeline, logger *slog.Logger, path string, numChunks int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	res, err := pipe.Process(ctx, pipeline.Request{Name: name, Text: string(data), NumChunks: numChunks})
	if err != nil {
		return err
	}

	logger.Info("conversion complete",
		slog.String("run_id", res.RunID),
		slog.String("transcript", res.TranscriptPath),
		slog.String("dialogue", res.DialoguePath),
		slog.String("audio", res.AudioPath),
		slog.Duration("duration", res.Duration))
	for _, w := range res.Warnings {
		logger.Warn("degraded output", slog.String("warning", w))
	}
	return nil
}

func runBatch(ctx context.Context, cfg config.Config, pipe *pipeline.Pipeline, logger *slog.Logger, dir string) error {
	runs, err := ledger.Open(ctx, cfg.Ledger, logger)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer runs.Close()

	reports, err := batch.NewRunner(cfg, pipe, runs, logger).Run(ctx, dir)
	if err != nil {
		return err
	}

	var failed int
	for _, rep := range reports {
		if rep.Status != "succeeded" {
			failed++
		}
	}
	logger.Info("batch complete",
		slog.Int("processed", len(reports)),
		slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(reports))
	}
	return nil
}
