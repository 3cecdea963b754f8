// CropLens - reads a farming-sim HUD through OCR and tracks plant state
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/croplens/croplens/internal/advisor"
	"github.com/croplens/croplens/internal/capture"
	"github.com/croplens/croplens/internal/config"
	"github.com/croplens/croplens/internal/knowledge"
	"github.com/croplens/croplens/internal/ocr"
	"github.com/croplens/croplens/internal/pipeline"
	"github.com/croplens/croplens/internal/preprocess"
	"github.com/croplens/croplens/internal/roi"
	"github.com/croplens/croplens/internal/server"
	"github.com/croplens/croplens/internal/state"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(cfg, os.Args[2:])
	case "watch":
		err = runWatch(cfg, os.Args[2:])
	case "serve":
		err = runServe(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: croplens <command> [flags]

commands:
  analyze -path <screenshot>   extract plant state from one screenshot
  watch   [-fps n] [-roi file] follow the live screen and report changes
  serve   [-addr :8000]        watch plus the HTTP/WebSocket API`)
}

// roiFlag registers the ROI presets override shared by every command.
func roiFlag(fs *flag.FlagSet, cfg *config.Config) *string {
	return fs.String("roi", cfg.PresetsPath, "ROI presets file")
}

// app bundles the long-lived pieces every command needs.
type app struct {
	pipe    *pipeline.Pipeline
	engine  *ocr.Engine
	advisor *advisor.Advisor
}

func buildApp(cfg *config.Config) (*app, error) {
	kb := knowledge.Default()
	if cfg.KnowledgePath != "" {
		loaded, err := knowledge.Load(cfg.KnowledgePath)
		if err != nil {
			return nil, err
		}
		kb = loaded
	}

	grammars := config.DefaultGrammars(kb)
	for name, g := range grammars {
		g.MinConfidence = cfg.MinConfidence
		grammars[name] = g
	}

	defs := config.DefaultPresets()
	if cfg.PresetsPath != "" {
		loaded, err := config.LoadPresets(cfg.PresetsPath, grammars)
		if err != nil {
			return nil, err
		}
		defs = loaded
	}
	reg, err := roi.NewRegistry(defs)
	if err != nil {
		return nil, err
	}

	engine, err := ocr.New(ocr.Config{
		Languages: cfg.Languages,
		Timeout:   cfg.OCRTimeout,
		Pool:      cfg.OCRPool,
	})
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(reg, grammars, engine, nil, pipeline.Config{
		Workers:      cfg.Workers,
		SkipDistance: cfg.SkipDistance,
		Reconcile:    state.Config{DebounceFrames: cfg.DebounceFrames},
		Preprocess: preprocess.Options{
			MinHeight:   cfg.MinROIHeight,
			BlankStdDev: cfg.BlankStdDev,
		},
	})

	return &app{
		pipe:    pipe,
		engine:  engine,
		advisor: advisor.New(kb, advisor.Config{}),
	}, nil
}

func (a *app) close() {
	a.pipe.Close()
	if err := a.engine.Close(); err != nil {
		slog.Error("ocr engine close", "error", err)
	}
}

func runAnalyze(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	path := fs.String("path", "", "screenshot to analyze")
	roiFile := roiFlag(fs, cfg)
	asJSON := fs.Bool("json", false, "emit JSON instead of formatted text")
	_ = fs.Parse(args)

	if *path == "" {
		fs.Usage()
		return fmt.Errorf("analyze: -path is required")
	}
	cfg.PresetsPath = *roiFile

	img, err := capture.LoadImage(*path)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, err := a.pipe.Analyze(ctx, capture.Frame{Img: img, At: time.Now()})
	if err != nil {
		return err
	}

	report := a.advisor.Evaluate(snap)
	if *asJSON {
		return renderJSON(os.Stdout, snap, report)
	}
	renderSnapshot(os.Stdout, snap)
	renderReport(os.Stdout, report)
	return nil
}

func runWatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fps := fs.Float64("fps", cfg.FPS, "capture rate")
	roiFile := roiFlag(fs, cfg)
	asJSON := fs.Bool("json", false, "emit change events as JSON lines")
	_ = fs.Parse(args)
	cfg.PresetsPath = *roiFile

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := openLiveSource(ctx, cfg, *fps)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if *asJSON {
		go renderEventsJSON(os.Stdout, a.pipe.Events())
	} else {
		go renderEvents(os.Stdout, a, a.pipe.Events())
	}

	slog.Info("watching", "backend", cfg.Backend, "fps", *fps)
	return a.pipe.Watch(ctx, src)
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.HTTPAddr, "listen address")
	fps := fs.Float64("fps", cfg.FPS, "capture rate")
	roiFile := roiFlag(fs, cfg)
	_ = fs.Parse(args)
	cfg.PresetsPath = *roiFile

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := openLiveSource(ctx, cfg, *fps)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	srv := server.New(a.pipe, a.advisor)
	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- a.pipe.Watch(ctx, src) }()

	go func() {
		slog.Info("serving", "http", *addr, "backend", cfg.Backend, "fps", *fps)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-watchErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	return runErr
}

func openLiveSource(ctx context.Context, cfg *config.Config, fps float64) (*capture.LiveSource, error) {
	backend, err := capture.NewBackend(cfg.Backend, cfg.Display)
	if err != nil {
		return nil, err
	}
	src := capture.NewLiveSource(backend, fps)
	src.Start(ctx)
	return src, nil
}
