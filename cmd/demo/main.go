// File: cmd/demo/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/config"
	"shorts-studio/internal/domain/model"
	aiAdapters "shorts-studio/internal/infra/adapters/ai"
	"shorts-studio/internal/infra/adapters/media"
	"shorts-studio/internal/infra/adapters/storage"
	"shorts-studio/internal/infra/db/memory"
	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/usecase"
)

const sampleScript = `A red fox trotting through fresh snow at dawn. Foxes can hear a mouse squeak from forty meters away.
A fox leaping head first into a snowbank. They pounce using the magnetic field of the earth to aim.
A fox curled up with its tail over its nose. Their bushy tail works as a blanket on cold nights.`

func main() {
	scriptPath := flag.String("script", "", "script file (default: built-in sample)")
	out := flag.String("out", "demo.mp4", "output video path")
	ffmpeg := flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	ffprobe := flag.String("ffprobe", "ffprobe", "ffprobe binary")
	flag.Parse()

	logger := logging.New(config.LogConfig{Level: "info", Format: "console"}, true)
	if err := run(*scriptPath, *out, *ffmpeg, *ffprobe, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(scriptPath, out, ffmpegPath, ffprobePath string, log *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	script := sampleScript
	if scriptPath != "" {
		b, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		script = string(b)
	}

	workDir, err := os.MkdirTemp("", "shorts-demo-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	store, err := storage.NewLocalStorage(filepath.Join(workDir, "store"), "")
	if err != nil {
		return err
	}
	engine, err := media.NewFFmpegEngine(ffmpegPath, ffprobePath, "", log)
	if err != nil {
		return err
	}
	gen := aiAdapters.NewNoopAIAdapter()
	assets := memory.NewAssetRepo()

	orch := usecase.NewAssetOrchestrator(gen, gen, store, assets, nil, nil,
		usecase.OrchestratorConfig{Policy: usecase.DefaultRetryPolicy(), Throttle: -1},
		usecase.SystemClock(), log)
	assembler := usecase.NewVideoAssembler(store, engine, usecase.AssemblerConfig{WorkDir: workDir, FetchTimeout: 30 * time.Second}, log)
	pipeline := usecase.NewPipelineUseCase(nil, orch, assembler, store, assets, nil, memory.NewVideoRepo(), nil, log)

	const owner = "demo"
	start := time.Now()
	session, err := pipeline.GenerateSession(ctx, usecase.GenerateRequest{Script: script, Owner: owner})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	log.Info().Str("session_id", session.SessionID).Int("assets", len(session.Assets)).Int("skipped", len(session.Skipped)).Msg("assets generated")

	res, err := pipeline.Assemble(ctx, owner, session.SessionID, model.DefaultRenderOptions())
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	src, err := store.Open(ctx, res.Video.URL)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	log.Info().
		Str("out", out).
		Int("clips", res.Video.Clips).
		Float64("duration_sec", res.Video.DurationSec).
		Dur("elapsed", time.Since(start)).
		Msg("video written")
	return nil
}
