// ucitap sits between a chess GUI and a UCI engine. By default it relays and
// logs the conversation; with -log it replays a previously recorded log and
// writes the analysed positions as a JSON array.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"ucitap/commas"
	"ucitap/config"
	"ucitap/proxy"
	"ucitap/replay"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "proxy configuration file")
		logPath    = flag.String("log", "", "replay this UCI log instead of proxying")
		outPath    = flag.String("o", "", "converter output file (default: log name with .json)")
		compress   = flag.Bool("c", false, "compress converter output with zstd")
		lastOnly   = flag.Bool("last", false, "emit only the last pv-bearing info line per search")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *logPath != "" {
		if err := convert(*logPath, *outPath, *compress, *lastOnly, logger); err != nil {
			logger.Fatal().Err(err).Msg("convert failed")
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := proxy.Run(ctx, proxy.Config{
		Engine:  cfg.Engine,
		LogPath: cfg.LogFile,
		Logger:  logger,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("proxy failed")
	}

	os.Exit(code)
}

func convert(logPath, outPath string, compress, lastOnly bool, logger zerolog.Logger) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	records, stats, err := replay.Run(f, replay.Options{LastOnly: lastOnly, Logger: logger})
	if err != nil {
		return err
	}

	logger.Info().
		Str("lines", commas.Int(stats.Lines)).
		Int("records", stats.Records).
		Str("nodes", commas.Int64(stats.Nodes)).
		Int("bad_prefix", stats.BadPrefix).
		Int("unrecognized", stats.Unrecognized).
		Int("position_desyncs", stats.PositionDesyncs).
		Int("desynced_pvs", stats.DesyncedPVs).
		Msg("replay complete")

	if outPath == "" {
		base := strings.TrimSuffix(logPath, filepath.Ext(logPath))
		outPath = base + ".json"
		if compress {
			outPath += ".zst"
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		w = enc
	}

	if err := replay.WriteJSON(w, records); err != nil {
		return err
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("finish zstd stream: %w", err)
		}
	}

	logger.Info().Str("output", outPath).Int("records", len(records)).Msg("wrote output")
	return nil
}
