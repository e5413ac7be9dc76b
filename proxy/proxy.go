// Package proxy runs a chess engine as a child process and relays the UCI
// conversation between the controlling process and the engine, teeing every
// line into the log. The relayed streams are byte-for-byte transparent; the
// proxy writes nothing of its own to them.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"ucitap/ucilog"
)

type Config struct {
	Engine  string
	LogPath string
	Logger  zerolog.Logger

	// Stdin and Stdout are the GUI-facing streams, normally os.Stdin and
	// os.Stdout.
	Stdin  io.Reader
	Stdout io.Writer
}

// Run spawns the engine and relays both directions until either side closes
// its stream. The returned exit code is the engine's. A relay I/O failure is
// fatal to the whole session: transparency cannot be guaranteed once a
// stream is compromised.
func Run(ctx context.Context, cfg Config) (int, error) {
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log '%s': %w", cfg.LogPath, err)
	}
	defer logFile.Close()

	appender := ucilog.NewAppender(logFile)

	cmd := exec.CommandContext(ctx, cfg.Engine)

	engineStdin, err := cmd.StdinPipe()
	if err != nil {
		return 0, err
	}
	engineStdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, err
	}
	engineStderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, err
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn engine '%s': %w", cfg.Engine, err)
	}

	cfg.Logger.Info().Str("engine", cfg.Engine).Int("pid", cmd.Process.Pid).Msg("engine started")

	// engine stderr is not part of the protocol; drain it to diagnostics.
	// Wait must not run until the drain has seen EOF, so the goroutine
	// signals completion.
	stderrDone := make(chan struct{})
	go func() {
		drain(engineStderr, cfg.Logger)
		close(stderrDone)
	}()

	wait := func() error {
		<-stderrDone
		return cmd.Wait()
	}

	type duty struct {
		dir ucilog.Direction
		err error
	}
	done := make(chan duty, 2)

	go func() {
		err := relay(engineStdin, cfg.Stdin, ucilog.GuiToEngine, appender)
		done <- duty{dir: ucilog.GuiToEngine, err: err}
	}()

	go func() {
		err := relay(cfg.Stdout, engineStdout, ucilog.EngineToGui, appender)
		done <- duty{dir: ucilog.EngineToGui, err: err}
	}()

	first := <-done

	// closing the engine's stdin tells it to exit; either duty ending means
	// the session is over
	_ = engineStdin.Close()

	if first.err != nil {
		cfg.Logger.Error().Err(first.err).Stringer("direction", first.dir).Msg("relay failed, terminating engine")
		_ = cmd.Process.Kill()
		_ = wait()
		return 0, first.err
	}

	if first.dir == ucilog.GuiToEngine {
		// let the engine's remaining output drain to the GUI
		second := <-done
		if second.err != nil {
			cfg.Logger.Error().Err(second.err).Stringer("direction", second.dir).Msg("relay failed during drain")
			_ = cmd.Process.Kill()
			_ = wait()
			return 0, second.err
		}
	}

	code := 0
	if err := wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, fmt.Errorf("wait engine: %w", err)
		}
		code = exitErr.ExitCode()
	}

	cfg.Logger.Info().Int("exit_code", code).Msg("engine exited")
	return code, nil
}

// relay copies lines from src to dst and appends each line to the log. The
// stream side is byte-for-byte: the raw line, terminator included, goes to
// dst unmodified; only the log entry is trimmed. It returns nil on EOF and
// an error on any write or log failure.
func relay(dst io.Writer, src io.Reader, dir ucilog.Direction, appender *ucilog.Appender) error {
	r := newRawLineScanner(src)
	for r.Scan() {
		raw := r.Bytes()

		if _, err := dst.Write(raw); err != nil {
			return fmt.Errorf("relay %s: %w", dir, err)
		}
		if err := appender.Append(dir, trimLineEnding(raw)); err != nil {
			return fmt.Errorf("relay %s: %w", dir, err)
		}
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("relay %s: read: %w", dir, err)
	}
	return nil
}

func drain(r io.Reader, logger zerolog.Logger) {
	s := newLineScanner(r)
	for s.Scan() {
		logger.Warn().Str("stderr", s.Text()).Msg("engine stderr")
	}
}
