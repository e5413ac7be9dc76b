// Package ucilog defines the tee log line format and a serialized appender.
//
// Each logged protocol line becomes one physical line:
//
//	>> 2026-01-02T15:04:05.000 position startpos moves e2e4
//	<< 2026-01-02T15:04:05.250 info depth 10 score cp 35 pv e7e5
//
// ">>" is GUI to engine, "<<" is engine to GUI.
package ucilog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type Direction int

const (
	GuiToEngine Direction = iota
	EngineToGui
)

func (d Direction) String() string {
	if d == GuiToEngine {
		return ">>"
	}
	return "<<"
}

const TimeLayout = "2006-01-02T15:04:05.000"

// Line is one logged protocol line.
type Line struct {
	Dir  Direction
	At   time.Time
	Text string
}

func (l Line) String() string {
	return fmt.Sprintf("%s %s %s", l.Dir, l.At.Format(TimeLayout), l.Text)
}

// ParseLine parses one physical log line. ok is false when the direction
// marker or timestamp prefix is missing or malformed.
func ParseLine(raw string) (Line, bool) {
	var dir Direction
	switch {
	case strings.HasPrefix(raw, ">> "):
		dir = GuiToEngine
	case strings.HasPrefix(raw, "<< "):
		dir = EngineToGui
	default:
		return Line{}, false
	}

	rest := raw[3:]
	if len(rest) < len(TimeLayout) {
		return Line{}, false
	}

	at, err := time.Parse(TimeLayout, rest[:len(TimeLayout)])
	if err != nil {
		return Line{}, false
	}

	text := rest[len(TimeLayout):]
	if text != "" {
		if text[0] != ' ' {
			return Line{}, false
		}
		text = text[1:]
	}

	return Line{Dir: dir, At: at, Text: text}, true
}

// Appender writes tagged lines to the log. Appends from both relay
// directions are serialized against each other, and every line is flushed
// before the append returns.
type Appender struct {
	mtx sync.Mutex
	w   *bufio.Writer
	now func() time.Time
}

func NewAppender(w io.Writer) *Appender {
	return &Appender{
		w:   bufio.NewWriter(w),
		now: time.Now,
	}
}

// Append stamps, writes, and flushes one protocol line.
func (a *Appender) Append(dir Direction, text string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	line := Line{Dir: dir, At: a.now(), Text: text}
	if _, err := fmt.Fprintln(a.w, line.String()); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	if err := a.w.Flush(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}
	return nil
}
