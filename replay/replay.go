// Package replay reconstructs analysed positions from a tee log. It is a
// single forward pass: protocol lines drive a current-position state machine,
// and every qualifying engine "info" line yields one Record.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"ucitap/commas"
	"ucitap/fen"
	"ucitap/san"
	"ucitap/ucilog"
	"ucitap/uciproto"
)

// Record is one emitted analysis result. Score and Mate are mutually
// exclusive; PV is nil when the coordinate moves could not be matched against
// the tracked position.
type Record struct {
	Engine string  `json:"engine"`
	FEN    string  `json:"fen"`
	Ply    int     `json:"ply"`
	Score  *int    `json:"score"`
	Mate   *int    `json:"mate"`
	Nodes  int     `json:"nodes"`
	NPS    int     `json:"nps"`
	Time   int     `json:"time"`
	PV     *string `json:"pv"`
}

// Stats counts what the pass saw. None of these abort the pass.
type Stats struct {
	Lines           int
	Records         int
	Nodes           int64 // nodes searched across all emitted records
	BadPrefix       int   // log lines without a valid direction/timestamp prefix
	Unrecognized    int   // protocol lines matching no known grammar
	PositionDesyncs int   // "position" move lists that stopped matching
	DesyncedPVs     int   // records emitted with a nil PV
}

type Options struct {
	// LastOnly keeps only the last PV-bearing info line of each search,
	// flushed when the engine's bestmove arrives.
	LastOnly bool

	Logger zerolog.Logger
}

const progressEvery = 100_000

// Run replays a tee log and returns the record sequence. Only a read error
// on the log itself is fatal; everything line-local is counted and skipped.
func Run(r io.Reader, opts Options) ([]Record, Stats, error) {
	var (
		records []Record
		stats   Stats
		pending *Record
	)

	board, err := fen.FENtoBoard("")
	if err != nil {
		return nil, stats, err
	}
	engine := ""

	reset := func() {
		board, _ = fen.FENtoBoard("")
		pending = nil
	}

	emit := func(rec Record) {
		if opts.LastOnly {
			pending = &rec
			return
		}
		records = append(records, rec)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		stats.Lines++
		if stats.Lines%progressEvery == 0 {
			opts.Logger.Info().Str("lines", commas.Int(stats.Lines)).Msg("replaying")
		}

		line, ok := ucilog.ParseLine(scanner.Text())
		if !ok {
			stats.BadPrefix++
			continue
		}

		switch ev := uciproto.Parse(line.Text).(type) {
		case uciproto.SetPosition:
			if line.Dir != ucilog.GuiToEngine {
				continue
			}
			b, err := fen.FENtoBoard(ev.FEN)
			if err != nil {
				opts.Logger.Debug().Err(err).Msg("bad position fen")
				stats.Unrecognized++
				continue
			}
			for _, uci := range ev.Moves {
				m, err := b.FindMove(uci)
				if err != nil {
					opts.Logger.Debug().Err(err).Msg("position moves desync")
					stats.PositionDesyncs++
					break
				}
				b = b.Apply(m)
			}
			board = b

		case uciproto.UCI, uciproto.NewGame:
			if line.Dir != ucilog.GuiToEngine {
				continue
			}
			reset()

		case uciproto.Identify:
			if line.Dir != ucilog.EngineToGui {
				continue
			}
			engine = ev.Name

		case uciproto.Info:
			if line.Dir != ucilog.EngineToGui {
				continue
			}
			// info lines without a pv carry running statistics only
			if len(ev.PV) == 0 {
				continue
			}

			rec := Record{
				Engine: engine,
				FEN:    board.FENKey(),
				Ply:    board.Ply(),
				Nodes:  ev.Nodes,
				NPS:    ev.NPS,
				Time:   ev.TimeMS,
			}
			if ev.HasMate {
				mate := ev.Mate
				rec.Mate = &mate
			} else if ev.HasCP {
				cp := ev.CP
				rec.Score = &cp
			}

			moves, err := san.ConvertPV(board, ev.PV)
			if err != nil {
				opts.Logger.Debug().Err(err).Msg("pv desync")
				stats.DesyncedPVs++
			} else {
				pv := strings.Join(moves, " ")
				rec.PV = &pv
			}

			emit(rec)

		case uciproto.BestMove:
			if line.Dir != ucilog.EngineToGui {
				continue
			}
			if pending != nil {
				records = append(records, *pending)
				pending = nil
			}

		case uciproto.Unrecognized:
			stats.Unrecognized++

		default:
			// go, uciok: nothing for replay
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read log: %w", err)
	}

	if pending != nil {
		records = append(records, *pending)
	}

	stats.Records = len(records)
	for _, rec := range records {
		stats.Nodes += int64(rec.Nodes)
	}
	return records, stats, nil
}

// WriteJSON writes the record sequence as a single indented JSON array.
func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
