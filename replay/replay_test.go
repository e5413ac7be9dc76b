package replay

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func gui(text string) string    { return ">> 2026-01-02T15:04:05.000 " + text }
func engine(text string) string { return "<< 2026-01-02T15:04:05.100 " + text }

func run(t *testing.T, lines []string, opts Options) ([]Record, Stats) {
	t.Helper()
	opts.Logger = zerolog.Nop()
	records, stats, err := Run(strings.NewReader(strings.Join(lines, "\n")+"\n"), opts)
	if err != nil {
		t.Fatal(err)
	}
	return records, stats
}

func TestReplayStartposMoves(t *testing.T) {
	lines := []string{
		engine("id name Stockfish 16.1"),
		gui("position startpos moves e2e4 e7e5"),
		gui("go depth 20"),
		engine("info depth 20 score cp 35 nodes 1000 nps 500000 time 2 pv g1f3 b8c6"),
		engine("bestmove g1f3"),
	}

	records, stats := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Engine != "Stockfish 16.1" {
		t.Errorf("engine: got %q", rec.Engine)
	}
	if want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6"; rec.FEN != want {
		t.Errorf("fen:\nwant %s\ngot  %s", want, rec.FEN)
	}
	if rec.Ply != 2 {
		t.Errorf("ply: want 2 got %d", rec.Ply)
	}
	if rec.Score == nil || *rec.Score != 35 {
		t.Errorf("score: got %v", rec.Score)
	}
	if rec.Mate != nil {
		t.Errorf("mate: want nil got %d", *rec.Mate)
	}
	if rec.Nodes != 1000 || rec.NPS != 500000 || rec.Time != 2 {
		t.Errorf("stats fields: %+v", rec)
	}
	if rec.PV == nil || *rec.PV != "Nf3 Nc6" {
		t.Errorf("pv: got %v", rec.PV)
	}
	if stats.Records != 1 || stats.Lines != 5 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.Nodes != 1000 {
		t.Errorf("nodes: want 1000 got %d", stats.Nodes)
	}
}

func TestReplayMateScore(t *testing.T) {
	lines := []string{
		gui("position startpos moves e2e4 e7e5 d1h5 b8c6 f1c4 g8f6"),
		engine("info depth 10 score mate 1 nodes 5000 pv h5f7"),
	}

	records, _ := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Mate == nil || *rec.Mate != 1 {
		t.Errorf("mate: got %v", rec.Mate)
	}
	if rec.Score != nil {
		t.Errorf("score: want nil got %d", *rec.Score)
	}
	if rec.PV == nil || *rec.PV != "Qxf7#" {
		t.Errorf("pv: got %v", rec.PV)
	}
}

func TestReplayExplicitFEN(t *testing.T) {
	lines := []string{
		gui("position fen 4k3/8/8/8/8/8/8/4K2R w K - 0 40 moves e1g1"),
		engine("info depth 8 score cp 500 pv e8d7"),
	}

	records, _ := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if want := "4k3/8/8/8/8/8/8/5RK1 b - -"; records[0].FEN != want {
		t.Errorf("fen: want %s got %s", want, records[0].FEN)
	}
	if records[0].Ply != 79 {
		t.Errorf("ply: want 79 got %d", records[0].Ply)
	}
}

func TestReplayFailSoftPV(t *testing.T) {
	lines := []string{
		gui("position startpos"),
		engine("info depth 5 score cp 20 nodes 10 pv e2e4"),
		engine("info depth 6 score cp 25 nodes 20 pv e2e5"), // illegal
		engine("info depth 7 score cp 30 nodes 30 pv d2d4"),
	}

	records, stats := run(t, lines, Options{})

	if len(records) != 3 {
		t.Fatalf("want 3 records, got %d", len(records))
	}
	if records[0].PV == nil || *records[0].PV != "e4" {
		t.Errorf("record 0 pv: got %v", records[0].PV)
	}
	if records[1].PV != nil {
		t.Errorf("record 1 pv: want nil got %q", *records[1].PV)
	}
	if records[1].Score == nil || *records[1].Score != 25 {
		t.Errorf("record 1 keeps its score: got %v", records[1].Score)
	}
	if records[2].PV == nil || *records[2].PV != "d4" {
		t.Errorf("record 2 pv: got %v", records[2].PV)
	}
	if stats.DesyncedPVs != 1 {
		t.Errorf("desynced pvs: want 1 got %d", stats.DesyncedPVs)
	}
}

func TestReplayDeterminism(t *testing.T) {
	lines := []string{
		engine("id name Tester"),
		gui("position startpos moves d2d4 d7d5"),
		engine("info depth 10 score cp 15 nodes 100 pv c2c4 e7e6"),
		engine("info depth 12 score cp 18 nodes 200 pv g1f3"),
		engine("bestmove c2c4"),
	}

	first, _ := run(t, lines, Options{})
	second, _ := run(t, lines, Options{})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("replays differ:\n%+v\n%+v", first, second)
	}
}

func TestReplayLastOnly(t *testing.T) {
	lines := []string{
		gui("position startpos"),
		engine("info depth 5 score cp 10 pv e2e4"),
		engine("info depth 10 score cp 30 pv d2d4"),
		engine("bestmove d2d4"),
		gui("position startpos moves d2d4"),
		engine("info depth 9 score cp -12 pv d7d5"),
	}

	records, _ := run(t, lines, Options{LastOnly: true})

	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	if records[0].PV == nil || *records[0].PV != "d4" {
		t.Errorf("record 0 pv: got %v", records[0].PV)
	}
	// a search still pending at end of log is flushed
	if records[1].PV == nil || *records[1].PV != "d5" {
		t.Errorf("record 1 pv: got %v", records[1].PV)
	}
}

func TestReplayResets(t *testing.T) {
	lines := []string{
		gui("position startpos moves e2e4"),
		gui("ucinewgame"),
		engine("info depth 3 score cp 0 pv e2e4"), // startpos again after reset
	}

	records, _ := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if records[0].PV == nil || *records[0].PV != "e4" {
		t.Errorf("pv: got %v", records[0].PV)
	}
	if records[0].Ply != 0 {
		t.Errorf("ply: want 0 got %d", records[0].Ply)
	}
}

// Engines announce "id name" once per process, not per game, so the name has
// to survive ucinewgame until the next announcement replaces it.
func TestReplayEngineNamePersistsAcrossNewGame(t *testing.T) {
	lines := []string{
		engine("id name Stockfish 16.1"),
		gui("position startpos"),
		engine("info depth 3 score cp 20 pv e2e4"),
		gui("ucinewgame"),
		gui("position startpos"),
		engine("info depth 3 score cp 20 pv d2d4"),
	}

	records, _ := run(t, lines, Options{})

	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Engine != "Stockfish 16.1" {
			t.Errorf("record %d engine: got %q", i, rec.Engine)
		}
	}
}

func TestReplayDirectionFilter(t *testing.T) {
	lines := []string{
		// a position line in the engine direction must not move the state
		engine("position startpos moves e2e4 e7e5"),
		engine("info depth 5 score cp 0 pv e2e4"),
		// info in the GUI direction is not engine output
		gui("info depth 5 score cp 99 pv e2e4"),
	}

	records, _ := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if records[0].PV == nil || *records[0].PV != "e4" {
		t.Errorf("pv: got %v", records[0].PV)
	}
}

func TestReplaySkipsNoise(t *testing.T) {
	lines := []string{
		"not a log line at all",
		gui("setoption name Hash value 128"),
		gui("position startpos"),
		engine("info depth 1 seldepth 1 nodes 20"), // no pv: statistics only
		engine("info depth 2 score cp 10 pv e2e4"),
	}

	records, stats := run(t, lines, Options{})

	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if stats.BadPrefix != 1 {
		t.Errorf("bad prefix: want 1 got %d", stats.BadPrefix)
	}
	if stats.Unrecognized != 1 {
		t.Errorf("unrecognized: want 1 got %d", stats.Unrecognized)
	}
}

func TestReplayPositionDesync(t *testing.T) {
	lines := []string{
		gui("position startpos moves e2e4 e2e4"), // second move is stale
		engine("info depth 2 score cp 10 pv e7e5"),
	}

	records, stats := run(t, lines, Options{})

	if stats.PositionDesyncs != 1 {
		t.Errorf("position desyncs: want 1 got %d", stats.PositionDesyncs)
	}
	// the position advanced as far as it could; e7e5 is legal there
	if len(records) != 1 || records[0].PV == nil || *records[0].PV != "e5" {
		t.Fatalf("records: %+v", records)
	}
}

func TestWriteJSON(t *testing.T) {
	score := 35
	pv := "Nf3 Nc6"
	records := []Record{
		{
			Engine: "Stockfish 16.1",
			FEN:    "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6",
			Ply:    2,
			Score:  &score,
			Nodes:  1000,
			NPS:    500000,
			Time:   2,
			PV:     &pv,
		},
		{FEN: "8/8/8/8/8/8/8/8 w - -"},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, records); err != nil {
		t.Fatal(err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 {
		t.Fatalf("want 2 elements, got %d", len(decoded))
	}

	first := decoded[0]
	for _, key := range []string{"engine", "fen", "ply", "score", "mate", "nodes", "nps", "time", "pv"} {
		if _, ok := first[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if first["score"] != float64(35) {
		t.Errorf("score: got %v", first["score"])
	}
	if first["mate"] != nil {
		t.Errorf("mate: want null got %v", first["mate"])
	}
	if decoded[1]["pv"] != nil {
		t.Errorf("pv: want null got %v", decoded[1]["pv"])
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("want [] got %q", got)
	}
}
