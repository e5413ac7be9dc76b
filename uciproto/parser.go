// Package uciproto parses single lines of the UCI text protocol into tagged
// events. The protocol is loosely specified and engines emit non-standard
// extensions, so parsing is best-effort: anything that does not match a known
// grammar becomes Unrecognized rather than an error.
package uciproto

import (
	"strconv"
	"strings"
)

// Event is one parsed protocol line.
type Event interface {
	event()
}

// SetPosition is a "position" command. FEN is empty for startpos.
type SetPosition struct {
	FEN   string
	Moves []string
}

// Go is a "go" command; Params carries the raw argument tokens.
type Go struct {
	Params []string
}

// Info is an engine "info" line. CP and Mate are valid only when the
// corresponding Has flag is set; at most one of the two is set.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int

	CP      int
	Mate    int
	HasCP   bool
	HasMate bool

	Nodes    int
	NPS      int
	TimeMS   int
	HashFull int
	TBHits   int

	UpperBound bool
	LowerBound bool

	PV []string

	// Extra holds recognized-shape but unknown key/value pairs.
	Extra map[string]string
}

// BestMove is an engine "bestmove" line.
type BestMove struct {
	Move   string
	Ponder string
}

// NewGame is "ucinewgame".
type NewGame struct{}

// UCI is the "uci" handshake command.
type UCI struct{}

// UCIOk is the engine's "uciok" reply.
type UCIOk struct{}

// Identify is an "id name ..." line.
type Identify struct {
	Name string
}

// Unrecognized is any line that matches no known grammar.
type Unrecognized struct {
	Raw string
}

func (SetPosition) event()  {}
func (Go) event()           {}
func (Info) event()         {}
func (BestMove) event()     {}
func (NewGame) event()      {}
func (UCI) event()          {}
func (UCIOk) event()        {}
func (Identify) event()     {}
func (Unrecognized) event() {}

// Parse tokenizes one protocol line. It never fails; lines it cannot make
// sense of come back as Unrecognized.
func Parse(raw string) Event {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return Unrecognized{Raw: raw}
	}

	switch parts[0] {
	case "position":
		return parsePosition(raw, parts[1:])
	case "go":
		return Go{Params: parts[1:]}
	case "info":
		return parseInfo(raw, parts[1:])
	case "bestmove":
		if len(parts) < 2 {
			return Unrecognized{Raw: raw}
		}
		bm := BestMove{Move: parts[1]}
		if len(parts) >= 4 && parts[2] == "ponder" {
			bm.Ponder = parts[3]
		}
		return bm
	case "ucinewgame":
		return NewGame{}
	case "uci":
		return UCI{}
	case "uciok":
		return UCIOk{}
	case "id":
		if len(parts) >= 3 && parts[1] == "name" {
			return Identify{Name: strings.Join(parts[2:], " ")}
		}
		return Unrecognized{Raw: raw}
	default:
		return Unrecognized{Raw: raw}
	}
}

func parsePosition(raw string, args []string) Event {
	if len(args) == 0 {
		return Unrecognized{Raw: raw}
	}

	var pos SetPosition
	rest := args

	switch args[0] {
	case "startpos":
		rest = args[1:]
	case "fen":
		// six FEN fields, or fewer if "moves" cuts the list short
		end := 1
		for end < len(args) && end <= 6 && args[end] != "moves" {
			end++
		}
		if end == 1 {
			return Unrecognized{Raw: raw}
		}
		pos.FEN = strings.Join(args[1:end], " ")
		rest = args[end:]
	default:
		return Unrecognized{Raw: raw}
	}

	if len(rest) > 0 {
		if rest[0] != "moves" {
			return Unrecognized{Raw: raw}
		}
		pos.Moves = rest[1:]
	}

	return pos
}

func parseInfo(raw string, args []string) Event {
	var info Info

	for i := 0; i < len(args); i++ {
		inc := 1
		switch args[i] {
		case "depth":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.Depth = n
		case "seldepth":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.SelDepth = n
		case "multipv":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.MultiPV = n
		case "score":
			if i+2 >= len(args) {
				return Unrecognized{Raw: raw}
			}
			n, err := strconv.Atoi(args[i+2])
			if err != nil {
				return Unrecognized{Raw: raw}
			}
			switch args[i+1] {
			case "cp":
				info.CP = n
				info.HasCP = true
			case "mate":
				info.Mate = n
				info.HasMate = true
			default:
				return Unrecognized{Raw: raw}
			}
			inc = 2
		case "nodes":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.Nodes = n
		case "nps":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.NPS = n
		case "time":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.TimeMS = n
		case "hashfull":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.HashFull = n
		case "tbhits":
			n, ok := intArg(args, i)
			if !ok {
				return Unrecognized{Raw: raw}
			}
			info.TBHits = n
		case "upperbound":
			info.UpperBound = true
			inc = 0
		case "lowerbound":
			info.LowerBound = true
			inc = 0
		case "pv":
			// the pv is always the final field; it runs to end of line
			info.PV = args[i+1:]
			return info
		case "string":
			// free text to end of line
			if info.Extra == nil {
				info.Extra = make(map[string]string)
			}
			info.Extra["string"] = strings.Join(args[i+1:], " ")
			return info
		default:
			// unknown key: keep its value if it has one, require nothing of it
			if info.Extra == nil {
				info.Extra = make(map[string]string)
			}
			if i+1 < len(args) {
				info.Extra[args[i]] = args[i+1]
			} else {
				info.Extra[args[i]] = ""
				inc = 0
			}
		}
		i += inc
	}

	return info
}

func intArg(args []string, i int) (int, bool) {
	if i+1 >= len(args) {
		return 0, false
	}
	n, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, false
	}
	return n, true
}
