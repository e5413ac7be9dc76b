// Package san converts coordinate moves into standard algebraic notation.
package san

import (
	"fmt"
	"strings"

	"ucitap/fen"
)

// ToAlgebraic renders a legal move of b in standard algebraic notation,
// including the minimal disambiguator and a best-effort check suffix.
func ToAlgebraic(b fen.Board, m fen.Move) string {
	if m.Castle {
		var san string
		if m.To == 62 || m.To == 6 {
			san = "O-O"
		} else {
			san = "O-O-O"
		}
		return san + checkSuffix(b, m)
	}

	piece := upper(b.Pos[m.From])
	isCapture := b.Pos[m.To] != ' ' || m.EnPassant

	var san strings.Builder

	if piece != 'P' {
		san.WriteByte(piece)
		san.WriteString(disambiguator(b, m))
	} else if isCapture {
		// pawn captures always name the source file
		san.WriteByte(byte('a' + m.From%8))
	}

	if isCapture {
		san.WriteByte('x')
	}

	san.WriteString(fen.SquareName(m.To))

	if m.Promote != 0 {
		san.WriteByte('=')
		san.WriteByte(m.Promote)
	}

	san.WriteString(checkSuffix(b, m))

	return san.String()
}

// disambiguator returns the source file, rank, or both, when another piece
// of the same kind can also reach the destination.
func disambiguator(b fen.Board, m fen.Move) string {
	var sameFile, sameRank, any bool
	for _, other := range b.LegalMoves() {
		if other.From == m.From || other.To != m.To {
			continue
		}
		if b.Pos[other.From] != b.Pos[m.From] {
			continue
		}

		any = true
		if other.From%8 == m.From%8 {
			sameFile = true
		}
		if other.From/8 == m.From/8 {
			sameRank = true
		}
	}

	if !any {
		return ""
	}

	from := fen.SquareName(m.From)
	switch {
	case !sameFile:
		return from[:1]
	case !sameRank:
		return from[1:]
	default:
		return from
	}
}

func checkSuffix(b fen.Board, m fen.Move) string {
	next := b.Apply(m)
	if !next.IsCheck() {
		return ""
	}
	if next.IsMate() {
		return "#"
	}
	return "+"
}

// ConvertPV converts a principal variation of coordinate moves, threading the
// position through each converted move. If any move does not match a legal
// move of the position reached so far, the whole conversion fails; a partial
// PV would read as a complete one.
func ConvertPV(b fen.Board, uciMoves []string) ([]string, error) {
	moves := make([]string, 0, len(uciMoves))
	for i, uci := range uciMoves {
		m, err := b.FindMove(uci)
		if err != nil {
			return nil, fmt.Errorf("pv move %d: %w", i+1, err)
		}
		moves = append(moves, ToAlgebraic(b, m))
		b = b.Apply(m)
	}
	return moves, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}
