// Package fen models a chess position: FEN parsing and printing, legal move
// generation, and move application. A Board is a value; Apply returns a new
// Board and never mutates the receiver.
package fen

import (
	"fmt"
	"strconv"
	"strings"
)

const StartPos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Color int

const (
	White Color = 1
	Black Color = -1
)

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Castling rights indices into Board.Castling.
const (
	WhiteKingside = iota
	WhiteQueenside
	BlackKingside
	BlackQueenside
)

// Board holds a position. Pos is indexed a8=0 .. h1=63, white pieces are
// uppercase, empty squares are ' '. EnPassant is a square index or -1.
type Board struct {
	Pos           [64]byte
	Active        Color
	Castling      [4]bool
	EnPassant     int
	HalfmoveClock int
	FullMove      int
}

// Move is a legal move of a specific Board. It is only produced by
// LegalMoves or FindMove, never constructed directly.
type Move struct {
	From      int
	To        int
	Promote   byte // uppercase piece letter, 0 if none
	Castle    bool
	EnPassant bool
}

// UCI renders the move in coordinate notation, e.g. "e2e4", "e7e8q".
func (m Move) UCI() string {
	s := SquareName(m.From) + SquareName(m.To)
	if m.Promote != 0 {
		s += string(lower(m.Promote))
	}
	return s
}

type nav struct {
	file int
	rank int
}

var (
	knightPaths = []nav{
		{file: -1, rank: 2},
		{file: 1, rank: 2},
		{file: -1, rank: -2},
		{file: 1, rank: -2},

		{file: -2, rank: 1},
		{file: 2, rank: 1},
		{file: -2, rank: -1},
		{file: 2, rank: -1},
	}

	bishopPaths = []nav{
		{file: -1, rank: -1},
		{file: 1, rank: -1},
		{file: -1, rank: 1},
		{file: 1, rank: 1},
	}

	rookPaths = []nav{
		{file: -1, rank: 0},
		{file: 1, rank: 0},
		{file: 0, rank: -1},
		{file: 0, rank: 1},
	}

	kingPaths = []nav{
		{file: -1, rank: 0},
		{file: -1, rank: -1},
		{file: -1, rank: 1},
		{file: 1, rank: 0},
		{file: 1, rank: -1},
		{file: 1, rank: 1},
		{file: 0, rank: -1},
		{file: 0, rank: 1},
	}
)

// SquareIndex converts "e4" to a Pos index.
func SquareIndex(sq string) (int, error) {
	if len(sq) != 2 || sq[0] < 'a' || sq[0] > 'h' || sq[1] < '1' || sq[1] > '8' {
		return 0, fmt.Errorf("invalid square '%s'", sq)
	}
	file := int(sq[0]) - 'a'
	rank := int(sq[1]) - '1'
	return (7-rank)*8 + file, nil
}

// SquareName converts a Pos index to "e4" form.
func SquareName(index int) string {
	file := 'a' + index%8
	rank := 8 - index/8
	return fmt.Sprintf("%c%d", file, rank)
}

func indexToRankFile(index int) (int, int) {
	return index / 8, index % 8
}

// FENtoBoard parses a FEN string. The empty string means the standard
// starting position. The halfmove clock and fullmove number may be omitted.
func FENtoBoard(text string) (Board, error) {
	if text == "" {
		text = StartPos
	}

	parts := strings.Fields(text)
	if len(parts) < 4 {
		return Board{}, fmt.Errorf("fen '%s': want at least 4 fields, have %d", text, len(parts))
	}
	if len(parts) < 6 {
		if len(parts) < 5 {
			parts = append(parts, "0")
		}
		parts = append(parts, "1")
	}

	var b Board

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return Board{}, fmt.Errorf("fen '%s': want 8 ranks, have %d", text, len(ranks))
	}

	var whiteKings, blackKings int
	for i := 0; i < 8; i++ {
		offset := i * 8
		fileCount := 0
		for _, c := range []byte(ranks[i]) {
			if c >= '1' && c <= '8' {
				n := int(c - '0')
				if fileCount+n > 8 {
					return Board{}, fmt.Errorf("fen '%s': rank %d overflows", text, 8-i)
				}
				for j := 0; j < n; j++ {
					b.Pos[offset+fileCount] = ' '
					fileCount++
				}
				continue
			}

			switch c {
			case 'K':
				whiteKings++
			case 'k':
				blackKings++
			case 'Q', 'R', 'B', 'N', 'P', 'q', 'r', 'b', 'n', 'p':
			default:
				return Board{}, fmt.Errorf("fen '%s': invalid piece '%c'", text, c)
			}

			if fileCount >= 8 {
				return Board{}, fmt.Errorf("fen '%s': rank %d overflows", text, 8-i)
			}
			b.Pos[offset+fileCount] = c
			fileCount++
		}
		if fileCount != 8 {
			return Board{}, fmt.Errorf("fen '%s': rank %d has %d squares", text, 8-i, fileCount)
		}
	}

	if whiteKings != 1 || blackKings != 1 {
		return Board{}, fmt.Errorf("fen '%s': want exactly one king per side", text)
	}

	switch parts[1] {
	case "w":
		b.Active = White
	case "b":
		b.Active = Black
	default:
		return Board{}, fmt.Errorf("fen '%s': invalid active color '%s'", text, parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			switch c {
			case 'K':
				b.Castling[WhiteKingside] = true
			case 'Q':
				b.Castling[WhiteQueenside] = true
			case 'k':
				b.Castling[BlackKingside] = true
			case 'q':
				b.Castling[BlackQueenside] = true
			default:
				return Board{}, fmt.Errorf("fen '%s': invalid castling field '%s'", text, parts[2])
			}
		}
	}

	b.EnPassant = -1
	if parts[3] != "-" {
		idx, err := SquareIndex(parts[3])
		if err != nil {
			return Board{}, fmt.Errorf("fen '%s': %v", text, err)
		}
		b.EnPassant = idx
	}

	var err error
	b.HalfmoveClock, err = strconv.Atoi(parts[4])
	if err != nil {
		return Board{}, fmt.Errorf("fen '%s': invalid halfmove clock '%s'", text, parts[4])
	}
	b.FullMove, err = strconv.Atoi(parts[5])
	if err != nil {
		return Board{}, fmt.Errorf("fen '%s': invalid fullmove number '%s'", text, parts[5])
	}

	return b, nil
}

// FENKey returns the first four FEN fields, without the move clocks.
func (b Board) FENKey() string {
	var fen strings.Builder
	for i := 0; i < 8; i++ {
		if fen.Len() != 0 {
			fen.WriteRune('/')
		}

		offset := i * 8
		blanks := 0

		for j := 0; j < 8; j++ {
			if b.Pos[offset+j] == ' ' {
				blanks++
				continue
			}

			if blanks != 0 {
				fen.WriteString(strconv.Itoa(blanks))
				blanks = 0
			}

			fen.WriteByte(b.Pos[offset+j])
		}

		if blanks != 0 {
			fen.WriteString(strconv.Itoa(blanks))
		}
	}

	ep := "-"
	if b.EnPassant != -1 {
		ep = SquareName(b.EnPassant)
	}

	castling := ""
	for i, c := range []byte("KQkq") {
		if b.Castling[i] {
			castling += string(c)
		}
	}
	if castling == "" {
		castling = "-"
	}

	fen.WriteString(fmt.Sprintf(" %s %s %s", b.Active, castling, ep))

	return fen.String()
}

// FEN returns the full six-field FEN.
func (b Board) FEN() string {
	return fmt.Sprintf("%s %d %d", b.FENKey(), b.HalfmoveClock, b.FullMove)
}

// Ply returns the number of half-moves played to reach this position.
func (b Board) Ply() int {
	ply := (b.FullMove - 1) * 2
	if b.Active == Black {
		ply++
	}
	return ply
}

func colorOf(p byte) Color {
	if p >= 'A' && p <= 'Z' {
		return White
	}
	return Black
}

func (b Board) isEnemyAt(idx int, us Color) bool {
	p := b.Pos[idx]
	return p != ' ' && colorOf(p) != us
}

func (b Board) kingSquare(c Color) int {
	king := byte('K')
	if c == Black {
		king = 'k'
	}
	for i := 0; i < 64; i++ {
		if b.Pos[i] == king {
			return i
		}
	}
	return -1
}

// IsSquareAttacked reports whether any piece of color by attacks the square.
func (b Board) IsSquareAttacked(sq int, by Color) bool {
	var queen, rook, bishop, knight, pawn, king byte
	if by == White {
		queen, rook, bishop, knight, pawn, king = 'Q', 'R', 'B', 'N', 'P', 'K'
	} else {
		queen, rook, bishop, knight, pawn, king = 'q', 'r', 'b', 'n', 'p', 'k'
	}

	sqRank, sqFile := indexToRankFile(sq)

	// pawns attack one rank toward the enemy side
	pawnRank := sqRank + 1
	if by == Black {
		pawnRank = sqRank - 1
	}
	if pawnRank >= 0 && pawnRank < 8 {
		for _, pawnFile := range []int{sqFile - 1, sqFile + 1} {
			if pawnFile < 0 || pawnFile >= 8 {
				continue
			}
			if b.Pos[pawnRank*8+pawnFile] == pawn {
				return true
			}
		}
	}

	for _, path := range bishopPaths {
		file, rank := sqFile+path.file, sqRank+path.rank
		for file >= 0 && file < 8 && rank >= 0 && rank < 8 {
			p := b.Pos[rank*8+file]
			if p == ' ' {
				file += path.file
				rank += path.rank
				continue
			}
			if p == bishop || p == queen {
				return true
			}
			break
		}
	}

	for _, path := range rookPaths {
		file, rank := sqFile+path.file, sqRank+path.rank
		for file >= 0 && file < 8 && rank >= 0 && rank < 8 {
			p := b.Pos[rank*8+file]
			if p == ' ' {
				file += path.file
				rank += path.rank
				continue
			}
			if p == rook || p == queen {
				return true
			}
			break
		}
	}

	for _, path := range knightPaths {
		file, rank := sqFile+path.file, sqRank+path.rank
		if file < 0 || file >= 8 || rank < 0 || rank >= 8 {
			continue
		}
		if b.Pos[rank*8+file] == knight {
			return true
		}
	}

	for _, path := range kingPaths {
		file, rank := sqFile+path.file, sqRank+path.rank
		if file < 0 || file >= 8 || rank < 0 || rank >= 8 {
			continue
		}
		if b.Pos[rank*8+file] == king {
			return true
		}
	}

	return false
}

func (b Board) inCheck(c Color) bool {
	return b.IsSquareAttacked(b.kingSquare(c), -c)
}

// IsCheck reports whether the side to move is in check.
func (b Board) IsCheck() bool {
	return b.inCheck(b.Active)
}

// IsMate reports whether the side to move is checkmated.
func (b Board) IsMate() bool {
	return b.IsCheck() && len(b.LegalMoves()) == 0
}

// Apply plays a legal move and returns the resulting position. The move must
// come from LegalMoves or FindMove of this Board; Apply does not re-validate.
func (b Board) Apply(m Move) Board {
	nb := b

	piece := nb.Pos[m.From]
	isCapture := nb.Pos[m.To] != ' '

	nb.Pos[m.To] = piece
	nb.Pos[m.From] = ' '

	if m.EnPassant {
		// the captured pawn sits behind the target square
		if b.Active == White {
			nb.Pos[m.To+8] = ' '
		} else {
			nb.Pos[m.To-8] = ' '
		}
		isCapture = true
	}

	if m.Castle {
		switch m.To {
		case 62: // g1
			nb.Pos[63] = ' '
			nb.Pos[61] = 'R'
		case 58: // c1
			nb.Pos[56] = ' '
			nb.Pos[59] = 'R'
		case 6: // g8
			nb.Pos[7] = ' '
			nb.Pos[5] = 'r'
		case 2: // c8
			nb.Pos[0] = ' '
			nb.Pos[3] = 'r'
		}
	}

	if m.Promote != 0 {
		if b.Active == White {
			nb.Pos[m.To] = m.Promote
		} else {
			nb.Pos[m.To] = lower(m.Promote)
		}
	}

	// rights fall off when the king or rook leaves its square, or the rook is taken
	for _, sq := range []int{m.From, m.To} {
		switch sq {
		case 60: // e1
			nb.Castling[WhiteKingside], nb.Castling[WhiteQueenside] = false, false
		case 63: // h1
			nb.Castling[WhiteKingside] = false
		case 56: // a1
			nb.Castling[WhiteQueenside] = false
		case 4: // e8
			nb.Castling[BlackKingside], nb.Castling[BlackQueenside] = false, false
		case 7: // h8
			nb.Castling[BlackKingside] = false
		case 0: // a8
			nb.Castling[BlackQueenside] = false
		}
	}

	nb.EnPassant = -1
	if piece == 'P' || piece == 'p' {
		nb.HalfmoveClock = 0
		if m.To-m.From == -16 {
			nb.EnPassant = m.From - 8
		} else if m.To-m.From == 16 {
			nb.EnPassant = m.From + 8
		}
	} else if isCapture {
		nb.HalfmoveClock = 0
	} else {
		nb.HalfmoveClock++
	}

	if b.Active == Black {
		nb.FullMove++
	}
	nb.Active = -b.Active

	return nb
}

// FindMove resolves a coordinate move like "e2e4" or "e7e8q" against the
// legal moves of this position.
func (b Board) FindMove(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return Move{}, fmt.Errorf("invalid move '%s'", uci)
	}

	from, err := SquareIndex(uci[:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move '%s'", uci)
	}
	to, err := SquareIndex(uci[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move '%s'", uci)
	}

	var promote byte
	if len(uci) == 5 {
		promote = upper(uci[4])
	}

	for _, m := range b.LegalMoves() {
		if m.From == from && m.To == to && m.Promote == promote {
			return m, nil
		}
	}

	return Move{}, fmt.Errorf("move '%s' is not legal in position %s", uci, b.FENKey())
}

// LegalMoves generates every legal move for the side to move. Promotions
// appear once per promotion piece.
func (b Board) LegalMoves() []Move {
	var king, queen, bishop, knight, rook, pawn byte
	if b.Active == White {
		king, queen, bishop, knight, rook, pawn = 'K', 'Q', 'B', 'N', 'R', 'P'
	} else {
		king, queen, bishop, knight, rook, pawn = 'k', 'q', 'b', 'n', 'r', 'p'
	}

	var moves []Move

	for i := 0; i < 64; i++ {
		switch b.Pos[i] {
		case king:
			moves = b.kingMoves(i, moves)
		case queen:
			moves = b.pathMoves(i, kingPaths, moves)
		case bishop:
			moves = b.pathMoves(i, bishopPaths, moves)
		case rook:
			moves = b.pathMoves(i, rookPaths, moves)
		case knight:
			moves = b.knightMoves(i, moves)
		case pawn:
			moves = b.pawnMoves(i, moves)
		}
	}

	// drop everything that leaves our own king attacked
	legal := moves[:0]
	for _, m := range moves {
		if !b.Apply(m).inCheck(b.Active) {
			legal = append(legal, m)
		}
	}

	return legal
}

func (b Board) kingMoves(idx int, moves []Move) []Move {
	startRank, startFile := indexToRankFile(idx)

	for _, path := range kingPaths {
		rank, file := startRank+path.rank, startFile+path.file
		if rank < 0 || rank > 7 || file < 0 || file > 7 {
			continue
		}

		i := rank*8 + file
		if b.Pos[i] == ' ' || b.isEnemyAt(i, b.Active) {
			moves = append(moves, Move{From: idx, To: i})
		}
	}

	// castling: rights intact, squares empty, king not in or moving through
	// check; the destination square is covered by the generic legality filter
	type castleOption struct {
		right   int
		rookSq  int
		rook    byte
		empty   []int
		transit int
		to      int
	}

	var options []castleOption
	if b.Active == White && idx == 60 {
		options = []castleOption{
			{right: WhiteKingside, rookSq: 63, rook: 'R', empty: []int{61, 62}, transit: 61, to: 62},
			{right: WhiteQueenside, rookSq: 56, rook: 'R', empty: []int{57, 58, 59}, transit: 59, to: 58},
		}
	} else if b.Active == Black && idx == 4 {
		options = []castleOption{
			{right: BlackKingside, rookSq: 7, rook: 'r', empty: []int{5, 6}, transit: 5, to: 6},
			{right: BlackQueenside, rookSq: 0, rook: 'r', empty: []int{1, 2, 3}, transit: 3, to: 2},
		}
	}

	for _, opt := range options {
		if !b.Castling[opt.right] || b.Pos[opt.rookSq] != opt.rook {
			continue
		}

		blocked := false
		for _, sq := range opt.empty {
			if b.Pos[sq] != ' ' {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		if b.IsSquareAttacked(idx, -b.Active) || b.IsSquareAttacked(opt.transit, -b.Active) {
			continue
		}

		moves = append(moves, Move{From: idx, To: opt.to, Castle: true})
	}

	return moves
}

func (b Board) knightMoves(idx int, moves []Move) []Move {
	startRank, startFile := indexToRankFile(idx)

	for _, path := range knightPaths {
		rank, file := startRank+path.rank, startFile+path.file
		if rank < 0 || rank > 7 || file < 0 || file > 7 {
			continue
		}

		i := rank*8 + file
		if b.Pos[i] == ' ' || b.isEnemyAt(i, b.Active) {
			moves = append(moves, Move{From: idx, To: i})
		}
	}

	return moves
}

func (b Board) pathMoves(idx int, paths []nav, moves []Move) []Move {
	startRank, startFile := indexToRankFile(idx)

	for _, path := range paths {
		rank, file := startRank+path.rank, startFile+path.file
		for rank >= 0 && rank < 8 && file >= 0 && file < 8 {
			i := rank*8 + file

			if b.isEnemyAt(i, b.Active) {
				moves = append(moves, Move{From: idx, To: i})
				break
			}

			if b.Pos[i] != ' ' {
				break
			}

			moves = append(moves, Move{From: idx, To: i})
			rank += path.rank
			file += path.file
		}
	}

	return moves
}

func (b Board) pawnMoves(idx int, moves []Move) []Move {
	var direction, homeRank, lastRank int
	if b.Active == White {
		direction, homeRank, lastRank = -1, 6, 0
	} else {
		direction, homeRank, lastRank = 1, 1, 7
	}

	startRank, startFile := indexToRankFile(idx)

	add := func(to int, enPassant bool) {
		if to/8 == lastRank {
			for _, p := range []byte{'Q', 'R', 'B', 'N'} {
				moves = append(moves, Move{From: idx, To: to, Promote: p})
			}
			return
		}
		moves = append(moves, Move{From: idx, To: to, EnPassant: enPassant})
	}

	rank := startRank + direction
	oneSquare := rank*8 + startFile
	if b.Pos[oneSquare] == ' ' {
		add(oneSquare, false)

		if startRank == homeRank {
			twoSquare := (startRank+direction*2)*8 + startFile
			if b.Pos[twoSquare] == ' ' {
				moves = append(moves, Move{From: idx, To: twoSquare})
			}
		}
	}

	for _, fileChange := range []int{-1, 1} {
		file := startFile + fileChange
		if file < 0 || file > 7 {
			continue
		}

		i := rank*8 + file
		if b.isEnemyAt(i, b.Active) {
			add(i, false)
		} else if i == b.EnPassant {
			add(i, true)
		}
	}

	return moves
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}
