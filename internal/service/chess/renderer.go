package chess

import (
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/irc-chessbot/internal/domain"
)

// BoardMode selects how a board is laid out for a given IRC client.
type BoardMode int

const (
	ModeNormal BoardMode = iota
	ModeWide
	ModeERC
)

var modeNames = map[BoardMode]string{
	ModeNormal: "normal",
	ModeWide:   "wide",
	ModeERC:    "erc",
}

func (m BoardMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "normal"
}

// ParseBoardMode resolves a stored mode name. Unknown names fall back to ModeNormal.
func ParseBoardMode(s string) (BoardMode, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == n {
			return m, true
		}
	}
	return ModeNormal, false
}

// BoardModeNames lists the selectable modes in a stable order.
func BoardModeNames() []string {
	return []string{ModeNormal.String(), ModeWide.String(), ModeERC.String()}
}

// Layout is the concrete rendering recipe for a BoardMode.
type Layout struct {
	PieceSpacing [2]int
	PawnSpacing  [2]int
	Pawn         string
	Empty        string
	// Label is set on the player's prefs when the mode is chosen. Empty keeps the current label.
	Label string
}

const (
	pawnGlyph     = "♟︎"
	barePawnGlyph = "♟"
)

// Layout resolves the mode into spacing and glyph choices.
func (m BoardMode) Layout() Layout {
	switch m {
	case ModeWide:
		return Layout{
			PieceSpacing: [2]int{2, 2},
			PawnSpacing:  [2]int{2, 2},
			Pawn:         barePawnGlyph,
			Empty:        barePawnGlyph,
			Label:        Labels[2],
		}
	case ModeERC:
		return Layout{
			PieceSpacing: [2]int{1, 1},
			PawnSpacing:  [2]int{1, 1},
			Pawn:         barePawnGlyph,
			Empty:        barePawnGlyph,
			Label:        "   A  B  C  D  E  F  G  H",
		}
	default:
		return Layout{
			PieceSpacing: [2]int{1, 1},
			PawnSpacing:  [2]int{1, 1},
			Pawn:         pawnGlyph,
			Empty:        pawnGlyph,
		}
	}
}

var pieceGlyphs = map[nchess.PieceType]string{
	nchess.King:   "♚",
	nchess.Queen:  "♛",
	nchess.Rook:   "♜",
	nchess.Bishop: "♝",
	nchess.Knight: "♞",
}

// BoardRenderer turns a position into IRC lines for one viewer.
type BoardRenderer interface {
	Render(board *nchess.Board, prefs domain.Prefs) []string
}

type textBoardRenderer struct{}

func NewTextBoardRenderer() BoardRenderer {
	return textBoardRenderer{}
}

// Render draws ranks 8..1 framed by the label row. Light squares use bg[1]
// and dark squares bg[0]; empty squares draw a pawn in the background colour.
func (textBoardRenderer) Render(board *nchess.Board, prefs domain.Prefs) []string {
	if board == nil {
		return nil
	}
	mode, _ := ParseBoardMode(prefs.BoardMode)
	layout := mode.Layout()
	def := domain.DefaultPrefs()
	fg := [2]string{colorOr(prefs.FG[0], def.FG[0]), colorOr(prefs.FG[1], def.FG[1])}
	bg := [2]string{colorOr(prefs.BG[0], def.BG[0]), colorOr(prefs.BG[1], def.BG[1])}
	label := prefs.Label
	if strings.TrimSpace(label) == "" {
		label = def.Label
	}

	lines := make([]string, 0, 10)
	lines = append(lines, label)
	for ri := 7; ri >= 0; ri-- {
		var b strings.Builder
		rank := strconv.Itoa(ri + 1)
		b.WriteString(rank)
		b.WriteByte(' ')
		for fi := 0; fi < 8; fi++ {
			sqBG := bg[0]
			if (fi+ri)%2 == 1 {
				sqBG = bg[1]
			}
			piece := board.Piece(nchess.NewSquare(nchess.File(fi), nchess.Rank(ri)))
			glyph, spacing, pieceFG := layout.Empty, layout.PawnSpacing, sqBG
			if piece != nchess.NoPiece {
				if piece.Type() == nchess.Pawn {
					glyph = layout.Pawn
				} else {
					glyph, spacing = pieceGlyphs[piece.Type()], layout.PieceSpacing
				}
				pieceFG = fg[0]
				if piece.Color() == nchess.Black {
					pieceFG = fg[1]
				}
			}
			b.WriteByte('\x03')
			b.WriteString(pieceFG)
			b.WriteByte(',')
			b.WriteString(sqBG)
			b.WriteString(strings.Repeat(" ", spacing[0]))
			b.WriteString(glyph)
			b.WriteString(strings.Repeat(" ", spacing[1]))
			// The last square stays open so the separator space keeps its background.
			if fi < 7 {
				b.WriteByte('\x03')
			}
		}
		b.WriteString(" \x03 ")
		b.WriteString(rank)
		lines = append(lines, b.String())
	}
	lines = append(lines, label)
	return lines
}

func colorOr(name, fallback string) string {
	if code, ok := ColorCode(name); ok {
		return code
	}
	code, _ := ColorCode(fallback)
	return code
}
