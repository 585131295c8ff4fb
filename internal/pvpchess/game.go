package pvpchess

import (
    "fmt"
    "regexp"
    "strings"
    "time"

    nchess "github.com/corentings/chess/v2"
    "github.com/google/uuid"
)

var squarePattern = regexp.MustCompile(`^[a-h][1-8]$`)

// NewGame starts a game from the initial position with p1 as white.
func NewGame(p1, p2, channel string, now time.Time) *Game {
    return &Game{
        ID:        uuid.NewString(),
        P1:        p1,
        P2:        p2,
        Channel:   channel,
        CreatedAt: now,
        history:   []string{},
        board:     nchess.NewGame(),
    }
}

// Replay rebuilds a game from a stored UCI history.
func Replay(p1, p2, channel string, moves []string, now time.Time) (*Game, error) {
    board, err := reconstruct(moves)
    if err != nil {
        return nil, err
    }
    g := NewGame(p1, p2, channel, now)
    g.board = board
    g.history = append(g.history, moves...)
    return g, nil
}

// Who returns the nick to move.
func (g *Game) Who() string {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return g.whoLocked()
}

func (g *Game) whoLocked() string {
    if len(g.history)%2 == 0 { return g.P1 }
    return g.P2
}

// Other returns the opponent of nick.
func (g *Game) Other(nick string) string {
    if nick == g.P2 { return g.P1 }
    return g.P2
}

// Has reports whether nick plays in this game.
func (g *Game) Has(nick string) bool { return nick == g.P1 || nick == g.P2 }

func (g *Game) History() []string {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return append([]string(nil), g.history...)
}

func (g *Game) Len() int {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return len(g.history)
}

// Board returns a copy of the current board for rendering.
func (g *Game) Board() *nchess.Board {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return g.board.Clone().Position().Board()
}

func (g *Game) FEN() string {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return g.board.FEN()
}

// Push plays a move given in UCI, falling back to SAN, and returns its UCI form.
func (g *Game) Push(text string) (string, error) {
    raw := strings.TrimSpace(text)
    if raw == "" {
        return "", ErrIllegalMove
    }
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.board.Outcome() != nchess.NoOutcome {
        return "", ErrIllegalMove
    }
    if err := g.board.PushNotationMove(strings.ToLower(raw), nchess.UCINotation{}, nil); err != nil {
        if err := g.board.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
            return "", fmt.Errorf("%w: %s", ErrIllegalMove, raw)
        }
    }
    last := lastMove(g.board)
    if last == nil {
        return "", ErrIllegalMove
    }
    uci := last.String()
    g.history = append(g.history, uci)
    return uci, nil
}

// Pop takes back up to n half-moves by replaying the shortened history.
func (g *Game) Pop(n int) (int, error) {
    g.mu.Lock()
    defer g.mu.Unlock()
    if n > len(g.history) { n = len(g.history) }
    if n <= 0 { return 0, ErrNothingToUndo }
    kept := g.history[:len(g.history)-n]
    board, err := reconstruct(kept)
    if err != nil {
        return 0, err
    }
    g.board = board
    g.history = append([]string(nil), kept...)
    return n, nil
}

// MovesFrom lists legal moves (UCI) starting on square.
func (g *Game) MovesFrom(square string) []string {
    sq := strings.ToLower(strings.TrimSpace(square))
    g.mu.RLock()
    defer g.mu.RUnlock()
    out := []string{}
    for _, mv := range g.board.ValidMoves() {
        if mv.S1().String() == sq {
            out = append(out, mv.String())
        }
    }
    return out
}

// LegalMoves lists every legal move (UCI) for the side to move.
func (g *Game) LegalMoves() []string {
    g.mu.RLock()
    defer g.mu.RUnlock()
    valid := g.board.ValidMoves()
    out := make([]string, 0, len(valid))
    for _, mv := range valid {
        out = append(out, mv.String())
    }
    return out
}

// InCheck reports whether the last move gave check.
func (g *Game) InCheck() bool {
    g.mu.RLock()
    defer g.mu.RUnlock()
    last := lastMove(g.board)
    return last != nil && last.HasTag(nchess.Check)
}

// Result classifies the current position.
func (g *Game) Result() (Result, string) {
    g.mu.RLock()
    defer g.mu.RUnlock()
    if g.board.Outcome() == nchess.NoOutcome {
        return ResultOngoing, ""
    }
    method := g.board.Method()
    switch method {
    case nchess.Checkmate:
        return ResultCheckmate, method.String()
    case nchess.Stalemate:
        return ResultStalemate, method.String()
    default:
        return ResultDraw, method.String()
    }
}

// PGN renders the move text of the game.
func (g *Game) PGN() string {
    g.mu.RLock()
    defer g.mu.RUnlock()
    return g.board.String()
}

// IsSquare reports whether text names a board square such as "e2".
func IsSquare(text string) bool {
    _, ok := isSquare(text)
    return ok
}

func isSquare(text string) (string, bool) {
    s := strings.ToLower(strings.TrimSpace(text))
    return s, squarePattern.MatchString(s)
}

func lastMove(game *nchess.Game) *nchess.Move {
    moves := game.Moves()
    if len(moves) == 0 { return nil }
    return moves[len(moves)-1]
}

// reconstruct replays UCI moves from the start position.
func reconstruct(moves []string) (*nchess.Game, error) {
    game := nchess.NewGame()
    for i, mv := range moves {
        if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
            return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
        }
    }
    return game, nil
}
