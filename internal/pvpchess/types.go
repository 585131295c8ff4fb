package pvpchess

import (
	"errors"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrSelfChallenge     = errors.New("cannot challenge yourself")
	ErrAlreadyInvited    = errors.New("invitation already pending")
	ErrAlreadyPlaying    = errors.New("game already in progress")
	ErrNoInvitation      = errors.New("no pending invitation")
	ErrNoGameSelected    = errors.New("no game selected")
	ErrNoSuchGame        = errors.New("no game with that player")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalMove       = errors.New("illegal move")
	ErrNothingToUndo     = errors.New("no moves to undo")
	ErrUndoNotYourMove   = errors.New("undo only after your own move")
	ErrEngineUnavailable = errors.New("chess engine unavailable")
)

// Game is one live match between P1 (white) and P2 (black) on a channel.
// P1 is to move when the history has even length, P2 when odd.
type Game struct {
	ID        string
	P1        string
	P2        string
	Channel   string
	CreatedAt time.Time

	mu      sync.RWMutex
	history []string
	board   *nchess.Game
}

// Result classifies a position after a half-move.
type Result int

const (
	ResultOngoing Result = iota
	ResultCheckmate
	ResultStalemate
	ResultDraw
)

func (r Result) String() string {
	switch r {
	case ResultCheckmate:
		return "checkmate"
	case ResultStalemate:
		return "stalemate"
	case ResultDraw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Terminal describes how a game ended. Mover made the final half-move.
type Terminal struct {
	Result Result
	Method string
	Mover  string
	Other  string
}

// MoveResult is returned by Manager.Move.
type MoveResult struct {
	Game *Game

	// Square query: Hints lists legal moves from HintSquare; nothing was played.
	HintSquare string
	Hints      []string

	Mover  string
	Played string
	Engine string
	Check  bool

	// EngineErr is set when the CPU could not reply; the player's move stands.
	EngineErr error

	// Terminal is non-nil when the game ended and was removed.
	Terminal *Terminal
}

// IsHint reports whether the input was a square query.
func (r *MoveResult) IsHint() bool { return r != nil && r.HintSquare != "" }

// UndoOutcome is the result kind of Manager.Undo.
type UndoOutcome int

const (
	// UndoApplied: moves were taken back.
	UndoApplied UndoOutcome = iota
	// UndoRequested: the opponent has been asked to confirm.
	UndoRequested
	// UndoExpired: the opponent's request was too old and has been dropped.
	UndoExpired
)

type UndoResult struct {
	Outcome  UndoOutcome
	Game     *Game
	Opponent string
	Popped   int
}

// ChallengeResult is returned by Manager.Challenge. Game is set for CPU games,
// which start immediately; otherwise an invitation was recorded.
type ChallengeResult struct {
	Game    *Game
	Invited bool
}
