package chesspresenter

import (
	"errors"
	"strconv"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/irc-chessbot/internal/domain"
	"github.com/park285/irc-chessbot/internal/msgcat"
	"github.com/park285/irc-chessbot/internal/pvpchess"
	svcchess "github.com/park285/irc-chessbot/internal/service/chess"
)

// historyChunk is the number of moves per history line.
const historyChunk = 50

// BoardFunc renders the selected board as seen by nick.
type BoardFunc func(nick string) []string

// Formatter renders game results into IRC reply lines from the message catalog.
type Formatter struct {
	cat      *msgcat.Catalog
	renderer svcchess.BoardRenderer
	prefix   string
	botNick  string
}

func NewFormatter(cat *msgcat.Catalog, renderer svcchess.BoardRenderer, prefix, botNick string) *Formatter {
	return &Formatter{cat: cat, renderer: renderer, prefix: prefix, botNick: botNick}
}

func (f *Formatter) Prefix() string { return strings.TrimSpace(f.prefix) }

// data builds template fields: Nick, Prefix and Bot plus the given key/value pairs.
func (f *Formatter) data(nick string, kv ...any) map[string]any {
	d := map[string]any{"Nick": nick, "Prefix": f.Prefix(), "Bot": f.botNick}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			d[k] = kv[i+1]
		}
	}
	return d
}

// Say renders one catalog entry for nick.
func (f *Formatter) Say(key, nick string, kv ...any) []string {
	return f.cat.Lines(key, f.data(nick, kv...))
}

// Line is Say for entries known to be a single line.
func (f *Formatter) Line(key, nick string, kv ...any) string {
	return f.cat.Text(key, f.data(nick, kv...))
}

// List joins names the way replies show them.
func List(items []string) string { return strings.Join(items, ", ") }

func (f *Formatter) Board(board *nchess.Board, prefs domain.Prefs) []string {
	return f.renderer.Render(board, prefs)
}

// Moved renders the reply to a move command issued by caller.
func (f *Formatter) Moved(res *pvpchess.MoveResult, caller string, boardFor BoardFunc, present func(nick string) bool) []string {
	if res == nil || res.Game == nil {
		return nil
	}
	g := res.Game
	if res.IsHint() {
		if len(res.Hints) == 0 {
			return f.Say("move.no_moves_for", caller, "Square", res.HintSquare)
		}
		return f.Say("move.moves_for", caller, "Square", res.HintSquare, "Moves", List(res.Hints))
	}
	if res.Terminal != nil {
		return f.Terminal(res.Terminal, g, boardFor)
	}

	var out []string
	if res.Engine != "" {
		out = append(out, f.Line("move.cpu_played", caller, "Move", res.Engine))
	}
	if res.EngineErr != nil {
		return append(out, f.Say("move.engine_failed", caller)...)
	}

	who := g.Who()
	switch {
	case res.Check:
		out = append(out, f.Line("move.check", caller))
		out = append(out, f.Line("move.turn", caller, "Target", who))
		out = append(out, boardFor(who)...)
	case present == nil || present(who) || who == f.botNick:
		out = append(out, f.Line("move.turn", caller, "Target", who))
		out = append(out, boardFor(who)...)
	default:
		out = append(out, f.Say("move.away", caller, "Target", who)...)
	}
	return out
}

// Terminal announces a finished game with both players' boards.
func (f *Formatter) Terminal(t *pvpchess.Terminal, g *pvpchess.Game, boardFor BoardFunc) []string {
	var out []string
	switch t.Result {
	case pvpchess.ResultCheckmate:
		out = append(out, f.Line("result.checkmate", t.Mover))
	case pvpchess.ResultStalemate:
		out = append(out, f.Line("result.stalemate", t.Mover))
	default:
		out = append(out, f.Line("result.draw", t.Mover, "Method", t.Method))
	}
	out = append(out, boardFor(g.P1)...)
	out = append(out, boardFor(g.P2)...)
	if t.Result == pvpchess.ResultCheckmate || t.Result == pvpchess.ResultStalemate {
		out = append(out, f.Line("result.wins", t.Mover))
	}
	return out
}

// MoveError maps a Manager.Move error to its reply.
func (f *Formatter) MoveError(err error, nick string) []string {
	switch {
	case errors.Is(err, pvpchess.ErrNoGameSelected):
		return f.Say("common.no_selection", nick)
	case errors.Is(err, pvpchess.ErrNotYourTurn):
		return f.Say("move.not_your_turn", nick)
	case errors.Is(err, pvpchess.ErrIllegalMove):
		return f.Say("move.invalid", nick)
	default:
		return f.Say("common.failure", nick)
	}
}

// History splits moves into lines of historyChunk moves. An empty history
// still yields one line.
func (f *Formatter) History(nick string, moves []string) []string {
	if len(moves) == 0 {
		return f.Say("history.line", nick, "Moves", "")
	}
	var out []string
	for i := 0; i < len(moves); i += historyChunk {
		end := i + historyChunk
		if end > len(moves) {
			end = len(moves)
		}
		out = append(out, f.Line("history.line", nick, "Moves", List(moves[i:end])))
	}
	return out
}

// Score renders a player record. A nil record means the nick is unknown.
func (f *Formatter) Score(viewer, target string, rec *domain.PlayerRecord) []string {
	if rec == nil {
		if target == viewer {
			return f.Say("score.unknown_self", viewer)
		}
		return f.Say("score.unknown", viewer, "Target", target)
	}
	return f.Say("score.line", viewer,
		"Target", target,
		"Games", rec.Games,
		"Checkmates", rec.Checkmates,
		"Stalemates", rec.Stalemates,
		"Draws", rec.Draws,
		"Losses", rec.Losses,
		"Unfinished", rec.Unfinished(),
	)
}

// Labels lists the selectable label styles, 1-based.
func (f *Formatter) Labels(nick string) []string {
	out := f.Say("label.range", nick, "Count", len(svcchess.Labels))
	for i, l := range svcchess.Labels {
		out = append(out, f.Line("label.option", nick, "Index", i+1, "Label", l))
	}
	return out
}

// Seconds formats a TTL for the challenge and undo prompts.
func Seconds(d time.Duration) string {
	return strconv.Itoa(int(d / time.Second))
}
