package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/irc-chessbot/internal/adapter/chesspresenter"
	"github.com/park285/irc-chessbot/internal/domain"
	"github.com/park285/irc-chessbot/internal/obslog"
	"github.com/park285/irc-chessbot/internal/pvpchess"
	svcchess "github.com/park285/irc-chessbot/internal/service/chess"
)

type handler func(ctx context.Context, b *Bot, msg Message, a args) []string

type command struct {
	name    string
	aliases []string
	help    string
	run     handler
}

func (b *Bot) register() {
	list := []*command{
		{name: "start", help: "Challenge a nick, or the bot for a CPU game", run: cmdStart},
		{name: "accept", help: "Accept a game request", run: cmdAccept},
		{name: "move", aliases: []string{"m"}, help: "Play a move (e2e4, Nf3) or list moves from a square", run: cmdMove},
		{name: "undo", help: "Take back your last move, or confirm your opponent's request", run: cmdUndo},
		{name: "select", help: "Switch between your games on this channel", run: cmdSelect},
		{name: "end", help: "Cancel the selected game or the game against a nick", run: cmdEnd},
		{name: "forfeit", help: "Concede the selected game or the game against a nick", run: cmdForfeit},
		{name: "board", aliases: []string{"b"}, help: "Display the board", run: cmdBoard},
		{name: "who", help: "Whose move it is", run: cmdWho},
		{name: "games", help: "List your games, or another nick's", run: cmdGames},
		{name: "history", help: "Moves played so far", run: cmdHistory},
		{name: "hint", help: "Legal moves, optionally from one square", run: cmdHint},
		{name: "invitations", aliases: []string{"invites"}, help: "Pending game requests for you", run: cmdInvitations},
		{name: "score", help: "Player statistics", run: cmdScore},
		{name: "label", help: "Change the file letters row", run: cmdLabel},
		{name: "colors", help: "Change piece or board colours", run: cmdColors},
		{name: "client", aliases: []string{"bmode"}, help: "Adapt the board to your client", run: cmdClient},
		{name: "names", help: "List users on this channel", run: cmdNames},
		{name: "help", help: "This list", run: cmdHelp},
	}
	b.commands = make(map[string]*command, len(list)*2)
	b.order = list
	for _, c := range list {
		b.commands[c.name] = c
		for _, a := range c.aliases {
			b.commands[a] = c
		}
	}
}

func cmdStart(ctx context.Context, b *Bot, msg Message, a args) []string {
	target := a.at(0)
	if target == "" {
		return b.format.Say("start.usage", msg.Nick)
	}
	switch seen, ok := b.roster.Lookup(msg.Channel, target); {
	case strings.EqualFold(target, b.nick):
		target = b.nick
	case !ok:
		return b.format.Say("start.not_here", msg.Nick, "Target", target)
	default:
		// games and invitations are keyed by the nick the server reports
		target = seen
	}
	if target == msg.Nick {
		return b.format.Say("start.self", msg.Nick, "Target", target)
	}
	res, err := b.games.Challenge(ctx, msg.Nick, target, msg.Channel)
	switch {
	case errors.Is(err, pvpchess.ErrSelfChallenge):
		return b.format.Say("start.self", msg.Nick, "Target", target)
	case errors.Is(err, pvpchess.ErrAlreadyInvited):
		return b.format.Say("start.already_invited", msg.Nick, "Target", target)
	case errors.Is(err, pvpchess.ErrAlreadyPlaying):
		return b.format.Say("start.already_playing", msg.Nick, "Target", target)
	case err != nil:
		return b.failure(msg, err)
	}
	if res.Game != nil {
		return append(b.format.Say("start.cpu", msg.Nick), b.boardOf(ctx, res.Game)(msg.Nick)...)
	}
	return b.format.Say("start.challenge", msg.Nick,
		"Target", target,
		"Seconds", chesspresenter.Seconds(b.games.InviteTTL()),
	)
}

func cmdAccept(ctx context.Context, b *Bot, msg Message, a args) []string {
	from := a.at(0)
	if from == "" {
		return b.format.Say("accept.usage", msg.Nick)
	}
	if seen, ok := b.roster.Lookup(msg.Channel, from); ok {
		from = seen
	}
	g, err := b.games.Accept(ctx, msg.Nick, from, msg.Channel)
	switch {
	case errors.Is(err, pvpchess.ErrNoInvitation), errors.Is(err, pvpchess.ErrSelfChallenge):
		return b.format.Say("accept.no_invite", msg.Nick, "Target", from)
	case errors.Is(err, pvpchess.ErrAlreadyPlaying):
		return b.format.Say("start.already_playing", msg.Nick, "Target", from)
	case err != nil:
		return b.failure(msg, err)
	}
	return append(b.format.Say("accept.started", msg.Nick, "Target", from), b.boardOf(ctx, g)(g.P1)...)
}

func cmdMove(ctx context.Context, b *Bot, msg Message, a args) []string {
	text := a.at(0)
	if text == "" {
		return b.format.Say("move.usage", msg.Nick)
	}
	res, err := b.games.Move(ctx, msg.Nick, msg.Channel, text)
	if err != nil {
		if !isUserError(err) {
			obslog.L().Error("move_error", zap.String("nick", msg.Nick), zap.Error(err))
		}
		return b.format.MoveError(err, msg.Nick)
	}
	present := func(nick string) bool { return b.roster.Has(msg.Channel, nick) }
	return b.format.Moved(res, msg.Nick, b.boardOf(ctx, res.Game), present)
}

func cmdUndo(ctx context.Context, b *Bot, msg Message, _ args) []string {
	res, err := b.games.Undo(ctx, msg.Nick, msg.Channel)
	switch {
	case errors.Is(err, pvpchess.ErrNoGameSelected):
		return b.format.Say("common.no_selection", msg.Nick)
	case errors.Is(err, pvpchess.ErrNothingToUndo):
		return b.format.Say("undo.nothing", msg.Nick)
	case errors.Is(err, pvpchess.ErrUndoNotYourMove):
		return b.format.Say("undo.not_after_own_move", msg.Nick)
	case err != nil:
		obslog.L().Warn("undo_refused", zap.String("nick", msg.Nick), zap.Error(err))
		return b.format.Say("undo.refused", msg.Nick)
	}
	switch res.Outcome {
	case pvpchess.UndoExpired:
		return b.format.Say("undo.expired", msg.Nick)
	case pvpchess.UndoRequested:
		return b.format.Say("undo.request", msg.Nick,
			"Target", res.Opponent,
			"Seconds", chesspresenter.Seconds(b.games.UndoTTL()),
		)
	}
	return append(b.format.Say("undo.applied", msg.Nick, "Target", res.Game.Who()), b.boardOf(ctx, res.Game)(msg.Nick)...)
}

func cmdSelect(ctx context.Context, b *Bot, msg Message, a args) []string {
	opponent := a.at(0)
	if opponent == "" {
		return b.format.Say("select.usage", msg.Nick)
	}
	g, err := b.games.Select(msg.Nick, opponent, msg.Channel)
	if err != nil {
		return b.format.Say("common.no_game_with", msg.Nick, "Target", opponent)
	}
	return b.boardOf(ctx, g)(msg.Nick)
}

func cmdEnd(ctx context.Context, b *Bot, msg Message, a args) []string {
	opponent := a.at(0)
	if _, err := b.games.End(ctx, msg.Nick, opponent, msg.Channel); err != nil {
		return b.noGame(msg, opponent)
	}
	return b.format.Say("end.cancelled", msg.Nick)
}

func cmdForfeit(ctx context.Context, b *Bot, msg Message, a args) []string {
	opponent := a.at(0)
	g, err := b.games.Forfeit(ctx, msg.Nick, opponent, msg.Channel)
	if err != nil {
		return b.noGame(msg, opponent)
	}
	return b.format.Say("forfeit.done", msg.Nick, "Target", g.Other(msg.Nick))
}

func cmdBoard(ctx context.Context, b *Bot, msg Message, _ args) []string {
	if len(b.games.AllGames(msg.Nick)) == 0 {
		return b.format.Say("board.no_games", msg.Nick)
	}
	g := b.games.SelectedGame(msg.Nick, msg.Channel)
	if g == nil {
		return b.format.Say("board.no_selection", msg.Nick)
	}
	return b.boardOf(ctx, g)(msg.Nick)
}

func cmdWho(_ context.Context, b *Bot, msg Message, _ args) []string {
	g := b.games.SelectedGame(msg.Nick, msg.Channel)
	if g == nil {
		return b.format.Say("common.not_in_game", msg.Nick)
	}
	return b.format.Say("who.turn", msg.Nick, "Target", g.Who())
}

func cmdGames(_ context.Context, b *Bot, msg Message, a args) []string {
	if nick := a.at(0); nick != "" {
		games := b.games.Games(nick, msg.Channel)
		if len(games) == 0 {
			return b.format.Say("games.none_for", msg.Nick)
		}
		return b.format.Say("games.list_for", msg.Nick, "List", opponents(nick, games))
	}
	games := b.games.Games(msg.Nick, msg.Channel)
	if len(games) == 0 {
		return b.format.Say("games.none", msg.Nick)
	}
	return b.format.Say("games.list", msg.Nick, "List", opponents(msg.Nick, games))
}

func cmdHistory(_ context.Context, b *Bot, msg Message, _ args) []string {
	g := b.games.SelectedGame(msg.Nick, msg.Channel)
	if g == nil {
		return b.format.Say("common.not_in_game", msg.Nick)
	}
	return b.format.History(msg.Nick, g.History())
}

func cmdHint(_ context.Context, b *Bot, msg Message, a args) []string {
	g := b.games.SelectedGame(msg.Nick, msg.Channel)
	if g == nil {
		return b.format.Say("common.no_selection", msg.Nick)
	}
	arg := strings.ToLower(a.at(0))
	switch {
	case arg == "":
		return b.format.Say("hint.all", msg.Nick, "Moves", chesspresenter.List(g.LegalMoves()))
	case !pvpchess.IsSquare(arg):
		return b.format.Say("hint.usage", msg.Nick)
	}
	return b.format.Say("hint.square", msg.Nick, "Square", arg, "Moves", chesspresenter.List(g.MovesFrom(arg)))
}

func cmdInvitations(_ context.Context, b *Bot, msg Message, _ args) []string {
	pending := b.games.PendingInvites(msg.Nick, msg.Channel)
	if len(pending) == 0 {
		return b.format.Say("invitations.none", msg.Nick)
	}
	names := make([]string, 0, len(pending))
	for _, inv := range pending {
		names = append(names, inv.Challenger)
	}
	return b.format.Say("invitations.list", msg.Nick, "List", chesspresenter.List(names))
}

func cmdScore(ctx context.Context, b *Bot, msg Message, a args) []string {
	target := a.at(0)
	if target == "" {
		target = msg.Nick
	}
	rec, err := b.records.GetPlayer(ctx, target)
	if err != nil {
		return b.failure(msg, err)
	}
	return b.format.Score(msg.Nick, target, rec)
}

func cmdLabel(ctx context.Context, b *Bot, msg Message, a args) []string {
	n, err := strconv.Atoi(a.at(0))
	if err != nil {
		return b.format.Say("label.usage", msg.Nick, "Count", len(svcchess.Labels))
	}
	if n <= 0 || n > len(svcchess.Labels) {
		return b.format.Labels(msg.Nick)
	}
	return b.updatePrefs(ctx, msg, "label.set", func(p *domain.Prefs) { p.Label = svcchess.Labels[n-1] })
}

func cmdColors(ctx context.Context, b *Bot, msg Message, a args) []string {
	available := b.format.Say("colors.available", msg.Nick, "List", chesspresenter.List(svcchess.ColorNames()))
	if a.at(0) == "" {
		return available
	}
	if preset, ok := svcchess.LookupPreset(a.at(0)); ok {
		return b.updatePrefs(ctx, msg, "colors.set", func(p *domain.Prefs) {
			p.FG, p.BG = preset.FG, preset.BG
		})
	}
	usage := b.format.Say("colors.usage", msg.Nick, "Presets", strings.Join(svcchess.PresetNames(), "|"))
	if len(a) != 3 {
		return usage
	}
	elem, c1, c2 := strings.ToLower(a[0]), strings.ToLower(a[1]), strings.ToLower(a[2])
	_, ok1 := svcchess.ColorCode(c1)
	_, ok2 := svcchess.ColorCode(c2)
	if !ok1 || !ok2 {
		return append(b.format.Say("colors.invalid", msg.Nick), available...)
	}
	switch elem {
	case "pieces":
		return b.updatePrefs(ctx, msg, "colors.set", func(p *domain.Prefs) { p.FG = [2]string{c1, c2} })
	case "board":
		// color1 names the light squares, which render from bg[1].
		return b.updatePrefs(ctx, msg, "colors.set", func(p *domain.Prefs) { p.BG = [2]string{c2, c1} })
	}
	return usage
}

func cmdClient(ctx context.Context, b *Bot, msg Message, a args) []string {
	mode, ok := svcchess.ParseBoardMode(a.at(0))
	if !ok {
		quoted := make([]string, 0, 3)
		for _, n := range svcchess.BoardModeNames() {
			quoted = append(quoted, "`"+n+"`")
		}
		return b.format.Say("client.invalid", msg.Nick, "List", chesspresenter.List(quoted))
	}
	layout := mode.Layout()
	lines := b.updatePrefs(ctx, msg, "", func(p *domain.Prefs) {
		p.BoardMode = mode.String()
		if layout.Label != "" {
			p.Label = layout.Label
		}
	})
	return append(b.format.Say("client.set", msg.Nick, "Mode", mode.String()), lines...)
}

func cmdNames(_ context.Context, b *Bot, msg Message, _ args) []string {
	names, err := b.roster.Names(msg.Channel)
	if err != nil || len(names) == 0 {
		return nil
	}
	return []string{strings.Join(names, " ")}
}

func cmdHelp(_ context.Context, b *Bot, msg Message, _ args) []string {
	out := b.format.Say("help.header", msg.Nick)
	for _, c := range b.order {
		name := c.name
		if len(c.aliases) > 0 {
			name += "|" + strings.Join(c.aliases, "|")
		}
		out = append(out, b.format.Line("help.line", msg.Nick, "Name", name, "Help", c.help))
	}
	return out
}

// updatePrefs applies change to the caller's stored preferences and answers
// with the confirmation key followed by the selected board, if any.
func (b *Bot) updatePrefs(ctx context.Context, msg Message, key string, change func(*domain.Prefs)) []string {
	prefs, err := b.records.LoadPrefs(ctx, msg.Nick)
	if err != nil {
		return b.failure(msg, err)
	}
	change(&prefs)
	if err := b.records.SavePrefs(ctx, msg.Nick, prefs); err != nil {
		return b.failure(msg, err)
	}
	var out []string
	if key != "" {
		out = b.format.Say(key, msg.Nick)
	}
	if g := b.games.SelectedGame(msg.Nick, msg.Channel); g != nil {
		out = append(out, b.format.Board(g.Board(), prefs)...)
	}
	return out
}

func (b *Bot) noGame(msg Message, opponent string) []string {
	if opponent == "" {
		return b.format.Say("common.no_selection", msg.Nick)
	}
	return b.format.Say("common.no_game_with", msg.Nick, "Target", opponent)
}

func (b *Bot) failure(msg Message, err error) []string {
	obslog.L().Error("command_error",
		zap.String("nick", msg.Nick),
		zap.String("channel", msg.Channel),
		zap.Error(err),
	)
	return b.format.Say("common.failure", msg.Nick)
}

func isUserError(err error) bool {
	for _, e := range []error{pvpchess.ErrNoGameSelected, pvpchess.ErrNotYourTurn, pvpchess.ErrIllegalMove} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func opponents(nick string, games []*pvpchess.Game) string {
	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Other(nick))
	}
	return chesspresenter.List(names)
}
