package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircfmt"
	"go.uber.org/zap"

	"github.com/park285/irc-chessbot/internal/adapter/chesspresenter"
	"github.com/park285/irc-chessbot/internal/obslog"
	"github.com/park285/irc-chessbot/internal/pvpchan"
	"github.com/park285/irc-chessbot/internal/pvpchess"
	svcchess "github.com/park285/irc-chessbot/internal/service/chess"
)

// Message is one inbound PRIVMSG. Channel is the conversation the reply goes
// back to: the channel name, or the sender's nick for a private message.
type Message struct {
	Nick    string
	Channel string
	Text    string
}

// Outgoing is an ordered batch of lines for one target.
type Outgoing struct {
	Target string
	Lines  []string
}

type Deps struct {
	Games   *pvpchess.Manager
	Records svcchess.Repository
	Roster  *pvpchan.Roster
	Format  *chesspresenter.Formatter
	Prefix  string
	Now     func() time.Time
}

// Bot turns chat events into game operations and reply lines. Every handler
// and every sweep runs under one mutex, so game state sees a single caller.
type Bot struct {
	mu       sync.Mutex
	games    *pvpchess.Manager
	records  svcchess.Repository
	roster   *pvpchan.Roster
	format   *chesspresenter.Formatter
	prefix   string
	nick     string
	now      func() time.Time
	commands map[string]*command
	order    []*command
}

func New(d Deps) (*Bot, error) {
	if d.Games == nil || d.Records == nil || d.Roster == nil || d.Format == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	if strings.TrimSpace(d.Prefix) == "" {
		return nil, fmt.Errorf("command prefix required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	b := &Bot{
		games:   d.Games,
		records: d.Records,
		roster:  d.Roster,
		format:  d.Format,
		prefix:  d.Prefix,
		nick:    d.Games.BotNick(),
		now:     d.Now,
	}
	b.register()
	return b, nil
}

func (b *Bot) Nick() string { return b.nick }

// Handle runs the command in msg, if any.
func (b *Bot) Handle(ctx context.Context, msg Message) []Outgoing {
	text := strings.TrimSpace(msg.Text)
	if msg.Nick == "" || msg.Nick == b.nick || !strings.HasPrefix(text, b.prefix) {
		return nil
	}
	fields := strings.Fields(strings.TrimPrefix(text, b.prefix))
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := b.commands[strings.ToLower(fields[0])]
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	obslog.L().Debug("bot_command",
		zap.String("nick", msg.Nick),
		zap.String("channel", msg.Channel),
		zap.String("cmd", cmd.name),
	)
	lines := cmd.run(ctx, b, msg, args(fields[1:]))
	if len(lines) == 0 {
		return nil
	}
	return []Outgoing{{Target: msg.Channel, Lines: lines}}
}

// OnJoin greets a returning player: every game on the channel is listed, a
// game where it is their turn is selected and the selected board is shown.
func (b *Bot) OnJoin(ctx context.Context, channel, nick string) []Outgoing {
	if nick == b.nick {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	games := b.games.Games(nick, channel)
	if len(games) == 0 {
		return nil
	}
	var lines []string
	for _, g := range games {
		other := g.Other(nick)
		if g.Who() == nick {
			lines = append(lines, b.format.Line("lifecycle.your_turn", nick, "Target", other))
			_, _ = b.games.Select(nick, other, channel)
		} else {
			lines = append(lines, b.format.Line("lifecycle.waiting", nick, "Target", other))
		}
	}
	if g := b.games.SelectedGame(nick, channel); g != nil {
		lines = append(lines, b.format.Line("lifecycle.game_with", nick, "Target", g.Other(nick)))
		lines = append(lines, b.boardOf(ctx, g)(nick)...)
	}
	return []Outgoing{{Target: channel, Lines: lines}}
}

// OnPart tells nick's opponents on channel that they can keep playing.
func (b *Bot) OnPart(ctx context.Context, channel, nick string) []Outgoing {
	if nick == b.nick {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifyOpponents(nick, map[string][]*pvpchess.Game{channel: b.games.Games(nick, channel)})
}

// OnQuit tells the opponents who are waiting on nick's move elsewhere that
// they can keep playing. Games where nick is to move stay silent.
func (b *Bot) OnQuit(ctx context.Context, nick string) []Outgoing {
	if nick == b.nick {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	byChannel := make(map[string][]*pvpchess.Game)
	for _, g := range b.games.AllGames(nick) {
		if g.Who() == nick {
			continue
		}
		byChannel[g.Channel] = append(byChannel[g.Channel], g)
	}
	return b.notifyOpponents(nick, byChannel)
}

func (b *Bot) notifyOpponents(nick string, byChannel map[string][]*pvpchess.Game) []Outgoing {
	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	var out []Outgoing
	for _, ch := range channels {
		var players []string
		for _, g := range byChannel[ch] {
			if other := g.Other(nick); other != b.nick {
				players = append(players, other)
			}
		}
		if len(players) == 0 {
			continue
		}
		out = append(out, Outgoing{
			Target: ch,
			Lines:  b.format.Say("lifecycle.still_move", nick, "List", chesspresenter.List(players)),
		})
	}
	return out
}

// Sweep expires invitations and tells each challenger.
func (b *Bot) Sweep(now time.Time) []Outgoing {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Outgoing
	for _, inv := range b.games.SweepInvites(now) {
		out = append(out, Outgoing{
			Target: inv.Channel,
			Lines:  b.format.Say("start.expired", inv.Challenger, "Target", inv.Target),
		})
	}
	return out
}

// Run sweeps every interval until ctx is done and hands replies to emit.
func (b *Bot) Run(ctx context.Context, interval time.Duration, emit func([]Outgoing)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if out := b.Sweep(b.now()); len(out) > 0 {
				emit(out)
			}
		}
	}
}

// Greeting announces the bot on each channel.
func (b *Bot) Greeting(channels []string) []Outgoing {
	line := ircfmt.Unescape(b.format.Line("lifecycle.ready", b.nick))
	out := make([]Outgoing, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Outgoing{Target: ch, Lines: []string{line}})
	}
	return out
}

// boardOf renders g for a viewer with that viewer's stored preferences.
func (b *Bot) boardOf(ctx context.Context, g *pvpchess.Game) chesspresenter.BoardFunc {
	return func(nick string) []string {
		prefs, err := b.records.LoadPrefs(ctx, nick)
		if err != nil {
			obslog.L().Warn("prefs_load_error", zap.String("nick", nick), zap.Error(err))
		}
		return b.format.Board(g.Board(), prefs)
	}
}

// args gives positional access that yields "" past the end.
type args []string

func (a args) at(i int) string {
	if i < len(a) {
		return a[i]
	}
	return ""
}
