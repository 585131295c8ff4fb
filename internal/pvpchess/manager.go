package pvpchess

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/park285/irc-chessbot/internal/domain"
    "github.com/park285/irc-chessbot/internal/metrics"
    "github.com/park285/irc-chessbot/internal/obslog"
    "github.com/park285/irc-chessbot/internal/pvp"
    svcchess "github.com/park285/irc-chessbot/internal/service/chess"
    "go.uber.org/zap"
)

const (
    defaultThinkTime     = 50 * time.Millisecond
    defaultEngineTimeout = 5 * time.Second
)

// Oracle picks the CPU reply for a position given as a UCI history.
type Oracle interface {
    BestMove(ctx context.Context, moves []string, think time.Duration) (string, error)
}

type Options struct {
    BotNick       string
    ThinkTime     time.Duration
    EngineTimeout time.Duration
    Now           func() time.Time
}

// Manager runs the game sessions of one bot process: the registry, the
// invite/undo handshakes, statistics and the ongoing-games ledger.
type Manager struct {
    opts       Options
    registry   *Registry
    handshakes *pvp.Manager
    records    svcchess.Repository
    ledger     *Ledger
    oracle     Oracle
    metrics    *metrics.Metrics
}

func NewManager(opts Options, handshakes *pvp.Manager, records svcchess.Repository, store Store, oracle Oracle, met *metrics.Metrics) (*Manager, error) {
    if strings.TrimSpace(opts.BotNick) == "" { return nil, fmt.Errorf("bot nick required") }
    if handshakes == nil || records == nil || store == nil {
        return nil, fmt.Errorf("pvp manager not initialized")
    }
    if opts.ThinkTime <= 0 { opts.ThinkTime = defaultThinkTime }
    if opts.EngineTimeout <= 0 { opts.EngineTimeout = defaultEngineTimeout }
    if opts.Now == nil { opts.Now = time.Now }
    return &Manager{
        opts:       opts,
        registry:   NewRegistry(),
        handshakes: handshakes,
        records:    records,
        ledger:     NewLedger(store),
        oracle:     oracle,
        metrics:    met,
    }, nil
}

func (m *Manager) BotNick() string              { return m.opts.BotNick }
func (m *Manager) IsBot(nick string) bool       { return nick == m.opts.BotNick }
func (m *Manager) Registry() *Registry          { return m.registry }
func (m *Manager) Records() svcchess.Repository { return m.records }
func (m *Manager) InviteTTL() time.Duration     { return m.handshakes.InviteTTL() }
func (m *Manager) UndoTTL() time.Duration       { return m.handshakes.UndoTTL() }

// Challenge starts a CPU game immediately or records an invitation.
func (m *Manager) Challenge(ctx context.Context, from, to, channel string) (*ChallengeResult, error) {
    if from == to { return nil, ErrSelfChallenge }
    if m.handshakes.HasInvited(from, to, channel) { return nil, ErrAlreadyInvited }
    if m.registry.HasGameWith(from, to, channel) != nil { return nil, ErrAlreadyPlaying }

    if m.IsBot(to) {
        g, err := m.AddGame(from, to, channel, false)
        if err != nil { return nil, err }
        m.started(ctx, g)
        return &ChallengeResult{Game: g}, nil
    }

    if _, err := m.handshakes.Invite(from, to, channel, m.opts.Now()); err != nil {
        if errors.Is(err, pvp.ErrSelfChallenge) { return nil, ErrSelfChallenge }
        return nil, err
    }
    obslog.L().Info("pvp_invite",
        zap.String("challenger", from),
        zap.String("target", to),
        zap.String("channel", channel),
    )
    return &ChallengeResult{Invited: true}, nil
}

// Accept starts the game challenger offered to acceptor.
func (m *Manager) Accept(ctx context.Context, acceptor, challenger, channel string) (*Game, error) {
    if m.registry.HasGameWith(acceptor, challenger, channel) != nil {
        m.handshakes.Withdraw(challenger, acceptor, channel)
        return nil, ErrAlreadyPlaying
    }
    g, err := m.AddGame(challenger, acceptor, channel, true)
    if err != nil { return nil, err }
    m.started(ctx, g)
    return g, nil
}

// AddGame creates a game with challenger as white and selects it for both
// players. With requireInvite the pending invitation is consumed first; CPU
// games never need one.
func (m *Manager) AddGame(challenger, opponent, channel string, requireInvite bool) (*Game, error) {
    if challenger == opponent { return nil, ErrSelfChallenge }
    if requireInvite && !m.IsBot(opponent) {
        if !m.handshakes.Consume(challenger, opponent, channel) {
            return nil, ErrNoInvitation
        }
    }
    g := NewGame(challenger, opponent, channel, m.opts.Now())
    m.registry.Add(g)
    return g, nil
}

func (m *Manager) HasGameWith(nick, opponent, channel string) *Game {
    return m.registry.HasGameWith(nick, opponent, channel)
}

func (m *Manager) SelectedGame(nick, channel string) *Game {
    return m.registry.SelectedGame(nick, channel)
}

func (m *Manager) Select(nick, opponent, channel string) (*Game, error) {
    g := m.registry.SelectGame(nick, opponent, channel)
    if g == nil { return nil, ErrNoSuchGame }
    return g, nil
}

func (m *Manager) Games(nick, channel string) []*Game { return m.registry.Games(nick, channel) }
func (m *Manager) AllGames(nick string) []*Game        { return m.registry.AllGames(nick) }

// PendingInvites lists invitations waiting for nick on channel.
func (m *Manager) PendingInvites(nick, channel string) []pvp.Invite {
    return m.handshakes.PendingFor(nick, channel)
}

// Move plays text for nick in the selected game. A bare square lists the
// legal moves from it instead. In CPU games the engine replies at once.
func (m *Manager) Move(ctx context.Context, nick, channel, text string) (*MoveResult, error) {
    g := m.registry.SelectedGame(nick, channel)
    if g == nil { return nil, ErrNoGameSelected }
    if g.Who() != nick {
        if m.IsBot(g.Who()) { return m.resumeCPU(ctx, g), nil }
        return &MoveResult{Game: g}, ErrNotYourTurn
    }

    if sq, ok := isSquare(text); ok {
        return &MoveResult{Game: g, HintSquare: sq, Hints: g.MovesFrom(sq)}, nil
    }

    played, err := g.Push(text)
    if err != nil { return &MoveResult{Game: g}, err }
    m.metrics.MoveApplied(false)
    res := &MoveResult{Game: g, Mover: nick, Played: played, Check: g.InCheck()}
    obslog.L().Info("pvp_move",
        zap.String("game_id", g.ID),
        zap.String("channel", channel),
        zap.String("mover", nick),
        zap.String("uci", played),
        zap.Int("ply", g.Len()),
    )

    if t := m.finishIfTerminal(ctx, g, nick); t != nil {
        res.Terminal = t
        return res, nil
    }

    if m.IsBot(g.Who()) {
        m.cpuReply(ctx, g, res)
        if res.Terminal != nil { return res, nil }
    }

    m.persist(ctx, g)
    return res, nil
}

// resumeCPU asks the engine again when an earlier reply failed and the bot
// is still to move.
func (m *Manager) resumeCPU(ctx context.Context, g *Game) *MoveResult {
    res := &MoveResult{Game: g}
    m.cpuReply(ctx, g, res)
    if res.EngineErr == nil && res.Terminal == nil { m.persist(ctx, g) }
    return res
}

func (m *Manager) cpuReply(ctx context.Context, g *Game, res *MoveResult) {
    if m.oracle == nil {
        res.EngineErr = ErrEngineUnavailable
        return
    }
    cctx, cancel := context.WithTimeout(ctx, m.opts.ThinkTime+m.opts.EngineTimeout)
    defer cancel()

    start := time.Now()
    best, err := m.oracle.BestMove(cctx, g.History(), m.opts.ThinkTime)
    m.metrics.EngineSearch(time.Since(start))
    if err != nil {
        obslog.L().Error("cpu_move_error", zap.String("game_id", g.ID), zap.Error(err))
        res.EngineErr = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
        return
    }
    played, err := g.Push(best)
    if err != nil {
        obslog.L().Error("cpu_move_rejected", zap.String("game_id", g.ID), zap.String("uci", best), zap.Error(err))
        res.EngineErr = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
        return
    }
    m.metrics.MoveApplied(true)
    res.Engine = played
    res.Check = g.InCheck()
    res.Terminal = m.finishIfTerminal(ctx, g, m.opts.BotNick)
}

// finishIfTerminal credits statistics and removes g when the position is final.
// Checkmate and stalemate credit the mover and charge the other side a loss;
// every other rules-engine draw credits both sides a draw.
func (m *Manager) finishIfTerminal(ctx context.Context, g *Game, mover string) *Terminal {
    result, method := g.Result()
    if result == ResultOngoing { return nil }
    other := g.Other(mover)
    switch result {
    case ResultCheckmate:
        m.increment(ctx, mover, domain.CounterCheckmates)
        m.increment(ctx, other, domain.CounterLosses)
    case ResultStalemate:
        m.increment(ctx, mover, domain.CounterStalemates)
        m.increment(ctx, other, domain.CounterLosses)
    default:
        m.increment(ctx, mover, domain.CounterDraws)
        m.increment(ctx, other, domain.CounterDraws)
    }
    m.remove(ctx, g, result.String())
    obslog.L().Info("pvp_game_over",
        zap.String("game_id", g.ID),
        zap.String("result", result.String()),
        zap.String("method", method),
        zap.String("mover", mover),
        zap.String("pgn", g.PGN()),
    )
    return &Terminal{Result: result, Method: method, Mover: mover, Other: other}
}

// Undo takes back moves in nick's selected game, or asks the opponent to.
func (m *Manager) Undo(ctx context.Context, nick, channel string) (*UndoResult, error) {
    g := m.registry.SelectedGame(nick, channel)
    if g == nil { return nil, ErrNoGameSelected }
    opponent := g.Other(nick)
    res := &UndoResult{Game: g, Opponent: opponent}

    switch m.handshakes.ConsumeUndo(opponent, nick, channel, m.opts.Now()) {
    case pvp.UndoGranted:
        n, err := g.Pop(1)
        if err != nil { return nil, err }
        m.persist(ctx, g)
        res.Outcome, res.Popped = UndoApplied, n
        return res, nil
    case pvp.UndoExpired:
        res.Outcome = UndoExpired
        return res, nil
    }

    if g.Len() == 0 { return nil, ErrNothingToUndo }

    if m.IsBot(opponent) {
        // After a failed engine reply only the player's own move is pending.
        plies := 2
        if g.Who() == opponent { plies = 1 }
        n, err := g.Pop(plies)
        if err != nil { return nil, err }
        m.persist(ctx, g)
        res.Outcome, res.Popped = UndoApplied, n
        return res, nil
    }

    if g.Who() != opponent { return nil, ErrUndoNotYourMove }
    if err := m.handshakes.RequestUndo(nick, opponent, channel, m.opts.Now()); err != nil {
        return nil, err
    }
    res.Outcome = UndoRequested
    return res, nil
}

// End cancels a game without touching statistics. An empty opponent means
// the selected game.
func (m *Manager) End(ctx context.Context, nick, opponent, channel string) (*Game, error) {
    g := m.resolve(nick, opponent, channel)
    if g == nil { return nil, ErrNoSuchGame }
    m.remove(ctx, g, "cancelled")
    return g, nil
}

// Forfeit concedes a game: the forfeiter gets a loss and the opponent a stalemate.
func (m *Manager) Forfeit(ctx context.Context, nick, opponent, channel string) (*Game, error) {
    g := m.resolve(nick, opponent, channel)
    if g == nil { return nil, ErrNoSuchGame }
    m.increment(ctx, nick, domain.CounterLosses)
    m.increment(ctx, g.Other(nick), domain.CounterStalemates)
    m.remove(ctx, g, "forfeit")
    return g, nil
}

// Restore rebuilds games from the ongoing-games store and returns how many
// were loaded. Histories that no longer replay are skipped.
func (m *Manager) Restore(ctx context.Context) (int, error) {
    doc, err := m.ledger.Load(ctx)
    if err != nil { return 0, fmt.Errorf("load ongoing games: %w", err) }
    n := 0
    for p1, chans := range doc {
        for channel, opps := range chans {
            for p2, moves := range opps {
                if p1 == p2 || m.registry.HasGameWith(p1, p2, channel) != nil { continue }
                g, err := Replay(p1, p2, channel, moves, m.opts.Now())
                if err != nil {
                    obslog.L().Warn("ongoing_game_skip",
                        zap.String("p1", p1),
                        zap.String("p2", p2),
                        zap.String("channel", channel),
                        zap.Error(err),
                    )
                    continue
                }
                m.registry.Add(g)
                n++
            }
        }
    }
    m.metrics.SetLiveGames(m.registry.Count())
    obslog.L().Info("ongoing_games_restored", zap.Int("games", n))
    return n, nil
}

// SweepInvites expires old invitations and returns them for notification.
func (m *Manager) SweepInvites(now time.Time) []pvp.Invite {
    expired := m.handshakes.Sweep(now)
    m.metrics.InvitesExpired(len(expired))
    for _, inv := range expired {
        obslog.L().Info("invite_expired",
            zap.String("challenger", inv.Challenger),
            zap.String("target", inv.Target),
            zap.String("channel", inv.Channel),
        )
    }
    return expired
}

func (m *Manager) resolve(nick, opponent, channel string) *Game {
    if strings.TrimSpace(opponent) == "" {
        return m.registry.SelectedGame(nick, channel)
    }
    return m.registry.HasGameWith(nick, opponent, channel)
}

func (m *Manager) started(ctx context.Context, g *Game) {
    m.increment(ctx, g.P1, domain.CounterGames)
    m.increment(ctx, g.P2, domain.CounterGames)
    m.persist(ctx, g)
    m.metrics.GameStarted(m.IsBot(g.P2) || m.IsBot(g.P1))
    obslog.L().Info("pvp_game_create",
        zap.String("game_id", g.ID),
        zap.String("channel", g.Channel),
        zap.String("white", g.P1),
        zap.String("black", g.P2),
    )
}

func (m *Manager) remove(ctx context.Context, g *Game, result string) {
    if !m.registry.EndGame(g.P1, g.P2, g.Channel) { return }
    m.handshakes.Forget(g.P1, g.P2, g.Channel)
    if err := m.ledger.Delete(ctx, g.P1, g.P2, g.Channel); err != nil {
        obslog.L().Error("ongoing_game_delete_error", zap.String("game_id", g.ID), zap.Error(err))
    }
    m.metrics.GameFinished(result)
}

func (m *Manager) persist(ctx context.Context, g *Game) {
    if err := m.ledger.Put(ctx, g); err != nil {
        obslog.L().Error("ongoing_game_save_error", zap.String("game_id", g.ID), zap.Error(err))
    }
}

func (m *Manager) increment(ctx context.Context, nick string, c domain.Counter) {
    if err := m.records.Increment(ctx, nick, c); err != nil {
        obslog.L().Error("player_record_error",
            zap.String("nick", nick),
            zap.String("counter", string(c)),
            zap.Error(err),
        )
    }
}
