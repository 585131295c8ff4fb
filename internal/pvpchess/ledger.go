package pvpchess

import (
    "context"
    "errors"
    "sync"

    "github.com/park285/irc-chessbot/internal/obslog"
    "github.com/park285/irc-chessbot/pkg/chessdto"
    "go.uber.org/zap"
)

// Ledger applies single-game updates to a Store with load-mutate-save.
type Ledger struct {
    mu    sync.Mutex
    store Store
}

func NewLedger(store Store) *Ledger { return &Ledger{store: store} }

// Load returns the stored document. A corrupt document is logged, replaced
// by an empty one and reported as empty.
func (l *Ledger) Load(ctx context.Context) (chessdto.OngoingGames, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    return l.loadLocked(ctx)
}

// Put records the current history of g.
func (l *Ledger) Put(ctx context.Context, g *Game) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    doc, err := l.loadLocked(ctx)
    if err != nil { return err }
    doc.Put(g.P1, g.P2, g.Channel, g.History())
    return l.store.Save(ctx, doc)
}

// Delete removes the game between a and b on channel in either key order.
func (l *Ledger) Delete(ctx context.Context, a, b, channel string) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    doc, err := l.loadLocked(ctx)
    if err != nil { return err }
    if !doc.Delete(a, b, channel) { return nil }
    return l.store.Save(ctx, doc)
}

func (l *Ledger) loadLocked(ctx context.Context) (chessdto.OngoingGames, error) {
    doc, err := l.store.Load(ctx)
    if err == nil { return doc, nil }
    if !errors.Is(err, ErrCorruptDocument) { return nil, err }

    obslog.L().Warn("ongoing_games_reset", zap.Error(err))
    empty := chessdto.OngoingGames{}
    if serr := l.store.Save(ctx, empty); serr != nil {
        return nil, serr
    }
    return empty, nil
}
