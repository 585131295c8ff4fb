package chess

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/park285/irc-chessbot/internal/domain"
)

// memrepo is an in-memory Repository. It backs fileRepo and the tests.
type memrepo struct {
    mu      sync.RWMutex
    players map[string]*domain.PlayerRecord
    now     func() time.Time
}

func NewMemoryRepository() Repository { return newMemrepo() }

func newMemrepo() *memrepo {
    return &memrepo{players: make(map[string]*domain.PlayerRecord), now: time.Now}
}

func (m *memrepo) GetPlayer(ctx context.Context, nick string) (*domain.PlayerRecord, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    if p, ok := m.players[m.key(nick)]; ok && p != nil {
        copy := *p
        return &copy, nil
    }
    return nil, nil
}

func (m *memrepo) Increment(ctx context.Context, nick string, counter domain.Counter) error {
    if !counter.Valid() {
        return fmt.Errorf("%w: %s", ErrUnknownCounter, counter)
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    rec := m.ensure(nick)
    if err := rec.Add(counter, 1); err != nil {
        return err
    }
    rec.UpdatedAt = m.now()
    return nil
}

func (m *memrepo) LoadPrefs(ctx context.Context, nick string) (domain.Prefs, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    if p, ok := m.players[m.key(nick)]; ok && p != nil {
        return p.Prefs, nil
    }
    return domain.DefaultPrefs(), nil
}

func (m *memrepo) SavePrefs(ctx context.Context, nick string, prefs domain.Prefs) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    rec := m.ensure(nick)
    rec.Prefs = prefs
    rec.UpdatedAt = m.now()
    return nil
}

// ensure must be called with mu held.
func (m *memrepo) ensure(nick string) *domain.PlayerRecord {
    k := m.key(nick)
    rec, ok := m.players[k]
    if !ok {
        rec = &domain.PlayerRecord{Nick: nick, Prefs: domain.DefaultPrefs()}
        m.players[k] = rec
    }
    return rec
}

func (m *memrepo) key(nick string) string { return strings.TrimSpace(nick) }
