package chess

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/park285/irc-chessbot/internal/domain"
)

// storedPlayer is the on-disk shape of one player record.
type storedPlayer struct {
    Checkmates int          `json:"checkmates"`
    Stalemates int          `json:"stalemates"`
    Draws      int          `json:"draws"`
    Games      int          `json:"games"`
    Losses     int          `json:"losses"`
    Prefs      domain.Prefs `json:"prefs"`
    UpdatedAt  time.Time    `json:"updated_at"`
}

// fileRepo keeps every player record in one JSON document keyed by nick.
// The whole document is rewritten after each change.
type fileRepo struct {
    mu   sync.Mutex
    mem  *memrepo
    path string
}

// NewFileRepository loads the players document at path, or starts empty when
// the file does not exist yet. A document that does not decode is an error.
func NewFileRepository(path string) (Repository, error) {
    if strings.TrimSpace(path) == "" {
        return nil, fmt.Errorf("players path required")
    }
    mem := newMemrepo()
    raw, err := os.ReadFile(path)
    switch {
    case errors.Is(err, os.ErrNotExist):
    case err != nil:
        return nil, fmt.Errorf("read %s: %w", path, err)
    case len(bytes.TrimSpace(raw)) > 0:
        var doc map[string]storedPlayer
        if err := json.Unmarshal(raw, &doc); err != nil {
            return nil, fmt.Errorf("decode %s: %w", path, err)
        }
        for nick, p := range doc {
            prefs := p.Prefs
            if prefs == (domain.Prefs{}) {
                prefs = domain.DefaultPrefs()
            }
            mem.players[mem.key(nick)] = &domain.PlayerRecord{
                Nick:       nick,
                Checkmates: p.Checkmates,
                Stalemates: p.Stalemates,
                Draws:      p.Draws,
                Games:      p.Games,
                Losses:     p.Losses,
                Prefs:      prefs,
                UpdatedAt:  p.UpdatedAt,
            }
        }
    }
    return &fileRepo{mem: mem, path: path}, nil
}

func (r *fileRepo) GetPlayer(ctx context.Context, nick string) (*domain.PlayerRecord, error) {
    return r.mem.GetPlayer(ctx, nick)
}

func (r *fileRepo) LoadPrefs(ctx context.Context, nick string) (domain.Prefs, error) {
    return r.mem.LoadPrefs(ctx, nick)
}

func (r *fileRepo) Increment(ctx context.Context, nick string, counter domain.Counter) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if err := r.mem.Increment(ctx, nick, counter); err != nil {
        return err
    }
    return r.flush()
}

func (r *fileRepo) SavePrefs(ctx context.Context, nick string, prefs domain.Prefs) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if err := r.mem.SavePrefs(ctx, nick, prefs); err != nil {
        return err
    }
    return r.flush()
}

// flush must be called with mu held.
func (r *fileRepo) flush() error {
    r.mem.mu.RLock()
    doc := make(map[string]storedPlayer, len(r.mem.players))
    for _, p := range r.mem.players {
        doc[p.Nick] = storedPlayer{
            Checkmates: p.Checkmates,
            Stalemates: p.Stalemates,
            Draws:      p.Draws,
            Games:      p.Games,
            Losses:     p.Losses,
            Prefs:      p.Prefs,
            UpdatedAt:  p.UpdatedAt,
        }
    }
    r.mem.mu.RUnlock()

    raw, err := json.MarshalIndent(doc, "", "  ")
    if err != nil {
        return fmt.Errorf("marshal players: %w", err)
    }
    return WriteFileAtomic(r.path, raw)
}

// WriteFileAtomic writes raw to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func WriteFileAtomic(path string, raw []byte) error {
    dir := filepath.Dir(path)
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("create %s: %w", dir, err)
    }
    tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
    if err != nil {
        return fmt.Errorf("create temp: %w", err)
    }
    tmpName := tmp.Name()
    if _, err := tmp.Write(raw); err != nil {
        tmp.Close()
        os.Remove(tmpName)
        return fmt.Errorf("write temp: %w", err)
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmpName)
        return fmt.Errorf("close temp: %w", err)
    }
    if err := os.Rename(tmpName, path); err != nil {
        os.Remove(tmpName)
        return fmt.Errorf("rename %s: %w", path, err)
    }
    return nil
}
