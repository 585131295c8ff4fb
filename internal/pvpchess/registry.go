package pvpchess

import (
    "sort"
    "sync"
)

// noSelection makes SelectedGame fall back to the most recently added game.
const noSelection = -1

type slot struct {
    selected int
    games    []*Game
}

func (s *slot) current() *Game {
    if len(s.games) == 0 { return nil }
    if s.selected < 0 || s.selected >= len(s.games) {
        return s.games[len(s.games)-1]
    }
    return s.games[s.selected]
}

func (s *slot) index(g *Game) int {
    for i, x := range s.games {
        if x == g { return i }
    }
    return -1
}

// remove drops g and keeps the selection on the same game when possible.
func (s *slot) remove(g *Game) bool {
    idx := s.index(g)
    if idx < 0 { return false }
    s.games = append(s.games[:idx], s.games[idx+1:]...)
    switch {
    case s.selected == idx:
        s.selected = noSelection
    case s.selected > idx:
        s.selected--
    }
    return true
}

// Registry indexes live games by player and channel. A game is held by
// pointer under both of its players.
type Registry struct {
    mu      sync.RWMutex
    players map[string]map[string]*slot
}

func NewRegistry() *Registry {
    return &Registry{players: make(map[string]map[string]*slot)}
}

// Add inserts g under both players and selects it for both.
func (r *Registry) Add(g *Game) {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, nick := range []string{g.P1, g.P2} {
        s := r.slotLocked(nick, g.Channel, true)
        s.games = append(s.games, g)
        s.selected = noSelection
    }
}

// HasGameWith finds the game between nick and opponent on channel.
func (r *Registry) HasGameWith(nick, opponent, channel string) *Game {
    r.mu.RLock()
    defer r.mu.RUnlock()
    return r.findLocked(nick, opponent, channel)
}

// SelectGame makes the game against opponent current for nick.
func (r *Registry) SelectGame(nick, opponent, channel string) *Game {
    r.mu.Lock()
    defer r.mu.Unlock()
    s := r.slotLocked(nick, channel, false)
    if s == nil { return nil }
    for i, g := range s.games {
        if g.Other(nick) == opponent {
            s.selected = i
            return g
        }
    }
    return nil
}

// SelectedGame returns nick's current game on channel, or nil.
func (r *Registry) SelectedGame(nick, channel string) *Game {
    r.mu.RLock()
    defer r.mu.RUnlock()
    s := r.slotLocked(nick, channel, false)
    if s == nil { return nil }
    return s.current()
}

// EndGame removes the game between nick and opponent from both players.
// It reports false when no such game exists.
func (r *Registry) EndGame(nick, opponent, channel string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    g := r.findLocked(nick, opponent, channel)
    if g == nil { return false }
    for _, p := range []string{g.P1, g.P2} {
        s := r.slotLocked(p, channel, false)
        if s == nil { continue }
        s.remove(g)
        if len(s.games) == 0 {
            delete(r.players[p], channel)
            if len(r.players[p]) == 0 { delete(r.players, p) }
        }
    }
    return true
}

// Games lists nick's games on channel in insertion order.
func (r *Registry) Games(nick, channel string) []*Game {
    r.mu.RLock()
    defer r.mu.RUnlock()
    s := r.slotLocked(nick, channel, false)
    if s == nil { return nil }
    return append([]*Game(nil), s.games...)
}

// AllGames lists nick's games on every channel.
func (r *Registry) AllGames(nick string) []*Game {
    r.mu.RLock()
    defer r.mu.RUnlock()
    chans := r.players[nick]
    names := make([]string, 0, len(chans))
    for ch := range chans { names = append(names, ch) }
    sort.Strings(names)
    var out []*Game
    for _, ch := range names {
        out = append(out, chans[ch].games...)
    }
    return out
}

// All returns every live game once, oldest first.
func (r *Registry) All() []*Game {
    r.mu.RLock()
    seen := make(map[*Game]struct{})
    var out []*Game
    for _, chans := range r.players {
        for _, s := range chans {
            for _, g := range s.games {
                if _, ok := seen[g]; ok { continue }
                seen[g] = struct{}{}
                out = append(out, g)
            }
        }
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.Before(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out
}

func (r *Registry) Count() int { return len(r.All()) }

func (r *Registry) findLocked(nick, opponent, channel string) *Game {
    s := r.slotLocked(nick, channel, false)
    if s == nil { return nil }
    for _, g := range s.games {
        if g.Other(nick) == opponent && g.Has(nick) { return g }
    }
    return nil
}

func (r *Registry) slotLocked(nick, channel string, create bool) *slot {
    chans, ok := r.players[nick]
    if !ok {
        if !create { return nil }
        chans = make(map[string]*slot)
        r.players[nick] = chans
    }
    s, ok := chans[channel]
    if !ok {
        if !create { return nil }
        s = &slot{selected: noSelection}
        chans[channel] = s
    }
    return s
}
