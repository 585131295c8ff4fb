package pvp

import (
    "errors"
    "sort"
    "sync"
    "time"
)

var (
    ErrInvalidArgs   = errors.New("invalid arguments")
    ErrSelfChallenge = errors.New("cannot challenge yourself")
)

const (
    DefaultInviteTTL = 60 * time.Second
    DefaultUndoTTL   = 15 * time.Second
)

// Manager holds the two handshake tables: game invitations and undo requests.
// Invitations expire through Sweep; undo requests are only checked when the
// requested player answers.
type Manager struct {
    mu        sync.RWMutex
    invites   map[key]Invite
    undos     map[key]UndoRequest
    inviteTTL time.Duration
    undoTTL   time.Duration
}

func NewManager(inviteTTL, undoTTL time.Duration) *Manager {
    if inviteTTL <= 0 {
        inviteTTL = DefaultInviteTTL
    }
    if undoTTL <= 0 {
        undoTTL = DefaultUndoTTL
    }
    return &Manager{
        invites:   make(map[key]Invite),
        undos:     make(map[key]UndoRequest),
        inviteTTL: inviteTTL,
        undoTTL:   undoTTL,
    }
}

func (m *Manager) InviteTTL() time.Duration { return m.inviteTTL }
func (m *Manager) UndoTTL() time.Duration   { return m.undoTTL }

// Invite records a pending challenge. It returns false, leaving the original
// timestamp untouched, when the same invitation is already pending.
func (m *Manager) Invite(challenger, target, channel string, now time.Time) (bool, error) {
    if challenger == "" || target == "" || channel == "" {
        return false, ErrInvalidArgs
    }
    if challenger == target {
        return false, ErrSelfChallenge
    }
    k := key{target: target, channel: channel, from: challenger}

    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.invites[k]; ok {
        return false, nil
    }
    m.invites[k] = Invite{Challenger: challenger, Target: target, Channel: channel, CreatedAt: now}
    return true, nil
}

func (m *Manager) HasInvited(challenger, target, channel string) bool {
    m.mu.RLock()
    defer m.mu.RUnlock()
    _, ok := m.invites[key{target: target, channel: channel, from: challenger}]
    return ok
}

// Consume accepts a pending invitation, removing it. False when none is pending.
func (m *Manager) Consume(challenger, target, channel string) bool {
    k := key{target: target, channel: channel, from: challenger}
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.invites[k]; !ok {
        return false
    }
    delete(m.invites, k)
    return true
}

// Withdraw drops a pending invitation without starting a game.
func (m *Manager) Withdraw(challenger, target, channel string) bool {
    return m.Consume(challenger, target, channel)
}

// PendingFor lists invitations addressed to target on channel, oldest first.
func (m *Manager) PendingFor(target, channel string) []Invite {
    m.mu.RLock()
    out := make([]Invite, 0)
    for k, inv := range m.invites {
        if k.target == target && k.channel == channel {
            out = append(out, inv)
        }
    }
    m.mu.RUnlock()
    sortInvites(out)
    return out
}

// Sweep removes every invitation older than the invite window and returns them.
func (m *Manager) Sweep(now time.Time) []Invite {
    m.mu.Lock()
    var expired []Invite
    for k, inv := range m.invites {
        if now.Sub(inv.CreatedAt) > m.inviteTTL {
            expired = append(expired, inv)
            delete(m.invites, k)
        }
    }
    m.mu.Unlock()
    sortInvites(expired)
    return expired
}

// RequestUndo records (or refreshes) requester's request to target.
func (m *Manager) RequestUndo(requester, target, channel string, now time.Time) error {
    if requester == "" || target == "" || channel == "" {
        return ErrInvalidArgs
    }
    m.mu.Lock()
    m.undos[key{target: target, channel: channel, from: requester}] = UndoRequest{
        Requester: requester,
        Target:    target,
        Channel:   channel,
        CreatedAt: now,
    }
    m.mu.Unlock()
    return nil
}

// ConsumeUndo evaluates requester's pending request to target. Granted and
// expired requests are both removed.
func (m *Manager) ConsumeUndo(requester, target, channel string, now time.Time) UndoState {
    k := key{target: target, channel: channel, from: requester}
    m.mu.Lock()
    defer m.mu.Unlock()
    req, ok := m.undos[k]
    if !ok {
        return UndoAbsent
    }
    delete(m.undos, k)
    if now.Sub(req.CreatedAt) > m.undoTTL {
        return UndoExpired
    }
    return UndoGranted
}

// Forget drops every handshake between a and b on channel, in both directions.
func (m *Manager) Forget(a, b, channel string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, k := range []key{{b, channel, a}, {a, channel, b}} {
        delete(m.invites, k)
        delete(m.undos, k)
    }
}

// Len reports the pending invitation and undo counts.
func (m *Manager) Len() (invites, undos int) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    return len(m.invites), len(m.undos)
}

func sortInvites(list []Invite) {
    sort.Slice(list, func(i, j int) bool {
        if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
            return list[i].CreatedAt.Before(list[j].CreatedAt)
        }
        return list[i].Challenger < list[j].Challenger
    })
}
