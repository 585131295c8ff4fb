package pvpchan

import (
    "sort"
    "strings"
    "sync"

    "github.com/park285/irc-chessbot/internal/obslog"
    "go.uber.org/zap"
)

// Roster tracks which nicks are present on which channels. Lookups are
// case-insensitive; the nick is reported as last seen.
type Roster struct {
    mu       sync.RWMutex
    channels map[string]map[string]string // channel key -> nick key -> nick
    pending  map[string]map[string]string // NAMES replies not yet ended
}

func NewRoster() *Roster {
    return &Roster{
        channels: make(map[string]map[string]string),
        pending:  make(map[string]map[string]string),
    }
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// StripPrefix removes channel membership prefixes such as "@" or "+".
func StripPrefix(name string) string { return strings.TrimLeft(name, namePrefixes) }

// Join records nick on channel.
func (r *Roster) Join(channel, nick string) error {
    if fold(channel) == "" || fold(nick) == "" { return ErrInvalidArgs }
    r.mu.Lock()
    defer r.mu.Unlock()
    members := r.channels[fold(channel)]
    if members == nil {
        members = make(map[string]string)
        r.channels[fold(channel)] = members
    }
    members[fold(nick)] = nick
    return nil
}

// Part removes nick from channel. It reports whether nick was there.
func (r *Roster) Part(channel, nick string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    members := r.channels[fold(channel)]
    if _, ok := members[fold(nick)]; !ok { return false }
    delete(members, fold(nick))
    return true
}

// Kick is a part issued by someone else.
func (r *Roster) Kick(channel, nick string) bool { return r.Part(channel, nick) }

// Forget drops a whole channel, used when the bot itself leaves it.
func (r *Roster) Forget(channel string) {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.channels, fold(channel))
    delete(r.pending, fold(channel))
}

// Quit removes nick from every channel and returns the channels it was on.
func (r *Roster) Quit(nick string) Change {
    r.mu.Lock()
    defer r.mu.Unlock()
    ch := Change{Nick: nick}
    for name, members := range r.channels {
        if _, ok := members[fold(nick)]; ok {
            delete(members, fold(nick))
            ch.Channels = append(ch.Channels, name)
        }
    }
    sort.Strings(ch.Channels)
    return ch
}

// Rename moves oldNick to newNick on every channel.
func (r *Roster) Rename(oldNick, newNick string) Change {
    r.mu.Lock()
    defer r.mu.Unlock()
    ch := Change{Nick: newNick}
    for name, members := range r.channels {
        if _, ok := members[fold(oldNick)]; ok {
            delete(members, fold(oldNick))
            members[fold(newNick)] = newNick
            ch.Channels = append(ch.Channels, name)
        }
    }
    sort.Strings(ch.Channels)
    if len(ch.Channels) > 0 {
        obslog.L().Debug("roster_rename", zap.String("from", oldNick), zap.String("to", newNick))
    }
    return ch
}

// AddNames buffers one NAMES reply (353) for channel.
func (r *Roster) AddNames(channel string, names []string) {
    r.mu.Lock()
    defer r.mu.Unlock()
    buf := r.pending[fold(channel)]
    if buf == nil {
        buf = make(map[string]string)
        r.pending[fold(channel)] = buf
    }
    for _, n := range names {
        n = StripPrefix(strings.TrimSpace(n))
        if n == "" { continue }
        buf[fold(n)] = n
    }
}

// EndNames (366) replaces the channel membership with the buffered names.
func (r *Roster) EndNames(channel string) {
    r.mu.Lock()
    defer r.mu.Unlock()
    buf := r.pending[fold(channel)]
    delete(r.pending, fold(channel))
    if buf == nil { buf = make(map[string]string) }
    r.channels[fold(channel)] = buf
}

// SetNames replaces the membership of channel in one step.
func (r *Roster) SetNames(channel string, names []string) {
    r.AddNames(channel, names)
    r.EndNames(channel)
}

// Has reports whether nick is on channel.
func (r *Roster) Has(channel, nick string) bool {
    r.mu.RLock()
    defer r.mu.RUnlock()
    _, ok := r.channels[fold(channel)][fold(nick)]
    return ok
}

// Lookup returns nick as it was last seen on channel.
func (r *Roster) Lookup(channel, nick string) (string, bool) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    seen, ok := r.channels[fold(channel)][fold(nick)]
    return seen, ok
}

// Names lists the nicks on channel, sorted.
func (r *Roster) Names(channel string) ([]string, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    members, ok := r.channels[fold(channel)]
    if !ok { return nil, ErrNotTracked }
    out := make([]string, 0, len(members))
    for _, n := range members { out = append(out, n) }
    sort.Slice(out, func(i, j int) bool { return fold(out[i]) < fold(out[j]) })
    return out, nil
}

// Channels lists tracked channels, sorted.
func (r *Roster) Channels() []string {
    r.mu.RLock()
    defer r.mu.RUnlock()
    out := make([]string, 0, len(r.channels))
    for name := range r.channels { out = append(out, name) }
    sort.Strings(out)
    return out
}
