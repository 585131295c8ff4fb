package pvpchess

import (
    "github.com/park285/irc-chessbot/pkg/chessdto"
)

// ToDTO returns a read-only snapshot of g.
func (m *Manager) ToDTO(g *Game) *chessdto.GameSnapshot {
    if g == nil { return nil }
    moves := g.History()
    turn := "white"
    if len(moves)%2 == 1 { turn = "black" }
    return &chessdto.GameSnapshot{
        ID:        g.ID,
        Channel:   g.Channel,
        P1:        g.P1,
        P2:        g.P2,
        Turn:      turn,
        CPU:       m.IsBot(g.P1) || m.IsBot(g.P2),
        MovesUCI:  moves,
        MoveCount: len(moves),
        FEN:       g.FEN(),
        CreatedAt: g.CreatedAt,
    }
}

// Snapshot lists every live game, optionally only those nick plays in.
func (m *Manager) Snapshot(nick string) []*chessdto.GameSnapshot {
    var games []*Game
    if nick == "" {
        games = m.registry.All()
    } else {
        games = m.registry.AllGames(nick)
    }
    out := make([]*chessdto.GameSnapshot, 0, len(games))
    for _, g := range games {
        out = append(out, m.ToDTO(g))
    }
    return out
}
