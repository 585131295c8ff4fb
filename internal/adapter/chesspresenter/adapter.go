package chesspresenter

import (
    "github.com/park285/irc-chessbot/internal/domain"
    "github.com/park285/irc-chessbot/pkg/chessdto"
)

// ToDTOPlayer converts a stored player record for the status endpoint.
func ToDTOPlayer(r *domain.PlayerRecord) *chessdto.PlayerRecord {
    if r == nil {
        return nil
    }
    return &chessdto.PlayerRecord{
        Nick:       r.Nick,
        Checkmates: r.Checkmates,
        Stalemates: r.Stalemates,
        Draws:      r.Draws,
        Games:      r.Games,
        Losses:     r.Losses,
        Unfinished: r.Unfinished(),
        BoardMode:  r.Prefs.BoardMode,
        UpdatedAt:  r.UpdatedAt,
    }
}
