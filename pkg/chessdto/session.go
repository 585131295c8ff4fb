package chessdto

import "time"

// GameSnapshot is a read-only view of one live game.
type GameSnapshot struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	P1        string    `json:"p1"`
	P2        string    `json:"p2"`
	Turn      string    `json:"turn"`
	CPU       bool      `json:"cpu"`
	MovesUCI  []string  `json:"moves_uci"`
	MoveCount int       `json:"move_count"`
	FEN       string    `json:"fen"`
	CreatedAt time.Time `json:"created_at"`
}
