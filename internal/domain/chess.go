package domain

import (
	"fmt"
	"time"
)

// Counter names a player-record statistic column.
type Counter string

const (
	CounterCheckmates Counter = "checkmates"
	CounterStalemates Counter = "stalemates"
	CounterDraws      Counter = "draws"
	CounterGames      Counter = "games"
	CounterLosses     Counter = "losses"
)

// Valid reports whether c is one of the known columns.
func (c Counter) Valid() bool {
	switch c {
	case CounterCheckmates, CounterStalemates, CounterDraws, CounterGames, CounterLosses:
		return true
	}
	return false
}

// Prefs are a player's board rendering preferences, stored as JSON.
type Prefs struct {
	FG        [2]string `json:"fg"`
	BG        [2]string `json:"bg"`
	Label     string    `json:"label"`
	BoardMode string    `json:"bmode"`
}

// DefaultLabel is the file header for the normal board mode.
const DefaultLabel = "   A  B  C  D  E  F  G  H   "

// DefaultPrefs returns the preferences a player starts with.
func DefaultPrefs() Prefs {
	return Prefs{
		FG:        [2]string{"white", "black"},
		BG:        [2]string{"maroon", "gray"},
		Label:     DefaultLabel,
		BoardMode: "normal",
	}
}

// PlayerRecord is a persisted per-nick statistics row.
type PlayerRecord struct {
	Nick       string
	Checkmates int
	Stalemates int
	Draws      int
	Games      int
	Losses     int
	Prefs      Prefs
	UpdatedAt  time.Time
}

// Unfinished counts games that were started but never reached a result.
func (r PlayerRecord) Unfinished() int {
	n := r.Games - r.Checkmates - r.Stalemates - r.Draws - r.Losses
	if n < 0 {
		return 0
	}
	return n
}

// Add applies delta to the named counter.
func (r *PlayerRecord) Add(c Counter, delta int) error {
	switch c {
	case CounterCheckmates:
		r.Checkmates += delta
	case CounterStalemates:
		r.Stalemates += delta
	case CounterDraws:
		r.Draws += delta
	case CounterGames:
		r.Games += delta
	case CounterLosses:
		r.Losses += delta
	default:
		return fmt.Errorf("unknown counter %q", c)
	}
	return nil
}
