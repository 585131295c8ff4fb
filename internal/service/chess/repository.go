package chess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/irc-chessbot/internal/domain"
)

var ErrUnknownCounter = errors.New("unknown player counter")

// Repository persists per-nick statistics and rendering preferences.
// Records are created lazily by the first write and never deleted.
type Repository interface {
	GetPlayer(ctx context.Context, nick string) (*domain.PlayerRecord, error)
	Increment(ctx context.Context, nick string, counter domain.Counter) error
	LoadPrefs(ctx context.Context, nick string) (domain.Prefs, error)
	SavePrefs(ctx context.Context, nick string, prefs domain.Prefs) error
}

const schema = `
	CREATE TABLE IF NOT EXISTS chess_players (
		nick       TEXT PRIMARY KEY,
		checkmates INTEGER NOT NULL DEFAULT 0,
		stalemates INTEGER NOT NULL DEFAULT 0,
		draws      INTEGER NOT NULL DEFAULT 0,
		games      INTEGER NOT NULL DEFAULT 0,
		losses     INTEGER NOT NULL DEFAULT 0,
		prefs      JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the players table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create chess_players: %w", err)
	}
	return nil
}

func (r *repository) GetPlayer(ctx context.Context, nick string) (*domain.PlayerRecord, error) {
	const query = `
		SELECT
			nick,
			checkmates,
			stalemates,
			draws,
			games,
			losses,
			prefs,
			updated_at
		FROM chess_players
		WHERE nick = $1`

	var (
		rec       domain.PlayerRecord
		prefsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, nick).Scan(
		&rec.Nick,
		&rec.Checkmates,
		&rec.Stalemates,
		&rec.Draws,
		&rec.Games,
		&rec.Losses,
		&prefsJSON,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chess player: %w", err)
	}
	rec.Prefs = decodePrefs(prefsJSON)
	return &rec, nil
}

func (r *repository) Increment(ctx context.Context, nick string, counter domain.Counter) error {
	if !counter.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCounter, counter)
	}
	// counter is one of the fixed column names checked above.
	col := string(counter)
	query := `
		INSERT INTO chess_players (nick, ` + col + `, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (nick)
		DO UPDATE SET ` + col + ` = chess_players.` + col + ` + 1, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, nick); err != nil {
		return fmt.Errorf("increment %s: %w", col, err)
	}
	return nil
}

func (r *repository) LoadPrefs(ctx context.Context, nick string) (domain.Prefs, error) {
	const query = `SELECT prefs FROM chess_players WHERE nick = $1`
	var prefsJSON []byte
	err := r.db.QueryRowContext(ctx, query, nick).Scan(&prefsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultPrefs(), nil
	}
	if err != nil {
		return domain.DefaultPrefs(), fmt.Errorf("select prefs: %w", err)
	}
	return decodePrefs(prefsJSON), nil
}

func (r *repository) SavePrefs(ctx context.Context, nick string, prefs domain.Prefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	const query = `
		INSERT INTO chess_players (nick, prefs, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (nick)
		DO UPDATE SET prefs = EXCLUDED.prefs, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, nick, raw); err != nil {
		return fmt.Errorf("upsert prefs: %w", err)
	}
	return nil
}

// decodePrefs fills missing or unreadable fields from the defaults.
func decodePrefs(raw []byte) domain.Prefs {
	def := domain.DefaultPrefs()
	if len(raw) == 0 {
		return def
	}
	var p domain.Prefs
	if err := json.Unmarshal(raw, &p); err != nil {
		return def
	}
	if p.FG[0] == "" || p.FG[1] == "" {
		p.FG = def.FG
	}
	if p.BG[0] == "" || p.BG[1] == "" {
		p.BG = def.BG
	}
	if strings.TrimSpace(p.Label) == "" {
		p.Label = def.Label
	}
	if p.BoardMode == "" {
		p.BoardMode = def.BoardMode
	}
	return p
}
