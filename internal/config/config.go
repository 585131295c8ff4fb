package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	IRCHost  string
	IRCPort  int
	IRCSSL   bool
	Nick     string
	Password string
	Channels []string

	BotPrefix string

	RedisURL    string
	DatabaseURL string

	// OngoingStore selects the ongoing-games backend: "file" or "redis".
	OngoingStore string
	DBPath       string

	StockfishPath string
	CPUThinkTime  time.Duration

	InviteTTL     time.Duration
	UndoTTL       time.Duration
	SweepInterval time.Duration

	StatusAddr  string
	MessagesDir string
}

// Addr is host:port for the IRC dialer.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.IRCHost, c.IRCPort)
}

// OngoingPath is the file used by the file-backed ongoing-games store.
func (c *AppConfig) OngoingPath() string {
	dir := strings.TrimRight(c.DBPath, "/")
	if dir == "" {
		dir = "."
	}
	return fmt.Sprintf("%s/%s_ongoing_games.json", dir, c.Nick)
}

// RecordsPath is the player records file used when DATABASE_URL is unset.
func (c *AppConfig) RecordsPath() string {
	dir := strings.TrimRight(c.DBPath, "/")
	if dir == "" {
		dir = "."
	}
	return fmt.Sprintf("%s/%s_players.json", dir, c.Nick)
}

// LoadDotenv reads .env files if present. Missing files are ignored.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		IRCPort:       6667,
		Nick:          "chessbot",
		BotPrefix:     ";",
		OngoingStore:  "file",
		DBPath:        ".",
		CPUThinkTime:  50 * time.Millisecond,
		InviteTTL:     60 * time.Second,
		UndoTTL:       15 * time.Second,
		SweepInterval: 500 * time.Millisecond,
	}

	cfg.IRCHost = strings.TrimSpace(os.Getenv("IRC_HOST"))
	if v := strings.TrimSpace(os.Getenv("IRC_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("IRC_PORT invalid: %q", v)
		}
		cfg.IRCPort = n
	}
	if v := strings.TrimSpace(os.Getenv("IRC_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.IRCSSL = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("NICK")); v != "" {
		cfg.Nick = v
	}
	cfg.Password = os.Getenv("PASSWORD")

	if v := strings.TrimSpace(os.Getenv("CHANNELS")); v != "" {
		chans, err := parseList(v)
		if err != nil {
			return nil, fmt.Errorf("CHANNELS: %w", err)
		}
		cfg.Channels = chans
	}

	if v := strings.TrimSpace(os.Getenv("BOT_PREFIX")); v != "" {
		cfg.BotPrefix = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("ONGOING_STORE")); v != "" {
		cfg.OngoingStore = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DB_PATH")); v != "" {
		cfg.DBPath = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if d, ok := millis("CPU_THINK_MS"); ok {
		cfg.CPUThinkTime = d
	}
	if v := strings.TrimSpace(os.Getenv("INVITE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InviteTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("UNDO_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.UndoTTL = time.Duration(n) * time.Second
		}
	}
	if d, ok := millis("SWEEP_INTERVAL_MS"); ok {
		cfg.SweepInterval = d
	}

	cfg.StatusAddr = strings.TrimSpace(os.Getenv("STATUS_ADDR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if cfg.IRCHost == "" {
		return nil, errors.New("IRC_HOST is required")
	}
	if len(cfg.Channels) == 0 {
		return nil, errors.New("CHANNELS is required")
	}
	switch cfg.OngoingStore {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when ONGOING_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("ONGOING_STORE must be file or redis, got %q", cfg.OngoingStore)
	}

	return cfg, nil
}

func millis(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

// parseList accepts a JSON array (["#a","#b"]) or a comma separated list.
func parseList(v string) ([]string, error) {
	var raw []string
	if strings.HasPrefix(v, "[") {
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil, err
		}
	} else {
		raw = strings.Split(v, ",")
	}
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
