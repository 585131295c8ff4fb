package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IRC_HOST", "irc.example.net")
	t.Setenv("CHANNELS", `["#chess", "#lobby"]`)
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "irc.example.net:6667", cfg.Addr())
	assert.Equal(t, []string{"#chess", "#lobby"}, cfg.Channels)
	assert.Equal(t, ";", cfg.BotPrefix)
	assert.Equal(t, "chessbot", cfg.Nick)
	assert.Equal(t, 50*time.Millisecond, cfg.CPUThinkTime)
	assert.Equal(t, 60*time.Second, cfg.InviteTTL)
	assert.Equal(t, 15*time.Second, cfg.UndoTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, "./chessbot_ongoing_games.json", cfg.OngoingPath())
	assert.Equal(t, "./chessbot_players.json", cfg.RecordsPath())
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CHANNELS", "#a, #b,,")
	t.Setenv("IRC_PORT", "6697")
	t.Setenv("IRC_SSL", "true")
	t.Setenv("NICK", "rook")
	t.Setenv("CPU_THINK_MS", "120")
	t.Setenv("INVITE_TTL_SEC", "5")
	t.Setenv("DB_PATH", "/var/lib/rook/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"#a", "#b"}, cfg.Channels)
	assert.True(t, cfg.IRCSSL)
	assert.Equal(t, 6697, cfg.IRCPort)
	assert.Equal(t, 120*time.Millisecond, cfg.CPUThinkTime)
	assert.Equal(t, 5*time.Second, cfg.InviteTTL)
	assert.Equal(t, "/var/lib/rook/rook_ongoing_games.json", cfg.OngoingPath())
	assert.Equal(t, "/var/lib/rook/rook_players.json", cfg.RecordsPath())
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		t.Setenv("IRC_HOST", "")
		t.Setenv("CHANNELS", "#chess")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("redis without url", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ONGOING_STORE", "redis")
		t.Setenv("REDIS_URL", "")
		_, err := Load()
		require.ErrorContains(t, err, "REDIS_URL")
	})
	t.Run("bad port", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("IRC_PORT", "http")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHESSBOT_DOTENV_PROBE=yes\n"), 0o600))
	t.Setenv("CHESSBOT_DOTENV_PROBE", "")
	os.Unsetenv("CHESSBOT_DOTENV_PROBE")

	LoadDotenv(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "yes", os.Getenv("CHESSBOT_DOTENV_PROBE"))
}
