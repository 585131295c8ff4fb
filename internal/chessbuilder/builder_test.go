package chessbuilder

import (
    "context"
    "path/filepath"
    "testing"

    "github.com/alicebob/miniredis/v2"

    "github.com/park285/irc-chessbot/internal/config"
    "github.com/park285/irc-chessbot/internal/domain"
    "github.com/park285/irc-chessbot/internal/pvpchess"
)

func TestOpenStoreBackends(t *testing.T) {
    ctx := context.Background()
    dir := t.TempDir()

    d := &Deps{}
    st, err := d.openStore(ctx, &config.AppConfig{Nick: "chessbot", DBPath: dir, OngoingStore: "file"})
    if err != nil { t.Fatalf("file store: %v", err) }
    fs, ok := st.(*pvpchess.FileStore)
    if !ok { t.Fatalf("want *FileStore, got %T", st) }
    if want := filepath.Join(dir, "chessbot_ongoing_games.json"); fs.Path() != want {
        t.Fatalf("path = %q, want %q", fs.Path(), want)
    }

    mr := miniredis.RunT(t)
    st, err = d.openStore(ctx, &config.AppConfig{Nick: "chessbot", OngoingStore: "redis", RedisURL: "redis://" + mr.Addr()})
    if err != nil { t.Fatalf("redis store: %v", err) }
    if _, ok := st.(*pvpchess.RedisStore); !ok { t.Fatalf("want *RedisStore, got %T", st) }
    if len(d.closers) != 1 { t.Fatalf("closers = %d, want 1", len(d.closers)) }
    if err := d.Close(); err != nil { t.Fatalf("close: %v", err) }

    if _, err := d.openStore(ctx, &config.AppConfig{OngoingStore: "sqlite"}); err == nil {
        t.Fatalf("unknown backend accepted")
    }
}

func TestOpenRecordsDefaultsToFile(t *testing.T) {
    ctx := context.Background()
    cfg := &config.AppConfig{Nick: "chessbot", DBPath: t.TempDir()}
    d := &Deps{}
    repo, err := d.openRecords(ctx, cfg)
    if err != nil { t.Fatalf("records: %v", err) }
    if len(d.closers) != 0 { t.Fatalf("file backend registered a closer") }
    if err := repo.Increment(ctx, "alice", domain.CounterGames); err != nil { t.Fatalf("increment: %v", err) }

    reopened, err := d.openRecords(ctx, cfg)
    if err != nil { t.Fatalf("reopen: %v", err) }
    rec, err := reopened.GetPlayer(ctx, "alice")
    if err != nil || rec == nil || rec.Games != 1 { t.Fatalf("records must survive a restart: %+v %v", rec, err) }
}

func TestNewFailsWithoutEngine(t *testing.T) {
    t.Setenv("STOCKFISH_PATH", "")
    t.Setenv("PATH", t.TempDir())
    cfg := &config.AppConfig{
        Nick:          "chessbot",
        BotPrefix:     ";",
        OngoingStore:  "file",
        DBPath:        t.TempDir(),
        StockfishPath: filepath.Join(t.TempDir(), "missing-stockfish"),
    }
    if _, err := New(context.Background(), cfg); err == nil {
        t.Fatalf("New succeeded without an engine binary")
    }
}
