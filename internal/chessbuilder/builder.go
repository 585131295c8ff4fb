package chessbuilder

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    _ "github.com/lib/pq"
    "go.uber.org/zap"

    "github.com/park285/irc-chessbot/internal/adapter/chesspresenter"
    "github.com/park285/irc-chessbot/internal/bot"
    corechess "github.com/park285/irc-chessbot/internal/chess"
    "github.com/park285/irc-chessbot/internal/chess/uci"
    "github.com/park285/irc-chessbot/internal/config"
    "github.com/park285/irc-chessbot/internal/metrics"
    "github.com/park285/irc-chessbot/internal/msgcat"
    "github.com/park285/irc-chessbot/internal/obslog"
    "github.com/park285/irc-chessbot/internal/pvp"
    "github.com/park285/irc-chessbot/internal/pvpchan"
    "github.com/park285/irc-chessbot/internal/pvpchess"
    svcchess "github.com/park285/irc-chessbot/internal/service/chess"
)

// Deps is everything the bot process runs on. Close releases what New opened.
type Deps struct {
    Bot     *bot.Bot
    Games   *pvpchess.Manager
    Records svcchess.Repository
    Store   pvpchess.Store
    Roster  *pvpchan.Roster
    Engine  *corechess.Engine
    Metrics *metrics.Metrics

    closers []func() error
}

// New builds the object graph from cfg and restores the ongoing games.
func New(ctx context.Context, cfg *config.AppConfig) (*Deps, error) {
    if cfg == nil {
        return nil, fmt.Errorf("nil config")
    }
    d := &Deps{Metrics: metrics.New(), Roster: pvpchan.NewRoster()}
    ok := false
    defer func() {
        if !ok { _ = d.Close() }
    }()

    records, err := d.openRecords(ctx, cfg)
    if err != nil { return nil, err }
    d.Records = records

    store, err := d.openStore(ctx, cfg)
    if err != nil { return nil, err }
    d.Store = store

    engine, err := d.openEngine(ctx, cfg)
    if err != nil { return nil, err }
    d.Engine = engine

    handshakes := pvp.NewManager(cfg.InviteTTL, cfg.UndoTTL)
    games, err := pvpchess.NewManager(pvpchess.Options{
        BotNick:   cfg.Nick,
        ThinkTime: cfg.CPUThinkTime,
    }, handshakes, d.Records, d.Store, engine, d.Metrics)
    if err != nil { return nil, fmt.Errorf("init game manager: %w", err) }
    d.Games = games

    cat, err := msgcat.New(cfg.MessagesDir)
    if err != nil { return nil, fmt.Errorf("load messages: %w", err) }
    format := chesspresenter.NewFormatter(cat, svcchess.NewTextBoardRenderer(), cfg.BotPrefix, cfg.Nick)

    b, err := bot.New(bot.Deps{
        Games:   games,
        Records: d.Records,
        Roster:  d.Roster,
        Format:  format,
        Prefix:  cfg.BotPrefix,
    })
    if err != nil { return nil, fmt.Errorf("init bot: %w", err) }
    d.Bot = b

    if _, err := games.Restore(ctx); err != nil {
        return nil, err
    }
    ok = true
    return d, nil
}

func (d *Deps) openRecords(ctx context.Context, cfg *config.AppConfig) (svcchess.Repository, error) {
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        repo, err := svcchess.NewFileRepository(cfg.RecordsPath())
        if err != nil { return nil, fmt.Errorf("open player records: %w", err) }
        obslog.L().Info("records_backend", zap.String("backend", "file"), zap.String("path", cfg.RecordsPath()))
        return repo, nil
    }
    db, err := sql.Open("postgres", cfg.DatabaseURL)
    if err != nil {
        return nil, fmt.Errorf("open postgres: %w", err)
    }
    d.closers = append(d.closers, db.Close)
    db.SetMaxOpenConns(8)
    db.SetMaxIdleConns(4)
    db.SetConnMaxLifetime(30 * time.Minute)

    pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(pctx); err != nil {
        return nil, fmt.Errorf("ping postgres: %w", err)
    }
    if err := svcchess.EnsureSchema(pctx, db); err != nil {
        return nil, err
    }
    obslog.L().Info("records_backend", zap.String("backend", "postgres"))
    return svcchess.NewRepository(db), nil
}

func (d *Deps) openStore(ctx context.Context, cfg *config.AppConfig) (pvpchess.Store, error) {
    switch cfg.OngoingStore {
    case "redis":
        rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
        defer cancel()
        rs, err := pvpchess.NewRedisStore(rctx, cfg.RedisURL, cfg.Nick)
        if err != nil { return nil, fmt.Errorf("init redis store: %w", err) }
        d.closers = append(d.closers, rs.Close)
        obslog.L().Info("ongoing_backend", zap.String("backend", "redis"), zap.String("key", rs.Key()))
        return rs, nil
    case "", "file":
        fs, err := pvpchess.NewFileStore(cfg.OngoingPath())
        if err != nil { return nil, fmt.Errorf("init file store: %w", err) }
        obslog.L().Info("ongoing_backend", zap.String("backend", "file"), zap.String("path", fs.Path()))
        return fs, nil
    default:
        return nil, fmt.Errorf("unknown ongoing store %q", cfg.OngoingStore)
    }
}

func (d *Deps) openEngine(ctx context.Context, cfg *config.AppConfig) (*corechess.Engine, error) {
    path, err := corechess.ResolveBinary(cfg.StockfishPath)
    if err != nil { return nil, fmt.Errorf("resolve engine: %w", err) }
    engine, err := corechess.NewEngine(ctx, path, uci.Options{Threads: 1, HashMB: 16})
    if err != nil { return nil, fmt.Errorf("start engine %s: %w", path, err) }
    d.closers = append(d.closers, engine.Close)
    return engine, nil
}

// Close releases the engine and the storage connections, newest first.
func (d *Deps) Close() error {
    var errs []error
    for i := len(d.closers) - 1; i >= 0; i-- {
        if err := d.closers[i](); err != nil { errs = append(errs, err) }
    }
    d.closers = nil
    return errors.Join(errs...)
}
