package main

import (
    "context"
    "errors"
    "log"
    "os"
    "os/signal"
    "sync"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/park285/irc-chessbot/internal/bot"
    "github.com/park285/irc-chessbot/internal/chessbuilder"
    appcfg "github.com/park285/irc-chessbot/internal/config"
    "github.com/park285/irc-chessbot/internal/irc"
    "github.com/park285/irc-chessbot/internal/obslog"
    "github.com/park285/irc-chessbot/internal/statusd"
)

func main() {
    appcfg.LoadDotenv()
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    logOpts := obslog.OptionsFromEnv()
    logOpts.Nick = cfg.Nick
    if err := obslog.Init(logOpts); err != nil {
        log.Fatalf("logger init error: %v", err)
    }
    logger := obslog.L()
    defer func() { _ = logger.Sync() }()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    deps, err := chessbuilder.New(ctx, cfg)
    if err != nil {
        logger.Fatal("chess_init_error", zap.Error(err))
    }
    defer func() {
        if err := deps.Close(); err != nil {
            logger.Warn("shutdown_close_error", zap.Error(err))
        }
    }()

    client, err := irc.New(irc.Config{
        Server:   cfg.Addr(),
        TLS:      cfg.IRCSSL,
        Nick:     cfg.Nick,
        Password: cfg.Password,
        Channels: cfg.Channels,
    }, deps.Roster, deps.Bot)
    if err != nil {
        logger.Fatal("irc_init_error", zap.Error(err))
    }

    var wg sync.WaitGroup
    if cfg.StatusAddr != "" {
        status := statusd.New(deps.Games, deps.Records, deps.Metrics.Registry)
        wg.Add(1)
        go func() {
            defer wg.Done()
            if err := status.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
                logger.Error("status_server_error", zap.Error(err))
            }
        }()
    }

    wg.Add(1)
    go func() {
        defer wg.Done()
        deps.Bot.Run(ctx, cfg.SweepInterval, func(out []bot.Outgoing) { client.Emit(out) })
    }()

    logger.Info("chess_bot_start",
        zap.String("server", cfg.Addr()),
        zap.String("nick", cfg.Nick),
        zap.Strings("channels", cfg.Channels),
        zap.String("engine", deps.Engine.Path()),
    )
    if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
        logger.Error("irc_run_error", zap.Error(err))
    }
    stop()

    done := make(chan struct{})
    go func() { wg.Wait(); close(done) }()
    select {
    case <-done:
    case <-time.After(10 * time.Second):
        logger.Warn("shutdown_timeout")
    }
    logger.Info("chess_bot_stop")
}
