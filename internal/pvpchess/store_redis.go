package pvpchess

import (
    "context"
    "crypto/tls"
    "fmt"
    "net/url"
    "strconv"
    "strings"

    "github.com/park285/irc-chessbot/pkg/chessdto"
    "github.com/redis/go-redis/v9"
)

// RedisStore keeps the ongoing-games document as one JSON string value.
type RedisStore struct {
    rdb *redis.Client
    key string
}

// NewRedisStore connects to redisURL and stores the document for botNick.
func NewRedisStore(ctx context.Context, redisURL, botNick string) (*RedisStore, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for redis ongoing store")
    }
    opts, err := parseRedisURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(ctx).Err(); err != nil {
        rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewRedisStoreWithClient(rdb, botNick), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, botNick string) *RedisStore {
    return &RedisStore{rdb: rdb, key: ongoingKey(botNick)}
}

func (s *RedisStore) Close() error {
    if s == nil || s.rdb == nil { return nil }
    return s.rdb.Close()
}

func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Load(ctx context.Context) (chessdto.OngoingGames, error) {
    raw, err := s.rdb.Get(ctx, s.key).Bytes()
    if err == redis.Nil { return chessdto.OngoingGames{}, nil }
    if err != nil { return nil, fmt.Errorf("redis get %s: %w", s.key, err) }
    return decodeDocument(raw)
}

func (s *RedisStore) Save(ctx context.Context, doc chessdto.OngoingGames) error {
    raw, err := encodeDocument(doc)
    if err != nil { return err }
    if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
        return fmt.Errorf("redis set %s: %w", s.key, err)
    }
    return nil
}

func ongoingKey(botNick string) string { return "chessbot:" + strings.TrimSpace(botNick) + ":ongoing" }

func parseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(raw)
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" { if n, err := strconv.Atoi(p); err == nil { db = n } }
    pass, _ := u.User.Password()
    opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
    if u.Scheme == "rediss" {
        opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
    }
    return opts, nil
}
