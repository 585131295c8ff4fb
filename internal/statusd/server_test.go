package statusd

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/irc-chessbot/internal/domain"
	"github.com/park285/irc-chessbot/internal/metrics"
	svcchess "github.com/park285/irc-chessbot/internal/service/chess"
	"github.com/park285/irc-chessbot/pkg/chessdto"
)

type fakeGames struct{ lastNick string }

func (f *fakeGames) Snapshot(nick string) []*chessdto.GameSnapshot {
	f.lastNick = nick
	return []*chessdto.GameSnapshot{{ID: "g1", Channel: "#chess", P1: "alice", P2: "bob", Turn: "white"}}
}

func do(s *Server, method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.Handle(ctx)
	return ctx
}

func TestHealthAndGames(t *testing.T) {
	games := &fakeGames{}
	s := New(games, svcchess.NewMemoryRepository(), nil)

	ctx := do(s, fasthttp.MethodGet, "/healthz")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.Equal(t, "ok", string(ctx.Response.Body()))

	ctx = do(s, fasthttp.MethodGet, "/games?nick=alice")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.Equal(t, "alice", games.lastNick)
	var got []chessdto.GameSnapshot
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "g1", got[0].ID)

	ctx = do(s, fasthttp.MethodPost, "/games")
	require.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())

	ctx = do(s, fasthttp.MethodGet, "/metrics")
	require.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestPlayers(t *testing.T) {
	repo := svcchess.NewMemoryRepository()
	require.NoError(t, repo.Increment(context.Background(), "bob", domain.CounterGames))
	require.NoError(t, repo.Increment(context.Background(), "bob", domain.CounterGames))
	require.NoError(t, repo.Increment(context.Background(), "bob", domain.CounterCheckmates))
	s := New(&fakeGames{}, repo, nil)

	ctx := do(s, fasthttp.MethodGet, "/players/bob")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var rec chessdto.PlayerRecord
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &rec))
	require.Equal(t, 2, rec.Games)
	require.Equal(t, 1, rec.Unfinished)

	ctx = do(s, fasthttp.MethodGet, "/players/nobody")
	require.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	var derr chessdto.DomainError
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &derr))
	require.Equal(t, "unknown_player", derr.Code)

	ctx = do(s, fasthttp.MethodGet, "/players/")
	require.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestServeMetrics(t *testing.T) {
	met := metrics.New()
	met.GameStarted(true)
	s := New(&fakeGames{}, svcchess.NewMemoryRepository(), met.Registry)

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	status, body, err := client.GetTimeout(nil, "http://status/metrics", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, fasthttp.StatusOK, status)
	require.True(t, strings.Contains(string(body), `chessbot_games_started_total{kind="cpu"} 1`))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
