package statusd

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/park285/irc-chessbot/internal/adapter/chesspresenter"
	"github.com/park285/irc-chessbot/internal/obslog"
	svcchess "github.com/park285/irc-chessbot/internal/service/chess"
	"github.com/park285/irc-chessbot/pkg/chessdto"
)

// Games is the read side of the game manager.
type Games interface {
	Snapshot(nick string) []*chessdto.GameSnapshot
}

// Server exposes health, metrics, live games and player records over HTTP.
type Server struct {
	games   Games
	records svcchess.Repository
	metrics fasthttp.RequestHandler
	srv     *fasthttp.Server
}

func New(games Games, records svcchess.Repository, reg *prometheus.Registry) *Server {
	s := &Server{games: games, records: records}
	if reg != nil {
		s.metrics = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "chessbot-status",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	obslog.L().Info("status_listen", zap.String("addr", ln.Addr().String()))
	select {
	case <-ctx.Done():
		return s.srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

// ListenAndServe is Serve on a fresh TCP listener.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, chessdto.DomainError{Code: "method_not_allowed"})
		return
	}
	path := string(ctx.Path())
	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == "/metrics":
		if s.metrics == nil {
			writeError(ctx, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found"})
			return
		}
		s.metrics(ctx)
	case path == "/games":
		nick := strings.TrimSpace(string(ctx.QueryArgs().Peek("nick")))
		writeJSON(ctx, fasthttp.StatusOK, s.games.Snapshot(nick))
	case strings.HasPrefix(path, "/players/"):
		s.player(ctx, strings.TrimPrefix(path, "/players/"))
	default:
		writeError(ctx, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found"})
	}
}

func (s *Server) player(ctx *fasthttp.RequestCtx, nick string) {
	nick = strings.TrimSpace(nick)
	if nick == "" || strings.Contains(nick, "/") {
		writeError(ctx, fasthttp.StatusBadRequest, chessdto.DomainError{Code: "invalid_nick"})
		return
	}
	rec, err := s.records.GetPlayer(ctx, nick)
	if err != nil {
		obslog.L().Warn("status_player_error", zap.String("nick", nick), zap.Error(err))
		writeError(ctx, fasthttp.StatusServiceUnavailable, chessdto.DomainError{Code: "records_unavailable", Retryable: true})
		return
	}
	if rec == nil {
		writeError(ctx, fasthttp.StatusNotFound, chessdto.DomainError{Code: "unknown_player", Message: "no record for " + nick})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToDTOPlayer(rec))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("status_encode_error", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, derr chessdto.DomainError) {
	if derr.Message == "" {
		derr.Message = fasthttp.StatusMessage(status)
	}
	writeJSON(ctx, status, derr)
}
