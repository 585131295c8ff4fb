package chess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/park285/irc-chessbot/internal/chess/uci"
	"github.com/park285/irc-chessbot/internal/obslog"
	"go.uber.org/zap"
)

// ErrEngineNotFound is returned when no stockfish binary can be located.
var ErrEngineNotFound = errors.New("stockfish binary not found")

// fallbackPaths are tried after STOCKFISH_PATH and $PATH.
var fallbackPaths = []string{"/usr/bin/stockfish", "/usr/games/stockfish", "/usr/local/bin/stockfish"}

// ResolveBinary locates the engine. An explicit path wins, then the
// STOCKFISH_PATH variable, then "stockfish" on $PATH, then the usual
// distribution locations.
func ResolveBinary(configured string) (string, error) {
	candidates := make([]string, 0, 2)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	if env := os.Getenv("STOCKFISH_PATH"); env != "" && env != configured {
		candidates = append(candidates, env)
	}
	for _, p := range candidates {
		if isExecutable(p) {
			return p, nil
		}
	}
	if len(candidates) > 0 {
		return "", fmt.Errorf("%w: %s", ErrEngineNotFound, candidates[0])
	}
	if p, err := exec.LookPath("stockfish"); err == nil {
		return p, nil
	}
	for _, p := range fallbackPaths {
		if isExecutable(p) {
			return p, nil
		}
	}
	return "", ErrEngineNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

type starter func(ctx context.Context) (*uci.Session, error)

// Engine plays full-strength moves from a single long-lived engine process.
// A session that fails mid-search is discarded and restarted on next use.
type Engine struct {
	path  string
	start starter

	mu      sync.Mutex
	session *uci.Session
}

// NewEngine starts the engine at path and keeps it warm.
func NewEngine(ctx context.Context, path string, opt uci.Options) (*Engine, error) {
	e := &Engine{
		path: path,
		start: func(ctx context.Context) (*uci.Session, error) {
			return uci.NewSession(ctx, path, opt)
		},
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.sessionLocked(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Path() string { return e.path }

// BestMove returns the engine's choice after moves from the start position,
// thinking for roughly think.
func (e *Engine) BestMove(ctx context.Context, moves []string, think time.Duration) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.sessionLocked(ctx)
	if err != nil {
		return "", err
	}
	if think <= 0 {
		think = time.Millisecond
	}
	resp, err := s.Search(ctx, uci.SearchRequest{
		Moves:  moves,
		Limits: uci.Limits{MoveTime: think},
	})
	if err != nil {
		if !errors.Is(err, uci.ErrNoMove) {
			e.discardLocked(err)
		}
		return "", err
	}
	return resp.BestMove, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	return err
}

func (e *Engine) sessionLocked(ctx context.Context) (*uci.Session, error) {
	if e.session != nil {
		return e.session, nil
	}
	s, err := e.start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", e.path, err)
	}
	e.session = s
	return s, nil
}

func (e *Engine) discardLocked(cause error) {
	if e.session == nil {
		return
	}
	obslog.L().Warn("engine_restart", zap.String("path", e.path), zap.Error(cause))
	_ = e.session.Close()
	e.session = nil
}
