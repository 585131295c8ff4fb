package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	libuci "github.com/corentings/chess/v2/uci"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/park285/irc-chessbot/internal/obslog"
)

const (
	defaultReadyTimeout = 4 * time.Second
	defaultHashMB       = 16
	mateScore           = 30000
)

var (
	// ErrNoMove is returned when the engine has no legal move to offer.
	ErrNoMove = errors.New("engine returned no move")
	// ErrClosed is returned once the session is closed or its engine was killed.
	ErrClosed = errors.New("engine session closed")
)

// stopGrace is how long a timed out command gets to finish after stop.
// closeGrace bounds the quit handshake before the process is killed.
var (
	stopGrace  = 500 * time.Millisecond
	closeGrace = 2 * time.Second
)

// Options are applied with setoption right after uciok.
// SkillLevel is only sent when positive.
type Options struct {
	Threads    int
	HashMB     int
	SkillLevel int
}

type Limits struct {
	Depth    int
	MoveTime time.Duration
	Nodes    int
}

// Info is the last principal variation the engine reported.
type Info struct {
	Depth     int
	EvalCP    int
	Principal []string
}

type SearchRequest struct {
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	BestMove string
	Ponder   string
	Info     Info
}

// Session owns one engine process driven through the chess library's UCI
// client. The client blocks on the engine's output with no deadline, so each
// command batch runs on its own goroutine; a batch that outlives its deadline
// and ignores stop leaves the session wedged and the process is killed.
type Session struct {
	eng *libuci.Engine
	pid int

	search sync.Mutex

	mu     sync.Mutex
	wedged bool
	closed bool
}

// NewSession starts the engine at binaryPath and runs the uci handshake.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	eng, err := libuci.New(binaryPath, engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}
	s := &Session{eng: eng, pid: eng.Getpid()}

	cmds := []libuci.Cmd{libuci.CmdUCI}
	cmds = append(cmds, optionCommands(opt)...)
	cmds = append(cmds, libuci.CmdUCINewGame, libuci.CmdIsReady)
	if err := s.run(ctx, defaultReadyTimeout, cmds...); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	obslog.L().Info("uci_session_start",
		zap.String("path", binaryPath),
		zap.Int("pid", s.pid),
		zap.String("name", eng.ID()["name"]),
	)
	return s, nil
}

// engineOptions turns on the client's line log when debug logging is enabled.
func engineOptions() []func(*libuci.Engine) {
	logger := obslog.L().Named("uci")
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return nil
	}
	std, err := zap.NewStdLogAt(logger, zapcore.DebugLevel)
	if err != nil {
		return nil
	}
	return []func(*libuci.Engine){libuci.Logger(std), libuci.Debug}
}

// Search positions the engine after moves from the start position and
// waits for bestmove.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	position, err := buildPosition(req.Moves)
	if err != nil {
		return SearchResponse{}, err
	}
	goCmd, err := buildGo(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}
	if err := s.run(ctx, computeSearchTimeout(req.Limits), position, goCmd); err != nil {
		obslog.L().Warn("uci_search_error",
			zap.String("go", goCmd.String()),
			zap.Int("plies", len(req.Moves)),
			zap.Error(err))
		return SearchResponse{}, err
	}

	res := s.eng.SearchResults()
	if res.BestMove == nil {
		return SearchResponse{}, ErrNoMove
	}
	resp := SearchResponse{BestMove: res.BestMove.String(), Info: infoFrom(res.Info)}
	if res.Ponder != nil {
		resp.Ponder = res.Ponder.String()
	}
	obslog.L().Debug("uci_bestmove",
		zap.String("move", resp.BestMove),
		zap.Int("depth", resp.Info.Depth),
		zap.Int("eval_cp", resp.Info.EvalCP))
	return resp, nil
}

// run executes cmds under a deadline. On timeout stop is sent, which the
// client writes without taking its own lock, so a running go can still end.
func (s *Session) run(ctx context.Context, timeout time.Duration, cmds ...libuci.Cmd) error {
	s.mu.Lock()
	unusable := s.closed || s.wedged
	s.mu.Unlock()
	if unusable {
		return ErrClosed
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.eng.Run(cmds...) }()
	select {
	case err := <-done:
		return err
	case <-rctx.Done():
	}

	go func() { _ = s.eng.Run(libuci.CmdStop) }()
	select {
	case <-done:
	case <-time.After(stopGrace):
		obslog.L().Warn("uci_engine_wedged", zap.Int("pid", s.pid))
		s.mu.Lock()
		s.wedged = true
		s.mu.Unlock()
		s.kill()
	}
	return rctx.Err()
}

// Close quits the engine, killing it if the quit handshake cannot complete.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wedged := s.wedged
	s.mu.Unlock()

	if !wedged {
		done := make(chan error, 1)
		go func() { done <- s.eng.Close() }()
		select {
		case err := <-done:
			// the engine usually exits on quit before the final kill
			if err == nil || errors.Is(err, os.ErrProcessDone) {
				return nil
			}
			return err
		case <-time.After(closeGrace):
		}
	}
	s.kill()
	return nil
}

func (s *Session) kill() {
	if p, err := os.FindProcess(s.pid); err == nil {
		_ = p.Kill()
	}
}

// buildPosition replays moves and sends the resulting position as a FEN, so
// the client decodes bestmove against the board it was found on.
func buildPosition(moves []string) (libuci.CmdPosition, error) {
	game := nchess.NewGame()
	for i, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return libuci.CmdPosition{}, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return libuci.CmdPosition{Position: game.Position()}, nil
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	return nil
}

func optionCommands(opt Options) []libuci.Cmd {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	hash := opt.HashMB
	if hash <= 0 {
		hash = defaultHashMB
	}
	cmds := []libuci.Cmd{
		libuci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(threads)},
		libuci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(hash)},
	}
	if opt.SkillLevel > 0 {
		cmds = append(cmds, libuci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(opt.SkillLevel)})
	}
	return cmds
}

func buildGo(l Limits) (libuci.CmdGo, error) {
	cmd := libuci.CmdGo{Depth: l.Depth, Nodes: l.Nodes}
	if l.MoveTime > 0 {
		cmd.MoveTime = l.MoveTime
		if cmd.MoveTime < time.Millisecond {
			cmd.MoveTime = time.Millisecond
		}
	}
	if cmd.Depth <= 0 && cmd.Nodes <= 0 && cmd.MoveTime <= 0 {
		return libuci.CmdGo{}, fmt.Errorf("no search limits specified")
	}
	return cmd, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTime > 0 {
		return l.MoveTime + 2*time.Second
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

func infoFrom(in libuci.Info) Info {
	out := Info{Depth: in.Depth, EvalCP: in.Score.CP}
	switch {
	case in.Score.Mate > 0:
		out.EvalCP = mateScore
	case in.Score.Mate < 0:
		out.EvalCP = -mateScore
	}
	for _, m := range in.PV {
		if m != nil {
			out.Principal = append(out.Principal, m.String())
		}
	}
	return out
}
