package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircfmt"
	"github.com/ergochat/irc-go/ircmsg"
	"go.uber.org/zap"

	"github.com/park285/irc-chessbot/internal/adapter/chesspresenter"
	"github.com/park285/irc-chessbot/internal/bot"
	"github.com/park285/irc-chessbot/internal/obslog"
	"github.com/park285/irc-chessbot/internal/pvpchan"
)

const (
	rplNamReply   = "353"
	rplEndOfNames = "366"
)

// Handler is the chat-facing side of the bot.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message) []bot.Outgoing
	OnJoin(ctx context.Context, channel, nick string) []bot.Outgoing
	OnPart(ctx context.Context, channel, nick string) []bot.Outgoing
	OnQuit(ctx context.Context, nick string) []bot.Outgoing
	Greeting(channels []string) []bot.Outgoing
}

type Config struct {
	Server   string
	TLS      bool
	Nick     string
	Password string
	Channels []string
}

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Client owns the IRC connection. It keeps the channel roster current and
// hands every chat event to the Handler, sending back whatever it returns.
type Client struct {
	cfg       Config
	conn      *ircevent.Connection
	roster    *pvpchan.Roster
	handler   Handler
	presenter *chesspresenter.Presenter

	stateM sync.RWMutex
	state  State

	ctxM sync.RWMutex
	ctx  context.Context
}

func New(cfg Config, roster *pvpchan.Roster, handler Handler) (*Client, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("irc server required")
	}
	if strings.TrimSpace(cfg.Nick) == "" {
		return nil, errors.New("irc nick required")
	}
	if roster == nil || handler == nil {
		return nil, errors.New("irc client dependencies not initialized")
	}
	conn := &ircevent.Connection{
		Server:        cfg.Server,
		Nick:          cfg.Nick,
		User:          cfg.Nick,
		RealName:      cfg.Nick,
		Password:      cfg.Password,
		UseTLS:        cfg.TLS,
		QuitMessage:   "bye",
		Timeout:       30 * time.Second,
		KeepAlive:     4 * time.Minute,
		ReconnectFreq: 10 * time.Second,
		Log:           zap.NewStdLog(obslog.L().Named("ircevent")),
	}
	if cfg.TLS {
		conn.TLSConfig = &tls.Config{ServerName: hostOf(cfg.Server), MinVersion: tls.VersionTLS12}
	}
	c := &Client{
		cfg:     cfg,
		conn:    conn,
		roster:  roster,
		handler: handler,
		state:   StateDisconnected,
		ctx:     context.Background(),
	}
	c.presenter = chesspresenter.NewPresenter(conn.Privmsg)
	c.register()
	return c, nil
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateM.Lock()
	prev := c.state
	c.state = s
	c.stateM.Unlock()
	if prev != s {
		obslog.L().Info("irc_state", zap.String("from", prev.String()), zap.String("to", s.String()))
	}
}

// Run connects and processes events until ctx is done. ircevent reconnects
// on its own after a dropped link.
func (c *Client) Run(ctx context.Context) error {
	c.ctxM.Lock()
	c.ctx = ctx
	c.ctxM.Unlock()

	c.setState(StateConnecting)
	if err := c.conn.Connect(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("irc connect %s: %w", c.cfg.Server, err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.conn.Loop()
	}()

	select {
	case <-ctx.Done():
		c.conn.Quit()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			obslog.L().Warn("irc_quit_timeout")
		}
	case <-done:
	}
	c.setState(StateDisconnected)
	return nil
}

// Emit sends every batch in order. Send failures are logged and skipped.
func (c *Client) Emit(out []bot.Outgoing) {
	for _, o := range out {
		if err := c.presenter.Lines(o.Target, o.Lines); err != nil {
			obslog.L().Warn("irc_send_error", zap.String("target", o.Target), zap.Error(err))
		}
	}
}

func (c *Client) register() {
	c.conn.AddConnectCallback(func(ircmsg.Message) {
		c.setState(StateConnected)
		for _, ch := range c.cfg.Channels {
			if err := c.conn.Join(ch); err != nil {
				obslog.L().Warn("irc_join_error", zap.String("channel", ch), zap.Error(err))
			}
		}
	})
	c.conn.AddDisconnectCallback(func(ircmsg.Message) {
		c.setState(StateDisconnected)
	})
	for _, code := range []string{"PRIVMSG", "JOIN", "PART", "QUIT", "NICK", "KICK", rplNamReply, rplEndOfNames} {
		c.conn.AddCallback(code, func(e ircmsg.Message) {
			c.Emit(c.route(c.context(), c.selfNick(), e))
		})
	}
}

func (c *Client) context() context.Context {
	c.ctxM.RLock()
	defer c.ctxM.RUnlock()
	return c.ctx
}

func (c *Client) selfNick() string {
	if n := c.conn.CurrentNick(); n != "" {
		return n
	}
	return c.cfg.Nick
}

// route applies one server line to the roster and returns the replies.
func (c *Client) route(ctx context.Context, self string, e ircmsg.Message) []bot.Outgoing {
	nick := e.Nick()
	switch e.Command {
	case "PRIVMSG":
		if len(e.Params) < 2 || nick == "" {
			return nil
		}
		text := e.Params[1]
		if strings.HasPrefix(text, "\x01") {
			return nil
		}
		return c.handler.Handle(ctx, bot.Message{
			Nick:    nick,
			Channel: replyTarget(self, e.Params[0], nick),
			Text:    ircfmt.Strip(text),
		})
	case "JOIN":
		if len(e.Params) < 1 {
			return nil
		}
		channel := e.Params[0]
		if strings.EqualFold(nick, self) {
			c.roster.SetNames(channel, []string{nick})
			return c.handler.Greeting([]string{channel})
		}
		if err := c.roster.Join(channel, nick); err != nil {
			obslog.L().Debug("roster_join_skipped", zap.String("channel", channel), zap.String("nick", nick), zap.Error(err))
			return nil
		}
		return c.handler.OnJoin(ctx, channel, nick)
	case "PART":
		if len(e.Params) < 1 {
			return nil
		}
		channel := e.Params[0]
		if strings.EqualFold(nick, self) {
			c.roster.Forget(channel)
			return nil
		}
		out := c.handler.OnPart(ctx, channel, nick)
		c.roster.Part(channel, nick)
		return out
	case "KICK":
		if len(e.Params) < 2 {
			return nil
		}
		if strings.EqualFold(e.Params[1], self) {
			c.roster.Forget(e.Params[0])
			return nil
		}
		c.roster.Kick(e.Params[0], e.Params[1])
		return nil
	case "QUIT":
		out := c.handler.OnQuit(ctx, nick)
		c.roster.Quit(nick)
		return out
	case "NICK":
		if len(e.Params) < 1 {
			return nil
		}
		c.roster.Rename(nick, e.Params[0])
		return nil
	case rplNamReply:
		// <me> <symbol> <channel> :<names>
		if len(e.Params) < 4 {
			return nil
		}
		c.roster.AddNames(e.Params[2], strings.Fields(e.Params[3]))
		return nil
	case rplEndOfNames:
		if len(e.Params) < 2 {
			return nil
		}
		c.roster.EndNames(e.Params[1])
		return nil
	}
	return nil
}

// replyTarget is the channel for channel messages and the sender for queries.
func replyTarget(self, target, sender string) string {
	if strings.EqualFold(target, self) {
		return sender
	}
	return target
}

func hostOf(server string) string {
	if i := strings.LastIndex(server, ":"); i > 0 {
		return strings.Trim(server[:i], "[]")
	}
	return server
}
