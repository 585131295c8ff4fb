package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot's prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	gamesStarted   *prometheus.CounterVec
	gamesFinished  *prometheus.CounterVec
	movesApplied   *prometheus.CounterVec
	invitesExpired prometheus.Counter
	engineLatency  prometheus.Histogram
	liveGames      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessbot",
			Name:      "games_started_total",
			Help:      "Games started, by opponent kind.",
		}, []string{"kind"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessbot",
			Name:      "games_finished_total",
			Help:      "Games removed from play, by result.",
		}, []string{"result"}),
		movesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessbot",
			Name:      "moves_applied_total",
			Help:      "Half-moves applied, by mover kind.",
		}, []string{"by"}),
		invitesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chessbot",
			Name:      "invites_expired_total",
			Help:      "Invitations removed by the expiry sweep.",
		}),
		engineLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chessbot",
			Name:      "engine_move_seconds",
			Help:      "Wall time of CPU move searches.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		liveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chessbot",
			Name:      "live_games",
			Help:      "Games currently held in memory.",
		}),
	}
	m.Registry.MustRegister(
		m.gamesStarted,
		m.gamesFinished,
		m.movesApplied,
		m.invitesExpired,
		m.engineLatency,
		m.liveGames,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) GameStarted(cpu bool) {
	if m == nil {
		return
	}
	kind := "pvp"
	if cpu {
		kind = "cpu"
	}
	m.gamesStarted.WithLabelValues(kind).Inc()
	m.liveGames.Inc()
}

// GameFinished records a removal; result is checkmate, stalemate, draw, forfeit or cancelled.
func (m *Metrics) GameFinished(result string) {
	if m == nil {
		return
	}
	m.gamesFinished.WithLabelValues(result).Inc()
	m.liveGames.Dec()
}

func (m *Metrics) MoveApplied(cpu bool) {
	if m == nil {
		return
	}
	by := "player"
	if cpu {
		by = "cpu"
	}
	m.movesApplied.WithLabelValues(by).Inc()
}

func (m *Metrics) InvitesExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invitesExpired.Add(float64(n))
}

func (m *Metrics) EngineSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.engineLatency.Observe(d.Seconds())
}

// SetLiveGames overwrites the gauge, used after restoring games at start-up.
func (m *Metrics) SetLiveGames(n int) {
	if m == nil {
		return
	}
	m.liveGames.Set(float64(n))
}
