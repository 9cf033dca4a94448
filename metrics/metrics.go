// Package metrics holds the prometheus collectors of the arena server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by RequestsTotal
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultViolation = "violation"
)

// Registry is the registry every arena collector is registered with
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// RequestsTotal counts movement requests by admission outcome
	RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_requests_total",
		Help: "Movement requests handled by the game manager, by result.",
	}, []string{"result"})

	// GamesActive is the number of live games
	GamesActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "arena_games_active",
		Help: "Games currently registered with the session manager.",
	})

	// WSClients is the number of connected websocket mirrors
	WSClients = factory.NewGauge(prometheus.GaugeOpts{
		Name: "arena_ws_clients",
		Help: "Websocket clients currently connected.",
	})

	// BalancerSelections counts labels handed out, by language
	BalancerSelections = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_balancer_selections_total",
		Help: "Tile labels chosen by the sequence balancer, by language.",
	}, []string{"lang"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
