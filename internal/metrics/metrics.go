package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bughunt_http_requests_total",
		Help: "The total number of HTTP requests by method, route template and status code",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bughunt_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by method and route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	HTTPPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bughunt_http_panics_total",
		Help: "The total number of handler panics recovered by route template",
	}, []string{"route"})

	// Room Metrics
	GamesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bughunt_games_created_total",
		Help: "The total number of game rooms created",
	})
	RoomJoinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bughunt_room_joins_total",
		Help: "The total number of room join attempts by outcome",
	}, []string{"result"})

	// Score Metrics
	ScoreAccrualsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bughunt_score_accruals_total",
		Help: "The total number of successful score accruals",
	})
	ScorePointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bughunt_score_points_total",
		Help: "The total number of points accrued across all users",
	})

	// Event Metrics
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bughunt_events_published_total",
		Help: "The total number of domain events handed to publishers by type and result",
	}, []string{"type", "result"})

	// Storage Metrics
	StorageVolatile = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bughunt_storage_volatile",
		Help: "1 when the server is running on the in-process volatile store",
	})
)

// Join outcome labels for RoomJoinsTotal
const (
	JoinResultJoined        = "joined"
	JoinResultFull          = "full"
	JoinResultAlreadyJoined = "already_joined"
	JoinResultNotJoinable   = "not_joinable"
	JoinResultNotFound      = "not_found"
	JoinResultError         = "error"
)
