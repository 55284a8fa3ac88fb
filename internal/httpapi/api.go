package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
	"warden.gg/internal/modaction"
	"warden.gg/internal/modqueue"
	"warden.gg/internal/obs"
	"warden.gg/internal/stream"
)

// ReadyProbe verifies downstream availability for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Limits carries the HTTP hygiene knobs.
type Limits struct {
	MaxBodyBytes  int64
	RateBurst     int
	RatePerSecond int
}

// DefaultLimits are sensible dev defaults; production tunes via config.
func DefaultLimits() Limits {
	return Limits{MaxBodyBytes: 1 << 20, RateBurst: 60, RatePerSecond: 30}
}

// API is the HTTP layer over the guard, the ledger, the queue scheduler
// and the audit recorder.
type API struct {
	mux        *http.ServeMux
	guard      *auth.Guard
	actions    *modaction.Service
	queue      *modqueue.Service
	recorder   *audit.Recorder
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string
	limits     Limits
}

// Config wires the API's collaborators.
type Config struct {
	Guard    *auth.Guard
	Actions  *modaction.Service
	Queue    *modqueue.Service
	Recorder *audit.Recorder
	Stream   *stream.Stream
	Ready    ReadyProbe
	Version  string
	Limits   Limits
}

func New(cfg Config) *API {
	if cfg.Limits.MaxBodyBytes == 0 {
		cfg.Limits = DefaultLimits()
	}
	a := &API{
		mux:        http.NewServeMux(),
		guard:      cfg.Guard,
		actions:    cfg.Actions,
		queue:      cfg.Queue,
		recorder:   cfg.Recorder,
		stream:     cfg.Stream,
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		limits:     cfg.Limits,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// dev token mint
	a.mux.HandleFunc("/v1/auth/token", a.handleTokenMint)

	// role assignments and permission inspection
	a.mux.HandleFunc("/v1/users/", a.handleUserScoped)

	// moderation actions
	a.mux.HandleFunc("/v1/moderation/actions", a.handleActionsCollection)
	a.mux.HandleFunc("/v1/moderation/actions/", a.handleActionResource)

	// moderation queue
	a.mux.HandleFunc("/v1/queue/items", a.handleQueueCollection)
	a.mux.HandleFunc("/v1/queue/items/", a.handleQueueItemResource)
	a.mux.HandleFunc("/v1/queue/assign/bulk", a.handleBulkAssign)
	a.mux.HandleFunc("/v1/queue/assign/auto", a.handleAutoAssign)
	a.mux.HandleFunc("/v1/queue/escalate", a.handleEscalate)
	a.mux.HandleFunc("/v1/queue/workload", a.handleWorkload)
	a.mux.HandleFunc("/v1/queue/stream", a.handleQueueStream)

	// audit trail
	a.mux.HandleFunc("/v1/audit", a.handleAuditList)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain. The audit boundary sits
// outside authn and the rate limiter so rejected requests (401/403/429)
// are captured too; metrics and logging wrap everything.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.limits.MaxBodyBytes)
	h = RateLimit(h, a.limits.RateBurst, a.limits.RatePerSecond)
	h = a.auditBoundary(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
