package web

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/message"

	"leadtracker/internal/adapters/email"
	"leadtracker/internal/adapters/http/middleware"
	"leadtracker/internal/adapters/http/perf"
	contestStore "leadtracker/internal/adapters/storage/contest"
	leadStore "leadtracker/internal/adapters/storage/lead"
	outboxStore "leadtracker/internal/adapters/storage/outbox"
)

// Stores holds all storage dependencies.
type Stores struct {
	LeadStore    leadStore.Store
	ContestStore contestStore.Store
	OutboxStore  outboxStore.Store // optional; queues undelivered notifications
}

// Notifier configures slab achievement emails. A nil Sender or no
// Recipients disables them.
type Notifier struct {
	Sender      email.Sender
	Recipients  []string
	Printer     *message.Printer
	Currency    string
	MaxAttempts int // delivery attempts per queued notification
}

// Deps is everything the API needs from the process.
type Deps struct {
	Stores     *Stores
	Notify     Notifier
	Collector  *perf.Collector // nil disables /debug/perf
	Location   *time.Location
	Endpoint   string // action endpoint path, e.g. "/exec"
	Now        func() time.Time
	GenerateID func() string
}

// Edge configures the middleware around the mux.
type Edge struct {
	AllowedOrigins []string
	CSRFKey        []byte // nil disables CSRF protection
	Secure         bool
	RatePerMinute  int
	SlowRequestMs  int
}

// api serves the action endpoint. Every mutation of either store holds lock.
type api struct {
	deps   Deps
	lock   sync.Mutex
	routes map[Action]handlerFunc
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// NewMux wires HTTP handlers for the app.
// PRE: deps.Stores is non-nil
// POST: Returns a mux serving deps.Endpoint and, with a collector, /debug/perf
func NewMux(deps Deps) *http.ServeMux {
	if deps.Endpoint == "" {
		deps.Endpoint = "/exec"
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateID == nil {
		deps.GenerateID = generateID
	}

	a := &api{deps: deps}
	a.routes = a.handlers()

	mux := http.NewServeMux()
	mux.HandleFunc(deps.Endpoint, a.handleExec)
	if deps.Collector != nil {
		mux.HandleFunc("GET /debug/perf", a.handlePerf)
	}
	return mux
}

// NewHandler applies the middleware chain to h.
// Order, outer to inner: Timing, RateLimit, CORS, SecurityHeaders, CSRF.
// The rate limiter's cleanup goroutine stops when ctx is done.
func NewHandler(ctx context.Context, h http.Handler, edge Edge, collector *perf.Collector) http.Handler {
	rate := edge.RatePerMinute
	if rate <= 0 {
		rate = 120
	}
	chain := []func(http.Handler) http.Handler{
		middleware.Timing(collector, edge.SlowRequestMs),
		middleware.RateLimit(middleware.NewRateLimiter(ctx, rate, time.Minute)),
		middleware.CORS(edge.AllowedOrigins),
		middleware.SecurityHeaders,
	}
	if edge.CSRFKey != nil {
		chain = append(chain, middleware.CSRF(edge.CSRFKey, edge.Secure, edge.AllowedOrigins))
	}
	return middleware.Chain(h, chain...)
}

// handlePerf returns a snapshot of recent request and query timings.
// ?since= takes a Unix second timestamp; ?top= caps the slowest lists.
func (a *api) handlePerf(w http.ResponseWriter, r *http.Request) {
	middleware.SetRouteLabel(r.Context(), "debug_perf")
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Invalid since"})
			return
		}
		since = time.Unix(sec, 0)
	}
	top := 10
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Invalid top"})
			return
		}
		top = n
	}
	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "Performance snapshot",
		Data:    a.deps.Collector.Snapshot(since, top),
	})
}
