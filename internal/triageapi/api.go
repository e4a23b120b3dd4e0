// Package triageapi exposes the triage engine over HTTP.
package triageapi

import (
	"context"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/warden/internal/notify/slack"
	"github.com/linnemanlabs/warden/internal/triage"
)

// IDHeader carries the triage ID on every response.
const IDHeader = "X-Triage-Id"

// TriageService defines the business operation triageapi needs.
type TriageService interface {
	Triage(ctx context.Context, id string, body []byte) (*triage.Outcome, error)
}

// Notifier delivers major-incident alerts.
type Notifier interface {
	Send(ctx context.Context, a *slack.Alert) error
}

// Option configures an API.
type Option func(*API)

// WithNotifier sends an alert for every ai outcome flagged as a major
// incident. observe, if non-nil, is called with each delivery result.
func WithNotifier(n Notifier, observe func(error)) Option {
	return func(a *API) {
		a.notifier = n
		a.observeNotify = observe
	}
}

// WithProvider labels notifications with the completion provider name.
func WithProvider(name string) Option {
	return func(a *API) { a.provider = name }
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger        log.Logger
	svc           TriageService
	notifier      Notifier
	observeNotify func(error)
	provider      string
	now           func() time.Time

	pending sync.WaitGroup
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	a := &API{
		logger: logger,
		svc:    svc,
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Wait blocks until background notifications finish or ctx is done.
func (a *API) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/incidents/triage", a.handleTriage)
	})
	// legacy path kept for existing callers
	r.Post("/api/processIncident", a.handleTriage)
}
