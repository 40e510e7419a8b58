// Package applier holds the pure state-transition logic of the webhook
// pipeline: given an event payload and the current interview row, a handler
// computes the exact field writes and nothing else. No I/O happens here.
package applier

import (
	"time"

	"github.com/talentwire/interview-webhooks/internal/entity"
)

// Handler computes the interview mutation for one (provider, eventType) pair.
// now is passed in so handlers stay deterministic.
type Handler func(payload []byte, current *entity.Interview, now time.Time) (*entity.InterviewMutation, error)

// Registry dispatches by (provider, eventType). Providers add event types over
// time; an event type missing from a known provider's table is a deliberate
// no-op for the caller, not an error.
type Registry struct {
	handlers map[string]map[string]Handler
}

func NewRegistry() *Registry {
	r := &Registry{
		handlers: make(map[string]map[string]Handler),
	}

	registerZoomHandlers(r)

	return r
}

func (r *Registry) register(provider, eventType string, h Handler) {
	if r.handlers[provider] == nil {
		r.handlers[provider] = make(map[string]Handler)
	}
	r.handlers[provider][eventType] = h
}

// Lookup returns the handler for the pair, or ok=false when the event type is
// not in the provider's table.
func (r *Registry) Lookup(provider, eventType string) (Handler, bool) {
	h, ok := r.handlers[provider][eventType]
	return h, ok
}

// KnownProvider reports whether any handlers are registered for the provider.
func (r *Registry) KnownProvider(provider string) bool {
	_, ok := r.handlers[provider]
	return ok
}
