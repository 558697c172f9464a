// Package presenceflow is the client side of a presence link visit: it validates the link,
// waits for a session when needed and registers the visitor's presence at most once
// automatically.
package presenceflow

import (
	"context"
	"sync"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/apiclient"
)

// State is a step of the flow.
type State int

const (
	Loading State = iota
	Invalid
	Unauthenticated
	Registering
	Registered
	Error
)

var stateNames = [...]string{"loading", "invalid", "unauthenticated", "registering", "registered", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Invalid || s == Registered }

const (
	MsgLinkFallback     = "Link inválido"
	MsgLinkNotValid     = "Este link de presença não é válido ou expirou."
	MsgRegisterFallback = "Erro ao registrar presença"

	HeadingInvalid    = "Link Inválido"
	HeadingRegistered = "Presença Registrada"

	ReasonExpired  = "Expirado"
	ReasonInactive = "Inativo"
)

// API is the transport used by Flow. *apiclient.Client implements it.
type API interface {
	Authenticated() bool
	PresenceLink(ctx context.Context, id string) (*apiclient.PresenceLink, error)
	RegisterPresence(ctx context.Context, id string) (*apiclient.PresenceResult, error)
}

// Reason explains why a link is not valid. It is empty for valid links.
func Reason(link *apiclient.PresenceLink) string {
	if link == nil || link.IsValid {
		return ""
	}
	if link.IsExpired {
		return ReasonExpired
	}
	return ReasonInactive
}

// Snapshot is what a view renders.
type Snapshot struct {
	State   State
	Heading string
	Message string
	Reason  string
	Seminar models.SeminarSummary
	Link    *apiclient.PresenceLink
}

// Flow drives one page load. It is safe for concurrent use.
type Flow struct {
	api API
	id  string

	mu        sync.Mutex
	state     State
	started   bool
	attempted bool
	link      *apiclient.PresenceLink
	message   string
	seminar   models.SeminarSummary
}

// New creates a flow for the presence link id.
func New(api API, id string) *Flow {
	return &Flow{api: api, id: id}
}

// Snapshot returns the current view state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Flow) snapshot() Snapshot {
	s := Snapshot{State: f.state, Message: f.message, Link: f.link, Seminar: f.seminar}
	switch f.state {
	case Invalid:
		s.Heading = HeadingInvalid
		s.Reason = Reason(f.link)
	case Registered:
		s.Heading = HeadingRegistered
	}
	return s
}

// Load fetches the link. A valid link with a session goes straight to registration.
// Only the first call does anything.
func (f *Flow) Load(ctx context.Context) Snapshot {
	f.mu.Lock()
	if f.started {
		defer f.mu.Unlock()
		return f.snapshot()
	}
	f.started = true
	f.mu.Unlock()

	link, err := f.api.PresenceLink(ctx, f.id)

	f.mu.Lock()
	switch {
	case err != nil:
		f.state = Invalid
		f.message = apiclient.MessageOf(err, MsgLinkFallback)
	case !link.IsValid:
		f.link = link
		f.state = Invalid
		f.message = MsgLinkNotValid
	default:
		f.link = link
		f.seminar = link.Seminar
		f.state = Unauthenticated
	}
	f.mu.Unlock()
	return f.Authenticate(ctx)
}

// Authenticate is called once a session exists. From Unauthenticated it makes the single
// automatic registration attempt; elsewhere it is a no-op.
func (f *Flow) Authenticate(ctx context.Context) Snapshot {
	f.mu.Lock()
	if f.state != Unauthenticated || f.attempted || !f.api.Authenticated() {
		defer f.mu.Unlock()
		return f.snapshot()
	}
	f.attempted = true
	f.state = Registering
	f.mu.Unlock()
	return f.register(ctx)
}

// Retry re-attempts registration after an error. The link is not validated again.
func (f *Flow) Retry(ctx context.Context) Snapshot {
	f.mu.Lock()
	if f.state != Error {
		defer f.mu.Unlock()
		return f.snapshot()
	}
	f.state = Registering
	f.message = ""
	f.mu.Unlock()
	return f.register(ctx)
}

// register runs with the state already set to Registering.
func (f *Flow) register(ctx context.Context) Snapshot {
	res, err := f.api.RegisterPresence(ctx, f.id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Error
		f.message = apiclient.MessageOf(err, MsgRegisterFallback)
		return f.snapshot()
	}
	f.state = Registered
	f.message = res.Message
	if res.Seminar.Name != "" {
		f.seminar = res.Seminar
	}
	return f.snapshot()
}
