package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/remsmachous/jo-storefront/internal/api"
)

// Backend is the slice of the API client the session engine drives.
// Consumers define this interface, not the HTTP implementation.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (api.TokenPair, error)
	Register(ctx context.Context, details api.Registration) (json.RawMessage, error)
	Me(ctx context.Context) (api.User, error)
	AccessToken() string
	ClearTokens()
}

// Engine owns the authenticated identity for the UI session. It moves between
// Anonymous and Authenticated through Login/Register/Logout; Bootstrap runs
// once at startup to resolve a persisted token into a live identity.
type Engine struct {
	mu      sync.RWMutex
	backend Backend
	log     *slog.Logger

	user  *api.User
	ready bool
}

func NewEngine(backend Backend, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{backend: backend, log: log}
}

// Ready reports whether the startup bootstrap has completed, success or not.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// User returns the resolved identity and whether one is set.
func (e *Engine) User() (api.User, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.user == nil {
		return api.User{}, false
	}
	return *e.user, true
}

// Bootstrap resolves a stored access token into an identity. Without a stored
// token it resolves to Anonymous with no network call. Any fetch failure
// discards the stored tokens and resolves to Anonymous. It never returns an
// error; a UI shell must always be able to render after it. A cancelled
// context discards the late result instead of applying it.
func (e *Engine) Bootstrap(ctx context.Context) {
	token := e.backend.AccessToken()
	if token == "" {
		e.setReady()
		return
	}

	user, err := e.backend.Me(ctx)
	if err != nil {
		e.log.Debug("bootstrap identity fetch failed", "err", err)
		e.backend.ClearTokens()
		if ctx.Err() == nil {
			e.setUser(nil)
			e.setReady()
		}
		return
	}

	if ctx.Err() != nil {
		// Consumer went away while we were waiting; drop the result.
		return
	}
	e.setUser(&user)
	e.setReady()
}

// Login authenticates and then resolves the identity. When the identity fetch
// fails after a successful login call the tokens stay persisted (login
// partially succeeded) but the identity remains unset and the fetch error is
// returned.
func (e *Engine) Login(ctx context.Context, creds api.Credentials) (api.User, error) {
	if _, err := e.backend.Login(ctx, creds); err != nil {
		return api.User{}, err
	}
	user, err := e.backend.Me(ctx)
	if err != nil {
		return api.User{}, err
	}
	e.setUser(&user)
	return user, nil
}

// Register creates the account and then attempts the same identity fetch as
// Login. A fetch failure is not an error here: registration succeeded, so the
// raw registration response is returned and the identity stays unset.
func (e *Engine) Register(ctx context.Context, details api.Registration) (json.RawMessage, error) {
	raw, err := e.backend.Register(ctx, details)
	if err != nil {
		return nil, err
	}
	user, err := e.backend.Me(ctx)
	if err != nil {
		e.log.Debug("post-register identity fetch failed", "err", err)
		return raw, nil
	}
	e.setUser(&user)
	return raw, nil
}

// Logout clears tokens and identity synchronously. No backend call, never
// fails.
func (e *Engine) Logout() {
	e.backend.ClearTokens()
	e.setUser(nil)
}

func (e *Engine) setUser(u *api.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.user = u
}

func (e *Engine) setReady() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = true
}
