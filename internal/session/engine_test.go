package session

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remsmachous/jo-storefront/internal/api"
)

type mockBackend struct {
	access  string
	refresh string

	user  api.User
	meErr error

	loginErr    error
	registerRaw json.RawMessage
	registerErr error

	meCalls    int
	loginCalls int
}

func (m *mockBackend) Login(_ context.Context, _ api.Credentials) (api.TokenPair, error) {
	m.loginCalls++
	if m.loginErr != nil {
		return api.TokenPair{}, m.loginErr
	}
	m.access, m.refresh = "tok-1", "ref-1"
	return api.TokenPair{Access: "tok-1", Refresh: "ref-1"}, nil
}

func (m *mockBackend) Register(_ context.Context, _ api.Registration) (json.RawMessage, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.access, m.refresh = "tok-1", "ref-1"
	return m.registerRaw, nil
}

func (m *mockBackend) Me(_ context.Context) (api.User, error) {
	m.meCalls++
	if m.meErr != nil {
		return api.User{}, m.meErr
	}
	return m.user, nil
}

func (m *mockBackend) AccessToken() string {
	return m.access
}

func (m *mockBackend) ClearTokens() {
	m.access, m.refresh = "", ""
}

func authErr(status int, detail string) error {
	return &api.AuthError{HTTPError: &api.HTTPError{
		Status:  status,
		Payload: map[string]any{"detail": detail},
	}}
}

func TestBootstrap_NoTokenResolvesAnonymousWithoutNetwork(t *testing.T) {
	backend := &mockBackend{}
	e := NewEngine(backend, nil)

	e.Bootstrap(context.Background())

	assert.True(t, e.Ready())
	_, ok := e.User()
	assert.False(t, ok)
	assert.Equal(t, 0, backend.meCalls)
}

func TestBootstrap_StoredTokenResolvesIdentity(t *testing.T) {
	backend := &mockBackend{
		access: "tok-1",
		user:   api.User{ID: 7, Username: "marie"},
	}
	e := NewEngine(backend, nil)

	e.Bootstrap(context.Background())

	assert.True(t, e.Ready())
	user, ok := e.User()
	require.True(t, ok)
	assert.Equal(t, "marie", user.Username)
}

func TestBootstrap_RejectedTokenClearsAndResolvesAnonymous(t *testing.T) {
	backend := &mockBackend{
		access:  "tok-stale",
		refresh: "ref-stale",
		meErr:   authErr(http.StatusUnauthorized, "token expired"),
	}
	e := NewEngine(backend, nil)

	e.Bootstrap(context.Background())

	assert.True(t, e.Ready(), "ready must be set even on failure")
	_, ok := e.User()
	assert.False(t, ok)
	assert.Empty(t, backend.access)
	assert.Empty(t, backend.refresh)
}

func TestBootstrap_CancelledContextDiscardsResult(t *testing.T) {
	backend := &mockBackend{
		access: "tok-1",
		user:   api.User{ID: 7, Username: "marie"},
	}
	e := NewEngine(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Bootstrap(ctx)

	_, ok := e.User()
	assert.False(t, ok, "late result must not apply to a gone consumer")
}

func TestLogin_SetsIdentity(t *testing.T) {
	backend := &mockBackend{user: api.User{ID: 7, Username: "marie"}}
	e := NewEngine(backend, nil)

	user, err := e.Login(context.Background(), api.Credentials{Username: "marie", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "marie", user.Username)

	got, ok := e.User()
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ID)
}

func TestLogin_AuthFailureSkipsIdentityFetch(t *testing.T) {
	backend := &mockBackend{loginErr: authErr(http.StatusBadRequest, "No active account found")}
	e := NewEngine(backend, nil)

	_, err := e.Login(context.Background(), api.Credentials{Username: "marie", Password: "wrong"})

	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "No active account found", ae.Detail())
	assert.Equal(t, 0, backend.meCalls)
}

func TestLogin_IdentityFetchFailureKeepsTokens(t *testing.T) {
	backend := &mockBackend{meErr: authErr(http.StatusBadGateway, "upstream down")}
	e := NewEngine(backend, nil)

	_, err := e.Login(context.Background(), api.Credentials{Username: "marie", Password: "pw"})

	require.Error(t, err)
	// login partially succeeded: tokens stay for a later fetch
	assert.Equal(t, "tok-1", backend.access)
	assert.Equal(t, "ref-1", backend.refresh)
	_, ok := e.User()
	assert.False(t, ok)
}

func TestRegister_SetsIdentity(t *testing.T) {
	backend := &mockBackend{
		user:        api.User{ID: 8, Username: "paul"},
		registerRaw: json.RawMessage(`{"id":8}`),
	}
	e := NewEngine(backend, nil)

	raw, err := e.Register(context.Background(), api.Registration{Username: "paul", Email: "p@x.fr", Password: "pw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":8}`, string(raw))

	got, ok := e.User()
	require.True(t, ok)
	assert.Equal(t, "paul", got.Username)
}

func TestRegister_IdentityFetchFailureReturnsRawResponse(t *testing.T) {
	backend := &mockBackend{
		meErr:       authErr(http.StatusBadGateway, "upstream down"),
		registerRaw: json.RawMessage(`{"id":8}`),
	}
	e := NewEngine(backend, nil)

	raw, err := e.Register(context.Background(), api.Registration{Username: "paul", Email: "p@x.fr", Password: "pw"})

	require.NoError(t, err, "registration success must not be masked by a read failure")
	assert.JSONEq(t, `{"id":8}`, string(raw))
	_, ok := e.User()
	assert.False(t, ok)
}

func TestRegister_Failure(t *testing.T) {
	backend := &mockBackend{registerErr: authErr(http.StatusBadRequest, "username taken")}
	e := NewEngine(backend, nil)

	_, err := e.Register(context.Background(), api.Registration{Username: "paul"})

	var ae *api.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 0, backend.meCalls)
}

func TestLogout_ClearsTokensAndIdentity(t *testing.T) {
	backend := &mockBackend{access: "tok-1", user: api.User{ID: 7}}
	e := NewEngine(backend, nil)
	e.Bootstrap(context.Background())
	_, ok := e.User()
	require.True(t, ok)

	e.Logout()

	assert.Empty(t, backend.access)
	_, ok = e.User()
	assert.False(t, ok)
}
