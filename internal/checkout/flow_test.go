package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remsmachous/jo-storefront/internal/api"
	"github.com/remsmachous/jo-storefront/internal/cart"
	"github.com/remsmachous/jo-storefront/internal/store"
)

type mockGateway struct {
	reservationID  int64
	reservationErr error
	lastRequest    api.ReservationRequest

	checkoutResult api.CheckoutResult
	checkoutErr    error
	checkoutCalls  int
}

func (m *mockGateway) CreateReservation(_ context.Context, req api.ReservationRequest) (int64, error) {
	m.lastRequest = req
	if m.reservationErr != nil {
		return 0, m.reservationErr
	}
	return m.reservationID, nil
}

func (m *mockGateway) Checkout(_ context.Context, _ int64) (api.CheckoutResult, error) {
	m.checkoutCalls++
	if m.checkoutErr != nil {
		return api.CheckoutResult{}, m.checkoutErr
	}
	return m.checkoutResult, nil
}

func testLines() []cart.Line {
	return []cart.Line{
		{ID: "1", Title: "Finale 100m", UnitPrice: decimal.NewFromInt(90), Qty: 2},
		{ID: "2", Title: "Pack Duo: Judo", UnitPrice: decimal.NewFromInt(150), Qty: 1},
	}
}

func validClient() api.ClientInfo {
	return api.ClientInfo{Nom: "Durand", Prenom: "Marie", Email: "marie@example.fr"}
}

func TestValidateClient_Valid(t *testing.T) {
	assert.Nil(t, ValidateClient(validClient(), 2))
}

func TestValidateClient_CollectsAllFailures(t *testing.T) {
	err := ValidateClient(api.ClientInfo{Email: "not-an-email"}, 0)

	require.NotNil(t, err)
	assert.Equal(t, []string{
		"last name required",
		"first name required",
		"invalid email",
		"at least one place required",
	}, err.Errors)
}

func TestReserve_BuildsBackendPayload(t *testing.T) {
	gw := &mockGateway{reservationID: 41}
	f := NewFlow(gw, store.NewMemoryStore(), nil)

	id, err := f.Reserve(context.Background(), validClient(), testLines())
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)

	req := gw.lastRequest
	assert.Equal(t, 3, req.Places)
	assert.True(t, req.Total.Equal(decimal.NewFromInt(330)), "got %s", req.Total)
	require.Len(t, req.Panier, 2)
	assert.Equal(t, "Finale 100m", req.Panier[0].Titre)
	assert.Equal(t, 2, req.Panier[0].Qty)
}

func TestReserve_InvalidFormNeverReachesNetwork(t *testing.T) {
	gw := &mockGateway{reservationID: 41}
	f := NewFlow(gw, store.NewMemoryStore(), nil)

	_, err := f.Reserve(context.Background(), api.ClientInfo{}, testLines())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, gw.lastRequest.Places, "gateway must not be called")
}

func TestReserve_EmptyCartFailsValidation(t *testing.T) {
	f := NewFlow(&mockGateway{reservationID: 41}, store.NewMemoryStore(), nil)

	_, err := f.Reserve(context.Background(), validClient(), nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "at least one place required")
}

func TestReserve_MissingReservationID(t *testing.T) {
	f := NewFlow(&mockGateway{reservationID: 0}, store.NewMemoryStore(), nil)

	_, err := f.Reserve(context.Background(), validClient(), testLines())
	require.ErrorIs(t, err, ErrEmptyReservation)
}

func TestPay_WritesTicketSnapshot(t *testing.T) {
	gw := &mockGateway{checkoutResult: api.CheckoutResult{
		Status: "paid",
		Ticket: api.Ticket{ID: 9, ReservationID: 41, QRURL: "https://jo.example/qr/9.png"},
	}}
	st := store.NewMemoryStore()
	f := NewFlow(gw, st, nil)

	ticket, err := f.Pay(context.Background(), 41, testLines())
	require.NoError(t, err)
	assert.Equal(t, int64(9), ticket.ID)

	snapshot, err := f.LastTicket()
	require.NoError(t, err)
	assert.Equal(t, int64(9), snapshot.ID)
	assert.Equal(t, int64(41), snapshot.ReservationID)
	assert.Equal(t, "https://jo.example/qr/9.png", snapshot.QRURL)
	assert.Equal(t, 3, snapshot.Summary.Places)
	assert.True(t, snapshot.Summary.Total.Equal(decimal.NewFromInt(330)))
	require.Len(t, snapshot.Summary.Items, 2)
}

func TestPay_RefusedStatus(t *testing.T) {
	gw := &mockGateway{checkoutResult: api.CheckoutResult{Status: "pending"}}
	f := NewFlow(gw, store.NewMemoryStore(), nil)

	_, err := f.Pay(context.Background(), 41, testLines())
	require.ErrorIs(t, err, ErrPaymentRefused)

	_, err = f.LastTicket()
	require.ErrorIs(t, err, ErrNoTicket)
}

func TestPay_GatewayError(t *testing.T) {
	gw := &mockGateway{checkoutErr: fmt.Errorf("backend down")}
	f := NewFlow(gw, store.NewMemoryStore(), nil)

	_, err := f.Pay(context.Background(), 41, testLines())
	require.ErrorContains(t, err, "backend down")
}

func TestLastTicket_CorruptSnapshotDegradesToNotFound(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(store.KeyLastTicket, []byte("{not json")))
	f := NewFlow(&mockGateway{}, st, nil)

	_, err := f.LastTicket()
	require.ErrorIs(t, err, ErrNoTicket)
}
