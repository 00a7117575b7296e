package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/remsmachous/jo-storefront/internal/api"
	"github.com/remsmachous/jo-storefront/internal/cart"
	"github.com/remsmachous/jo-storefront/internal/store"
)

var (
	ErrPaymentRefused   = errors.New("payment refused")
	ErrNoTicket         = errors.New("no ticket snapshot")
	ErrEmptyReservation = errors.New("reservation came back without an id")
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidationError lists the client-side reservation form failures. These
// never reach the network.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// Gateway is the slice of the API client the checkout flow drives.
type Gateway interface {
	CreateReservation(ctx context.Context, req api.ReservationRequest) (int64, error)
	Checkout(ctx context.Context, reservationID int64) (api.CheckoutResult, error)
}

// Summary is the cart recap frozen into the last-ticket snapshot at payment
// time.
type Summary struct {
	Items  []cart.Line     `json:"items"`
	Places int             `json:"places"`
	Total  decimal.Decimal `json:"total"`
}

// TicketSnapshot is what the ticket page reads back after the redirect.
type TicketSnapshot struct {
	ID            int64   `json:"id"`
	ReservationID int64   `json:"reservation_id"`
	QRURL         string  `json:"qr_url"`
	Summary       Summary `json:"summary"`
}

// Flow drives reservation and simulated payment against the backend and owns
// the last-ticket snapshot in the durable store.
type Flow struct {
	gateway Gateway
	store   store.Store
	log     *slog.Logger
}

func NewFlow(gateway Gateway, st store.Store, log *slog.Logger) *Flow {
	if log == nil {
		log = slog.Default()
	}
	return &Flow{gateway: gateway, store: st, log: log}
}

// ValidateClient applies the reservation form rules and returns nil or the
// complete failure list.
func ValidateClient(info api.ClientInfo, places int) *ValidationError {
	var errs []string
	if strings.TrimSpace(info.Nom) == "" {
		errs = append(errs, "last name required")
	}
	if strings.TrimSpace(info.Prenom) == "" {
		errs = append(errs, "first name required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(info.Email)) {
		errs = append(errs, "invalid email")
	}
	if places < 1 {
		errs = append(errs, "at least one place required")
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// Reserve validates the form, snapshots the cart into the backend payload and
// returns the reservation id the payment step needs.
func (f *Flow) Reserve(ctx context.Context, info api.ClientInfo, lines []cart.Line) (int64, error) {
	state := cart.State{Items: lines}
	if err := ValidateClient(info, state.TotalQuantity()); err != nil {
		return 0, err
	}

	panier := make([]api.PanierItem, 0, len(lines))
	for _, l := range lines {
		panier = append(panier, api.PanierItem{
			ID:    l.ID,
			Titre: l.Title,
			Prix:  l.UnitPrice,
			Qty:   l.Qty,
		})
	}

	id, err := f.gateway.CreateReservation(ctx, api.ReservationRequest{
		Client: info,
		Panier: panier,
		Total:  state.TotalAmount(),
		Places: state.TotalQuantity(),
	})
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrEmptyReservation
	}
	return id, nil
}

// Pay runs the simulated payment. On success the ticket plus a frozen cart
// recap is written to the store for the ticket page; clearing the cart is the
// caller's move.
func (f *Flow) Pay(ctx context.Context, reservationID int64, lines []cart.Line) (api.Ticket, error) {
	result, err := f.gateway.Checkout(ctx, reservationID)
	if err != nil {
		return api.Ticket{}, err
	}
	if result.Status != "paid" || result.Ticket.ID == 0 {
		return api.Ticket{}, fmt.Errorf("%w: status %q", ErrPaymentRefused, result.Status)
	}

	state := cart.State{Items: lines}
	snapshot := TicketSnapshot{
		ID:            result.Ticket.ID,
		ReservationID: result.Ticket.ReservationID,
		QRURL:         result.Ticket.QRURL,
		Summary: Summary{
			Items:  lines,
			Places: state.TotalQuantity(),
			Total:  state.TotalAmount(),
		},
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		f.log.Warn("ticket snapshot marshal failed", "err", err)
		return result.Ticket, nil
	}
	if err := f.store.Set(store.KeyLastTicket, data); err != nil {
		// Best effort, the ticket page can refetch by id.
		f.log.Warn("ticket snapshot write failed", "err", err)
	}
	return result.Ticket, nil
}

// LastTicket reads the snapshot written by Pay. A missing or corrupt
// snapshot degrades to ErrNoTicket, never to a parse error.
func (f *Flow) LastTicket() (TicketSnapshot, error) {
	raw, err := f.store.Get(store.KeyLastTicket)
	if err != nil {
		return TicketSnapshot{}, ErrNoTicket
	}
	var snapshot TicketSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		f.log.Debug("ticket snapshot unreadable", "err", err)
		return TicketSnapshot{}, ErrNoTicket
	}
	return snapshot, nil
}
