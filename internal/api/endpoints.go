package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User is the resolved identity from /api/accounts/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

// ClientInfo identifies the person placing a reservation. Field names follow
// the backend contract.
type ClientInfo struct {
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone,omitempty"`
}

// PanierItem is one cart line in the shape the reservation endpoint expects.
type PanierItem struct {
	ID    string          `json:"id"`
	Titre string          `json:"titre"`
	Prix  decimal.Decimal `json:"prix"`
	Qty   int             `json:"qty"`
}

type ReservationRequest struct {
	Client ClientInfo      `json:"client"`
	Panier []PanierItem    `json:"panier"`
	Total  decimal.Decimal `json:"total"`
	Places int             `json:"places"`
}

type Ticket struct {
	ID            int64           `json:"id"`
	ReservationID int64           `json:"reservation_id"`
	QRURL         string          `json:"qr_url"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Summary       json.RawMessage `json:"summary,omitempty"`
}

type CheckoutResult struct {
	Status string `json:"status"`
	Ticket Ticket `json:"ticket"`
}

type VerifyResult struct {
	Valid bool           `json:"valid"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// qrScheme marks scanned payloads as opposed to bare ticket tokens.
const qrScheme = "jo://ticket/"

// Login exchanges credentials for a token pair and persists it. Auth failures
// come back as *AuthError with the server detail attached.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/accounts/login", creds)
	if err != nil {
		return TokenPair{}, asAuthError(err)
	}
	var out TokenPair
	if err := json.Unmarshal(raw, &out); err != nil {
		return TokenPair{}, fmt.Errorf("decode login response: %w", err)
	}
	if out.Access != "" && out.Refresh != "" {
		c.SetTokens(out.Access, out.Refresh)
	}
	return out, nil
}

// Register creates the account and persists tokens when the response carries
// them under "tokens". The raw response is returned so callers can fall back
// to it if the follow-up identity fetch fails.
func (c *Client) Register(ctx context.Context, details Registration) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/accounts/register", details)
	if err != nil {
		return nil, asAuthError(err)
	}
	var out struct {
		Tokens TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		if out.Tokens.Access != "" && out.Tokens.Refresh != "" {
			c.SetTokens(out.Tokens.Access, out.Tokens.Refresh)
		}
	}
	return raw, nil
}

// Me fetches the current identity using the stored bearer token.
func (c *Client) Me(ctx context.Context) (User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/accounts/me", nil)
	if err != nil {
		return User{}, asAuthError(err)
	}
	var out User
	if err := json.Unmarshal(raw, &out); err != nil {
		return User{}, fmt.Errorf("decode profile: %w", err)
	}
	return out, nil
}

// ListOffers returns the raw offer records, accepting both a bare array and a
// paginated {"results": [...]} envelope.
func (c *Client) ListOffers(ctx context.Context) ([]json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/offers/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw)
}

func (c *Client) CreateReservation(ctx context.Context, req ReservationRequest) (int64, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/reservations", req)
	if err != nil {
		return 0, err
	}
	var out struct {
		ReservationID int64 `json:"reservation_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode reservation response: %w", err)
	}
	return out.ReservationID, nil
}

func (c *Client) Checkout(ctx context.Context, reservationID int64) (CheckoutResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/checkout", map[string]int64{"reservation_id": reservationID})
	if err != nil {
		return CheckoutResult{}, err
	}
	var out CheckoutResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return CheckoutResult{}, fmt.Errorf("decode checkout response: %w", err)
	}
	return out, nil
}

func (c *Client) GetTicket(ctx context.Context, id int64) (Ticket, error) {
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tickets/%d", id), nil)
	if err != nil {
		return Ticket{}, err
	}
	var out Ticket
	if err := json.Unmarshal(raw, &out); err != nil {
		return Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	return out, nil
}

// Verify checks a scanned payload or bare token against the backend.
func (c *Client) Verify(ctx context.Context, tokenOrQR string) (VerifyResult, error) {
	body := map[string]string{"token": tokenOrQR}
	if strings.HasPrefix(tokenOrQR, qrScheme) {
		body = map[string]string{"qr": tokenOrQR}
	}
	raw, err := c.do(ctx, http.MethodPost, "/api/verify", body)
	if err != nil {
		return VerifyResult{}, err
	}
	var out VerifyResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return VerifyResult{}, fmt.Errorf("decode verify response: %w", err)
	}
	return out, nil
}

// MyTickets lists the tickets owned by the current user.
func (c *Client) MyTickets(ctx context.Context) ([]Ticket, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/my-tickets/", nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeList(raw)
	if err != nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(entries))
	for _, entry := range entries {
		var t Ticket
		if err := json.Unmarshal(entry, &t); err != nil {
			return nil, fmt.Errorf("decode ticket entry: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode list envelope: %w", err)
	}
	return envelope.Results, nil
}
