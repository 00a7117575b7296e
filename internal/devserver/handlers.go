package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const qrScheme = "jo://ticket/"

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondDetail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[req.Username]; exists {
		respondDetail(w, http.StatusBadRequest, "A user with that username already exists.")
		return
	}
	acc := &account{
		ID:       s.allocID(),
		Username: req.Username,
		Email:    req.Email,
		password: req.Password,
	}
	s.accounts[req.Username] = acc

	access, err := s.mintAccess(req.Username)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":       acc.ID,
		"username": acc.Username,
		"email":    acc.Email,
		"tokens": map[string]string{
			"access":  access,
			"refresh": s.mintRefresh(req.Username),
		},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[req.Username]
	if !ok || acc.password != req.Password {
		respondDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	access, err := s.mintAccess(req.Username)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"access":  access,
		"refresh": s.mintRefresh(req.Username),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	username := s.subjectFromRequest(r)
	if username == "" {
		respondDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, acc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.refreshTokens[req.Refresh]
	if !ok {
		respondDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	access, err := s.mintAccess(username)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(s.offers),
		"results": s.offers,
	})
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Client map[string]any   `json:"client"`
		Panier []map[string]any `json:"panier"`
		Total  json.Number      `json:"total"`
		Places int              `json:"places"`
	}
	body := json.NewDecoder(r.Body)
	body.UseNumber()
	if err := body.Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Panier) == 0 || req.Places < 1 {
		respondDetail(w, http.StatusBadRequest, "reservation requires at least one place")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &reservation{
		ID:     s.allocID(),
		Client: req.Client,
		Panier: req.Panier,
		Total:  req.Total,
		Places: req.Places,
	}
	s.reservations[res.ID] = res
	respondJSON(w, http.StatusCreated, map[string]int64{"reservation_id": res.ID})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	username := s.subjectFromRequest(r)

	var req struct {
		ReservationID int64 `json:"reservation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[req.ReservationID]
	if !ok {
		respondDetail(w, http.StatusNotFound, "reservation not found")
		return
	}
	if res.Paid {
		respondDetail(w, http.StatusConflict, "reservation already paid")
		return
	}
	res.Paid = true

	// Payment is simulated: it always settles.
	token := uuid.NewString()
	t := &ticket{
		ID:            s.allocID(),
		ReservationID: res.ID,
		QRURL:         fmt.Sprintf("/media/qr/%s.png", token),
		CreatedAt:     s.now().Format(time.RFC3339),
		owner:         username,
		token:         token,
	}
	s.tickets[t.ID] = t
	s.ticketTokens[token] = t.ID

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "paid",
		"ticket": map[string]any{
			"id":             t.ID,
			"reservation_id": t.ReservationID,
			"qr_url":         t.QRURL,
			"summary": map[string]any{
				"places": res.Places,
				"total":  res.Total,
			},
		},
	})
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	if s.subjectFromRequest(r) == "" {
		respondDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "ticket id must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		respondDetail(w, http.StatusNotFound, "ticket not found")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
		QR    string `json:"qr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token := req.Token
	if token == "" {
		token = strings.TrimPrefix(req.QR, qrScheme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ticketTokens[token]
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}
	t := s.tickets[id]
	respondJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"meta": map[string]any{
			"ticket_id":      t.ID,
			"reservation_id": t.ReservationID,
			"created_at":     t.CreatedAt,
		},
	})
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request) {
	username := s.subjectFromRequest(r)
	if username == "" {
		respondDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]*ticket, 0)
	for _, t := range s.tickets {
		if t.owner == username {
			results = append(results, t)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}
