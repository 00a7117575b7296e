// Package devserver is an in-memory stand-in for the remote ticketing
// backend, good enough to develop the storefront against: real JWTs with a
// short expiry so the refresh path gets exercised, simulated payment that
// always settles, nothing persisted.
package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Options struct {
	JWTSecret string
	AccessTTL time.Duration
}

type account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`

	password string
}

type reservation struct {
	ID     int64
	Client map[string]any
	Panier []map[string]any
	Total  json.Number
	Places int
	Paid   bool
}

type ticket struct {
	ID            int64  `json:"id"`
	ReservationID int64  `json:"reservation_id"`
	QRURL         string `json:"qr_url"`
	CreatedAt     string `json:"created_at"`

	owner string
	token string
}

// Server holds all simulated backend state behind one mutex.
type Server struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu            sync.Mutex
	accounts      map[string]*account
	refreshTokens map[string]string // refresh token -> username
	reservations  map[int64]*reservation
	tickets       map[int64]*ticket
	ticketTokens  map[string]int64 // verify token -> ticket id
	offers        []map[string]any
	nextID        int64
}

func New(opts Options) *Server {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	s := &Server{
		secret:        []byte(opts.JWTSecret),
		ttl:           opts.AccessTTL,
		now:           time.Now,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		reservations:  make(map[int64]*reservation),
		tickets:       make(map[int64]*ticket),
		ticketTokens:  make(map[string]int64),
		offers:        seedOffers(),
		nextID:        1,
	}
	return s
}

// Router builds the REST surface the storefront client consumes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Post("/api/accounts/register", s.handleRegister)
	r.Post("/api/accounts/login", s.handleLogin)
	r.Get("/api/accounts/me", s.handleMe)
	r.Post("/api/accounts/token/refresh", s.handleRefresh)

	r.Get("/api/offers/", s.handleOffers)
	r.Post("/api/reservations", s.handleCreateReservation)
	r.Post("/api/checkout", s.handleCheckout)
	r.Get("/api/tickets/{id}", s.handleGetTicket)
	r.Post("/api/verify", s.handleVerify)
	r.Get("/api/my-tickets/", s.handleMyTickets)

	return r
}

func (s *Server) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) mintAccess(username string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) mintRefresh(username string) string {
	token := uuid.NewString()
	s.refreshTokens[token] = username
	return token
}

// subjectFromRequest resolves the bearer token to a username, empty when the
// token is missing, malformed or expired.
func (s *Server) subjectFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return ""
	}
	parsed, err := jwt.ParseWithClaims(auth[len(prefix):], &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ""
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func seedOffers() []map[string]any {
	return []map[string]any{
		{"id": 1, "name": "Finale 100m", "description": "1 place en catégorie A pour la finale du 100m.", "price": 90, "category": "solo", "image_url": "/media/offres/athletisme.png"},
		{"id": 2, "name": "Basket: phases finales", "description": "1 billet pour un match des phases finales.", "price": 75, "category": "solo", "image_url": "/media/offres/basket.jpg"},
		{"id": 3, "name": "Pack Duo: Judo", "description": "2 billets pour les phases éliminatoires de judo.", "price": 150, "category": "duo", "image_url": "/media/offres/judo.jpg"},
		{"id": 4, "name": "Pack Famille: Natation", "description": "4 places pour les séries de natation.", "price": 250, "category": "famille", "image_url": "/media/offres/natation.jpeg"},
	}
}
