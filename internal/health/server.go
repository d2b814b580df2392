// Package health serves the keep-alive HTTP endpoint and a small status API,
// and optionally pings an external URL so free hosting keeps the process up.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-bridge-bot/internal/model"
	"wager-bridge-bot/internal/session"
	"wager-bridge-bot/internal/worldlink"
)

// World is the part of the supervisor the status page reads.
type World interface {
	Status() worldlink.Status
	Balance() decimal.Decimal
}

// Queue is the part of the session queue the status page reads.
type Queue interface {
	Status() session.Status
}

// Archive lists published testimonials. Optional.
type Archive interface {
	Recent(ctx context.Context, limit int) ([]*model.Testimonial, error)
	Stats(ctx context.Context) (count int64, winners int64, err error)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	World        string            `json:"world"`
	Balance      string            `json:"balance"`
	Waiting      int               `json:"waiting"`
	Active       int               `json:"active"`
	Testimonials *TestimonialStats `json:"testimonials,omitempty"`
}

// TestimonialStats summarises the archive. Absent when it is disabled.
type TestimonialStats struct {
	Count   int64 `json:"count"`
	Winners int64 `json:"winners"`
}

// TestimonialResponse is one entry of GET /testimonials.
type TestimonialResponse struct {
	Player    string    `json:"player"`
	Variant   string    `json:"variant"`
	Deposit   string    `json:"deposit"`
	NetProfit string    `json:"net_profit"`
	CreatedAt time.Time `json:"created_at"`
}

// Server is the keep-alive HTTP server.
type Server struct {
	world   World
	queue   Queue
	archive Archive
	srv     *http.Server
}

// NewServer creates a Server listening on addr. archive may be nil.
func NewServer(addr string, world World, queue Queue, archive Archive) *Server {
	s := &Server{world: world, queue: queue, archive: archive}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/testimonials", s.handleTestimonials).Methods(http.MethodGet)
	return r
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Bot is running!"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	qs := s.queue.Status()
	resp := StatusResponse{
		World:   s.world.Status().String(),
		Balance: s.world.Balance().String(),
		Waiting: qs.Waiting,
		Active:  qs.Active,
	}
	if s.archive != nil {
		count, winners, err := s.archive.Stats(r.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load testimonial stats")
		} else {
			resp.Testimonials = &TestimonialStats{Count: count, Winners: winners}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTestimonials(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "testimonial archive is disabled", http.StatusNotFound)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load testimonials")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]TestimonialResponse, 0, len(items))
	for _, t := range items {
		player := t.DisplayName
		if t.Anonymous() {
			player = "anonymous"
		}
		out = append(out, TestimonialResponse{
			Player:    player,
			Variant:   t.Variant,
			Deposit:   t.Deposit.String(),
			NetProfit: t.NetProfit.String(),
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
