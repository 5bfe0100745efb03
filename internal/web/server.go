package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/conorfennell/knolsched/internal/domain"
	"github.com/conorfennell/knolsched/internal/sched"
)

// Notes looks up the content shown with a card.
type Notes interface {
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	GetNote(ctx context.Context, id int64) (*domain.Note, error)
}

// Server exposes one scheduler and one review session over a JSON API.
// Requests are serialized because the scheduler is not safe for concurrent
// use.
type Server struct {
	mu     sync.Mutex
	sched  *sched.Scheduler
	notes  Notes
	sess   sched.SessionState
	router *http.ServeMux
	log    *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(s *sched.Scheduler, notes Notes, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		sched:  s,
		notes:  notes,
		router: http.NewServeMux(),
		log:    log,
	}
	srv.routes()
	return srv
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// CheckDay applies a pending day rollover between requests.
func (s *Server) CheckDay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.CheckDay(ctx)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /api/counts", s.handleCounts())
	s.router.HandleFunc("GET /api/next", s.handleNext())
	s.router.HandleFunc("POST /api/answer", s.handleAnswer())
	s.router.HandleFunc("GET /api/tree", s.handleTree())
	s.router.HandleFunc("GET /api/eta", s.handleETA())

	s.router.HandleFunc("POST /api/cards/bury", s.handleCards(func(ctx context.Context, req cardsRequest) error {
		return s.sched.Bury(ctx, req.IDs, req.Manual)
	}))
	s.router.HandleFunc("POST /api/cards/suspend", s.handleCards(func(ctx context.Context, req cardsRequest) error {
		return s.sched.Suspend(ctx, req.IDs)
	}))
	s.router.HandleFunc("POST /api/cards/unsuspend", s.handleCards(func(ctx context.Context, req cardsRequest) error {
		return s.sched.Unsuspend(ctx, req.IDs)
	}))
	s.router.HandleFunc("POST /api/cards/forget", s.handleCards(func(ctx context.Context, req cardsRequest) error {
		return s.sched.Forget(ctx, req.IDs)
	}))
	s.router.HandleFunc("POST /api/cards/due", s.handleCards(func(ctx context.Context, req cardsRequest) error {
		return s.sched.SetDueDate(ctx, req.IDs, req.Days)
	}))

	s.router.HandleFunc("POST /api/decks/{id}/select", s.handleDeck(func(ctx context.Context, did int64, r *http.Request) (any, error) {
		return nil, s.sched.SelectDeck(ctx, did)
	}))
	s.router.HandleFunc("POST /api/decks/{id}/unbury", s.handleDeck(func(ctx context.Context, did int64, r *http.Request) (any, error) {
		scope, err := domain.ParseBuryScope(r.URL.Query().Get("scope"))
		if err != nil {
			return nil, badRequest{err}
		}
		return nil, s.sched.Unbury(ctx, did, scope)
	}))
	s.router.HandleFunc("POST /api/filtered/{id}/rebuild", s.handleDeck(func(ctx context.Context, did int64, r *http.Request) (any, error) {
		n, err := s.sched.RebuildFilteredDeck(ctx, did)
		return map[string]int{"count": n}, err
	}))
	s.router.HandleFunc("POST /api/filtered/{id}/empty", s.handleDeck(func(ctx context.Context, did int64, r *http.Request) (any, error) {
		return nil, s.sched.EmptyFilteredDeck(ctx, did)
	}))
}

// cardView is a card on screen with everything needed to answer it.
type cardView struct {
	Card      *domain.Card           `json:"card"`
	Note      *domain.Note           `json:"note"`
	Counts    sched.Counts           `json:"counts"`
	Buttons   int                    `json:"buttons"`
	Intervals map[domain.Rating]int64 `json:"intervals"`
}

func (s *Server) handleCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		counts, err := s.sched.Counts(r.Context(), &s.sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, counts)
	}
}

// handleNext hands out the next card, or 204 when the day is done.
func (s *Server) handleNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ctx := r.Context()
		card, err := s.sched.NextCard(ctx, &s.sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if card == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		view, err := s.view(ctx, card)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, view)
	}
}

func (s *Server) view(ctx context.Context, card *domain.Card) (*cardView, error) {
	note, err := s.notes.GetNote(ctx, card.NoteID)
	if err != nil {
		return nil, err
	}
	counts, err := s.sched.CountsWith(ctx, &s.sess, card)
	if err != nil {
		return nil, err
	}
	v := &cardView{
		Card:      card,
		Note:      note,
		Counts:    counts,
		Buttons:   s.sched.AnswerButtons(card),
		Intervals: make(map[domain.Rating]int64, 4),
	}
	for r := domain.Again; r <= domain.Easy; r++ {
		if v.Buttons == 2 && r != domain.Again && r != domain.Easy {
			continue
		}
		secs, err := s.sched.NextInterval(ctx, card, r)
		if err != nil {
			return nil, err
		}
		v.Intervals[r] = secs
	}
	return v, nil
}

type answerRequest struct {
	CardID int64         `json:"card_id"`
	Rating domain.Rating `json:"rating"`
}

type answerResponse struct {
	Card  *domain.Card          `json:"card"`
	Leech bool                  `json:"leech"`
	Log   domain.ReviewLogEntry `json:"log"`
}

func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		ctx := r.Context()
		card, err := s.notes.GetCard(ctx, req.CardID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := s.sched.Answer(ctx, &s.sess, card, req.Rating)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if out.Leech {
			s.log.Info("leech", "card", card.ID, "lapses", card.Lapses)
		}
		s.respond(w, http.StatusOK, answerResponse{Card: card, Leech: out.Leech, Log: out.Log})
	}
}

func (s *Server) handleTree() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withCounts := r.URL.Query().Get("counts") != "0"
		s.mu.Lock()
		defer s.mu.Unlock()
		tree, err := s.sched.DueTree(r.Context(), withCounts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, tree)
	}
}

func (s *Server) handleETA() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ctx := r.Context()
		counts, err := s.sched.Counts(ctx, &s.sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		minutes, err := s.sched.ETA(ctx, counts)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, http.StatusOK, map[string]int{"minutes": minutes})
	}
}

type cardsRequest struct {
	IDs    []int64 `json:"ids"`
	Manual bool    `json:"manual"`
	// Days is a due date range such as "0", "3-7" or "1-5!".
	Days string `json:"days"`
}

func (s *Server) handleCards(fn func(context.Context, cardsRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cardsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
		if len(req.IDs) == 0 {
			s.fail(w, r, badRequest{errors.New("no card ids given")})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := fn(r.Context(), req); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeck(fn func(context.Context, int64, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		did, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.fail(w, r, badRequest{errors.New("invalid deck id")})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		body, err := fn(r.Context(), did, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if body == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.respond(w, http.StatusOK, body)
	}
}
