package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/domain/model"
	"github.com/unread-lab/catchup/pkg/service/worker"
	"github.com/unread-lab/catchup/pkg/utils/logging"
)

// StatusProvider exposes the poller state for the status endpoint
type StatusProvider interface {
	Status() worker.Status
}

// Server is the HTTP surface over stored summaries, the delivery queue and
// the poller state. Summaries and status are read-only; the queue endpoint
// consumes pending deliveries.
type Server struct {
	router *chi.Mux
	repo   interfaces.Repository
	queue  interfaces.DeliveryQueue
	poller StatusProvider
}

type Options func(*Server)

// WithPoller exposes the poller status on /api/status
func WithPoller(p StatusProvider) Options {
	return func(s *Server) {
		s.poller = p
	}
}

// WithQueue exposes the delivery queue on /api/queue. Each GET drains the
// pending summaries.
func WithQueue(q interfaces.DeliveryQueue) Options {
	return func(s *Server) {
		s.queue = q
	}
}

func New(repo interfaces.Repository, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		repo:   repo,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summaries", s.listSummariesHandler)
		r.Get("/summaries/{key}", s.getSummaryHandler)
		if s.queue != nil {
			r.Get("/queue", s.queueHandler)
		}
		if s.poller != nil {
			r.Get("/status", s.statusHandler)
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Error("failed to encode response", "error", err.Error())
	}
}

type summaryResponse struct {
	ChannelKey string    `json:"channel_key"`
	Text       string    `json:"text"`
	SavedAt    time.Time `json:"saved_at"`
}

func toSummaryResponse(s *model.StoredSummary) summaryResponse {
	return summaryResponse{
		ChannelKey: s.ChannelKey,
		Text:       s.Text,
		SavedAt:    s.SavedAt,
	}
}

type queueResponse struct {
	Pending    int                `json:"pending"`
	Deliveries []deliveryResponse `json:"deliveries"`
}

type deliveryResponse struct {
	ID          string    `json:"id"`
	ChannelName string    `json:"channel_name"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
	PostCount   int       `json:"post_count"`
}

func toDeliveryResponse(s *model.ChannelSummary) deliveryResponse {
	return deliveryResponse{
		ID:          string(s.ID),
		ChannelName: s.ChannelName,
		Text:        s.Text,
		GeneratedAt: s.GeneratedAt,
		PostCount:   s.PostCount,
	}
}
