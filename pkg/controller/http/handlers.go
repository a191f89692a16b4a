package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
	"github.com/unread-lab/catchup/pkg/utils/errutil"
)

func (s *Server) listSummariesHandler(w http.ResponseWriter, r *http.Request) {
	stored, err := s.repo.Transcript().ListSummaries(r.Context())
	if err != nil {
		errutil.Handle(r.Context(), err, "failed to list summaries")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]summaryResponse, 0, len(stored))
	for _, item := range stored {
		resp = append(resp, toSummaryResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getSummaryHandler serves one stored summary. The path key is the encoded
// channel key, but a raw channel name works too.
func (s *Server) getSummaryHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	name, err := storagekey.Decode(key)
	if err != nil {
		name = key
	}

	stored, err := s.repo.Transcript().ReadLatestSummary(r.Context(), name)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			http.Error(w, "summary not found", http.StatusNotFound)
			return
		}
		errutil.Handle(r.Context(), err, "failed to read summary")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(stored))
}

// queueHandler drains the delivery queue without blocking and hands the
// dequeued summaries to the caller. Each summary is delivered at most once.
func (s *Server) queueHandler(w http.ResponseWriter, r *http.Request) {
	deliveries := []deliveryResponse{}
	for {
		item, ok := s.queue.Poll()
		if !ok {
			break
		}
		deliveries = append(deliveries, toDeliveryResponse(item))
	}

	writeJSON(w, http.StatusOK, queueResponse{
		Pending:    s.queue.Pending(),
		Deliveries: deliveries,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.poller.Status())
}
