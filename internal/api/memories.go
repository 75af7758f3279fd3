package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
	"github.com/MikeSquared-Agency/hivemind/internal/pairing"
)

const (
	defaultRecallLimit = 5
	maxRecallLimit     = 50
)

// addMemory handles POST /api/v1/memories.
func (s *Server) addMemory(w http.ResponseWriter, r *http.Request) {
	var in pairing.TextInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "", fmt.Errorf("invalid JSON: %w", err))
		return
	}

	id, err := s.ingester.RunText(r.Context(), in)
	if err != nil {
		if errors.Is(err, pairing.ErrEmptyContent) {
			writeError(w, http.StatusBadRequest, "", err)
			return
		}
		writeError(w, sinkStatus(err), ingest.ErrorKind(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type recallResponse struct {
	Results []memory.Record `json:"results"`
	Count   int             `json:"count"`
}

// recall handles GET /api/v1/recall.
func (s *Server) recall(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "", errors.New("query parameter q is required"))
		return
	}

	limit := defaultRecallLimit
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "", fmt.Errorf("invalid n %q", v))
			return
		}
		limit = min(n, maxRecallLimit)
	}

	filter := memory.Filter{}
	for param, key := range map[string]string{
		"project": memory.KeyProjectContext,
		"type":    memory.KeyType,
		"source":  memory.KeySource,
	} {
		if v := q.Get(param); v != "" {
			filter[key] = v
		}
	}

	recs, err := s.sink.Query(r.Context(), text, limit, filter)
	if err != nil {
		s.logger.Error("recall failed", "error", err)
		writeError(w, sinkStatus(err), ingest.ErrorKind(err), err)
		return
	}
	if recs == nil {
		recs = []memory.Record{}
	}
	writeJSON(w, http.StatusOK, recallResponse{Results: recs, Count: len(recs)})
}
