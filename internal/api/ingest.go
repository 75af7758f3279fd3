package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/hivemind/internal/export"
	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
)

// maxExportBytes bounds an uploaded export document.
const maxExportBytes = 512 << 20

// ingest handles POST /api/v1/ingest. The body is the raw export JSON.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, ingest.KindUnsupportedFormat, err)
		return
	}
	dryRun, err := queryBool(q.Get("dry_run"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "", fmt.Errorf("invalid dry_run: %w", err))
		return
	}
	force, err := queryBool(q.Get("force"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "", fmt.Errorf("invalid force: %w", err))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxExportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "", err)
			return
		}
		writeError(w, http.StatusBadRequest, "", fmt.Errorf("read body: %w", err))
		return
	}

	sum, err := s.ingester.Run(r.Context(), ingest.Request{
		Path:    q.Get("name"),
		Data:    data,
		Project: q.Get("project"),
		Format:  format,
		DryRun:  dryRun,
		Force:   force,
	})
	if err != nil {
		kind := ingest.ErrorKind(err)
		s.logger.Error("ingest failed", "kind", kind, "error", err)
		writeError(w, statusForKind(kind), kind, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func statusForKind(kind string) int {
	switch kind {
	case ingest.KindDecode:
		return http.StatusBadRequest
	case ingest.KindUnsupportedFormat:
		return http.StatusUnprocessableEntity
	case ingest.KindSinkUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// sinkStatus maps a sink error to a response code.
func sinkStatus(err error) int {
	if errors.Is(err, memory.ErrSinkUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
