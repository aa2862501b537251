package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tour-routing-service/internal/api/dto"
	"tour-routing-service/internal/domain"
	"tour-routing-service/internal/platform/obs"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v. It writes the 400 itself
// and reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps domain errors to HTTP statuses. Unexpected errors
// are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string, err error) {
	var ite *domain.IllegalTransitionError
	var ipe *domain.InfeasiblePlanError
	switch {
	case domain.IsValidation(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &ite):
		writeError(w, r, http.StatusConflict, ite.Error())
	case errors.As(err, &ipe):
		writeJSON(w, r, http.StatusConflict, dto.InfeasiblePlanResponse{
			Error:      ipe.Error(),
			Violations: dto.FromViolations(ipe.Violations),
		})
	case errors.Is(err, domain.ErrTourCancelled), errors.Is(err, domain.ErrTourLocked), errors.Is(err, domain.ErrStalePlan):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		log.Error(op+" failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
