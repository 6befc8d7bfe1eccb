package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError is the single boundary for error mapping: every handler
// funnels failures through here and clients always get {"error": msg}.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		if e.Kind != apperr.KindValidation {
			logger.Error("request failed", zap.String("kind", string(e.Kind)), zap.Error(err))
		}
		writeJSON(w, e.HTTPStatus(), map[string]string{"error": e.Message})
		return
	}
	logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}
