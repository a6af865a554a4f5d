package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/3leaps/webhunt/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, envelope *apperrors.ErrorEnvelope, statusCode int) {
	writeJSON(w, statusCode, apperrors.HTTPErrorResponse{Error: *envelope})
}
