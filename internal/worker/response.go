package worker

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error             string `json:"error"`
	Details           string `json:"details,omitempty"`
	BusinessMessageID string `json:"businessMessageId,omitempty"`
}

type successResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	BusinessMessageID string `json:"businessMessageId,omitempty"`
	ClientMessageID   string `json:"clientMessageId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
