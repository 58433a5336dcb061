package proxy

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the error body shape shared with the backend.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	_ = writeJSON(w, status, errorResponse{Detail: detail})
}
