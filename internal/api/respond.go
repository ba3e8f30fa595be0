package api

import (
	"net/http"

	"github.com/bytedance/sonic"
)

const maxBodyBytes = 64 << 10

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	return sonic.ConfigStd.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(out)
}
