package httpapi

import (
	"encoding/json"
	"net/http"

	"embedd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

// writeEnvelope writes the /embedding response shape. On failure the result
// is always an empty array, never null.
func writeEnvelope(w http.ResponseWriter, status int, res [][]float64) {
	if res == nil {
		res = [][]float64{}
	}
	writeJSON(w, status, types.EmbeddingResponse{Status: status, EmbeddingRes: res})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
