// Package httpjson holds the small helpers every API handler uses to read
// and write JSON bodies consistently.
package httpjson

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error envelope: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

// Write serializes v with the given status code.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the uniform error envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, errorBody{Error: msg})
}

// Decode reads a JSON request body into dst, rejecting unknown payloads
// larger than 1 MiB.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}
