package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// readJSON decodes a request body strictly: unknown fields are rejected so a
// misspelled option fails loudly instead of silently taking a default.
func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

// writeJSON is the single response path for the REST surface; the websocket
// channel has its own encoder on client.send.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
