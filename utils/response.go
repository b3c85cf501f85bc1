package utils

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v\n", err)
		}
	}
}

// EncodeCursor packs a pagination key into a URL-safe opaque token.
func EncodeCursor(key map[string]string) string {
	if len(key) == 0 {
		return ""
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty or
// malformed token yields a nil key, restarting pagination from the top.
func DecodeCursor(token string) map[string]string {
	if token == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var key map[string]string
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil
	}
	return key
}
