package controllers

import (
	"net/http"
	"strings"

	"chefshare_server/services"
)

// authenticate resolves the caller's username from the Authorization header.
func authenticate(r *http.Request, identity services.Identity) (string, error) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
	return identity.Lookup(r.Context(), token)
}
