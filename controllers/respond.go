package controllers

import (
	"errors"
	"log"
	"net/http"

	"chefshare_server/services"
	"chefshare_server/utils"
)

// respondError maps service errors to HTTP status codes and writes a JSON
// error body. Anything outside the known sentinels is a 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConditionFailed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v\n", err)
	}
	utils.RespondJSON(w, status, map[string]string{"error": err.Error()})
}
