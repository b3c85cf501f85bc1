package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chefshare_server/models"
	"chefshare_server/services"
	"chefshare_server/utils"

	"github.com/gorilla/mux"
)

// UserController handles requests related to users and their devices
type UserController struct {
	Users    *services.UserService
	Apps     *services.AppService
	Identity services.Identity
}

// NewUserController creates a new instance of UserController
func NewUserController(users *services.UserService, apps *services.AppService, identity services.Identity) *UserController {
	return &UserController{Users: users, Apps: apps, Identity: identity}
}

// GetMe returns the signed-in user's record.
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}
	user, err := c.Users.Get(r.Context(), username)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// RegisterToken registers or refreshes a device push token. A first-time
// device gets a push endpoint and the default subscriptions.
func (c *UserController) RegisterToken(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	vars := mux.Vars(r)
	query := r.URL.Query()
	user, err := c.Users.RegisterDevice(r.Context(), username,
		vars["device"], vars["token"],
		query.Get("platform"), query.Get("version"), query.Get("app_version"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user.Devices[vars["device"]])
}

// UpdateSubscriptions applies a partial change to one device's channels.
func (c *UserController) UpdateSubscriptions(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	var changes models.SubscriptionChanges
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	device, err := c.Users.UpdateSubscriptions(r.Context(), username, mux.Vars(r)["device"], changes)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, device)
}

// GetUpdates answers a device's app update check: 200 with a download URL
// when a newer compatible build exists, 204 when the device is up to date.
func (c *UserController) GetUpdates(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	user, err := c.Users.Get(r.Context(), username)
	if err != nil {
		respondError(w, err)
		return
	}
	device, ok := user.Devices[mux.Vars(r)["device"]]
	if !ok {
		http.Error(w, "Unknown device", http.StatusNotFound)
		return
	}

	url, err := c.Apps.LatestRelease(r.Context(), device)
	if errors.Is(err, services.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
