package controllers

import (
	"encoding/json"
	"net/http"

	"chefshare_server/services"
	"chefshare_server/utils"

	"github.com/gorilla/mux"
)

// CommentController handles requests related to recipe comments
type CommentController struct {
	Engagement *services.EngagementService
	Identity   services.Identity
}

// NewCommentController creates a new instance of CommentController
func NewCommentController(engagement *services.EngagementService, identity services.Identity) *CommentController {
	return &CommentController{Engagement: engagement, Identity: identity}
}

// ListComments returns a recipe's comments oldest first.
func (c *CommentController) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := c.Engagement.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// CreateComment stores a comment by the signed-in user.
func (c *CommentController) CreateComment(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	comment, err := c.Engagement.ApplyComment(r.Context(), mux.Vars(r)["id"], username, req.Message)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, comment)
}
