package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"chefshare_server/models"
	"chefshare_server/services"
	"chefshare_server/utils"

	"github.com/gorilla/mux"
)

// RecipeController handles requests related to recipes
type RecipeController struct {
	Recipes    *services.RecipeService
	Engagement *services.EngagementService
	Staging    *services.StagingService
	Content    *services.ContentService
	Identity   services.Identity
}

// NewRecipeController creates a new instance of RecipeController
func NewRecipeController(recipes *services.RecipeService, engagement *services.EngagementService, staging *services.StagingService, content *services.ContentService, identity services.Identity) *RecipeController {
	return &RecipeController{
		Recipes:    recipes,
		Engagement: engagement,
		Staging:    staging,
		Content:    content,
		Identity:   identity,
	}
}

// ListRecipes returns recipes modified after the client's watermark. A
// client that is already up to date gets 304 with no body.
func (c *RecipeController) ListRecipes(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("lastModifiedDate")
	cursor := utils.DecodeCursor(r.URL.Query().Get("cursor"))
	var limit int32
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = int32(n)
	}

	recipes, next, err := c.Recipes.List(r.Context(), since, limit, cursor)
	if err != nil {
		respondError(w, err)
		return
	}
	if len(recipes) == 0 && len(next) == 0 && since != "" {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"recipes": recipes,
		"cursor":  utils.EncodeCursor(next),
	})
}

// GetRecipe returns one recipe by id; lastModifiedDate is an optional hint
// for a cheap direct lookup.
func (c *RecipeController) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := c.Recipes.Get(r.Context(), id, r.URL.Query().Get("lastModifiedDate"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

// CreateRecipe stages a draft and returns the staged id with a presigned
// upload URL for the recipe content file. The recipe only becomes visible
// once the upload lands.
func (c *RecipeController) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	var draft models.PendingRecipe
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if draft.Name == "" {
		http.Error(w, "Recipe name is required", http.StatusBadRequest)
		return
	}

	pend, uploadURL, err := c.Staging.StageRecipe(r.Context(), draft, username)
	if err != nil {
		respondError(w, err)
		return
	}
	log.Printf("Staged recipe %s for %s\n", pend.ID, username)
	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"id":        pend.ID,
		"uploadUrl": uploadURL,
	})
}

// PatchRecipe applies attribute changes; likes are open to any signed-in
// user, everything else to the uploader and admins.
func (c *RecipeController) PatchRecipe(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	var attrs map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	rec, err := c.Engagement.ApplyPatch(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("lastModifiedDate"), username, attrs)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

// DeleteRecipe soft-deletes a recipe.
func (c *RecipeController) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := c.Recipes.SoftDelete(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("lastModifiedDate"), username); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContent returns the recipe's rendered html document.
func (c *RecipeController) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := c.Content.GetContent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, content)
}

// GetCategories returns the distinct categories across live recipes.
func (c *RecipeController) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.Recipes.Categories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// StageImages returns presigned upload URLs for a batch of food photos.
func (c *RecipeController) StageImages(w http.ResponseWriter, r *http.Request) {
	username, err := authenticate(r, c.Identity)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		NumOfFiles int    `json:"numOfFiles"`
		Extension  string `json:"extension"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	rec, err := c.Recipes.Get(r.Context(), id, r.URL.Query().Get("lastModifiedDate"))
	if err != nil {
		respondError(w, err)
		return
	}
	log.Printf("Staging %d image uploads for recipe %s by %s\n", req.NumOfFiles, id, username)

	names, urls, err := c.Staging.StageImages(r.Context(), rec, req.NumOfFiles, req.Extension)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"fileNames":  names,
		"uploadUrls": urls,
	})
}
