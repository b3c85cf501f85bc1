package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"chefshare_server/models"
	"chefshare_server/services"
	"chefshare_server/utils"
)

// EventController handles storage and thumbnail webhooks. Bucket
// notifications for confirmed uploads land here: recipe content files
// promote staged recipes, image files attach to their recipe, and app
// builds are recorded as releases.
type EventController struct {
	Recipes *services.RecipeService
	Apps    *services.AppService
}

// NewEventController creates a new instance of EventController
func NewEventController(recipes *services.RecipeService, apps *services.AppService) *EventController {
	return &EventController{Recipes: recipes, Apps: apps}
}

// ContentUploaded promotes the staged recipe named by each event record.
func (c *EventController) ContentUploaded(w http.ResponseWriter, r *http.Request) {
	c.forEachRecord(w, r, func(bucket, key string) error {
		rec, err := c.Recipes.Promote(r.Context(), bucket, key)
		if err != nil {
			return err
		}
		log.Printf("Recipe %s promoted from %s\n", rec.ID, key)
		return nil
	})
}

// ImageUploaded attaches the uploaded photo to its recipe.
func (c *EventController) ImageUploaded(w http.ResponseWriter, r *http.Request) {
	c.forEachRecord(w, r, func(bucket, key string) error {
		rec, err := c.Recipes.AttachImage(r.Context(), bucket, key)
		if err != nil {
			return err
		}
		log.Printf("Image %s attached to recipe %s\n", key, rec.ID)
		return nil
	})
}

// AppUploaded records an uploaded application build.
func (c *EventController) AppUploaded(w http.ResponseWriter, r *http.Request) {
	c.forEachRecord(w, r, func(bucket, key string) error {
		release, err := c.Apps.RecordRelease(r.Context(), key)
		if err != nil {
			return err
		}
		log.Printf("App release %s version %s recorded\n", release.Name, release.Version)
		return nil
	})
}

// ThumbnailReady records a generated thumbnail reported by the generator
// function's completion callback.
func (c *EventController) ThumbnailReady(w http.ResponseWriter, r *http.Request) {
	var job models.ThumbnailCompletion
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	rec, err := c.Recipes.AttachThumbnail(r.Context(), job)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, rec)
}

func (c *EventController) forEachRecord(w http.ResponseWriter, r *http.Request, handle func(bucket, key string) error) {
	var event models.S3Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	for _, record := range event.Records {
		if err := handle(record.S3.Bucket.Name, record.S3.Object.Key); err != nil {
			respondError(w, err)
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]int{"processed": len(event.Records)})
}
