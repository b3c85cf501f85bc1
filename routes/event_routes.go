package routes

import (
	"chefshare_server/controllers"
	"chefshare_server/services"

	"github.com/gorilla/mux"
)

// RegisterEventRoutes sets up webhook routes for storage notifications and
// the thumbnail completion callback under /events
func RegisterEventRoutes(r *mux.Router, recipes *services.RecipeService, apps *services.AppService) {
	controller := controllers.NewEventController(recipes, apps)

	eventRouter := r.PathPrefix("/events").Subrouter()

	eventRouter.HandleFunc("/storage/content", controller.ContentUploaded).Methods("POST")
	eventRouter.HandleFunc("/storage/image", controller.ImageUploaded).Methods("POST")
	eventRouter.HandleFunc("/storage/app", controller.AppUploaded).Methods("POST")
	eventRouter.HandleFunc("/thumbnail", controller.ThumbnailReady).Methods("POST")
}
