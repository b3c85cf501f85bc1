package routes

import (
	"chefshare_server/controllers"
	"chefshare_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserRoutes sets up routes for user and device operations under /api/users
func RegisterUserRoutes(r *mux.Router, users *services.UserService, apps *services.AppService, identity services.Identity) {
	controller := controllers.NewUserController(users, apps, identity)

	userRouter := r.PathPrefix("/api/users").Subrouter()

	userRouter.HandleFunc("/me", controller.GetMe).Methods("GET")
	userRouter.HandleFunc("/me/devices/{device}/tokens/{token}", controller.RegisterToken).Methods("PUT")
	userRouter.HandleFunc("/me/devices/{device}/subscriptions", controller.UpdateSubscriptions).Methods("PATCH")
	userRouter.HandleFunc("/me/devices/{device}/updates", controller.GetUpdates).Methods("GET")
}
