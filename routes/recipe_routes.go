package routes

import (
	"chefshare_server/controllers"
	"chefshare_server/services"

	"github.com/gorilla/mux"
)

// RegisterRecipeRoutes sets up routes for recipe operations under /api/recipes
func RegisterRecipeRoutes(r *mux.Router, recipes *services.RecipeService, engagement *services.EngagementService, staging *services.StagingService, content *services.ContentService, identity services.Identity) {
	recipeController := controllers.NewRecipeController(recipes, engagement, staging, content, identity)
	commentController := controllers.NewCommentController(engagement, identity)

	recipeRouter := r.PathPrefix("/api/recipes").Subrouter()

	recipeRouter.HandleFunc("", recipeController.ListRecipes).Methods("GET")
	recipeRouter.HandleFunc("", recipeController.CreateRecipe).Methods("POST")
	recipeRouter.HandleFunc("/categories", recipeController.GetCategories).Methods("GET")
	recipeRouter.HandleFunc("/{id}", recipeController.GetRecipe).Methods("GET")
	recipeRouter.HandleFunc("/{id}", recipeController.PatchRecipe).Methods("PATCH")
	recipeRouter.HandleFunc("/{id}", recipeController.DeleteRecipe).Methods("DELETE")
	recipeRouter.HandleFunc("/{id}/content", recipeController.GetContent).Methods("GET")
	recipeRouter.HandleFunc("/{id}/images", recipeController.StageImages).Methods("POST")
	recipeRouter.HandleFunc("/{id}/comments", commentController.ListComments).Methods("GET")
	recipeRouter.HandleFunc("/{id}/comments", commentController.CreateComment).Methods("POST")
}
