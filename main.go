package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	appconfig "chefshare_server/config"
	"chefshare_server/routes"
	"chefshare_server/services"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg := appconfig.FromEnv()

	log.Println("Loading AWS configuration...")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("Unable to load AWS configuration: %v", err)
	}

	// Shared clients and stores
	store := &services.DynamoService{Client: dynamodb.NewFromConfig(awsCfg)}
	objects := services.NewS3Service(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.UploadURLExpiry)
	notifier := &services.NotificationService{
		Client:                sns.NewFromConfig(awsCfg),
		TopicARNPrefix:        cfg.TopicARNPrefix,
		AndroidApplicationARN: cfg.AndroidApplicationARN,
	}
	invoker := &services.LambdaService{Client: lambda.NewFromConfig(awsCfg)}
	identity := &services.CognitoService{Client: cognitoidentityprovider.NewFromConfig(awsCfg)}

	// Domain services
	contentService := &services.ContentService{Store: store, Table: cfg.RecipeTable}
	stagingService := &services.StagingService{
		Store:         store,
		Objects:       objects,
		Table:         cfg.PendingTable,
		ContentFolder: cfg.ContentFolder,
		ImageFolder:   cfg.ImageFolder,
		MaxFiles:      cfg.MaxFilesPerUpload,
		TTL:           cfg.StagingTTL,
	}
	userService := &services.UserService{
		Store:              store,
		Registry:           notifier,
		Table:              cfg.RecipeTable,
		NewRecipesTopicARN: cfg.TopicARNPrefix + cfg.NewRecipesTopic,
		AppUpdatesTopicARN: cfg.TopicARNPrefix + cfg.AppUpdatesTopic,
	}
	recipeService := &services.RecipeService{
		Store:             store,
		Content:           contentService,
		Staging:           stagingService,
		Users:             userService,
		Objects:           objects,
		Notifier:          notifier,
		Invoker:           invoker,
		Table:             cfg.RecipeTable,
		NewRecipesTopic:   cfg.NewRecipesTopic,
		ThumbnailFunction: cfg.ThumbnailFunction,
		ThumbnailFolder:   cfg.ThumbnailFolder,
		Admins:            cfg.Admins,
		PageLimit:         cfg.PageLimit,
	}
	engagementService := &services.EngagementService{
		Recipes:      recipeService,
		Users:        userService,
		Store:        store,
		Notifier:     notifier,
		CommentTable: cfg.CommentTable,
	}
	appService := &services.AppService{
		Store:           store,
		Objects:         objects,
		Notifier:        notifier,
		Table:           cfg.RecipeTable,
		AppFolder:       cfg.AppFolder,
		AppUpdatesTopic: cfg.AppUpdatesTopic,
		MinSdk:          cfg.MinSdk,
		DownloadExpiry:  cfg.DownloadURLExpiry,
	}

	// Abandoned staged recipes are swept in the background.
	go func() {
		ticker := time.NewTicker(cfg.StagingSweepEvery)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := stagingService.SweepExpired(context.Background()); err != nil {
				log.Printf("Staging sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Swept %d expired staged recipes", n)
			}
		}
	}()

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to ChefShare")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	// Register routes
	routes.RegisterRecipeRoutes(r, recipeService, engagementService, stagingService, contentService, identity)
	routes.RegisterUserRoutes(r, userService, appService, identity)
	routes.RegisterEventRoutes(r, recipeService, appService)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsHandler))
}
