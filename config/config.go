package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the services need to talk to the managed
// services. It is built once in main and handed to each component at
// construction; nothing reads the environment after startup.
type Config struct {
	Region string
	Port   string

	// DynamoDB tables. RecipeTable is a single table partitioned by
	// partitionKey into recipes, content, users and app releases.
	RecipeTable  string
	PendingTable string
	CommentTable string

	// Object storage.
	Bucket          string
	ContentFolder   string
	ImageFolder     string
	ThumbnailFolder string
	AppFolder       string

	// Notification fan-out.
	TopicARNPrefix        string
	NewRecipesTopic       string
	AppUpdatesTopic       string
	AndroidApplicationARN string

	// Name of the thumbnail generator function, invoked asynchronously.
	ThumbnailFunction string

	// Users allowed to edit recipes they did not upload.
	Admins []string

	PageLimit         int32
	MaxFilesPerUpload int
	MinSdk            int

	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	StagingTTL        time.Duration
	StagingSweepEvery time.Duration
}

// FromEnv builds a Config from the environment, applying defaults for
// anything unset. Called from main only.
func FromEnv() Config {
	return Config{
		Region:                os.Getenv("AWS_REGION"),
		Port:                  envOr("PORT", "8080"),
		RecipeTable:           envOr("RECIPE_TABLE", "recipes"),
		PendingTable:          envOr("PEND_RECIPE_TABLE", "pending-recipes"),
		CommentTable:          envOr("RECIPE_COMMENT_TABLE", "recipe-comments"),
		Bucket:                os.Getenv("BUCKET"),
		ContentFolder:         envOr("CONTENT_FOLDER", "content"),
		ImageFolder:           envOr("IMAGE_FOLDER", "images"),
		ThumbnailFolder:       envOr("THUMBNAIL_FOLDER", "thumbnails"),
		AppFolder:             envOr("APP_FOLDER", "app_versions"),
		TopicARNPrefix:        os.Getenv("TOPIC_ARN_PREFIX"),
		NewRecipesTopic:       envOr("NEW_RECIPE_TOPIC", "newRecipes"),
		AppUpdatesTopic:       envOr("APP_UPDATES_TOPIC", "appUpdates"),
		AndroidApplicationARN: os.Getenv("ANDROID_APPLICATION_ARN"),
		ThumbnailFunction:     envOr("THUMBNAIL_GENERATOR_LAMBDA", "thumbnail-generator"),
		Admins:                splitList(os.Getenv("ADMIN_USERS")),
		PageLimit:             int32(envInt("LIMIT", 25)),
		MaxFilesPerUpload:     envInt("MAX_FILES_PER_UPLOAD", 6),
		MinSdk:                envInt("MIN_SDK", 21),
		UploadURLExpiry:       5 * time.Minute,
		DownloadURLExpiry:     2 * time.Minute,
		StagingTTL:            24 * time.Hour,
		StagingSweepEvery:     time.Hour,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
