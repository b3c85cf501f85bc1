package services

import (
	"context"
	"testing"
	"time"

	"chefshare_server/models"

	"github.com/stretchr/testify/require"
)

// harness wires every service over the in-memory fakes, mirroring the
// wiring in main.
type harness struct {
	store    *fakeStore
	objects  *fakeObjects
	notifier *fakeNotifier
	registry *fakeRegistry
	invoker  *fakeInvoker

	content    *ContentService
	staging    *StagingService
	users      *UserService
	recipes    *RecipeService
	engagement *EngagementService
	apps       *AppService
}

func newHarness() *harness {
	h := &harness{
		store:    newFakeStore(),
		objects:  &fakeObjects{},
		notifier: &fakeNotifier{},
		registry: &fakeRegistry{},
		invoker:  &fakeInvoker{},
	}
	h.content = &ContentService{Store: h.store, Table: "recipes"}
	h.staging = &StagingService{
		Store:         h.store,
		Objects:       h.objects,
		Table:         "pending-recipes",
		ContentFolder: "content",
		ImageFolder:   "images",
		MaxFiles:      6,
		TTL:           24 * time.Hour,
	}
	h.users = &UserService{
		Store:              h.store,
		Registry:           h.registry,
		Table:              "recipes",
		NewRecipesTopicARN: "arn:topic/newRecipes",
		AppUpdatesTopicARN: "arn:topic/appUpdates",
	}
	h.recipes = &RecipeService{
		Store:             h.store,
		Content:           h.content,
		Staging:           h.staging,
		Users:             h.users,
		Objects:           h.objects,
		Notifier:          h.notifier,
		Invoker:           h.invoker,
		Table:             "recipes",
		NewRecipesTopic:   "newRecipes",
		ThumbnailFunction: "thumbnail-generator",
		ThumbnailFolder:   "thumbnails",
		Admins:            []string{"admin"},
		PageLimit:         25,
	}
	h.engagement = &EngagementService{
		Recipes:      h.recipes,
		Users:        h.users,
		Store:        h.store,
		Notifier:     h.notifier,
		CommentTable: "recipe-comments",
	}
	h.apps = &AppService{
		Store:           h.store,
		Objects:         h.objects,
		Notifier:        h.notifier,
		Table:           "recipes",
		AppFolder:       "app_versions",
		AppUpdatesTopic: "appUpdates",
		MinSdk:          21,
		DownloadExpiry:  2 * time.Minute,
	}
	return h
}

// publish stages a draft and promotes it through the upload confirmation
// path, returning the live record. Sequential promotes in the same
// millisecond would share a version key, so each call waits the key
// resolution out.
func (h *harness) publish(t *testing.T, name, uploader string, categories ...string) *models.Recipe {
	t.Helper()
	ctx := context.Background()
	draft := models.PendingRecipe{
		Name:        name,
		Description: "a " + name,
		Categories:  categories,
		Html:        "<p>" + name + "</p>",
	}
	pend, uploadURL, err := h.staging.StageRecipe(ctx, draft, uploader)
	require.NoError(t, err)
	require.NotEmpty(t, uploadURL)

	rec, err := h.recipes.Promote(ctx, "media", "content/"+pend.RecipeFile)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return rec
}

func (h *harness) listAll(t *testing.T) []models.Recipe {
	t.Helper()
	recipes, cursor, err := h.recipes.List(context.Background(), "", 0, nil)
	require.NoError(t, err)
	require.Empty(t, cursor)
	return recipes
}
