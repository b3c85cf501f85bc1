package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"chefshare_server/models"
	"chefshare_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
)

// Object-key markers separating the recipe id from the disambiguator.
const (
	contentMarker = "--recipe--"
	imageMarker   = "--food--"
)

var allowedImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// StagingService tracks recipes and images that were granted a write URL but
// whose upload has not been confirmed yet. Entries are consumed exactly once
// on confirmation; lapsed entries are reclaimed by the sweep.
type StagingService struct {
	Store         RecordStore
	Objects       ObjectStore
	Table         string
	ContentFolder string
	ImageFolder   string
	MaxFiles      int
	TTL           time.Duration
}

// StageRecipe persists a pending recipe and returns it together with a
// pre-authorized upload URL for its content file.
func (ss *StagingService) StageRecipe(ctx context.Context, draft models.PendingRecipe, uploader string) (*models.PendingRecipe, string, error) {
	if draft.Name == "" {
		return nil, "", fmt.Errorf("recipe must have a name: %w", ErrBadRequest)
	}
	now := time.Now()
	draft.ID = uuid.NewString()
	draft.Uploader = uploader
	draft.CreationDate = models.TimeToSortKey(now)
	draft.RecipeFile = draft.ID + contentMarker + randSuffix() + ".html"
	draft.ExpiresAt = now.Add(ss.TTL).Unix()

	if err := ss.Store.Put(ctx, ss.Table, draft, nil); err != nil {
		return nil, "", fmt.Errorf("failed to stage recipe: %w", err)
	}

	url, err := ss.Objects.SignUpload(ctx, ss.ContentFolder+"/"+draft.RecipeFile)
	if err != nil {
		return nil, "", err
	}
	return &draft, url, nil
}

// StageImages generates object keys for count new food photos of a recipe
// and signs an upload URL for each. Keys embed the recipe id plus a short
// random disambiguator so racing uploads for the same slot cannot collide.
func (ss *StagingService) StageImages(ctx context.Context, recipe *models.Recipe, count int, extension string) ([]string, []string, error) {
	if !allowedImageExtensions[extension] {
		return nil, nil, fmt.Errorf("extension %q not supported: %w", extension, ErrBadRequest)
	}
	if count < 1 || count > ss.MaxFiles {
		return nil, nil, fmt.Errorf("requested %d files, allowed 1..%d: %w", count, ss.MaxFiles, ErrBadRequest)
	}

	names := make([]string, count)
	urls := make([]string, count)
	for i := 0; i < count; i++ {
		names[i] = recipe.ID + imageMarker + randSuffix() + "." + extension
		url, err := ss.Objects.SignUpload(ctx, ss.ImageFolder+"/"+names[i])
		if err != nil {
			return nil, nil, err
		}
		urls[i] = url
	}
	return names, urls, nil
}

// Confirm consumes the staging entry for a confirmed upload, returning its
// recipe draft. A second confirm for the same id fails with ErrNotFound; the
// caller must then delete the orphaned object from storage.
func (ss *StagingService) Confirm(ctx context.Context, id string) (*models.PendingRecipe, error) {
	old, err := ss.Store.Delete(ctx, ss.Table, map[string]string{"id": id}, nil)
	if err != nil {
		return nil, fmt.Errorf("uploaded file not found in pending table: %w", err)
	}
	var pend models.PendingRecipe
	if err := attributevalue.UnmarshalMap(old, &pend); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending recipe %s: %w", id, err)
	}
	return &pend, nil
}

// SweepExpired pages through the pending table and deletes entries whose
// expiry has lapsed. Returns the number reclaimed.
func (ss *StagingService) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().Unix()
	reclaimed := 0
	var cursor map[string]string
	for {
		page, err := ss.Store.Scan(ctx, ss.Table, cursor, 0)
		if err != nil {
			return reclaimed, err
		}
		for _, item := range page.Items {
			id := utils.ExtractString(item, "id")
			expiresAt := utils.ExtractNumber(item, "expiresAt")
			if id == "" || expiresAt == 0 || expiresAt > now {
				continue
			}
			if _, err := ss.Store.Delete(ctx, ss.Table, map[string]string{"id": id}, nil); err != nil {
				log.Printf("failed to reclaim staging entry %s: %v", id, err)
				continue
			}
			reclaimed++
		}
		cursor = page.LastKey
		if len(cursor) == 0 {
			return reclaimed, nil
		}
	}
}

// DecodeUploadKey splits an uploaded object key ("folder/{id}{marker}rest")
// into the embedded recipe id and the bare file name.
func DecodeUploadKey(key, marker string) (id, fileName string, err error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("object key %q has no folder prefix: %w", key, ErrBadRequest)
	}
	fileName = parts[1]
	idParts := strings.SplitN(fileName, marker, 2)
	if len(idParts) != 2 || idParts[0] == "" {
		return "", "", fmt.Errorf("object key %q does not embed a recipe id: %w", key, ErrBadRequest)
	}
	return idParts[0], fileName, nil
}

// DecodeContentKey decodes a content upload key.
func DecodeContentKey(key string) (id, fileName string, err error) {
	return DecodeUploadKey(key, contentMarker)
}

// DecodeImageKey decodes a food-photo upload key.
func DecodeImageKey(key string) (id, fileName string, err error) {
	return DecodeUploadKey(key, imageMarker)
}

// randSuffix returns three hex characters, enough to disambiguate uploads
// racing for the same logical slot.
func randSuffix() string {
	return fmt.Sprintf("%03x", 0x100|rand.Intn(0x100))
}
