package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Patch attribute allow-lists. A request naming any forbidden or unknown
// attribute is rejected in full before anything is applied.
var (
	forbiddenPatch = map[string]bool{
		"id":               true,
		"partitionKey":     true,
		"sort":             true,
		"creationDate":     true,
		"lastModifiedDate": true,
		"uploader":         true,
		"recipeFile":       true,
		"images":           true,
		"thumbnail":        true,
		"isDeleted":        true,
	}
	freePatch = map[string]bool{
		"likes": true,
	}
	authorPatch = map[string]bool{
		"name":        true,
		"description": true,
		"categories":  true,
		"html":        true,
	}
)

// RecipeService owns the recipe lifecycle: staged create, promotion on
// upload confirmation, patching with re-keyed versions, image and thumbnail
// attachment, soft delete, and the read paths.
type RecipeService struct {
	Store    RecordStore
	Content  *ContentService
	Staging  *StagingService
	Users    *UserService
	Objects  ObjectStore
	Notifier Notifier
	Invoker  Invoker

	Table             string
	NewRecipesTopic   string
	ThumbnailFunction string
	ThumbnailFolder   string
	Admins            []string
	PageLimit         int32
}

// List returns live recipes newer than the since watermark, newest first,
// following the continuation cursor until limit items are collected or the
// partition is exhausted.
func (rs *RecipeService) List(ctx context.Context, since string, limit int32, cursor map[string]string) ([]models.Recipe, map[string]string, error) {
	if since == "" {
		since = "0"
	}
	absLimit := rs.PageLimit
	if limit > 0 && limit < absLimit {
		absLimit = limit
	}

	var recipes []models.Recipe
	for {
		page, err := rs.Store.Query(ctx, RangeQuery{
			Table:      rs.Table,
			HashName:   "partitionKey",
			HashValue:  models.RecipePartition,
			SortName:   "sort",
			SortFrom:   since,
			Descending: true,
			Limit:      absLimit,
			Filters:    []Filter{notDeletedFilter()},
			StartKey:   cursor,
		})
		if err != nil {
			return nil, nil, err
		}
		var batch []models.Recipe
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
		}
		recipes = append(recipes, batch...)
		cursor = page.LastKey
		if len(cursor) == 0 || int32(len(recipes)) >= absLimit {
			return recipes, cursor, nil
		}
	}
}

// Get fetches one live recipe, preferring the direct version-key lookup and
// falling back to the query-by-id path when the client's key is stale.
func (rs *RecipeService) Get(ctx context.Context, id, lastModifiedDate string) (*models.Recipe, error) {
	if lastModifiedDate != "" {
		item, err := rs.Store.Get(ctx, rs.Table, recipeKey(lastModifiedDate))
		if err == nil {
			var rec models.Recipe
			if err := attributevalue.UnmarshalMap(item, &rec); err == nil && rec.ID == id && !rec.IsDeleted {
				return &rec, nil
			}
		}
	}
	rec, err := rs.queryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsDeleted {
		return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// Categories returns the distinct category names across live recipes.
func (rs *RecipeService) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var cursor map[string]string
	for {
		page, err := rs.Store.Query(ctx, RangeQuery{
			Table:     rs.Table,
			HashName:  "partitionKey",
			HashValue: models.RecipePartition,
			SortName:  "sort",
			Filters:   []Filter{notDeletedFilter()},
			StartKey:  cursor,
		})
		if err != nil {
			return nil, err
		}
		var batch []models.Recipe
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
		}
		for _, rec := range batch {
			for _, c := range rec.Categories {
				seen[c] = true
			}
		}
		cursor = page.LastKey
		if len(cursor) == 0 {
			break
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// Promote converts a staged recipe into a live record after its content
// upload is confirmed. Any failure after the staging entry is consumed
// deletes the uploaded object so storage never holds unreferenced files.
func (rs *RecipeService) Promote(ctx context.Context, bucket, key string) (*models.Recipe, error) {
	id, fileName, err := DecodeContentKey(key)
	if err != nil {
		rs.compensate(ctx, bucket, key)
		return nil, err
	}

	pend, err := rs.Staging.Confirm(ctx, id)
	if err != nil {
		rs.compensate(ctx, bucket, key)
		return nil, err
	}

	now := models.TimeToSortKey(time.Now())
	rec := models.Recipe{
		PartitionKey:     models.RecipePartition,
		Sort:             now,
		ID:               pend.ID,
		Name:             pend.Name,
		Description:      pend.Description,
		Categories:       pend.Categories,
		Uploader:         pend.Uploader,
		CreationDate:     pend.CreationDate,
		LastModifiedDate: now,
		Likes:            0,
		RecipeFile:       fileName,
		IsDeleted:        false,
	}
	if err := rs.Store.Put(ctx, rs.Table, rec, nil); err != nil {
		rs.compensate(ctx, bucket, key)
		return nil, err
	}

	// The record is live from here on; the remaining steps are best-effort.
	if pend.Html != "" {
		if err := rs.Content.PutContent(ctx, rec.ID, pend.Html, rec.Name, now); err != nil {
			log.Printf("failed to store content for recipe %s: %v", rec.ID, err)
		}
	}

	categories, _ := json.Marshal(rec.Categories)
	rs.Notifier.PublishAsync(models.Notification{
		Message:    "click to view the recipe",
		Title:      rec.Name + ", by " + rec.Uploader,
		Channel:    models.ChannelNewRecipes,
		ID:         rec.ID,
		Topic:      rs.NewRecipesTopic,
		Attributes: map[string]string{"categories": string(categories)},
	})

	if err := rs.Users.AppendPosted(ctx, rec.Uploader, rec.ID); err != nil {
		log.Printf("failed to append recipe %s to %s's posted list: %v", rec.ID, rec.Uploader, err)
	}
	return &rec, nil
}

// Patch applies a set of attribute changes to a recipe. The whole request is
// validated against the allow-lists before anything is applied; author-only
// attributes require the caller to be the uploader or an admin. Visible
// changes re-key the record; html goes to the content sub-record without a
// version bump. A lost delete race surfaces as ErrConditionFailed, untried.
func (rs *RecipeService) Patch(ctx context.Context, id, lastModifiedDate, username string, attrs map[string]interface{}) (*models.Recipe, error) {
	requiresAuthor, err := classifyPatch(attrs)
	if err != nil {
		return nil, err
	}

	rec, err := rs.Get(ctx, id, lastModifiedDate)
	if err != nil {
		return nil, err
	}
	if requiresAuthor && username != rec.Uploader && !rs.isAdmin(username) {
		return nil, fmt.Errorf("not authorized to change requested attributes: %w", ErrUnauthorized)
	}

	changed := false
	html := ""
	hasHTML := false
	for key, value := range attrs {
		switch key {
		case "likes":
			direction := value.(string)
			if direction == models.DirectionLike {
				rec.Likes++
			} else {
				rec.Likes--
			}
			changed = true
		case "name":
			rec.Name = value.(string)
			changed = true
		case "description":
			rec.Description = value.(string)
			changed = true
		case "categories":
			rec.Categories = toStringSlice(value)
			changed = true
		case "html":
			html = value.(string)
			hasHTML = true
		}
	}

	if hasHTML {
		if err := rs.Content.PutContent(ctx, rec.ID, html, rec.Name, models.TimeToSortKey(time.Now())); err != nil {
			return nil, err
		}
	}
	if changed {
		if err := rs.rekey(ctx, rec, rec.Sort); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// AttachImage links a confirmed food-photo upload to its recipe. The first
// image is set in place (the version key only moves once the thumbnail
// arrives) and doubles as the provisional thumbnail; later images append and
// re-key. On failure the uploaded object is deleted.
func (rs *RecipeService) AttachImage(ctx context.Context, bucket, key string) (*models.Recipe, error) {
	id, fileName, err := DecodeImageKey(key)
	if err != nil {
		rs.compensate(ctx, bucket, key)
		return nil, err
	}

	rec, err := rs.queryByID(ctx, id)
	if err != nil || rec.IsDeleted {
		rs.compensate(ctx, bucket, key)
		if err == nil {
			err = fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	if len(rec.Images) == 0 {
		rec.Images = []string{fileName}
		rec.Thumbnail = fileName
		if err := rs.Store.Put(ctx, rs.Table, rec, &Condition{Field: "id", Equals: rec.ID}); err != nil {
			rs.compensate(ctx, bucket, key)
			return nil, err
		}
		job := models.ThumbnailJob{
			Bucket:    bucket,
			FilePath:  key,
			FileName:  fileName,
			TargetDir: rs.ThumbnailFolder,
			OnComplete: models.ThumbnailCompletion{
				ID:               rec.ID,
				LastModifiedDate: rec.Sort,
				FileName:         fileName,
				Thumbnail:        true,
			},
		}
		if err := rs.Invoker.InvokeAsync(ctx, rs.ThumbnailFunction, job); err != nil {
			log.Printf("failed to invoke thumbnail generator for recipe %s: %v", rec.ID, err)
		}
		return rec, nil
	}

	rec.Images = append(rec.Images, fileName)
	if err := rs.rekey(ctx, rec, rec.Sort); err != nil {
		rs.compensate(ctx, bucket, key)
		return nil, err
	}
	return rec, nil
}

// AttachThumbnail records a generated thumbnail key and re-keys the recipe.
// The version key the generator saw may be stale by now, so a failed delete
// re-queries for the current key and retries exactly once.
func (rs *RecipeService) AttachThumbnail(ctx context.Context, job models.ThumbnailCompletion) (*models.Recipe, error) {
	rec, err := rs.takeForRekey(ctx, job.ID, job.LastModifiedDate)
	if err != nil {
		return nil, err
	}
	rec.Thumbnail = rs.ThumbnailFolder + "/" + job.FileName
	if err := rs.putFresh(ctx, rec, rec.Sort); err != nil {
		return nil, err
	}
	return rec, nil
}

// SoftDelete marks a recipe deleted; read paths filter it from then on. Only
// the uploader or an admin may delete.
func (rs *RecipeService) SoftDelete(ctx context.Context, id, lastModifiedDate, username string) error {
	rec, err := rs.Get(ctx, id, lastModifiedDate)
	if err != nil {
		return err
	}
	if username != rec.Uploader && !rs.isAdmin(username) {
		return fmt.Errorf("not authorized to delete recipe %s: %w", id, ErrUnauthorized)
	}
	rec.IsDeleted = true
	return rs.rekey(ctx, rec, rec.Sort)
}

// queryByID finds the live record for an id by ranging over the recipe
// partition newest-first. The id is not part of the storage key, so this is
// the fallback whenever the caller's version key cannot be trusted.
func (rs *RecipeService) queryByID(ctx context.Context, id string) (*models.Recipe, error) {
	var cursor map[string]string
	for {
		page, err := rs.Store.Query(ctx, RangeQuery{
			Table:      rs.Table,
			HashName:   "partitionKey",
			HashValue:  models.RecipePartition,
			SortName:   "sort",
			Descending: true,
			Filters: []Filter{{
				Field: "id",
				Value: &types.AttributeValueMemberS{Value: id},
			}},
			StartKey: cursor,
		})
		if err != nil {
			return nil, err
		}
		if len(page.Items) > 1 {
			log.Printf("more than one record for recipe %s, taking the newest", id)
		}
		if len(page.Items) > 0 {
			var rec models.Recipe
			if err := attributevalue.UnmarshalMap(page.Items[0], &rec); err != nil {
				return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
			}
			return &rec, nil
		}
		cursor = page.LastKey
		if len(cursor) == 0 {
			return nil, fmt.Errorf("recipe %s: %w", id, ErrNotFound)
		}
	}
}

// rekey moves the record to a fresh version key: delete the old key
// conditioned on the id still matching, then put the new version. Delete
// runs first so two live versions never coexist; readers hitting the brief
// gap fall back to the query path.
func (rs *RecipeService) rekey(ctx context.Context, rec *models.Recipe, oldSort string) error {
	if _, err := rs.Store.Delete(ctx, rs.Table, recipeKey(oldSort), &Condition{Field: "id", Equals: rec.ID}); err != nil {
		return err
	}
	return rs.putFresh(ctx, rec, oldSort)
}

func (rs *RecipeService) putFresh(ctx context.Context, rec *models.Recipe, oldSort string) error {
	next := models.NextSortKey(oldSort)
	rec.PartitionKey = models.RecipePartition
	rec.Sort = next
	rec.LastModifiedDate = next
	return rs.Store.Put(ctx, rs.Table, rec, nil)
}

// takeForRekey removes the current version of a recipe and returns it. If
// the known version key has gone stale it re-queries for the current one and
// retries the delete once.
func (rs *RecipeService) takeForRekey(ctx context.Context, id, knownSort string) (*models.Recipe, error) {
	old, err := rs.Store.Delete(ctx, rs.Table, recipeKey(knownSort), &Condition{Field: "id", Equals: id})
	if err == nil {
		var rec models.Recipe
		if err := attributevalue.UnmarshalMap(old, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
		}
		return &rec, nil
	}

	rec, qerr := rs.queryByID(ctx, id)
	if qerr != nil {
		return nil, qerr
	}
	if _, err := rs.Store.Delete(ctx, rs.Table, recipeKey(rec.Sort), &Condition{Field: "id", Equals: id}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (rs *RecipeService) compensate(ctx context.Context, bucket, key string) {
	log.Printf("deleting orphaned object %s from bucket %s", key, bucket)
	if err := rs.Objects.DeleteObject(ctx, bucket, key); err != nil {
		log.Printf("compensating delete of %s failed: %v", key, err)
	}
}

func (rs *RecipeService) isAdmin(username string) bool {
	for _, admin := range rs.Admins {
		if admin == username {
			return true
		}
	}
	return false
}

// classifyPatch validates every requested attribute against the allow-lists
// and reports whether any of them requires author authorization. Nothing is
// applied unless the whole request passes.
func classifyPatch(attrs map[string]interface{}) (requiresAuthor bool, err error) {
	if len(attrs) == 0 {
		return false, fmt.Errorf("empty patch request: %w", ErrBadRequest)
	}
	for key, value := range attrs {
		if forbiddenPatch[key] {
			return false, fmt.Errorf("requested property cannot be patched: %s: %w", key, ErrBadRequest)
		}
		switch {
		case freePatch[key]:
			direction, ok := value.(string)
			if !ok || (direction != models.DirectionLike && direction != models.DirectionUnlike) {
				return false, fmt.Errorf("likes must be %q or %q: %w", models.DirectionLike, models.DirectionUnlike, ErrBadRequest)
			}
		case authorPatch[key]:
			requiresAuthor = true
			switch key {
			case "categories":
				if toStringSlice(value) == nil {
					return false, fmt.Errorf("categories must be a list of strings: %w", ErrBadRequest)
				}
			default:
				if _, ok := value.(string); !ok {
					return false, fmt.Errorf("%s must be a string: %w", key, ErrBadRequest)
				}
			}
		default:
			return false, fmt.Errorf("requested property not exists: %s: %w", key, ErrBadRequest)
		}
	}
	return requiresAuthor, nil
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func recipeKey(sortValue string) map[string]string {
	return map[string]string{
		"partitionKey": models.RecipePartition,
		"sort":         sortValue,
	}
}

func notDeletedFilter() Filter {
	return Filter{
		Field: "isDeleted",
		Value: &types.AttributeValueMemberBOOL{Value: false},
	}
}
