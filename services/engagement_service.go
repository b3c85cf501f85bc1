package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// EngagementService layers social state on top of the recipe lifecycle:
// likes mirror into the caller's favorites, comments live in their own
// table, and both fan out push notifications to the recipe author.
type EngagementService struct {
	Recipes  *RecipeService
	Users    *UserService
	Store    RecordStore
	Notifier Notifier

	CommentTable string
}

// ApplyPatch runs a recipe patch on behalf of a user and keeps the user's
// favorites in sync with any like change. Favorites and notifications are
// best-effort; a failure there does not undo the patch.
func (es *EngagementService) ApplyPatch(ctx context.Context, id, lastModifiedDate, username string, attrs map[string]interface{}) (*models.Recipe, error) {
	rec, err := es.Recipes.Patch(ctx, id, lastModifiedDate, username, attrs)
	if err != nil {
		return nil, err
	}

	direction, ok := attrs["likes"].(string)
	if !ok {
		return rec, nil
	}

	if direction == models.DirectionLike {
		if err := es.Users.AddFavorite(ctx, username, rec.ID, rec.Name); err != nil {
			log.Printf("failed to add recipe %s to %s's favorites: %v", rec.ID, username, err)
		}
		if username != rec.Uploader {
			es.notifyAuthor(ctx, rec, models.ChannelLikes, models.Notification{
				Message: username + " likes your recipe",
				Title:   rec.Name,
				Channel: models.ChannelLikes,
				ID:      rec.ID,
			})
		}
	} else {
		if err := es.Users.RemoveFavorite(ctx, username, rec.ID); err != nil {
			log.Printf("failed to remove recipe %s from %s's favorites: %v", rec.ID, username, err)
		}
	}
	return rec, nil
}

// ApplyComment stores a comment and notifies the recipe author's devices
// that opted in to comment notifications.
func (es *EngagementService) ApplyComment(ctx context.Context, recipeID, username, message string) (*models.Comment, error) {
	if message == "" {
		return nil, fmt.Errorf("comment message is empty: %w", ErrBadRequest)
	}
	comment := models.Comment{
		RecipeID:     recipeID,
		CreationDate: models.TimeToSortKey(time.Now()),
		User:         username,
		Message:      message,
	}
	if err := es.Store.Put(ctx, es.CommentTable, comment, nil); err != nil {
		return nil, err
	}

	rec, err := es.Recipes.queryByID(ctx, recipeID)
	if err != nil {
		log.Printf("comment stored but recipe %s not found for notification: %v", recipeID, err)
		return &comment, nil
	}
	if username != rec.Uploader {
		es.notifyAuthor(ctx, rec, models.ChannelComments, models.Notification{
			Message: username + " commented: " + message,
			Title:   rec.Name,
			Channel: models.ChannelComments,
			ID:      rec.ID,
		})
	}
	return &comment, nil
}

// ListComments returns a recipe's comments oldest first.
func (es *EngagementService) ListComments(ctx context.Context, recipeID string) ([]models.Comment, error) {
	var comments []models.Comment
	var cursor map[string]string
	for {
		page, err := es.Store.Query(ctx, RangeQuery{
			Table:     es.CommentTable,
			HashName:  "recipeId",
			HashValue: recipeID,
			SortName:  "creationDate",
			StartKey:  cursor,
		})
		if err != nil {
			return nil, err
		}
		var batch []models.Comment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
		}
		comments = append(comments, batch...)
		cursor = page.LastKey
		if len(cursor) == 0 {
			return comments, nil
		}
	}
}

// notifyAuthor sends a direct push to each of the author's devices that
// subscribed to the given channel. Per-device failures are logged, not
// surfaced; engagement writes never fail on notification problems.
func (es *EngagementService) notifyAuthor(ctx context.Context, rec *models.Recipe, channel string, note models.Notification) {
	author, err := es.Users.Get(ctx, rec.Uploader)
	if err != nil {
		log.Printf("author %s not found for %s notification: %v", rec.Uploader, channel, err)
		return
	}
	for name, device := range author.Devices {
		if !device.Subscribed(channel) || device.Endpoint == "" {
			continue
		}
		note.Target = device.Endpoint
		if err := es.Notifier.Publish(ctx, note); err != nil {
			log.Printf("failed to notify device %s of %s: %v", name, rec.Uploader, err)
		}
	}
}
