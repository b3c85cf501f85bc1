package services

import (
	"context"
	"fmt"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// ContentService manages the large HTML body linked to a recipe. The body
// lives under its own partition keyed by recipe id, so recipe list queries
// never carry it; it is updated independently of the recipe's version key.
type ContentService struct {
	Store RecordStore
	Table string
}

// PutContent upserts the body sub-record. It never touches the recipe
// summary record.
func (cs *ContentService) PutContent(ctx context.Context, recipeID, html, name, lastModifiedDate string) error {
	content := models.RecipeContent{
		PartitionKey:     models.ContentPartition,
		Sort:             recipeID,
		Html:             html,
		Name:             name,
		LastModifiedDate: lastModifiedDate,
	}
	if err := cs.Store.Put(ctx, cs.Table, content, nil); err != nil {
		return fmt.Errorf("failed to store content for recipe %s: %w", recipeID, err)
	}
	return nil
}

// GetContent fetches the body for a recipe.
func (cs *ContentService) GetContent(ctx context.Context, recipeID string) (*models.RecipeContent, error) {
	item, err := cs.Store.Get(ctx, cs.Table, map[string]string{
		"partitionKey": models.ContentPartition,
		"sort":         recipeID,
	})
	if err != nil {
		return nil, err
	}
	var content models.RecipeContent
	if err := attributevalue.UnmarshalMap(item, &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content for recipe %s: %w", recipeID, err)
	}
	return &content, nil
}
