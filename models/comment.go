package models

// Comment is an append-only record in the comment table, keyed by recipe id
// with creationDate as the sort key. Comments never touch the recipe record.
type Comment struct {
	RecipeID     string `dynamodbav:"recipeId" json:"recipeId"`
	CreationDate string `dynamodbav:"creationDate" json:"creationDate"`
	User         string `dynamodbav:"user" json:"user"`
	Message      string `dynamodbav:"message" json:"message"`
}
