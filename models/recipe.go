package models

// Recipe is the live summary record. Its storage key is
// (partitionKey="recipe", sort=lastModifiedDate): every content-affecting
// mutation deletes the old key and puts the record back under a fresh one.
// The id stays stable for the record's whole life.
type Recipe struct {
	PartitionKey     string   `dynamodbav:"partitionKey" json:"-"`
	Sort             string   `dynamodbav:"sort" json:"-"`
	ID               string   `dynamodbav:"id" json:"id"`
	Name             string   `dynamodbav:"name" json:"name"`
	Description      string   `dynamodbav:"description" json:"description"`
	Categories       []string `dynamodbav:"categories,omitempty" json:"categories,omitempty"`
	Uploader         string   `dynamodbav:"uploader" json:"uploader"`
	CreationDate     string   `dynamodbav:"creationDate" json:"creationDate"`
	LastModifiedDate string   `dynamodbav:"lastModifiedDate" json:"lastModifiedDate"`
	Likes            int      `dynamodbav:"likes" json:"likes"`
	Thumbnail        string   `dynamodbav:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Images           []string `dynamodbav:"images,omitempty" json:"images,omitempty"`
	RecipeFile       string   `dynamodbav:"recipeFile,omitempty" json:"recipeFile,omitempty"`
	IsDeleted        bool     `dynamodbav:"isDeleted" json:"isDeleted"`
}

// RecipeContent holds the large HTML body, keyed by recipe id directly so
// list queries never transfer it. It is not versioned by the recipe's key.
type RecipeContent struct {
	PartitionKey     string `dynamodbav:"partitionKey" json:"-"`
	Sort             string `dynamodbav:"sort" json:"-"`
	Html             string `dynamodbav:"html" json:"html"`
	Name             string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	LastModifiedDate string `dynamodbav:"lastModifiedDate" json:"lastModifiedDate"`
}

// PendingRecipe is a recipe accepted from a client but waiting for its
// content upload to be confirmed. Lives in the pending table keyed by id.
type PendingRecipe struct {
	ID           string   `dynamodbav:"id" json:"id"`
	Name         string   `dynamodbav:"name" json:"name"`
	Description  string   `dynamodbav:"description" json:"description"`
	Categories   []string `dynamodbav:"categories,omitempty" json:"categories,omitempty"`
	Uploader     string   `dynamodbav:"uploader" json:"uploader"`
	Html         string   `dynamodbav:"html,omitempty" json:"html,omitempty"`
	RecipeFile   string   `dynamodbav:"recipeFile" json:"recipeFile"`
	CreationDate string   `dynamodbav:"creationDate" json:"creationDate"`
	ExpiresAt    int64    `dynamodbav:"expiresAt" json:"-"`
}

// AppRelease records an uploaded application binary, keyed by upload time
// under the app partition.
type AppRelease struct {
	PartitionKey string `dynamodbav:"partitionKey" json:"-"`
	Sort         string `dynamodbav:"sort" json:"-"`
	Name         string `dynamodbav:"name" json:"name"`
	Version      string `dynamodbav:"version" json:"version"`
	Platform     string `dynamodbav:"platform" json:"platform"`
	MinSdk       int    `dynamodbav:"minSdk" json:"minSdk"`
}
