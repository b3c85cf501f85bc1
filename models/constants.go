package models

// Logical partitions inside the recipes table.
const (
	RecipePartition  = "recipe"
	ContentPartition = "content"
	UserPartition    = "user"
	AppPartition     = "app"
)

// Notification channels, carried inside every push payload so the client can
// route it.
const (
	ChannelNewRecipes = "newRecipes"
	ChannelComments   = "comments"
	ChannelLikes      = "likes"
	ChannelAppUpdates = "appUpdates"
)

// Like directions accepted by the likes patch attribute.
const (
	DirectionLike   = "like"
	DirectionUnlike = "unlike"
)

// Supported device platforms. Only android is wired to a platform
// application today.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)
