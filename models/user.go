package models

// Subscriptions holds per-channel subscription state for one device. Topic
// channels are represented by the subscription ARN (presence means
// subscribed); per-user channels are plain flags checked at publish time.
type Subscriptions struct {
	NewRecipes string `dynamodbav:"newRecipes,omitempty" json:"newRecipes,omitempty"`
	Comments   bool   `dynamodbav:"comments" json:"comments"`
	Likes      bool   `dynamodbav:"likes" json:"likes"`
	AppUpdates string `dynamodbav:"appUpdates,omitempty" json:"appUpdates,omitempty"`
}

// Device is one push-registered device of a user.
type Device struct {
	Platform      string        `dynamodbav:"platform" json:"platform"`
	OSVersion     string        `dynamodbav:"version,omitempty" json:"version,omitempty"`
	AppVersion    string        `dynamodbav:"appVersion,omitempty" json:"appVersion,omitempty"`
	Token         string        `dynamodbav:"token" json:"-"`
	Endpoint      string        `dynamodbav:"endpoint" json:"-"`
	Subscriptions Subscriptions `dynamodbav:"subscriptions" json:"subscriptions"`
}

// Subscribed reports whether the device opted in to the given channel.
func (d Device) Subscribed(channel string) bool {
	switch channel {
	case ChannelNewRecipes:
		return d.Subscriptions.NewRecipes != ""
	case ChannelComments:
		return d.Subscriptions.Comments
	case ChannelLikes:
		return d.Subscriptions.Likes
	case ChannelAppUpdates:
		return d.Subscriptions.AppUpdates != ""
	default:
		return false
	}
}

// User lives under the user partition with the username as sort key.
type User struct {
	PartitionKey string            `dynamodbav:"partitionKey" json:"-"`
	Sort         string            `dynamodbav:"sort" json:"username"`
	Confirmed    bool              `dynamodbav:"confirmed" json:"confirmed"`
	Devices      map[string]Device `dynamodbav:"devices,omitempty" json:"devices,omitempty"`
	Favorites    map[string]string `dynamodbav:"favorites,omitempty" json:"favorites,omitempty"`
	Posted       []string          `dynamodbav:"posted,omitempty" json:"posted,omitempty"`
}

// SubscriptionChanges is a partial update of a device's subscriptions; nil
// means leave the channel alone.
type SubscriptionChanges struct {
	NewRecipes *bool `json:"newRecipes,omitempty"`
	Comments   *bool `json:"comments,omitempty"`
	Likes      *bool `json:"likes,omitempty"`
	AppUpdates *bool `json:"appUpdates,omitempty"`
}
