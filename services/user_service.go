package services

import (
	"context"
	"errors"
	"fmt"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// UserService owns the user records: device registrations, per-channel
// subscription state, the favorites set and the posted list.
type UserService struct {
	Store    RecordStore
	Registry PushRegistry

	Table              string
	NewRecipesTopicARN string
	AppUpdatesTopicARN string
}

// Get fetches a user record by username.
func (us *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	item, err := us.Store.Get(ctx, us.Table, userKey(username))
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", username, err)
	}
	return &user, nil
}

// RegisterDevice registers a device's push token, or rotates the token when
// the device is already known. First registration creates the platform
// endpoint and the default subscriptions: new-recipes and app-updates topic
// subscriptions, comments on, likes off.
func (us *UserService) RegisterDevice(ctx context.Context, username, deviceID, token, platform, osVersion, appVersion string) (*models.User, error) {
	user, err := us.Get(ctx, username)
	if errors.Is(err, ErrNotFound) {
		user = &models.User{PartitionKey: models.UserPartition, Sort: username}
	} else if err != nil {
		return nil, err
	}
	if user.Devices == nil {
		user.Devices = map[string]models.Device{}
	}

	if device, ok := user.Devices[deviceID]; ok {
		if err := us.Registry.RotateToken(ctx, device.Endpoint, token); err != nil {
			return nil, err
		}
		device.Token = token
		user.Devices[deviceID] = device
	} else {
		endpoint, err := us.Registry.CreateEndpoint(ctx, token, username, platform)
		if err != nil {
			return nil, err
		}
		newRecipesSub, err := us.Registry.Subscribe(ctx, us.NewRecipesTopicARN, endpoint, platform)
		if err != nil {
			return nil, err
		}
		appUpdatesSub, err := us.Registry.Subscribe(ctx, us.AppUpdatesTopicARN, endpoint, platform)
		if err != nil {
			return nil, err
		}
		user.Devices[deviceID] = models.Device{
			Platform:   platform,
			OSVersion:  osVersion,
			AppVersion: appVersion,
			Token:      token,
			Endpoint:   endpoint,
			Subscriptions: models.Subscriptions{
				NewRecipes: newRecipesSub,
				Comments:   true,
				Likes:      false,
				AppUpdates: appUpdatesSub,
			},
		}
	}

	user.Confirmed = true
	if err := us.put(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateSubscriptions applies a partial subscription change to one device.
// Topic channels subscribe/unsubscribe through the registry; flag channels
// are stored and checked at publish time.
func (us *UserService) UpdateSubscriptions(ctx context.Context, username, deviceID string, changes models.SubscriptionChanges) (*models.Device, error) {
	user, err := us.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	device, ok := user.Devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s not registered: %w", deviceID, ErrNotFound)
	}

	if changes.NewRecipes != nil {
		arn, err := us.toggleTopic(ctx, *changes.NewRecipes, device.Subscriptions.NewRecipes, us.NewRecipesTopicARN, device)
		if err != nil {
			return nil, err
		}
		device.Subscriptions.NewRecipes = arn
	}
	if changes.AppUpdates != nil {
		arn, err := us.toggleTopic(ctx, *changes.AppUpdates, device.Subscriptions.AppUpdates, us.AppUpdatesTopicARN, device)
		if err != nil {
			return nil, err
		}
		device.Subscriptions.AppUpdates = arn
	}
	if changes.Comments != nil {
		device.Subscriptions.Comments = *changes.Comments
	}
	if changes.Likes != nil {
		device.Subscriptions.Likes = *changes.Likes
	}

	user.Devices[deviceID] = device
	if err := us.put(ctx, user); err != nil {
		return nil, err
	}
	return &device, nil
}

func (us *UserService) toggleTopic(ctx context.Context, want bool, current, topicARN string, device models.Device) (string, error) {
	switch {
	case want && current == "":
		return us.Registry.Subscribe(ctx, topicARN, device.Endpoint, device.Platform)
	case !want && current != "":
		if err := us.Registry.Unsubscribe(ctx, current); err != nil {
			return current, err
		}
		return "", nil
	default:
		return current, nil
	}
}

// AddFavorite records the recipe in the user's favorites map, keyed by id
// with the name as a denormalized display cache.
func (us *UserService) AddFavorite(ctx context.Context, username, recipeID, recipeName string) error {
	user, err := us.Get(ctx, username)
	if err != nil {
		return err
	}
	if user.Favorites == nil {
		user.Favorites = map[string]string{}
	}
	user.Favorites[recipeID] = recipeName
	return us.put(ctx, user)
}

// RemoveFavorite drops the recipe from the user's favorites map.
func (us *UserService) RemoveFavorite(ctx context.Context, username, recipeID string) error {
	user, err := us.Get(ctx, username)
	if err != nil {
		return err
	}
	delete(user.Favorites, recipeID)
	return us.put(ctx, user)
}

// AppendPosted adds a published recipe id to the author's posted list.
func (us *UserService) AppendPosted(ctx context.Context, username, recipeID string) error {
	user, err := us.Get(ctx, username)
	if err != nil {
		return err
	}
	user.Posted = append(user.Posted, recipeID)
	return us.put(ctx, user)
}

func (us *UserService) put(ctx context.Context, user *models.User) error {
	user.PartitionKey = models.UserPartition
	if err := us.Store.Put(ctx, us.Table, user, nil); err != nil {
		return fmt.Errorf("failed to store user %s: %w", user.Sort, err)
	}
	return nil
}

func userKey(username string) map[string]string {
	return map[string]string{
		"partitionKey": models.UserPartition,
		"sort":         username,
	}
}
