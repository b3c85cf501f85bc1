package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Notifier fans a domain event out to a topic or a single device endpoint.
// Delivery is best-effort; PublishAsync never reports back to the caller.
type Notifier interface {
	Publish(ctx context.Context, note models.Notification) error
	PublishAsync(note models.Notification)
}

// PushRegistry manages platform endpoints and topic subscriptions for device
// registration.
type PushRegistry interface {
	CreateEndpoint(ctx context.Context, token, username, platform string) (string, error)
	RotateToken(ctx context.Context, endpoint, token string) error
	Subscribe(ctx context.Context, topicARN, endpoint, platform string) (string, error)
	Unsubscribe(ctx context.Context, subscriptionARN string) error
}

// SNSAPI is the slice of the SNS client the service uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	SetEndpointAttributes(ctx context.Context, params *sns.SetEndpointAttributesInput, optFns ...func(*sns.Options)) (*sns.SetEndpointAttributesOutput, error)
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	Unsubscribe(ctx context.Context, params *sns.UnsubscribeInput, optFns ...func(*sns.Options)) (*sns.UnsubscribeOutput, error)
}

// NotificationService implements Notifier and PushRegistry over SNS.
type NotificationService struct {
	Client                SNSAPI
	TopicARNPrefix        string
	AndroidApplicationARN string
}

// Publish sends one structured message. Topic names are resolved against the
// ARN prefix; a Target ARN, when set, wins over the topic.
func (ns *NotificationService) Publish(ctx context.Context, note models.Notification) error {
	data, err := json.Marshal(map[string]models.Notification{"data": note})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	envelope, err := json.Marshal(map[string]string{
		"GCM":     string(data),
		"default": note.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification envelope: %w", err)
	}

	input := &sns.PublishInput{
		Message:          aws.String(string(envelope)),
		MessageStructure: aws.String("json"),
	}
	if note.Target != "" {
		input.TargetArn = aws.String(note.Target)
	} else {
		input.TopicArn = aws.String(ns.TopicARNPrefix + note.Topic)
	}
	if len(note.Attributes) > 0 {
		attrs := make(map[string]types.MessageAttributeValue, len(note.Attributes))
		for k, v := range note.Attributes {
			attrs[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
		input.MessageAttributes = attrs
	}

	if _, err := ns.Client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish %s notification: %w", note.Channel, err)
	}
	return nil
}

// PublishAsync fires the publish on its own goroutine. Failures are logged
// and never reach the request that triggered them.
func (ns *NotificationService) PublishAsync(note models.Notification) {
	go func() {
		if err := ns.Publish(context.Background(), note); err != nil {
			log.Printf("notification dispatch failed: %v", err)
		}
	}()
}

// CreateEndpoint registers a device push token with the platform application.
func (ns *NotificationService) CreateEndpoint(ctx context.Context, token, username, platform string) (string, error) {
	if platform != models.PlatformAndroid {
		return "", fmt.Errorf("platform %s is not supported: %w", platform, ErrBadRequest)
	}
	out, err := ns.Client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(ns.AndroidApplicationARN),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(username),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create platform endpoint: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// RotateToken points an existing endpoint at a fresh push token.
func (ns *NotificationService) RotateToken(ctx context.Context, endpoint, token string) error {
	_, err := ns.Client.SetEndpointAttributes(ctx, &sns.SetEndpointAttributesInput{
		EndpointArn: aws.String(endpoint),
		Attributes:  map[string]string{"Token": token},
	})
	if err != nil {
		return fmt.Errorf("failed to rotate endpoint token: %w", err)
	}
	return nil
}

// Subscribe attaches the endpoint to a topic and returns the subscription
// handle.
func (ns *NotificationService) Subscribe(ctx context.Context, topicARN, endpoint, platform string) (string, error) {
	if platform != models.PlatformAndroid {
		return "", fmt.Errorf("can't subscribe with platform %s: %w", platform, ErrBadRequest)
	}
	out, err := ns.Client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Endpoint:              aws.String(endpoint),
		Protocol:              aws.String("application"),
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe endpoint to topic: %w", err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}

// Unsubscribe detaches a topic subscription.
func (ns *NotificationService) Unsubscribe(ctx context.Context, subscriptionARN string) error {
	_, err := ns.Client.Unsubscribe(ctx, &sns.UnsubscribeInput{
		SubscriptionArn: aws.String(subscriptionARN),
	})
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}
