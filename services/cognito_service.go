package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// Identity resolves an opaque access credential to a stable username.
type Identity interface {
	Lookup(ctx context.Context, accessToken string) (string, error)
}

// CognitoAPI is the slice of the Cognito client used for identity lookup.
type CognitoAPI interface {
	GetUser(ctx context.Context, params *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
}

// CognitoService implements Identity against the user pool.
type CognitoService struct {
	Client CognitoAPI
}

// Lookup returns the username behind the access token, or ErrUnauthorized.
func (cs *CognitoService) Lookup(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("missing credential: %w", ErrUnauthorized)
	}
	out, err := cs.Client.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return "", fmt.Errorf("identity lookup failed: %w", ErrUnauthorized)
	}
	return aws.ToString(out.Username), nil
}
