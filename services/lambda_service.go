package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Invoker dispatches work to another function without waiting for the
// result. Used for thumbnail generation.
type Invoker interface {
	InvokeAsync(ctx context.Context, function string, payload interface{}) error
}

// LambdaAPI is the slice of the Lambda client the invoker uses.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaService implements Invoker with event-type invocations.
type LambdaService struct {
	Client LambdaAPI
}

func (ls *LambdaService) InvokeAsync(ctx context.Context, function string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for '%s': %w", function, err)
	}
	out, err := ls.Client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke '%s': %w", function, err)
	}
	if out.FunctionError != nil {
		return fmt.Errorf("function '%s' rejected the invocation: %s", function, aws.ToString(out.FunctionError))
	}
	return nil
}
