package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/types"
)

// DeployFunction creates the function, or updates the code and then the
// configuration of an existing one. It returns the function ARN.
func (c *Client) DeployFunction(ctx context.Context, fn types.Function) (types.Resource, error) {
	res := types.Resource{Kind: types.KindFunction, Name: fn.Name}

	env := &lambdatypes.Environment{Variables: fn.Environment}

	var created *lambda.CreateFunctionOutput
	err := c.wait(ctx, "create function", func(ctx context.Context) error {
		var err error
		created, err = c.Lambda.CreateFunction(ctx, &lambda.CreateFunctionInput{
			FunctionName: aws.String(fn.Name),
			Role:         aws.String(fn.RoleARN),
			Runtime:      lambdatypes.Runtime(fn.Runtime),
			Handler:      aws.String(fn.Handler),
			Code:         &lambdatypes.FunctionCode{ZipFile: fn.Code},
			MemorySize:   aws.Int32(fn.MemoryMB),
			Timeout:      aws.Int32(fn.TimeoutSec),
			Environment:  env,
			Layers:       fn.Layers,
			Description:  optional(fn.Description),
		})
		// A new execution role cannot be assumed until IAM propagates it
		if err != nil && isA[*lambdatypes.InvalidParameterValueException](err) && messageContains(err, "role") {
			return err
		}
		return retry.Stop(err)
	})
	if err == nil {
		res.ID = deref(created.FunctionArn)
		res.Created = true
		c.log.Info().Str("function", fn.Name).Str("arn", res.ID).Msg("created function")
		return res, nil
	}
	if !isA[*lambdatypes.ResourceConflictException](err) {
		return res, fmt.Errorf("failed to create function %s: %w", fn.Name, err)
	}

	updated, err := c.Lambda.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(fn.Name),
		ZipFile:      fn.Code,
	})
	if err != nil {
		return res, fmt.Errorf("failed to update code of function %s: %w", fn.Name, err)
	}
	res.ID = deref(updated.FunctionArn)

	// The configuration cannot change while the code update is in progress
	err = c.wait(ctx, "update function configuration", func(ctx context.Context) error {
		_, err := c.Lambda.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
			FunctionName: aws.String(fn.Name),
			Role:         aws.String(fn.RoleARN),
			Handler:      aws.String(fn.Handler),
			MemorySize:   aws.Int32(fn.MemoryMB),
			Timeout:      aws.Int32(fn.TimeoutSec),
			Environment:  env,
			Layers:       fn.Layers,
		})
		if err != nil && isA[*lambdatypes.ResourceConflictException](err) {
			return err
		}
		return retry.Stop(err)
	})
	if err != nil {
		return res, fmt.Errorf("failed to update configuration of function %s: %w", fn.Name, err)
	}

	c.log.Info().Str("function", fn.Name).Str("arn", res.ID).Msg("updated function")
	return res, nil
}

// AllowInvoke grants principal permission to invoke the function from
// sourceARN. An existing statement with the same id counts as granted.
func (c *Client) AllowInvoke(ctx context.Context, function, statementID, principal, sourceARN string) error {
	_, err := c.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(function),
		StatementId:  aws.String(statementID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String(principal),
		SourceArn:    optional(sourceARN),
	})
	if err != nil && !isA[*lambdatypes.ResourceConflictException](err) {
		return fmt.Errorf("failed to allow %s to invoke %s: %w", principal, function, err)
	}
	return nil
}
