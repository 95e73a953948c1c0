package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/vietdv277/tierctl/pkg/provider"
)

// Reference prefixes understood by ResolveValue
const (
	RefSSM            = "ssm:"
	RefSecretsManager = "secretsmanager:"
)

// IsReference reports whether v names a stored value rather than being one
func IsReference(v string) bool {
	return strings.HasPrefix(v, RefSSM) || strings.HasPrefix(v, RefSecretsManager)
}

// ResolveValue returns the value a configuration entry refers to.
// "ssm:<name>" reads a decrypted Parameter Store parameter,
// "secretsmanager:<id>" reads a secret string, and anything else is
// returned unchanged.
func (c *Client) ResolveValue(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, RefSSM):
		return c.getParameter(ctx, strings.TrimPrefix(ref, RefSSM))
	case strings.HasPrefix(ref, RefSecretsManager):
		return c.getSecret(ctx, strings.TrimPrefix(ref, RefSecretsManager))
	default:
		return ref, nil
	}
}

func (c *Client) getParameter(ctx context.Context, name string) (string, error) {
	output, err := c.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isA[*ssmtypes.ParameterNotFound](err) {
			return "", fmt.Errorf("parameter %s: %w", name, provider.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if output.Parameter == nil {
		return "", fmt.Errorf("parameter %s: %w", name, provider.ErrNotFound)
	}
	return deref(output.Parameter.Value), nil
}

func (c *Client) getSecret(ctx context.Context, id string) (string, error) {
	output, err := c.SecretsManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		if isA[*smtypes.ResourceNotFoundException](err) {
			return "", fmt.Errorf("secret %s: %w", id, provider.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}

	if output.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value: %w", id, provider.ErrInvalidArgument)
	}
	return *output.SecretString, nil
}
