package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Identity is the principal the client authenticates as
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// CallerIdentity returns the account and principal of the loaded credentials
func (c *Client) CallerIdentity(ctx context.Context) (Identity, error) {
	output, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get caller identity: %w", err)
	}

	return Identity{
		Account: deref(output.Account),
		ARN:     deref(output.Arn),
		UserID:  deref(output.UserId),
	}, nil
}
