package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/stretchr/testify/assert"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

type deletingEC2 struct {
	EC2API
	errs  []error
	calls int
}

func (f *deletingEC2) DeleteSecurityGroup(ctx context.Context, in *ec2.DeleteSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func TestDeleteSecurityGroup(t *testing.T) {
	inUse := apiError(codeDependencyViolation, "resource sg-1 has a dependent object")

	tests := []struct {
		name      string
		errs      []error
		wantErr   bool
		wantCalls int
	}{
		{name: "deleted", wantCalls: 1},
		{name: "dependents shutting down", errs: []error{inUse, inUse}, wantCalls: 3},
		{name: "already gone", errs: []error{apiError(codeGroupNotFound, "The security group 'sg-1' does not exist")}, wantCalls: 1},
		{name: "access denied", errs: []error{apiError("UnauthorizedOperation", "no")}, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &deletingEC2{errs: tt.errs}
			c := &Client{EC2: fake, Retry: fastPolicy()}

			err := c.DeleteResource(context.Background(), types.Resource{Kind: types.KindSecurityGroup, Name: "shop-fe-sg", ID: "sg-1"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, fake.calls)
		})
	}
}

func TestDeleteUnknownKind(t *testing.T) {
	c := &Client{Retry: fastPolicy()}
	err := c.DeleteResource(context.Background(), types.Resource{Kind: "bucket", Name: "x"})
	assert.ErrorIs(t, err, provider.ErrInvalidArgument)
}
