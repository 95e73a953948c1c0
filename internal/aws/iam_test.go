package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/types"
)

func TestEnsureInstanceProfile(t *testing.T) {
	c := newTestClient()
	fake := c.IAM.(*fakeIAM)
	fake.hiddenFor = 2

	name, resources, err := c.EnsureInstanceProfile(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, "shop-ec2-profile", name)
	assert.Equal(t, 3, fake.profileReads)
	assert.ElementsMatch(t, []string{PolicyECRReadOnly, PolicyS3FullAccess}, fake.attached["shop-ec2-role"])

	kinds := make([]types.ResourceKind, 0, len(resources))
	for _, r := range resources {
		kinds = append(kinds, r.Kind)
		assert.True(t, r.Created)
	}
	assert.Equal(t, []types.ResourceKind{
		types.KindRole, types.KindRolePolicy, types.KindRolePolicy, types.KindInstanceProfile,
	}, kinds)
}

func TestEnsureInstanceProfileReusesExisting(t *testing.T) {
	c := newTestClient()
	fake := c.IAM.(*fakeIAM)
	fake.roles["shop-ec2-role"] = "arn:aws:iam::123456789012:role/shop-ec2-role"
	fake.profiles["shop-ec2-profile"] = true
	fake.addRoleErrs = []error{&iamtypes.LimitExceededException{Message: aws.String("Cannot exceed quota for InstanceSessionsPerInstanceProfile: 1")}}

	_, resources, err := c.EnsureInstanceProfile(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.addRoleCalls)
	assert.Equal(t, "arn:aws:iam::123456789012:role/shop-ec2-role", resources[0].ID)
	for _, r := range resources {
		assert.False(t, r.Created)
	}
}

func TestEnsureInstanceProfileRetriesAttach(t *testing.T) {
	c := newTestClient()
	fake := c.IAM.(*fakeIAM)
	fake.addRoleErrs = []error{
		&iamtypes.NoSuchEntityException{Message: aws.String("role not visible")},
		&iamtypes.NoSuchEntityException{Message: aws.String("role not visible")},
	}

	_, _, err := c.EnsureInstanceProfile(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.addRoleCalls)
}

func TestWaitInstanceProfileIsBounded(t *testing.T) {
	c := newTestClient()
	fake := c.IAM.(*fakeIAM)
	fake.hiddenFor = 100

	err := c.WaitInstanceProfile(context.Background(), "shop-ec2-profile")
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, c.Retry.MaxAttempts, fake.profileReads)
}
