package aws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/tierctl/pkg/types"
)

func blueprint() types.Blueprint {
	return types.Blueprint{
		Name:            "shop-be1-lt",
		Service:         types.ServiceBackend1,
		ImageID:         "ami-1",
		InstanceType:    "t2.micro",
		KeyName:         "ops",
		InstanceProfile: "shop-ec2-profile",
		SecurityGroupID: "sg-be",
		UserData:        "IyEvYmluL2Jhc2g=",
		Tags:            map[string]string{"Name": "shop-backend1"},
	}
}

func TestEnsureLaunchTemplateCreates(t *testing.T) {
	c, fake := newTestClientWith(newFakeEC2())

	res, err := c.EnsureLaunchTemplate(context.Background(), blueprint())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "backend1", res.Attrs["service"])

	require.Len(t, fake.templateCreates, 1)
	data := fake.templateCreates[0].LaunchTemplateData
	assert.Equal(t, "ami-1", deref(data.ImageId))
	assert.Equal(t, "t2.micro", string(data.InstanceType))
	assert.Equal(t, "ops", deref(data.KeyName))
	assert.Equal(t, "shop-ec2-profile", deref(data.IamInstanceProfile.Name))
	assert.Equal(t, []string{"sg-be"}, data.SecurityGroupIds)
	assert.Equal(t, "IyEvYmluL2Jhc2g=", deref(data.UserData))
}

func TestEnsureLaunchTemplateReusesUntouched(t *testing.T) {
	fake := newFakeEC2()
	fake.templates["shop-be1-lt"] = "lt-existing"
	c, _ := newTestClientWith(fake)

	bp := blueprint()
	bp.ImageID = "ami-different"
	res, err := c.EnsureLaunchTemplate(context.Background(), bp)
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, "lt-existing", res.ID)
	assert.Empty(t, fake.templateCreates)
}
