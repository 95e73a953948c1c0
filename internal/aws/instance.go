package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

var liveStates = []string{"pending", "running"}

// ListInstances returns the live instances whose Name tag starts with prefix
func (c *Client) ListInstances(ctx context.Context, prefix string) ([]types.Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			filter("instance-state-name", liveStates...),
			filter("tag:Name", prefix+"*"),
		},
	}

	var instances []types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(c.EC2, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, toInstance(inst))
			}
		}
	}

	return instances, nil
}

// FindInstance returns the first pending or running instance tagged Name=name
func (c *Client) FindInstance(ctx context.Context, name string) (types.Instance, error) {
	output, err := c.EC2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			filter("tag:Name", name),
			filter("instance-state-name", liveStates...),
		},
	})
	if err != nil {
		return types.Instance{}, fmt.Errorf("failed to describe instance %s: %w", name, err)
	}

	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			return toInstance(inst), nil
		}
	}

	return types.Instance{}, fmt.Errorf("instance %s: %w", name, provider.ErrNotFound)
}

// EnsureDatabaseInstance reuses the live database node or launches one.
// RunInstances is retried while the new instance profile is not yet
// accepted by EC2.
func (c *Client) EnsureDatabaseInstance(ctx context.Context, node types.DatabaseNode) (types.Instance, types.Resource, error) {
	res := types.Resource{Kind: types.KindInstance, Name: node.Name}

	inst, err := c.FindInstance(ctx, node.Name)
	if err == nil {
		res.ID = inst.ID
		c.log.Info().Str("instance", node.Name).Str("id", inst.ID).Msg("found database instance")
		return inst, res, nil
	}
	if !isNotFound(err) {
		return inst, res, err
	}

	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(node.ImageID),
		InstanceType: ec2types.InstanceType(node.InstanceType),
		KeyName:      optional(node.KeyName),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		UserData:     aws.String(node.UserData),
		SubnetId:     optional(node.SubnetID),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         ec2Tags(map[string]string{"Name": node.Name}),
		}},
	}
	if node.InstanceProfile != "" {
		input.IamInstanceProfile = &ec2types.IamInstanceProfileSpecification{Name: aws.String(node.InstanceProfile)}
	}
	if node.SecurityGroupID != "" {
		input.SecurityGroupIds = []string{node.SecurityGroupID}
	}

	var output *ec2.RunInstancesOutput
	err = c.wait(ctx, "run database instance", func(ctx context.Context) error {
		var err error
		output, err = c.EC2.RunInstances(ctx, input)
		if err != nil && hasCode(err, codeInvalidParameterValue) && messageContains(err, "instance profile") {
			return err
		}
		return retry.Stop(err)
	})
	if err != nil {
		return inst, res, fmt.Errorf("failed to launch database instance %s: %w", node.Name, err)
	}
	if len(output.Instances) == 0 {
		return inst, res, fmt.Errorf("launch of %s returned no instances", node.Name)
	}

	inst = toInstance(output.Instances[0])
	res.ID = inst.ID
	res.Created = true
	c.log.Info().Str("instance", node.Name).Str("id", inst.ID).Msg("launched database instance")
	return inst, res, nil
}

// toInstance converts an EC2 Instance to our Instance type
func toInstance(i ec2types.Instance) types.Instance {
	inst := types.Instance{
		ID:        deref(i.InstanceId),
		Type:      string(i.InstanceType),
		PrivateIP: deref(i.PrivateIpAddress),
		PublicIP:  deref(i.PublicIpAddress),
	}

	if i.State != nil {
		inst.State = string(i.State.Name)
	}

	if i.Placement != nil {
		inst.AZ = deref(i.Placement.AvailabilityZone)
	}

	if i.LaunchTime != nil {
		inst.LaunchTime = *i.LaunchTime
	}

	for _, tag := range i.Tags {
		switch deref(tag.Key) {
		case "Name":
			inst.Name = deref(tag.Value)
		case "aws:autoscaling:groupName":
			inst.ASG = deref(tag.Value)
		}
	}

	return inst
}
