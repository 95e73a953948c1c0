package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// LatestVersion pins scaling groups to the newest launch template version
const LatestVersion = "$Latest"

// FindAutoScalingGroup returns the named scaling group
func (c *Client) FindAutoScalingGroup(ctx context.Context, name string) (types.ScalingGroup, error) {
	output, err := c.ASG.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{name},
	})
	if err != nil {
		return types.ScalingGroup{}, fmt.Errorf("failed to describe auto scaling group %s: %w", name, err)
	}

	if len(output.AutoScalingGroups) == 0 {
		return types.ScalingGroup{}, fmt.Errorf("auto scaling group %s: %w", name, provider.ErrNotFound)
	}

	return toScalingGroup(output.AutoScalingGroups[0]), nil
}

// EnsureAutoScalingGroup reuses the named group or creates it from the
// launch template. An existing group keeps its capacity settings.
func (c *Client) EnsureAutoScalingGroup(ctx context.Context, sg types.ScalingGroup) (types.Resource, error) {
	res := types.Resource{Kind: types.KindScalingGroup, Name: sg.Name, ID: sg.Name}

	found, err := c.FindAutoScalingGroup(ctx, sg.Name)
	if err == nil {
		c.log.Info().Str("group", sg.Name).Int32("desired", found.DesiredCapacity).Msg("found auto scaling group")
		return res, nil
	}
	if !isNotFound(err) {
		return res, err
	}

	input := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(sg.Name),
		LaunchTemplate: &asgtypes.LaunchTemplateSpecification{
			LaunchTemplateId: aws.String(sg.LaunchTemplateID),
			Version:          aws.String(LatestVersion),
		},
		MinSize:           aws.Int32(sg.MinSize),
		MaxSize:           aws.Int32(sg.MaxSize),
		DesiredCapacity:   aws.Int32(sg.DesiredCapacity),
		VPCZoneIdentifier: aws.String(strings.Join(sg.SubnetIDs, ",")),
		TargetGroupARNs:   sg.TargetGroupARNs,
	}

	err = c.wait(ctx, "create auto scaling group", func(ctx context.Context) error {
		_, err := c.ASG.CreateAutoScalingGroup(ctx, input)
		// A freshly created template can be briefly invisible to Auto Scaling
		if err != nil && hasCode(err, codeValidationError) && messageContains(err, "launch template") {
			return err
		}
		return retry.Stop(err)
	})
	if err != nil {
		if isA[*asgtypes.AlreadyExistsFault](err) {
			c.log.Info().Str("group", sg.Name).Msg("auto scaling group created concurrently, reusing")
			return res, nil
		}
		return res, fmt.Errorf("failed to create auto scaling group %s: %w", sg.Name, err)
	}

	res.Created = true
	c.log.Info().
		Str("group", sg.Name).
		Int32("min", sg.MinSize).
		Int32("max", sg.MaxSize).
		Int32("desired", sg.DesiredCapacity).
		Msg("created auto scaling group")
	return res, nil
}

// toScalingGroup converts an AWS ASG type to our internal type
func toScalingGroup(g asgtypes.AutoScalingGroup) types.ScalingGroup {
	sg := types.ScalingGroup{
		Name:            deref(g.AutoScalingGroupName),
		MinSize:         derefInt32(g.MinSize),
		MaxSize:         derefInt32(g.MaxSize),
		DesiredCapacity: derefInt32(g.DesiredCapacity),
		TargetGroupARNs: g.TargetGroupARNs,
	}

	if g.LaunchTemplate != nil {
		sg.LaunchTemplateID = deref(g.LaunchTemplate.LaunchTemplateId)
	} else if g.MixedInstancesPolicy != nil && g.MixedInstancesPolicy.LaunchTemplate != nil &&
		g.MixedInstancesPolicy.LaunchTemplate.LaunchTemplateSpecification != nil {
		sg.LaunchTemplateID = deref(g.MixedInstancesPolicy.LaunchTemplate.LaunchTemplateSpecification.LaunchTemplateId)
	}

	if zones := deref(g.VPCZoneIdentifier); zones != "" {
		sg.SubnetIDs = strings.Split(zones, ",")
	}

	return sg
}
