package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// FindLaunchTemplate returns the id of the named launch template
func (c *Client) FindLaunchTemplate(ctx context.Context, name string) (string, error) {
	output, err := c.EC2.DescribeLaunchTemplates(ctx, &ec2.DescribeLaunchTemplatesInput{
		LaunchTemplateNames: []string{name},
	})
	if err != nil {
		if hasCode(err, codeLaunchTemplateMissing) {
			return "", fmt.Errorf("launch template %s: %w", name, provider.ErrNotFound)
		}
		return "", fmt.Errorf("failed to describe launch template %s: %w", name, err)
	}

	if len(output.LaunchTemplates) == 0 {
		return "", fmt.Errorf("launch template %s: %w", name, provider.ErrNotFound)
	}

	return deref(output.LaunchTemplates[0].LaunchTemplateId), nil
}

// EnsureLaunchTemplate returns the template named by the blueprint. An
// existing template is reused as is, even if its data differs.
func (c *Client) EnsureLaunchTemplate(ctx context.Context, bp types.Blueprint) (types.Resource, error) {
	res := types.Resource{
		Kind:  types.KindLaunchTemplate,
		Name:  bp.Name,
		Attrs: map[string]string{"service": bp.Service.String()},
	}

	id, err := c.FindLaunchTemplate(ctx, bp.Name)
	if err == nil {
		res.ID = id
		c.log.Info().Str("template", bp.Name).Str("id", id).Msg("found launch template")
		return res, nil
	}
	if !isNotFound(err) {
		return res, err
	}

	data := &ec2types.RequestLaunchTemplateData{
		ImageId:      aws.String(bp.ImageID),
		InstanceType: ec2types.InstanceType(bp.InstanceType),
		KeyName:      optional(bp.KeyName),
		UserData:     aws.String(bp.UserData),
	}
	if bp.InstanceProfile != "" {
		data.IamInstanceProfile = &ec2types.LaunchTemplateIamInstanceProfileSpecificationRequest{
			Name: aws.String(bp.InstanceProfile),
		}
	}
	if bp.SecurityGroupID != "" {
		data.SecurityGroupIds = []string{bp.SecurityGroupID}
	}
	if len(bp.Tags) > 0 {
		data.TagSpecifications = []ec2types.LaunchTemplateTagSpecificationRequest{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         ec2Tags(bp.Tags),
		}}
	}

	output, err := c.EC2.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(bp.Name),
		LaunchTemplateData: data,
	})
	if err != nil {
		if hasCode(err, codeLaunchTemplateExists) {
			id, ferr := c.FindLaunchTemplate(ctx, bp.Name)
			if ferr != nil {
				return res, ferr
			}
			res.ID = id
			return res, nil
		}
		return res, fmt.Errorf("failed to create launch template %s: %w", bp.Name, err)
	}

	res.ID = deref(output.LaunchTemplate.LaunchTemplateId)
	res.Created = true
	c.log.Info().Str("template", bp.Name).Str("id", res.ID).Str("service", bp.Service.String()).Msg("created launch template")
	return res, nil
}
