package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

const anywhere = "0.0.0.0/0"

// IngressRules returns the rules a tier needs. Backend and database rules
// reference the group of the tier in front of them, so groups must hold
// the ids of those tiers.
func IngressRules(tier types.Tier, groups types.SecurityGroups) []types.IngressRule {
	switch tier {
	case types.TierFrontend:
		return []types.IngressRule{
			{FromPort: 80, ToPort: 80, CIDR: anywhere},
			{FromPort: 22, ToPort: 22, CIDR: anywhere},
		}
	case types.TierBackend:
		return []types.IngressRule{
			{FromPort: 80, ToPort: 80, SourceGroupID: groups.Frontend},
			{FromPort: 3001, ToPort: 3002, CIDR: anywhere},
			{FromPort: 22, ToPort: 22, CIDR: anywhere},
		}
	default:
		return []types.IngressRule{
			{FromPort: 27017, ToPort: 27017, SourceGroupID: groups.Backend},
			{FromPort: 22, ToPort: 22, CIDR: anywhere},
		}
	}
}

// SecurityGroupName returns the idempotency key of a tier's group
func SecurityGroupName(project string, tier types.Tier) string {
	return fmt.Sprintf("%s-%s-sg", project, tier)
}

// EnsureSecurityGroups finds or creates the group of every tier, then adds
// the tier rules missing from each group. It returns the group ids and the
// resources it touched, in the order they were resolved.
func (c *Client) EnsureSecurityGroups(ctx context.Context, project, vpcID string) (types.SecurityGroups, []types.Resource, error) {
	var groups types.SecurityGroups
	var resources []types.Resource

	for _, tier := range types.Tiers {
		res, err := c.ensureSecurityGroup(ctx, SecurityGroupName(project, tier), tier.Description(), vpcID)
		if err != nil {
			return groups, resources, err
		}
		resources = append(resources, res)

		switch tier {
		case types.TierFrontend:
			groups.Frontend = res.ID
		case types.TierBackend:
			groups.Backend = res.ID
		case types.TierDatabase:
			groups.Database = res.ID
		}
	}

	// Every group id is known before any rule that references one is issued
	for _, tier := range types.Tiers {
		added, err := c.ensureIngress(ctx, groups.ForTier(tier), IngressRules(tier, groups))
		resources = append(resources, added...)
		if err != nil {
			return groups, resources, err
		}
	}

	return groups, resources, nil
}

func (c *Client) ensureSecurityGroup(ctx context.Context, name, description, vpcID string) (types.Resource, error) {
	res := types.Resource{Kind: types.KindSecurityGroup, Name: name}

	id, err := c.findSecurityGroup(ctx, name, vpcID)
	if err == nil {
		res.ID = id
		c.log.Info().Str("group", name).Str("id", id).Msg("found security group")
		return res, nil
	}
	if !errors.Is(err, provider.ErrNotFound) {
		return res, err
	}

	output, err := c.EC2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
		VpcId:       aws.String(vpcID),
	})
	if err != nil {
		// Lost a race with another run
		if hasCode(err, codeDuplicateGroup) {
			id, ferr := c.findSecurityGroup(ctx, name, vpcID)
			if ferr != nil {
				return res, ferr
			}
			res.ID = id
			return res, nil
		}
		return res, fmt.Errorf("failed to create security group %s: %w", name, err)
	}

	res.ID = deref(output.GroupId)
	res.Created = true
	c.log.Info().Str("group", name).Str("id", res.ID).Msg("created security group")
	return res, nil
}

func (c *Client) findSecurityGroup(ctx context.Context, name, vpcID string) (string, error) {
	output, err := c.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			filter("group-name", name),
			filter("vpc-id", vpcID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe security group %s: %w", name, err)
	}

	if len(output.SecurityGroups) == 0 {
		return "", fmt.Errorf("security group %s: %w", name, provider.ErrNotFound)
	}

	return deref(output.SecurityGroups[0].GroupId), nil
}

// ensureIngress authorizes every rule not already present on the group
func (c *Client) ensureIngress(ctx context.Context, groupID string, rules []types.IngressRule) ([]types.Resource, error) {
	output, err := c.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe security group %s: %w", groupID, err)
	}
	if len(output.SecurityGroups) == 0 {
		return nil, fmt.Errorf("security group %s: %w", groupID, provider.ErrNotFound)
	}
	live := output.SecurityGroups[0].IpPermissions

	var added []types.Resource
	for _, rule := range rules {
		if hasPermission(live, rule) {
			continue
		}

		out, err := c.EC2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: []ec2types.IpPermission{toIpPermission(rule)},
		})
		if err != nil {
			if hasCode(err, codeDuplicatePermission) {
				continue
			}
			return added, fmt.Errorf("failed to authorize ingress on %s: %w", groupID, err)
		}

		res := types.Resource{
			Kind:    types.KindIngressRule,
			Name:    ruleName(rule),
			Created: true,
			Attrs:   map[string]string{"group_id": groupID},
		}
		if len(out.SecurityGroupRules) > 0 {
			res.ID = deref(out.SecurityGroupRules[0].SecurityGroupRuleId)
		}
		added = append(added, res)
		c.log.Info().Str("group", groupID).Str("rule", res.Name).Msg("authorized ingress")
	}

	return added, nil
}

// hasPermission reports whether a live permission already grants rule.
// Protocol, port range and source must match exactly.
func hasPermission(live []ec2types.IpPermission, rule types.IngressRule) bool {
	for _, p := range live {
		if deref(p.IpProtocol) != "tcp" || derefInt32(p.FromPort) != rule.FromPort || derefInt32(p.ToPort) != rule.ToPort {
			continue
		}
		if rule.CIDR != "" {
			for _, r := range p.IpRanges {
				if deref(r.CidrIp) == rule.CIDR {
					return true
				}
			}
		}
		if rule.SourceGroupID != "" {
			for _, g := range p.UserIdGroupPairs {
				if deref(g.GroupId) == rule.SourceGroupID {
					return true
				}
			}
		}
	}
	return false
}

func toIpPermission(rule types.IngressRule) ec2types.IpPermission {
	p := ec2types.IpPermission{
		IpProtocol: aws.String("tcp"),
		FromPort:   aws.Int32(rule.FromPort),
		ToPort:     aws.Int32(rule.ToPort),
	}
	if rule.SourceGroupID != "" {
		p.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: aws.String(rule.SourceGroupID)}}
	} else {
		p.IpRanges = []ec2types.IpRange{{CidrIp: aws.String(rule.CIDR)}}
	}
	return p
}

func ruleName(rule types.IngressRule) string {
	ports := strconv.Itoa(int(rule.FromPort))
	if rule.ToPort != rule.FromPort {
		ports += "-" + strconv.Itoa(int(rule.ToPort))
	}
	source := rule.CIDR
	if rule.SourceGroupID != "" {
		source = rule.SourceGroupID
	}
	return "tcp/" + ports + " from " + source
}
