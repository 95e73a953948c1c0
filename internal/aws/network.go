package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// DefaultNetwork returns the account's default VPC and all of its subnets
func (c *Client) DefaultNetwork(ctx context.Context) (types.Network, error) {
	output, err := c.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{filter("isDefault", "true")},
	})
	if err != nil {
		return types.Network{}, fmt.Errorf("failed to describe default VPC: %w", err)
	}

	var vpc *ec2types.Vpc
	for i := range output.Vpcs {
		if derefBool(output.Vpcs[i].IsDefault) {
			vpc = &output.Vpcs[i]
			break
		}
	}
	if vpc == nil {
		return types.Network{}, fmt.Errorf("default VPC: %w", provider.ErrNotFound)
	}

	subnets, err := c.ListSubnets(ctx, deref(vpc.VpcId))
	if err != nil {
		return types.Network{}, err
	}
	if len(subnets) == 0 {
		return types.Network{}, fmt.Errorf("subnets of VPC %s: %w", deref(vpc.VpcId), provider.ErrNotFound)
	}

	network := types.Network{
		VPCID:     deref(vpc.VpcId),
		CIDR:      deref(vpc.CidrBlock),
		SubnetIDs: subnets,
	}

	c.log.Info().Str("vpc", network.VPCID).Int("subnets", len(subnets)).Msg("resolved default network")
	return network, nil
}

// ListSubnets returns the sorted subnet ids of a VPC
func (c *Client) ListSubnets(ctx context.Context, vpcID string) ([]string, error) {
	paginator := ec2.NewDescribeSubnetsPaginator(c.EC2, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{filter("vpc-id", vpcID)},
	})

	var ids []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe subnets: %w", err)
		}
		for _, s := range page.Subnets {
			ids = append(ids, deref(s.SubnetId))
		}
	}

	sort.Strings(ids)
	return ids, nil
}
