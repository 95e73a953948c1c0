package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// FindLoadBalancer returns the load balancer with the given name
func (c *Client) FindLoadBalancer(ctx context.Context, name string) (types.LoadBalancer, error) {
	output, err := c.ELBv2.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{name},
	})
	if err != nil {
		if isA[*elbv2types.LoadBalancerNotFoundException](err) {
			return types.LoadBalancer{}, fmt.Errorf("load balancer %s: %w", name, provider.ErrNotFound)
		}
		return types.LoadBalancer{}, fmt.Errorf("failed to describe load balancer %s: %w", name, err)
	}

	if len(output.LoadBalancers) == 0 {
		return types.LoadBalancer{}, fmt.Errorf("load balancer %s: %w", name, provider.ErrNotFound)
	}

	return toLoadBalancer(output.LoadBalancers[0]), nil
}

// EnsureLoadBalancer returns the named internet-facing application load
// balancer, creating it in the given subnets when absent
func (c *Client) EnsureLoadBalancer(ctx context.Context, lb types.LoadBalancer) (types.LoadBalancer, types.Resource, error) {
	res := types.Resource{Kind: types.KindLoadBalancer, Name: lb.Name}

	found, err := c.FindLoadBalancer(ctx, lb.Name)
	if err == nil {
		res.ID = found.ARN
		c.log.Info().Str("load_balancer", lb.Name).Str("dns", found.DNSName).Msg("found load balancer")
		return found, res, nil
	}
	if !isNotFound(err) {
		return lb, res, err
	}

	input := &elbv2.CreateLoadBalancerInput{
		Name:          aws.String(lb.Name),
		Subnets:       lb.SubnetIDs,
		Scheme:        elbv2types.LoadBalancerSchemeEnumInternetFacing,
		Type:          elbv2types.LoadBalancerTypeEnumApplication,
		IpAddressType: elbv2types.IpAddressTypeIpv4,
	}
	if lb.SecurityGroupID != "" {
		input.SecurityGroups = []string{lb.SecurityGroupID}
	}

	output, err := c.ELBv2.CreateLoadBalancer(ctx, input)
	if err != nil {
		return lb, res, fmt.Errorf("failed to create load balancer %s: %w", lb.Name, err)
	}
	if len(output.LoadBalancers) == 0 {
		return lb, res, fmt.Errorf("create of load balancer %s returned nothing", lb.Name)
	}

	created := toLoadBalancer(output.LoadBalancers[0])
	created.SubnetIDs = lb.SubnetIDs
	created.SecurityGroupID = lb.SecurityGroupID
	res.ID = created.ARN
	res.Created = true
	c.log.Info().Str("load_balancer", lb.Name).Str("dns", created.DNSName).Msg("created load balancer")
	return created, res, nil
}

// FindTargetGroup returns the target group with the given name
func (c *Client) FindTargetGroup(ctx context.Context, name string) (types.TargetGroup, error) {
	output, err := c.ELBv2.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{name},
	})
	if err != nil {
		if isA[*elbv2types.TargetGroupNotFoundException](err) {
			return types.TargetGroup{}, fmt.Errorf("target group %s: %w", name, provider.ErrNotFound)
		}
		return types.TargetGroup{}, fmt.Errorf("failed to describe target group %s: %w", name, err)
	}

	if len(output.TargetGroups) == 0 {
		return types.TargetGroup{}, fmt.Errorf("target group %s: %w", name, provider.ErrNotFound)
	}

	return toTargetGroup(output.TargetGroups[0]), nil
}

// EnsureTargetGroup returns the named HTTP instance target group, creating
// it with a health check on its own port when absent
func (c *Client) EnsureTargetGroup(ctx context.Context, tg types.TargetGroup) (types.TargetGroup, types.Resource, error) {
	res := types.Resource{Kind: types.KindTargetGroup, Name: tg.Name}

	found, err := c.FindTargetGroup(ctx, tg.Name)
	if err == nil {
		res.ID = found.ARN
		c.log.Info().Str("target_group", tg.Name).Str("arn", found.ARN).Msg("found target group")
		return found, res, nil
	}
	if !isNotFound(err) {
		return tg, res, err
	}

	path := tg.HealthCheckPath
	if path == "" {
		path = "/"
	}

	output, err := c.ELBv2.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:                aws.String(tg.Name),
		Protocol:            elbv2types.ProtocolEnumHttp,
		Port:                aws.Int32(tg.Port),
		VpcId:               aws.String(tg.VPCID),
		TargetType:          elbv2types.TargetTypeEnumInstance,
		HealthCheckProtocol: elbv2types.ProtocolEnumHttp,
		HealthCheckPort:     aws.String(strconv.Itoa(int(tg.Port))),
		HealthCheckPath:     aws.String(path),
	})
	if err != nil {
		return tg, res, fmt.Errorf("failed to create target group %s: %w", tg.Name, err)
	}
	if len(output.TargetGroups) == 0 {
		return tg, res, fmt.Errorf("create of target group %s returned nothing", tg.Name)
	}

	created := toTargetGroup(output.TargetGroups[0])
	res.ID = created.ARN
	res.Created = true
	c.log.Info().Str("target_group", tg.Name).Str("arn", created.ARN).Msg("created target group")
	return created, res, nil
}

// EnsureListener returns the listener on l.Port of the load balancer,
// creating an HTTP listener forwarding to l.TargetGroupARN when none exists.
// Listeners are matched on port only, so an existing listener keeps its
// actions.
func (c *Client) EnsureListener(ctx context.Context, l types.Listener) (types.Listener, types.Resource, error) {
	res := types.Resource{Kind: types.KindListener, Name: fmt.Sprintf("port-%d", l.Port)}

	var existing []elbv2types.Listener
	paginator := elbv2.NewDescribeListenersPaginator(c.ELBv2, &elbv2.DescribeListenersInput{
		LoadBalancerArn: aws.String(l.LBARN),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return l, res, fmt.Errorf("failed to describe listeners: %w", err)
		}
		existing = append(existing, page.Listeners...)
	}

	for _, found := range existing {
		if derefInt32(found.Port) == l.Port {
			out := toListener(found)
			res.ID = out.ARN
			c.log.Info().Int32("port", l.Port).Str("arn", out.ARN).Msg("found listener")
			return out, res, nil
		}
	}

	output, err := c.ELBv2.CreateListener(ctx, &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(l.LBARN),
		Protocol:        elbv2types.ProtocolEnumHttp,
		Port:            aws.Int32(l.Port),
		DefaultActions: []elbv2types.Action{{
			Type:           elbv2types.ActionTypeEnumForward,
			TargetGroupArn: aws.String(l.TargetGroupARN),
		}},
	})
	if err != nil {
		return l, res, fmt.Errorf("failed to create listener on port %d: %w", l.Port, err)
	}
	if len(output.Listeners) == 0 {
		return l, res, fmt.Errorf("create of listener on port %d returned nothing", l.Port)
	}

	out := toListener(output.Listeners[0])
	out.TargetGroupARN = l.TargetGroupARN
	res.ID = out.ARN
	res.Created = true
	c.log.Info().Int32("port", l.Port).Str("arn", out.ARN).Msg("created listener")
	return out, res, nil
}

// toLoadBalancer converts an ELBv2 LoadBalancer to our LoadBalancer type
func toLoadBalancer(lb elbv2types.LoadBalancer) types.LoadBalancer {
	result := types.LoadBalancer{
		Name:    deref(lb.LoadBalancerName),
		ARN:     deref(lb.LoadBalancerArn),
		DNSName: deref(lb.DNSName),
	}

	for _, az := range lb.AvailabilityZones {
		if az.SubnetId != nil {
			result.SubnetIDs = append(result.SubnetIDs, *az.SubnetId)
		}
	}

	if len(lb.SecurityGroups) > 0 {
		result.SecurityGroupID = lb.SecurityGroups[0]
	}

	return result
}

// toListener converts an ELBv2 Listener to our Listener type
func toListener(l elbv2types.Listener) types.Listener {
	out := types.Listener{
		ARN:   deref(l.ListenerArn),
		LBARN: deref(l.LoadBalancerArn),
		Port:  derefInt32(l.Port),
	}

	for _, action := range l.DefaultActions {
		if action.Type == elbv2types.ActionTypeEnumForward && action.TargetGroupArn != nil {
			out.TargetGroupARN = *action.TargetGroupArn
			break
		}
	}

	return out
}

// toTargetGroup converts an ELBv2 TargetGroup to our TargetGroup type
func toTargetGroup(tg elbv2types.TargetGroup) types.TargetGroup {
	return types.TargetGroup{
		Name:            deref(tg.TargetGroupName),
		ARN:             deref(tg.TargetGroupArn),
		Port:            derefInt32(tg.Port),
		VPCID:           deref(tg.VpcId),
		HealthCheckPath: deref(tg.HealthCheckPath),
	}
}
