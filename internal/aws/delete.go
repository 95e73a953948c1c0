package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/vietdv277/tierctl/internal/retry"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// DeleteResource removes one recorded resource. A resource that is already
// gone counts as deleted. Deletes that fail only because a dependent is
// still shutting down are retried under the client's policy.
func (c *Client) DeleteResource(ctx context.Context, r types.Resource) error {
	var err error

	switch r.Kind {
	case types.KindSecurityGroup:
		err = c.wait(ctx, "delete security group", func(ctx context.Context) error {
			_, err := c.EC2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(r.ID)})
			return classify(err, hasCode(err, codeGroupNotFound), hasCode(err, codeDependencyViolation))
		})

	case types.KindIngressRule:
		_, err = c.EC2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:              aws.String(r.Attrs["group_id"]),
			SecurityGroupRuleIds: []string{r.ID},
		})
		err = ignoreGone(err, hasCode(err, codePermissionNotFound, codeGroupNotFound))

	case types.KindRolePolicy:
		_, err = c.IAM.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  aws.String(r.Attrs["role"]),
			PolicyArn: aws.String(r.ID),
		})
		err = ignoreGone(err, isA[*iamtypes.NoSuchEntityException](err))

	case types.KindRole:
		err = c.wait(ctx, "delete role", func(ctx context.Context) error {
			_, err := c.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(r.Name)})
			return classify(err, isA[*iamtypes.NoSuchEntityException](err), isA[*iamtypes.DeleteConflictException](err))
		})

	case types.KindInstanceProfile:
		if role := r.Attrs["role"]; role != "" {
			_, err = c.IAM.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
				InstanceProfileName: aws.String(r.Name),
				RoleName:            aws.String(role),
			})
			if err = ignoreGone(err, isA[*iamtypes.NoSuchEntityException](err)); err != nil {
				break
			}
		}
		_, err = c.IAM.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{InstanceProfileName: aws.String(r.Name)})
		err = ignoreGone(err, isA[*iamtypes.NoSuchEntityException](err))

	case types.KindLaunchTemplate:
		_, err = c.EC2.DeleteLaunchTemplate(ctx, &ec2.DeleteLaunchTemplateInput{LaunchTemplateId: aws.String(r.ID)})
		err = ignoreGone(err, hasCode(err, codeLaunchTemplateIDGone, codeLaunchTemplateMissing))

	case types.KindInstance:
		_, err = c.EC2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{r.ID}})
		err = ignoreGone(err, hasCode(err, codeInstanceNotFound))

	case types.KindListener:
		_, err = c.ELBv2.DeleteListener(ctx, &elbv2.DeleteListenerInput{ListenerArn: aws.String(r.ID)})
		err = ignoreGone(err, isA[*elbv2types.ListenerNotFoundException](err))

	case types.KindLoadBalancer:
		_, err = c.ELBv2.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{LoadBalancerArn: aws.String(r.ID)})
		err = ignoreGone(err, isA[*elbv2types.LoadBalancerNotFoundException](err))

	case types.KindTargetGroup:
		err = c.wait(ctx, "delete target group", func(ctx context.Context) error {
			_, err := c.ELBv2.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{TargetGroupArn: aws.String(r.ID)})
			return classify(err, isA[*elbv2types.TargetGroupNotFoundException](err), isA[*elbv2types.ResourceInUseException](err))
		})

	case types.KindScalingGroup:
		err = c.wait(ctx, "delete auto scaling group", func(ctx context.Context) error {
			_, err := c.ASG.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
				AutoScalingGroupName: aws.String(r.Name),
				ForceDelete:          aws.Bool(true),
			})
			gone := hasCode(err, codeValidationError) && messageContains(err, "not found")
			busy := isA[*asgtypes.ScalingActivityInProgressFault](err) || isA[*asgtypes.ResourceInUseFault](err)
			return classify(err, gone, busy)
		})

	case types.KindFunction:
		_, err = c.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(r.Name)})
		err = ignoreGone(err, isA[*lambdatypes.ResourceNotFoundException](err))

	case types.KindScheduleRule:
		if id := r.Attrs["target_id"]; id != "" {
			_, err = c.Events.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
				Rule: aws.String(r.Name),
				Ids:  []string{id},
			})
			if err = ignoreGone(err, isA[*ebtypes.ResourceNotFoundException](err)); err != nil {
				break
			}
		}
		_, err = c.Events.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: aws.String(r.Name)})
		err = ignoreGone(err, isA[*ebtypes.ResourceNotFoundException](err))

	case types.KindTopic:
		_, err = c.SNS.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(r.ID)})
		err = ignoreGone(err, isA[*snstypes.NotFoundException](err))

	default:
		return fmt.Errorf("cannot delete resource kind %q: %w", r.Kind, provider.ErrInvalidArgument)
	}

	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.Kind, r.Name, err)
	}

	c.log.Info().Str("kind", string(r.Kind)).Str("name", r.Name).Str("id", r.ID).Msg("deleted resource")
	return nil
}

// classify maps a delete error for retry: gone is success, busy is retried,
// anything else stops
func classify(err error, gone, busy bool) error {
	switch {
	case err == nil, gone:
		return nil
	case busy:
		return err
	default:
		return retry.Stop(err)
	}
}

func ignoreGone(err error, gone bool) error {
	if gone {
		return nil
	}
	return err
}
