package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/vietdv277/tierctl/pkg/types"
)

const scheduleTargetID = "1"

// EnsureSchedule points an enabled EventBridge rule with the given schedule
// expression at the function. Rule, invoke permission and target are all
// upserts, so the schedule can be changed by running it again.
func (c *Client) EnsureSchedule(ctx context.Context, rule, expression, functionARN string) (types.Resource, error) {
	res := types.Resource{
		Kind:  types.KindScheduleRule,
		Name:  rule,
		Attrs: map[string]string{"target_id": scheduleTargetID},
	}

	_, err := c.Events.DescribeRule(ctx, &eventbridge.DescribeRuleInput{Name: aws.String(rule)})
	switch {
	case err == nil:
	case isA[*ebtypes.ResourceNotFoundException](err):
		res.Created = true
	default:
		return res, fmt.Errorf("failed to describe rule %s: %w", rule, err)
	}

	put, err := c.Events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(rule),
		ScheduleExpression: aws.String(expression),
		State:              ebtypes.RuleStateEnabled,
	})
	if err != nil {
		return res, fmt.Errorf("failed to put rule %s: %w", rule, err)
	}
	res.ID = deref(put.RuleArn)

	if err := c.AllowInvoke(ctx, functionARN, rule+"-invoke", "events.amazonaws.com", res.ID); err != nil {
		return res, err
	}

	targets, err := c.Events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(rule),
		Targets: []ebtypes.Target{{
			Id:  aws.String(scheduleTargetID),
			Arn: aws.String(functionARN),
		}},
	})
	if err != nil {
		return res, fmt.Errorf("failed to put targets of rule %s: %w", rule, err)
	}
	if targets.FailedEntryCount > 0 && len(targets.FailedEntries) > 0 {
		failed := targets.FailedEntries[0]
		return res, fmt.Errorf("failed to target %s from rule %s: %s", functionARN, rule, deref(failed.ErrorMessage))
	}

	c.log.Info().Str("rule", rule).Str("schedule", expression).Bool("created", res.Created).Msg("schedule ready")
	return res, nil
}
