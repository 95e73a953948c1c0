package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EnsureTopic returns the ARN of the named topic. CreateTopic is
// idempotent for a name, so no lookup is needed.
func (c *Client) EnsureTopic(ctx context.Context, name string) (string, error) {
	output, err := c.SNS.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to create topic %s: %w", name, err)
	}

	arn := deref(output.TopicArn)
	c.log.Info().Str("topic", name).Str("arn", arn).Msg("topic ready")
	return arn, nil
}

// Publish sends a message to the topic and returns its message id
func (c *Client) Publish(ctx context.Context, topicARN, subject, message string) (string, error) {
	output, err := c.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  optional(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", topicARN, err)
	}
	return deref(output.MessageId), nil
}

// SubscribeFunction delivers topic messages to a Lambda function
func (c *Client) SubscribeFunction(ctx context.Context, topicARN, functionARN, statementID string) (string, error) {
	if err := c.AllowInvoke(ctx, functionARN, statementID, "sns.amazonaws.com", topicARN); err != nil {
		return "", err
	}

	output, err := c.SNS.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Protocol:              aws.String("lambda"),
		Endpoint:              aws.String(functionARN),
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe %s to %s: %w", functionARN, topicARN, err)
	}

	arn := deref(output.SubscriptionArn)
	c.log.Info().Str("topic", topicARN).Str("subscription", arn).Msg("subscribed function")
	return arn, nil
}
