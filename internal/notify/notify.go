// Package notify manages the deployment notification topics, the chat
// relay function subscribed to them and email delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/bundle"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/internal/relay"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

// Environment the relay function reads
const (
	EnvWebhookURL   = "SLACK_WEBHOOK_URL"
	EnvWebhookParam = "SLACK_WEBHOOK_PARAM"
)

// Cloud is the provider surface notifications need. *aws.Client implements it.
type Cloud interface {
	EnsureTopic(ctx context.Context, name string) (string, error)
	Publish(ctx context.Context, topicARN, subject, message string) (string, error)
	SubscribeFunction(ctx context.Context, topicARN, functionARN, statementID string) (string, error)
	SendEmail(ctx context.Context, from string, to []string, subject, body string) (string, error)
	EnsureRole(ctx context.Context, spec aws.RoleSpec) (string, []types.Resource, error)
	ResolveValue(ctx context.Context, ref string) (string, error)
	DeployFunction(ctx context.Context, fn types.Function) (types.Resource, error)
}

// Topics holds the ARNs of the outcome topics
type Topics struct {
	Success string
	Failure string
}

// Notifier sends deployment notifications
type Notifier struct {
	Cloud  Cloud
	Config config.Notify
	Log    zerolog.Logger

	// Code overrides reading Config.RelaySourceFile
	Code []byte
}

// EnsureTopics creates the success and failure topics if needed
func (n *Notifier) EnsureTopics(ctx context.Context) (Topics, error) {
	var topics Topics
	var err error

	if topics.Success, err = n.Cloud.EnsureTopic(ctx, n.Config.SuccessTopic); err != nil {
		return topics, err
	}
	if topics.Failure, err = n.Cloud.EnsureTopic(ctx, n.Config.FailureTopic); err != nil {
		return topics, err
	}
	return topics, nil
}

// Publish sends text to the success or failure topic in the JSON shape the
// relay expects. It returns the message id.
func (n *Notifier) Publish(ctx context.Context, success bool, subject, text string) (string, error) {
	topic := n.Config.FailureTopic
	if success {
		topic = n.Config.SuccessTopic
	}

	arn, err := n.Cloud.EnsureTopic(ctx, topic)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(relay.Message{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	id, err := n.Cloud.Publish(ctx, arn, subject, string(body))
	if err != nil {
		return "", err
	}
	n.Log.Info().Str("topic", topic).Str("message_id", id).Msg("published notification")
	return id, nil
}

// Email sends a plain text email from the configured sender to the
// configured recipients, or to the given ones when set
func (n *Notifier) Email(ctx context.Context, subject, body string, to ...string) (string, error) {
	if len(to) == 0 {
		to = n.Config.EmailRecipients
	}
	if n.Config.EmailSender == "" {
		return "", fmt.Errorf("email sender: %w", provider.ErrNotConfigured)
	}
	if len(to) == 0 {
		return "", fmt.Errorf("email recipients: %w", provider.ErrNotConfigured)
	}
	return n.Cloud.SendEmail(ctx, n.Config.EmailSender, to, subject, body)
}

// Relay is the outcome of DeployRelay
type Relay struct {
	FunctionARN   string
	Subscriptions []string
	Resources     []types.Resource
}

// DeployRelay deploys the relay function and subscribes it to both topics.
// An "ssm:" webhook is read by the function at cold start, so the role is
// granted read access to Parameter Store. Any other reference is resolved
// here and passed as a literal.
func (n *Notifier) DeployRelay(ctx context.Context) (*Relay, error) {
	cfg := n.Config
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("webhook_url: %w", provider.ErrNotConfigured)
	}

	env := map[string]string{}
	policies := []string{aws.PolicyLambdaBasicExecRole}
	if param, ok := strings.CutPrefix(cfg.WebhookURL, aws.RefSSM); ok {
		env[EnvWebhookParam] = param
		policies = append(policies, aws.PolicySSMReadOnly)
	} else {
		url, err := n.Cloud.ResolveValue(ctx, cfg.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve webhook_url: %w", err)
		}
		env[EnvWebhookURL] = url
	}

	result := &Relay{}

	roleARN, resources, err := n.Cloud.EnsureRole(ctx, aws.RoleSpec{
		Name:       cfg.RelayRoleName,
		Service:    "lambda.amazonaws.com",
		PolicyARNs: policies,
	})
	result.Resources = append(result.Resources, resources...)
	if err != nil {
		return result, err
	}

	code := n.Code
	if code == nil {
		if code, err = bundle.Zip(cfg.RelaySourceFile); err != nil {
			return result, err
		}
	}

	fn, err := n.Cloud.DeployFunction(ctx, types.Function{
		Name:        cfg.RelayFunctionName,
		RoleARN:     roleARN,
		Runtime:     "provided.al2023",
		Handler:     "bootstrap",
		Code:        code,
		MemoryMB:    128,
		TimeoutSec:  15,
		Environment: env,
		Description: "Forwards deployment notifications to chat",
	})
	if err != nil {
		return result, err
	}
	result.Resources = append(result.Resources, fn)
	result.FunctionARN = fn.ID

	topics, err := n.EnsureTopics(ctx)
	if err != nil {
		return result, err
	}

	for _, t := range []struct{ name, arn string }{
		{cfg.SuccessTopic, topics.Success},
		{cfg.FailureTopic, topics.Failure},
	} {
		sub, err := n.Cloud.SubscribeFunction(ctx, t.arn, fn.ID, cfg.RelayFunctionName+"-"+t.name)
		if err != nil {
			return result, err
		}
		result.Subscriptions = append(result.Subscriptions, sub)
	}

	n.Log.Info().Str("function", cfg.RelayFunctionName).Int("subscriptions", len(result.Subscriptions)).Msg("relay deployed")
	return result, nil
}
