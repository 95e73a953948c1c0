package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/internal/relay"
	"github.com/vietdv277/tierctl/pkg/provider"
	"github.com/vietdv277/tierctl/pkg/types"
)

type published struct {
	topic, subject, message string
}

type fakeCloud struct {
	topics     []string
	published  []published
	subscribed map[string]string // topic arn -> statement id
	emails     [][]string
	role       aws.RoleSpec
	fn         types.Function
	values     map[string]string
}

func (f *fakeCloud) EnsureTopic(ctx context.Context, name string) (string, error) {
	f.topics = append(f.topics, name)
	return "arn:sns:" + name, nil
}

func (f *fakeCloud) Publish(ctx context.Context, topicARN, subject, message string) (string, error) {
	f.published = append(f.published, published{topicARN, subject, message})
	return "msg-1", nil
}

func (f *fakeCloud) SubscribeFunction(ctx context.Context, topicARN, functionARN, statementID string) (string, error) {
	if f.subscribed == nil {
		f.subscribed = map[string]string{}
	}
	f.subscribed[topicARN] = statementID
	return topicARN + ":sub", nil
}

func (f *fakeCloud) SendEmail(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	f.emails = append(f.emails, append([]string{from}, to...))
	return "email-1", nil
}

func (f *fakeCloud) EnsureRole(ctx context.Context, spec aws.RoleSpec) (string, []types.Resource, error) {
	f.role = spec
	return "arn:role/" + spec.Name, []types.Resource{{Kind: types.KindRole, Name: spec.Name}}, nil
}

func (f *fakeCloud) ResolveValue(ctx context.Context, ref string) (string, error) {
	if v, ok := f.values[ref]; ok {
		return v, nil
	}
	return ref, nil
}

func (f *fakeCloud) DeployFunction(ctx context.Context, fn types.Function) (types.Resource, error) {
	f.fn = fn
	return types.Resource{Kind: types.KindFunction, Name: fn.Name, ID: "arn:fn/" + fn.Name}, nil
}

func notifier(cloud Cloud) *Notifier {
	return &Notifier{
		Cloud:  cloud,
		Config: config.Default().Notify,
		Log:    zerolog.Nop(),
		Code:   []byte("zip"),
	}
}

func TestEnsureTopics(t *testing.T) {
	cloud := &fakeCloud{}

	topics, err := notifier(cloud).EnsureTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Topics{Success: "arn:sns:DeploymentSuccess", Failure: "arn:sns:DeploymentFailure"}, topics)
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name      string
		success   bool
		wantTopic string
	}{
		{name: "success", success: true, wantTopic: "arn:sns:DeploymentSuccess"},
		{name: "failure", success: false, wantTopic: "arn:sns:DeploymentFailure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := &fakeCloud{}

			id, err := notifier(cloud).Publish(context.Background(), tt.success, "deploy", "shop v2 is live")
			require.NoError(t, err)
			assert.Equal(t, "msg-1", id)

			require.Len(t, cloud.published, 1)
			assert.Equal(t, tt.wantTopic, cloud.published[0].topic)

			var msg relay.Message
			require.NoError(t, json.Unmarshal([]byte(cloud.published[0].message), &msg))
			assert.Equal(t, "shop v2 is live", msg.Text)
		})
	}
}

func TestEmail(t *testing.T) {
	cloud := &fakeCloud{}
	n := notifier(cloud)

	_, err := n.Email(context.Background(), "subject", "body")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)

	n.Config.EmailSender = "ops@example.com"
	_, err = n.Email(context.Background(), "subject", "body")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)

	n.Config.EmailRecipients = []string{"team@example.com"}
	_, err = n.Email(context.Background(), "subject", "body")
	require.NoError(t, err)

	_, err = n.Email(context.Background(), "subject", "body", "oncall@example.com")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"ops@example.com", "team@example.com"},
		{"ops@example.com", "oncall@example.com"},
	}, cloud.emails)
}

func TestDeployRelay(t *testing.T) {
	tests := []struct {
		name         string
		webhook      string
		values       map[string]string
		wantEnv      map[string]string
		wantPolicies []string
	}{
		{
			name:         "literal webhook",
			webhook:      "https://hooks.example.com/T1",
			wantEnv:      map[string]string{EnvWebhookURL: "https://hooks.example.com/T1"},
			wantPolicies: []string{aws.PolicyLambdaBasicExecRole},
		},
		{
			name:         "secrets manager webhook resolved at deploy",
			webhook:      "secretsmanager:chat-webhook",
			values:       map[string]string{"secretsmanager:chat-webhook": "https://hooks.example.com/T2"},
			wantEnv:      map[string]string{EnvWebhookURL: "https://hooks.example.com/T2"},
			wantPolicies: []string{aws.PolicyLambdaBasicExecRole},
		},
		{
			name:         "parameter store webhook read by the function",
			webhook:      "ssm:/chat/webhook",
			wantEnv:      map[string]string{EnvWebhookParam: "/chat/webhook"},
			wantPolicies: []string{aws.PolicyLambdaBasicExecRole, aws.PolicySSMReadOnly},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := &fakeCloud{values: tt.values}
			n := notifier(cloud)
			n.Config.WebhookURL = tt.webhook

			result, err := n.DeployRelay(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantEnv, cloud.fn.Environment)
			assert.Equal(t, tt.wantPolicies, cloud.role.PolicyARNs)
			assert.Equal(t, "arn:fn/DeploymentSlackRelay", result.FunctionARN)
			assert.Equal(t, map[string]string{
				"arn:sns:DeploymentSuccess": "DeploymentSlackRelay-DeploymentSuccess",
				"arn:sns:DeploymentFailure": "DeploymentSlackRelay-DeploymentFailure",
			}, cloud.subscribed)
			assert.Len(t, result.Subscriptions, 2)
		})
	}
}

func TestDeployRelayWithoutWebhook(t *testing.T) {
	_, err := notifier(&fakeCloud{}).DeployRelay(context.Background())
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}
