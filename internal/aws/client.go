package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/internal/retry"
)

// Client wraps AWS SDK clients
type Client struct {
	EC2            EC2API
	ASG            AutoScalingAPI
	ELBv2          ELBv2API
	IAM            IAMAPI
	Lambda         LambdaAPI
	Events         EventBridgeAPI
	SNS            SNSAPI
	SES            SESAPI
	STS            STSAPI
	SSM            SSMAPI
	SecretsManager SecretsManagerAPI

	// Retry bounds every wait on eventual consistency
	Retry retry.Policy

	log     zerolog.Logger
	profile string
	region  string
}

// ClientOption allows customizing the AWS Client
type ClientOption func(*Client)

// WithProfile sets the AWS profile for the client
func WithProfile(profile string) ClientOption {
	return func(c *Client) {
		c.profile = profile
	}
}

// WithRegion sets the AWS region for the client
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// WithRetryPolicy sets the policy used for propagation waits
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.Retry = p
	}
}

// WithLogger sets the logger create/reuse decisions are written to
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new AWS Client with the given options
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	c := &Client{
		Retry: retry.DefaultPolicy(),
		log:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	var configOpts []func(*config.LoadOptions) error

	if c.profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(c.profile))
	}

	if c.region != "" {
		configOpts = append(configOpts, config.WithRegion(c.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	c.region = cfg.Region
	c.EC2 = ec2.NewFromConfig(cfg)
	c.ASG = autoscaling.NewFromConfig(cfg)
	c.ELBv2 = elbv2.NewFromConfig(cfg)
	c.IAM = iam.NewFromConfig(cfg)
	c.Lambda = lambda.NewFromConfig(cfg)
	c.Events = eventbridge.NewFromConfig(cfg)
	c.SNS = sns.NewFromConfig(cfg)
	c.SES = ses.NewFromConfig(cfg)
	c.STS = sts.NewFromConfig(cfg)
	c.SSM = ssm.NewFromConfig(cfg)
	c.SecretsManager = secretsmanager.NewFromConfig(cfg)

	return c, nil
}

// Region returns the region the SDK config resolved to
func (c *Client) Region() string {
	return c.region
}

// Profile returns the shared config profile in use
func (c *Client) Profile() string {
	return c.profile
}

// wait retries op under the client's policy, logging every retry at debug level
func (c *Client) wait(ctx context.Context, name string, op func(ctx context.Context) error) error {
	return retry.Do(ctx, c.Retry, name, op, func(err error, d time.Duration) {
		c.log.Debug().Err(err).Str("op", name).Dur("wait", d).Msg("retrying")
	})
}
