// Command relay is the Lambda entrypoint that forwards deployment
// notifications to a chat webhook.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/notify"
	"github.com/vietdv277/tierctl/internal/relay"
)

func main() {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("relay")

	webhook, err := webhookURL(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve webhook")
	}

	lambda.Start(relay.NewHandler(webhook, logger).Handle)
}

func webhookURL(ctx context.Context) (string, error) {
	param := os.Getenv(notify.EnvWebhookParam)
	if param == "" {
		return os.Getenv(notify.EnvWebhookURL), nil
	}

	client, err := aws.NewClient(ctx, aws.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		return "", err
	}
	value, err := client.ResolveValue(ctx, aws.RefSSM+param)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", notify.EnvWebhookParam, err)
	}
	return value, nil
}
