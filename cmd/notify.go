package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/notify"
	"github.com/vietdv277/tierctl/internal/ui"
)

var (
	notifyFailure  bool
	publishSubject string
	emailSubject   string
	notifyTo       []string
	relaySource    string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Deployment notification topics, chat relay and email",
}

var notifyTopicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Create the success and failure topics",
	RunE:  runNotifyTopics,
}

var notifyPublishCmd = &cobra.Command{
	Use:   "publish <text>",
	Short: "Publish a message to the success or failure topic",
	Long: `Publish a message in the JSON shape the chat relay forwards.

Examples:
  tierctl notify publish "shop v2 is live"
  tierctl notify publish --failure "frontend health checks failing"`,
	Args: cobra.ExactArgs(1),
	RunE: runNotifyPublish,
}

var notifyEmailCmd = &cobra.Command{
	Use:   "email <body>",
	Short: "Send a plain text email through SES",
	Long: `Send an email from notify.email_sender. Recipients default to
notify.email_recipients.

Examples:
  tierctl notify email --subject "Deployment done" "shop v2 is live"
  tierctl notify email --to oncall@example.com "rollback finished"`,
	Args: cobra.ExactArgs(1),
	RunE: runNotifyEmail,
}

var notifyRelayCmd = &cobra.Command{
	Use:   "deploy-relay",
	Short: "Deploy the chat relay function and subscribe it to both topics",
	Long: `Deploy the relay function that posts every topic message to the chat
webhook, then subscribe it to the success and failure topics.

notify.webhook_url may be a literal, secretsmanager:<id> (resolved now) or
ssm:<name> (read by the function at cold start).

Examples:
  tierctl notify deploy-relay
  tierctl notify deploy-relay --source build/relay/bootstrap`,
	RunE: runNotifyRelay,
}

func init() {
	notifyPublishCmd.Flags().BoolVar(&notifyFailure, "failure", false, "publish to the failure topic")
	notifyPublishCmd.Flags().StringVar(&publishSubject, "subject", "tierctl", "message subject")
	notifyEmailCmd.Flags().StringVar(&emailSubject, "subject", "tierctl notification", "email subject")
	notifyEmailCmd.Flags().StringSliceVar(&notifyTo, "to", nil, "recipients (default from config)")
	notifyRelayCmd.Flags().StringVar(&relaySource, "source", "", "file to package as the function code (default from config)")

	notifyCmd.AddCommand(notifyTopicsCmd)
	notifyCmd.AddCommand(notifyPublishCmd)
	notifyCmd.AddCommand(notifyEmailCmd)
	notifyCmd.AddCommand(notifyRelayCmd)
	rootCmd.AddCommand(notifyCmd)
}

func newNotifier(cmd *cobra.Command) (*notify.Notifier, error) {
	client, err := newClient(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &notify.Notifier{
		Cloud:  client,
		Config: cfg.Notify,
		Log:    log.WithComponent("notify"),
	}, nil
}

func runNotifyTopics(cmd *cobra.Command, args []string) error {
	n, err := newNotifier(cmd)
	if err != nil {
		return err
	}

	topics, err := n.EnsureTopics(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Success ARN: %s\n", ui.NameStyle.Render(topics.Success))
	fmt.Printf("Failure ARN: %s\n", ui.NameStyle.Render(topics.Failure))
	return nil
}

func runNotifyPublish(cmd *cobra.Command, args []string) error {
	n, err := newNotifier(cmd)
	if err != nil {
		return err
	}

	id, err := n.Publish(cmd.Context(), !notifyFailure, publishSubject, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Message: %s\n", ui.IDStyle.Render(id))
	return nil
}

func runNotifyEmail(cmd *cobra.Command, args []string) error {
	n, err := newNotifier(cmd)
	if err != nil {
		return err
	}

	id, err := n.Email(cmd.Context(), emailSubject, args[0], notifyTo...)
	if err != nil {
		return err
	}
	fmt.Printf("Message: %s\n", ui.IDStyle.Render(id))
	return nil
}

func runNotifyRelay(cmd *cobra.Command, args []string) error {
	n, err := newNotifier(cmd)
	if err != nil {
		return err
	}
	if relaySource != "" {
		n.Config.RelaySourceFile = relaySource
	}

	result, err := n.DeployRelay(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Function: %s\n", ui.NameStyle.Render(result.FunctionARN))
	for _, sub := range result.Subscriptions {
		fmt.Printf("  subscribed %s\n", ui.MutedStyle.Render(sub))
	}
	return nil
}
