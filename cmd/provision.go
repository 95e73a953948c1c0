package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/provision"
	"github.com/vietdv277/tierctl/internal/ui"
)

var (
	provisionRollback bool
	provisionManifest string
	provisionNotify   bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create or reuse every resource of the stack",
	Long: `Provision the stack in order: network lookup, security groups, instance
profile, database instance, load balancer with target groups and listeners,
then a launch template and auto scaling group per service.

The run manifest is written after every run, successful or not, so
'tierctl cleanup' can remove what was created.

Examples:
  tierctl provision
  tierctl provision --rollback
  tierctl provision --manifest shop-run.yaml --notify`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().BoolVar(&provisionRollback, "rollback", false, "delete resources this run created if a step fails")
	provisionCmd.Flags().StringVar(&provisionManifest, "manifest", "", "manifest path (default from config)")
	provisionCmd.Flags().BoolVar(&provisionNotify, "notify", false, "publish the outcome to the notification topics")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if provisionManifest != "" {
		cfg.ManifestPath = provisionManifest
	}
	if provisionNotify {
		cfg.Notify.PublishOutcome = true
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	seq := &provision.Sequencer{
		Cloud:    client,
		Config:   cfg,
		Log:      log.WithComponent("provision"),
		Metrics:  runMetrics,
		Rollback: provisionRollback,
	}

	m, err := seq.Run(cmd.Context())
	if m != nil {
		ui.PrintManifest(os.Stdout, m)
	}
	return err
}
