package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/metrics"
)

var (
	// Global flags
	cfgFile     string
	profile     string
	region      string
	metricsFile string
	logLevel    string
	logJSON     bool

	// Loaded before every command runs
	cfg *config.Config

	runMetrics = metrics.New()
)

var rootCmd = &cobra.Command{
	Use:   "tierctl",
	Short: "tierctl - provision a three-tier web application on AWS",
	Long: `tierctl provisions a three-tier web application on AWS: a frontend and two
backend services in auto scaling groups behind an application load balancer,
plus a standalone MongoDB instance. Every step finds its resource by name and
creates it only when absent, so a failed run can simply be repeated.

Provisioning:
  tierctl provision               # Create or reuse the whole stack
  tierctl provision --rollback    # Delete what this run created if a step fails
  tierctl cleanup                 # Choose created resources to delete

Operations:
  tierctl backup deploy           # Deploy the scheduled MongoDB backup function
  tierctl notify deploy-relay     # Forward deployment topics to chat
  tierctl status                  # Show identity and running instances`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so an interrupted run still writes its manifest.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if metricsFile != "" {
		if werr := runMetrics.WriteTextfile(metricsFile); werr != nil {
			fmt.Fprintln(os.Stderr, werr)
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/tierctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "AWS profile to use")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "AWS region to use")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON instead of console text")
}

func initConfig(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	// Priority for profile: --profile flag > config file > AWS_PROFILE env
	if profile == "" {
		if cfg.AWSProfile != "" {
			profile = cfg.AWSProfile
		} else {
			profile = os.Getenv("AWS_PROFILE")
		}
	}

	// Priority for region: --region flag > config file > AWS_REGION env
	if region == "" {
		region = cfg.AWSRegion
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		if region == "" {
			region = os.Getenv("AWS_DEFAULT_REGION")
		}
	}
	cfg.AWSProfile = profile
	cfg.AWSRegion = region

	return nil
}

// newClient builds the AWS client for the resolved profile and region
func newClient(ctx context.Context) (*aws.Client, error) {
	return aws.NewClient(ctx,
		aws.WithProfile(profile),
		aws.WithRegion(region),
		aws.WithRetryPolicy(cfg.Retry),
		aws.WithLogger(log.WithComponent("aws")),
	)
}
