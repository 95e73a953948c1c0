package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/backup"
	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/ui"
)

var (
	backupSource   string
	backupSchedule string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage the scheduled MongoDB backup function",
}

var backupDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create or update the backup function and its schedule",
	Long: `Deploy the backup function: ensure its execution role, upload the packaged
source file with BUCKET_NAME, MONGO_URI and RETENTION_DAYS set, and point the
schedule rule at it.

mongo_uri may be a literal or a reference (ssm:<name>, secretsmanager:<id>)
resolved at deploy time.

Examples:
  tierctl backup deploy
  tierctl backup deploy --source ./lambda_function.py --schedule "rate(12 hours)"`,
	RunE: runBackupDeploy,
}

func init() {
	backupDeployCmd.Flags().StringVar(&backupSource, "source", "", "file to package as the function code (default from config)")
	backupDeployCmd.Flags().StringVar(&backupSchedule, "schedule", "", "schedule expression (default from config)")
	backupCmd.AddCommand(backupDeployCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupDeploy(cmd *cobra.Command, args []string) error {
	bcfg := cfg.Backup
	if backupSource != "" {
		bcfg.SourceFile = backupSource
	}
	if backupSchedule != "" {
		bcfg.Schedule = backupSchedule
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	d := &backup.Deployer{
		Cloud:  client,
		Config: bcfg,
		Log:    log.WithComponent("backup"),
	}
	result, err := d.Deploy(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Function: %s\n", ui.NameStyle.Render(result.FunctionARN))
	if bcfg.Schedule != "" {
		fmt.Printf("Schedule: %s\n", bcfg.Schedule)
	}
	return nil
}
