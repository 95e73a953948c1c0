package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/provision"
	"github.com/vietdv277/tierctl/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status and the project's instances",
	Long: `Display the resolved profile and region, verify the credentials with STS,
summarise the last run manifest and list the project's instances.

Examples:
  tierctl status
  tierctl status -p production -r us-east-1`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("Current Status")
	fmt.Println(ui.MutedStyle.Render("─────────────────────────────────"))
	fmt.Println()

	fmt.Printf("Project:  %s\n", ui.HeaderStyle.Render(cfg.Project))
	displayProfile()
	if region != "" {
		fmt.Printf("Region:   %s\n", region)
	}
	fmt.Println()

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Print("Auth:     ")
	identity, err := client.CallerIdentity(cmd.Context())
	if err != nil {
		fmt.Println(ui.FailedStyle.Render("✗ Not authenticated"))
		fmt.Printf("          %s\n", ui.MutedStyle.Render(err.Error()))
		fmt.Println()
		fmt.Println("To authenticate:")
		fmt.Printf("  aws sso login --profile %s\n", formatProfile(profile))
		return nil
	}
	fmt.Println(ui.CreatedStyle.Render("✓ Authenticated"))
	fmt.Printf("Account:  %s\n", identity.Account)
	fmt.Printf("User:     %s\n", identity.UserID)
	if identity.ARN != "" {
		fmt.Printf("ARN:      %s\n", ui.MutedStyle.Render(identity.ARN))
	}
	fmt.Println()

	displayManifest()

	instances, err := client.ListInstances(cmd.Context(), cfg.Project)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		fmt.Println(ui.MutedStyle.Render("No instances found for " + cfg.Project))
		return nil
	}
	ui.PrintInstances(os.Stdout, instances)
	return nil
}

func displayProfile() {
	fmt.Printf("Profile:  %s", formatProfile(profile))
	if profile != "" && !aws.ValidateProfile(profile) {
		fmt.Print("  " + ui.FailedStyle.Render("(not in ~/.aws/credentials or ~/.aws/config)"))
	}
	fmt.Println()
}

func displayManifest() {
	m, err := provision.LoadManifest(cfg.ManifestPath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("Manifest: " + ui.MutedStyle.Render("(none yet)"))
		fmt.Println()
		return
	}
	if err != nil {
		fmt.Println("Manifest: " + ui.FailedStyle.Render(err.Error()))
		fmt.Println()
		return
	}

	fmt.Printf("Manifest: %s (run %s, %d resources, %d created)\n",
		cfg.ManifestPath, m.RunID, len(m.Resources), len(m.Created()))
	switch {
	case m.Error != "":
		fmt.Printf("Last run: %s\n", ui.FailedStyle.Render(m.Error))
	case m.LoadBalancerDNS != "":
		fmt.Printf("Endpoint: %s\n", ui.NameStyle.Render("http://"+m.LoadBalancerDNS))
	}
	fmt.Println()
}

func formatProfile(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
