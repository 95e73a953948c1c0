package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/aws"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage AWS profiles",
	Long: `Manage the AWS profile tierctl uses.

Examples:
  tierctl profile ls                 # List all available profiles
  tierctl profile set my-profile     # Save a profile to the config file`,
}

var profileLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List available AWS profiles",
	Long: `List all available AWS profiles from ~/.aws/credentials and ~/.aws/config.

Examples:
  tierctl profile ls`,
	RunE: runProfileList,
}

var profileSetCmd = &cobra.Command{
	Use:   "set <profile-name>",
	Short: "Set the AWS profile in the config file",
	Long: `Save a profile as aws_profile in the config file so future commands use it
without --profile.

Examples:
  tierctl profile set production`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSet,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileLsCmd)
	profileCmd.AddCommand(profileSetCmd)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	profiles, err := aws.ListProfiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(profiles) == 0 {
		fmt.Println("No AWS profiles found")
		fmt.Println("Create profiles in ~/.aws/credentials or ~/.aws/config")
		return nil
	}

	ui.PrintProfiles(os.Stdout, profiles, profile)
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	if !aws.ValidateProfile(profileName) {
		return fmt.Errorf("profile %q not found", profileName)
	}

	// Reload so flag and environment overrides are not written back
	fileCfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	fileCfg.AWSProfile = profileName

	path := cfgFile
	if path == "" {
		path = config.GetConfigPath()
	}
	if err := config.Save(path, fileCfg); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("Profile set to: %s\n", profileName)
	fmt.Printf("Saved to: %s\n", path)
	return nil
}
