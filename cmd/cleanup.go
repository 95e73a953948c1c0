package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/log"
	"github.com/vietdv277/tierctl/internal/provision"
	"github.com/vietdv277/tierctl/internal/ui"
)

var (
	cleanupManifest string
	cleanupYes      bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete resources recorded as created in a run manifest",
	Long: `Delete resources a provisioning run created, newest first. Resources the run
reused are never touched. An interactive selector lets you choose which
created resources to delete; --yes deletes all of them.

Deleted resources are removed from the manifest, so cleanup can be repeated
after a partial failure.

Examples:
  tierctl cleanup
  tierctl cleanup --yes
  tierctl cleanup --manifest shop-run.yaml`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupManifest, "manifest", "", "manifest path (default from config)")
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "delete every created resource without asking")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	path := cfg.ManifestPath
	if cleanupManifest != "" {
		path = cleanupManifest
	}

	m, err := provision.LoadManifest(path)
	if err != nil {
		return err
	}

	selected := m.Created()
	if len(selected) == 0 {
		fmt.Println(ui.MutedStyle.Render("Nothing to clean up: the manifest records no created resources"))
		return nil
	}
	if !cleanupYes {
		selected, err = ui.SelectForCleanup(selected)
		if errors.Is(err, ui.ErrCancelled) {
			fmt.Println(ui.MutedStyle.Render("Cancelled"))
			return nil
		}
		if err != nil {
			return err
		}
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	logger := log.WithComponent("cleanup").With().Str("run_id", m.RunID).Logger()
	deleted, rbErr := provision.Rollback(cmd.Context(), client, selected, logger, runMetrics)
	m.Remove(deleted)

	if err := provision.SaveManifest(path, m); err != nil {
		return errors.Join(rbErr, err)
	}

	ui.PrintManifest(os.Stdout, m)
	fmt.Printf("  %d deleted\n", len(deleted))
	return rbErr
}
