package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/tierctl/internal/bootscript"
	"github.com/vietdv277/tierctl/internal/config"
	"github.com/vietdv277/tierctl/pkg/types"
)

var userdataEncode bool

var userdataCmd = &cobra.Command{
	Use:   "userdata <service|template-name>",
	Short: "Print the boot script of a service",
	Long: `Render the boot script an instance of the service runs at first boot.

The argument is a service (frontend, backend1, backend2, mongodb) or a launch
template name of the form <a>-<b>-<c>-<token>-lt, whose fourth segment
(fe, be1, be2) selects the service. Other names render the MongoDB script.

Examples:
  tierctl userdata backend1
  tierctl userdata mernapp-rbrk-v1-fe-lt --encode`,
	Args: cobra.ExactArgs(1),
	RunE: runUserdata,
}

func init() {
	userdataCmd.Flags().BoolVar(&userdataEncode, "encode", false, "print base64 as stored in the launch template")
	rootCmd.AddCommand(userdataCmd)
}

func runUserdata(cmd *cobra.Command, args []string) error {
	svc, ok := types.ParseService(args[0])
	if !ok {
		svc = types.ServiceFromTemplateName(args[0])
	}

	script, err := bootscript.Render(svc, bootscript.Params{
		Project:      cfg.Project,
		Region:       cfg.AWSRegion,
		Image:        cfg.Image(svc),
		DatabaseTag:  config.NamesFor(cfg.Project).DatabaseNode(),
		DatabaseName: cfg.DatabaseName,
	})
	if err != nil {
		return err
	}

	if userdataEncode {
		script = bootscript.Encode(script)
	}
	fmt.Println(script)
	return nil
}
