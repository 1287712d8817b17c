package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/routes"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print configured and discovered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configDir, network)
		if err != nil {
			return err
		}

		catalog := routes.NewFileCatalog(routes.CatalogPath(cfg.Runtime.RouteLogDir, cfg.Network))
		logged, err := catalog.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range routes.Merge(cfg.Routes, logged) {
			line, err := json.Marshal(r.Record())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s,\n", line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
