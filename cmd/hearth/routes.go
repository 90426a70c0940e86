package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hearth/handlers"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the configured route table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromContext(cmd.Context())
		if err != nil {
			return err
		}

		bound := cfg.RouteMap()
		table, err := handlers.Default().Bind(bound)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, path := range table.Paths() {
			_, _ = fmt.Fprintf(out, "%-24s %s\n", path, bound[path])
		}
		_, _ = fmt.Fprintf(out, "\n%d route(s); other GET/HEAD paths are served from %s\n", table.Len(), cfg.Storage.Root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
