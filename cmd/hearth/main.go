package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hearth/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "hearth",
	Short:   "Small keep-alive HTTP/1.1 server for routes and static files",
	Long: `Hearth is a raw-TCP HTTP/1.1 server. Configured routes are answered by
built-in handlers; every other GET or HEAD is served from a static root with
ETag/Last-Modified validation, single byte ranges, gzip for small files and
sendfile streaming for large ones.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			files = append(files, path)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./hearth.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: HEARTH_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (env: HEARTH_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
