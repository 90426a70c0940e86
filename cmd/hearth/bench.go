package main

import (
	"github.com/spf13/cobra"

	"github.com/sagarc03/hearth/loadtest"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Fire concurrent GET requests at a server",
	Long: `Fire concurrent GET requests at a running server and report status
codes, throughput and latency percentiles.

Flags override the values read from --plan.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().String("url", "", "target URL (default: "+loadtest.DefaultURL+")")
	benchCmd.Flags().IntP("requests", "n", 0, "total requests (default: 100)")
	benchCmd.Flags().IntP("concurrency", "c", 0, "requests in flight (default: 100)")
	benchCmd.Flags().Duration("timeout", 0, "per-request timeout (default: 10s)")
	benchCmd.Flags().Bool("keep-alive", false, "send Connection: keep-alive and reuse connections")
	benchCmd.Flags().String("plan", "", "YAML plan file")
	benchCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	formatter := loadtest.NewFormatter(jsonOutput)

	plan, err := benchPlan(cmd)
	if err != nil {
		_ = formatter.FormatError(cmd.ErrOrStderr(), err)
		return err
	}

	result, err := loadtest.NewRunner().Run(cmd.Context(), plan)
	if err != nil {
		_ = formatter.FormatError(cmd.ErrOrStderr(), err)
		return err
	}
	return formatter.FormatResult(cmd.OutOrStdout(), result)
}

// benchPlan merges the plan file with explicitly set flags.
func benchPlan(cmd *cobra.Command) (loadtest.Plan, error) {
	var plan loadtest.Plan
	flags := cmd.Flags()

	if path, _ := flags.GetString("plan"); path != "" {
		p, err := loadtest.LoadPlan(path)
		if err != nil {
			return loadtest.Plan{}, err
		}
		plan = p
	}

	if flags.Changed("url") {
		plan.URL, _ = flags.GetString("url")
	}
	if flags.Changed("requests") {
		plan.Requests, _ = flags.GetInt("requests")
	}
	if flags.Changed("concurrency") {
		plan.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("timeout") {
		plan.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("keep-alive") {
		plan.KeepAlive, _ = flags.GetBool("keep-alive")
	}
	return plan, nil
}
