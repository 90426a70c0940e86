package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/hearth/reload"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] -- <command> [args...]",
	Short: "Run a command and restart it when files change",
	Long: `Run a command and restart it whenever a watched file changes.

A typical development loop:

  hearth watch -- hearth serve --port 8000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSlice("dir", []string{"."}, "directories to watch recursively")
	watchCmd.Flags().StringSlice("ext", reload.DefaultExts, "file extensions that trigger a restart")
	watchCmd.Flags().Duration("grace", reload.DefaultGrace, "time to wait after SIGTERM before killing the child")
	watchCmd.Flags().Duration("debounce", reload.DefaultDebounce, "quiet period before restarting")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dirs, _ := cmd.Flags().GetStringSlice("dir")
	exts, _ := cmd.Flags().GetStringSlice("ext")
	grace, _ := cmd.Flags().GetDuration("grace")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	w := &reload.Watcher{
		Dirs:     dirs,
		Exts:     exts,
		Command:  args[0],
		Args:     args[1:],
		Grace:    grace,
		Debounce: debounce,
		Logger:   slog.Default(),
	}

	err := w.Run(ctx)
	var exitErr *reload.ExitError
	if errors.As(err, &exitErr) {
		slog.Error("command failed", "code", exitErr.Code)
		os.Exit(exitErr.Code)
	}
	return err
}
