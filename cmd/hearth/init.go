package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/hearth/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter hearth.yaml",
	Long: `Write a starter configuration file.

Values start from the current defaults (and any flags or HEARTH_* variables).
You will be prompted for the listen host, port and static root unless --yes
is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("output", "o", "hearth.yaml", "file to write")
	initCmd.Flags().BoolP("yes", "y", false, "accept defaults without prompting")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}
	starter := *cfg

	output, _ := cmd.Flags().GetString("output")
	yes, _ := cmd.Flags().GetBool("yes")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(output); err == nil && !force {
		if yes {
			return fmt.Errorf("%s already exists (use --force to overwrite)", output)
		}
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("%s already exists. Overwrite it", output),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	if !yes {
		if err := promptStarter(&starter); err != nil {
			return handlePromptError(cmd, err)
		}
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	return nil
}

func promptStarter(cfg *config.Config) error {
	hostPrompt := promptui.Prompt{
		Label:   "Listen host",
		Default: cfg.Server.Host,
	}
	host, err := hostPrompt.Run()
	if err != nil {
		return err
	}

	portPrompt := promptui.Prompt{
		Label:   "Listen port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(input string) error {
			p, err := strconv.Atoi(input)
			if err != nil || p < 1 || p > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return err
	}
	port, _ := strconv.Atoi(portStr)

	rootPrompt := promptui.Prompt{
		Label:   "Static root",
		Default: cfg.Storage.Root,
		Validate: func(input string) error {
			info, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("cannot use %s: %w", input, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", input)
			}
			return nil
		},
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return err
	}
	if abs, absErr := filepath.Abs(root); absErr == nil {
		root = abs
	}

	cfg.Server.Host = host
	cfg.Server.Port = port
	cfg.Storage.Root = root
	return nil
}

// handlePromptError treats an interrupted or aborted prompt as a cancel.
func handlePromptError(cmd *cobra.Command, err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	return err
}
