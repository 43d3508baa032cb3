package main

import (
	"errors"
	"fmt"

	"gdrive-transfer/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml with the default settings",
	Long: `Write a config.yaml holding the default settings to the configuration
directory (--config-dir, or the user config directory). An existing file is
kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInitCommand,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file in use after validating it",
	Long: `Print the config file that would be used, merged over the defaults. Unlike
the other commands this fails when no config file exists.`,
	Args: cobra.NoArgs,
	RunE: runConfigShowCommand,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
}

func runConfigInitCommand(cmd *cobra.Command, _ []string) error {
	path, err := config.CreateDefaultConfig(configForce)
	if errors.Is(err, config.ErrConfigExists) {
		return fmt.Errorf("%s already exists; pass --force to overwrite it", path)
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)

	return nil
}

func runConfigShowCommand(cmd *cobra.Command, _ []string) error {
	path, err := config.FindConfigFile()
	if err != nil {
		return fmt.Errorf("%w (run 'gdrive-transfer config init' to create one)", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", path)
	_, err = out.Write(data)

	return err
}
