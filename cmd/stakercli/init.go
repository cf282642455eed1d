package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/btc-staking-builder/config"
	"github.com/babylonlabs-io/btc-staking-builder/util"
)

// CommandInit returns the init command that creates the home directory with
// a default config.
func CommandInit(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "init",
		Short:   "Initialize a stakercli home directory.",
		Long:    `Creates a new stakercli home directory with default config`,
		Example: fmt.Sprintf(`%s init --home /home/user/.stakercli --force`, binaryName),
		Args:    cobra.NoArgs,
		RunE:    runInitCmd,
	}
	cmd.Flags().Bool(forceFlag, false, "Override existing configuration")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool(forceFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", forceFlag, err)
	}

	if util.FileExists(config.CfgFile(homePath)) && !force {
		return fmt.Errorf("config already exists under %s", homePath)
	}

	return config.WriteDefaultConfig(homePath)
}
