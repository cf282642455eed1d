package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/btc-staking-builder/config"
	"github.com/babylonlabs-io/btc-staking-builder/version"
)

const BinaryName = "stakercli"

// NewRootCmd creates a new root command for stakercli. It is called once in
// the main function.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           BinaryName,
		Short:         fmt.Sprintf("%s - Craft BTC staking transactions.", BinaryName),
		Long:          fmt.Sprintf(`%s builds unsigned BTC staking transactions and derives staking addresses.`, BinaryName),
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String(homeFlag, config.DefaultStakerCliDir, "The application home directory")

	return rootCmd
}

func main() {
	cmd := NewRootCmd()

	cmd.AddCommand(
		CommandInit(BinaryName),
		CommandBuildTransaction(BinaryName),
		CommandDeriveAddress(BinaryName),
		CommandDumpScripts(BinaryName),
		version.CommandVersion(BinaryName),
	)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your stakercli CLI '%s'", err)
		os.Exit(1)
	}
}
