package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/btc-staking-builder/btcstaking"
	"github.com/babylonlabs-io/btc-staking-builder/btcutils"
)

type dumpScriptsResponse struct {
	TimeLockScriptHex          string `json:"timelock_script_hex"`
	UnbondingScriptHex         string `json:"unbonding_script_hex"`
	SlashingScriptHex          string `json:"slashing_script_hex"`
	UnbondingTimeLockScriptHex string `json:"unbonding_timelock_script_hex"`
}

// CommandDumpScripts returns the command that prints the raw staking scripts
// committed to by the Taproot staking output.
func CommandDumpScripts(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "dump-scripts",
		Short: "Print the staking scripts for the given keys and timelock.",
		Example: fmt.Sprintf(
			`%s dump-scripts --staker-pk <hex> --finality-provider-pks <hex> --staking-time 52560`,
			binaryName,
		),
		Args: cobra.NoArgs,
		RunE: runDumpScriptsCmd,
	}
	cmd.Flags().String(stakerPkFlag, "", "Staker public key in hex")
	cmd.Flags().StringSlice(fpPksFlag, nil, "Finality provider public keys in hex")
	cmd.Flags().Uint16(stakingTimeFlag, 0, "Staking timelock in BTC blocks")

	_ = cmd.MarkFlagRequired(stakerPkFlag)
	_ = cmd.MarkFlagRequired(fpPksFlag)
	_ = cmd.MarkFlagRequired(stakingTimeFlag)

	return cmd
}

func runDumpScriptsCmd(cmd *cobra.Command, _ []string) error {
	ctx, err := loadCmdContext(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.logger.Sync() }()

	params, err := loadStakingParams(ctx.cfg.ParamsFile)
	if err != nil {
		return err
	}

	stakerPkHex, err := cmd.Flags().GetString(stakerPkFlag)
	if err != nil {
		return err
	}
	stakerPk, err := btcutils.ParsePublicKeyNoCoord(stakerPkHex)
	if err != nil {
		return err
	}

	fpPkHexes, err := cmd.Flags().GetStringSlice(fpPksFlag)
	if err != nil {
		return err
	}
	fpPks, err := parsePkList(fpPkHexes)
	if err != nil {
		return err
	}

	stakingTime, err := cmd.Flags().GetUint16(stakingTimeFlag)
	if err != nil {
		return err
	}
	if err := params.ValidateStakingTime(stakingTime); err != nil {
		return err
	}

	scripts, err := btcstaking.BuildStakingScripts(
		stakerPk,
		fpPks,
		params.CovenantPks,
		params.CovenantQuorum,
		stakingTime,
		params.UnbondingTimeBlocks,
	)
	if err != nil {
		return err
	}

	return printRespJSON(cmd, dumpScriptsResponse{
		TimeLockScriptHex:          hex.EncodeToString(scripts.TimeLockScript),
		UnbondingScriptHex:         hex.EncodeToString(scripts.UnbondingScript),
		SlashingScriptHex:          hex.EncodeToString(scripts.SlashingScript),
		UnbondingTimeLockScriptHex: hex.EncodeToString(scripts.UnbondingTimeLockScript),
	})
}
