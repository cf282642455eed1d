package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/btc-staking-builder/btcutils"
	"github.com/babylonlabs-io/btc-staking-builder/txbuilder"
)

type deriveAddressResponse struct {
	StakingAddress string `json:"staking_address"`
	StakerAddress  string `json:"staker_address"`
}

// CommandDeriveAddress returns the command that derives the Taproot staking
// address without building a transaction.
func CommandDeriveAddress(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "derive-address",
		Short: "Derive the Taproot staking address for the given keys and timelock.",
		Example: fmt.Sprintf(
			`%s derive-address --staker-pk <hex> --finality-provider-pks <hex> --staking-time 52560`,
			binaryName,
		),
		Args: cobra.NoArgs,
		RunE: runDeriveAddressCmd,
	}
	cmd.Flags().String(stakerPkFlag, "", "Staker public key in hex")
	cmd.Flags().StringSlice(fpPksFlag, nil, "Finality provider public keys in hex")
	cmd.Flags().Uint16(stakingTimeFlag, 0, "Staking timelock in BTC blocks")

	_ = cmd.MarkFlagRequired(stakerPkFlag)
	_ = cmd.MarkFlagRequired(fpPksFlag)
	_ = cmd.MarkFlagRequired(stakingTimeFlag)

	return cmd
}

func runDeriveAddressCmd(cmd *cobra.Command, _ []string) error {
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

	stakingAddress, err := txbuilder.NewTxBuilder(ctx.net).StakingAddress(
		stakerPk, fpPks, params.CovenantPks, params.CovenantQuorum, stakingTime,
	)
	if err != nil {
		return err
	}

	stakerInfo, err := btcutils.NewStakerInfo(stakerPk, ctx.net)
	if err != nil {
		return err
	}

	return printRespJSON(cmd, deriveAddressResponse{
		StakingAddress: stakingAddress.EncodeAddress(),
		StakerAddress:  stakerInfo.Address.EncodeAddress(),
	})
}
