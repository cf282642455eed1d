package main

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/btc-staking-builder/btcutils"
	"github.com/babylonlabs-io/btc-staking-builder/txbuilder"
	"github.com/babylonlabs-io/btc-staking-builder/util"
)

type buildTransactionResponse struct {
	StakingTxHex   string `json:"staking_tx_hex"`
	TxID           string `json:"tx_id"`
	StakingAddress string `json:"staking_address"`
	FeeSat         int64  `json:"fee_sat"`
	ChangeSat      int64  `json:"change_sat"`
}

// CommandBuildTransaction returns the command that assembles an unsigned
// staking transaction from the configured parameters and a funding UTXO set.
func CommandBuildTransaction(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "build-transaction",
		Short: "Build an unsigned BTC staking transaction.",
		Example: fmt.Sprintf(
			`%s build-transaction --staker-pk <hex> --finality-provider-pks <hex> `+
				`--staking-time 52560 --staking-amount 1000000 --utxos-file utxos.json --fee-rate 5`,
			binaryName,
		),
		Args: cobra.NoArgs,
		RunE: runBuildTransactionCmd,
	}
	cmd.Flags().String(stakerPkFlag, "", "Staker public key in hex")
	cmd.Flags().StringSlice(fpPksFlag, nil, "Finality provider public keys in hex")
	cmd.Flags().Uint16(stakingTimeFlag, 0, "Staking timelock in BTC blocks")
	cmd.Flags().Int64(stakingAmountFlag, 0, "Staking amount in satoshis")
	cmd.Flags().String(utxosFileFlag, "", "Path to the JSON file with funding utxos")
	cmd.Flags().Uint64(feeRateFlag, 0, "Funding fee rate in sat/vbyte")
	cmd.Flags().String(changeAddressFlag, "", "Change address, defaults to the staker Taproot address")

	_ = cmd.MarkFlagRequired(stakerPkFlag)
	_ = cmd.MarkFlagRequired(fpPksFlag)
	_ = cmd.MarkFlagRequired(stakingTimeFlag)
	_ = cmd.MarkFlagRequired(stakingAmountFlag)
	_ = cmd.MarkFlagRequired(utxosFileFlag)
	_ = cmd.MarkFlagRequired(feeRateFlag)

	return cmd
}

func runBuildTransactionCmd(cmd *cobra.Command, _ []string) error {
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

	stakingAmount, err := cmd.Flags().GetInt64(stakingAmountFlag)
	if err != nil {
		return err
	}

	utxosFile, err := cmd.Flags().GetString(utxosFileFlag)
	if err != nil {
		return err
	}
	utxos, err := loadUTXOs(util.CleanAndExpandPath(utxosFile))
	if err != nil {
		return err
	}

	feeRate, err := cmd.Flags().GetUint64(feeRateFlag)
	if err != nil {
		return err
	}
	if feeRate < ctx.cfg.MinFeeRate || feeRate > ctx.cfg.MaxFeeRate {
		return fmt.Errorf(
			"fee rate %d outside of configured range [%d, %d]",
			feeRate, ctx.cfg.MinFeeRate, ctx.cfg.MaxFeeRate,
		)
	}

	stakerInfo, err := btcutils.NewStakerInfo(stakerPk, ctx.net)
	if err != nil {
		return err
	}

	changeAddress, err := cmd.Flags().GetString(changeAddressFlag)
	if err != nil {
		return err
	}
	if changeAddress != "" {
		if !btcutils.IsSupportedAddress(changeAddress, ctx.net) {
			return fmt.Errorf("change address %s is neither taproot nor native segwit on %s", changeAddress, ctx.net.Name)
		}
		decoded, err := btcutil.DecodeAddress(changeAddress, ctx.net)
		if err != nil {
			return err
		}
		stakerInfo.Address = decoded
	}

	builder := txbuilder.NewTxBuilder(ctx.net)
	result, err := builder.BuildStakingTransaction(
		params,
		stakerInfo,
		stakerPk,
		fpPks,
		stakingTime,
		btcutil.Amount(stakingAmount),
		utxos,
		feeRate,
	)
	if err != nil {
		return err
	}

	stakingAddress, err := builder.StakingAddress(
		stakerPk, fpPks, params.CovenantPks, params.CovenantQuorum, stakingTime,
	)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := result.Tx.Serialize(&buf); err != nil {
		return fmt.Errorf("failed to serialize staking transaction: %w", err)
	}

	ctx.logger.Info(
		"built staking transaction",
		zap.String("tx_id", result.Tx.TxHash().String()),
		zap.Int64("fee_sat", int64(result.Fee)),
		zap.Int64("change_sat", int64(result.ChangeAmount)),
		zap.Int("num_inputs", len(result.Tx.TxIn)),
	)

	return printRespJSON(cmd, buildTransactionResponse{
		StakingTxHex:   hex.EncodeToString(buf.Bytes()),
		TxID:           result.Tx.TxHash().String(),
		StakingAddress: stakingAddress.EncodeAddress(),
		FeeSat:         int64(result.Fee),
		ChangeSat:      int64(result.ChangeAmount),
	})
}
