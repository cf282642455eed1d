package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/btc-staking-builder/btcutils"
	"github.com/babylonlabs-io/btc-staking-builder/config"
	"github.com/babylonlabs-io/btc-staking-builder/log"
	"github.com/babylonlabs-io/btc-staking-builder/types"
	"github.com/babylonlabs-io/btc-staking-builder/util"
)

// cmdContext carries the loaded config and derived values every command
// needs.
type cmdContext struct {
	cfg    *config.Config
	net    *chaincfg.Params
	logger *zap.Logger
}

func getHomePath(cmd *cobra.Command) (string, error) {
	rawHomePath, err := cmd.Flags().GetString(homeFlag)
	if err != nil {
		return "", err
	}

	return util.CleanAndExpandPath(rawHomePath), nil
}

// loadCmdContext loads the config under the home directory and builds the
// root logger from it.
func loadCmdContext(cmd *cobra.Command) (*cmdContext, error) {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(homePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config at %s: %w", homePath, err)
	}

	net, err := cfg.NetParams()
	if err != nil {
		return nil, err
	}

	logLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger, err := log.NewRootLogger(cfg.LogFormat, logLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &cmdContext{
		cfg:    cfg,
		net:    net,
		logger: logger,
	}, nil
}

// loadStakingParams reads and validates the staking parameters JSON file.
func loadStakingParams(path string) (*types.StakingParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staking parameters at %s: %w", path, err)
	}

	var params types.StakingParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse staking parameters at %s: %w", path, err)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &params, nil
}

// loadUTXOs reads the funding UTXO set from a JSON file.
func loadUTXOs(path string) ([]types.UTXO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read utxos at %s: %w", path, err)
	}

	var utxos []types.UTXO
	if err := json.Unmarshal(data, &utxos); err != nil {
		return nil, fmt.Errorf("failed to parse utxos at %s: %w", path, err)
	}

	if len(utxos) == 0 {
		return nil, fmt.Errorf("utxo set at %s is empty", path)
	}

	return utxos, nil
}

func parsePkList(pkHexes []string) ([]*btcec.PublicKey, error) {
	if len(pkHexes) == 0 {
		return nil, fmt.Errorf("at least one finality provider public key must be provided")
	}

	pks := make([]*btcec.PublicKey, len(pkHexes))
	for i, pkHex := range pkHexes {
		pk, err := btcutils.ParsePublicKeyNoCoord(pkHex)
		if err != nil {
			return nil, err
		}
		pks[i] = pk
	}

	return pks, nil
}

// printRespJSON writes the response as indented JSON to the command stdout.
func printRespJSON(cmd *cobra.Command, resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(jsonBytes))

	return nil
}
