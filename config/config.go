package config

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/babylonlabs-io/btc-staking-builder/util"
)

// Constants for config default values
const (
	defaultLogLevel       = zapcore.InfoLevel
	defaultLogFormat      = "console"
	defaultNetwork        = "signet"
	defaultConfigFileName = "stakercli.conf"
	defaultParamsFileName = "params.json"

	// defaultMinFeeRate is the lowest accepted funding fee rate in
	// sat/vbyte. Anything below the minimum relay fee rate will not
	// propagate.
	defaultMinFeeRate = 1
	// defaultMaxFeeRate caps the funding fee rate to protect against fat
	// finger input.
	defaultMaxFeeRate = 1000
)

var (
	//   C:\Users\<username>\AppData\Local\Stakercli on Windows
	//   ~/.stakercli on Linux
	//   ~/Library/Application Support/Stakercli on MacOS
	DefaultStakerCliDir = btcutil.AppDataDir("stakercli", false)
)

// Config is the main config of the stakercli command.
type Config struct {
	LogLevel  string `long:"loglevel" description:"Logging level for all subsystems" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal"`
	LogFormat string `long:"logformat" description:"Format of the log output" choice:"console" choice:"json" choice:"logfmt"`

	Network string `long:"network" description:"Bitcoin network to run on" choice:"mainnet" choice:"testnet3" choice:"regtest" choice:"simnet" choice:"signet"`

	ParamsFile string `long:"paramsfile" description:"Path to the JSON file with the staking parameters"`

	MinFeeRate uint64 `long:"minfeerate" description:"Minimum accepted funding fee rate in sat/vbyte"`
	MaxFeeRate uint64 `long:"maxfeerate" description:"Maximum accepted funding fee rate in sat/vbyte"`
}

// DefaultConfigWithHome returns the default config anchored at the given
// home directory.
func DefaultConfigWithHome(homePath string) Config {
	cfg := Config{
		LogLevel:   defaultLogLevel.String(),
		LogFormat:  defaultLogFormat,
		Network:    defaultNetwork,
		ParamsFile: filepath.Join(homePath, defaultParamsFileName),
		MinFeeRate: defaultMinFeeRate,
		MaxFeeRate: defaultMaxFeeRate,
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func DefaultConfig() Config {
	return DefaultConfigWithHome(DefaultStakerCliDir)
}

func CfgFile(homePath string) string {
	return filepath.Join(homePath, defaultConfigFileName)
}

// WriteDefaultConfig persists the default ini config under the home
// directory, creating it when necessary.
func WriteDefaultConfig(homePath string) error {
	if err := util.MakeDirectory(homePath); err != nil {
		return err
	}

	cfg := DefaultConfigWithHome(homePath)
	fileParser := flags.NewParser(&cfg, flags.Default)

	return flags.NewIniParser(fileParser).WriteFile(
		CfgFile(homePath),
		flags.IniIncludeComments|flags.IniIncludeDefaults,
	)
}

// LoadConfig reads the config file under the home directory and validates
// its contents.
func LoadConfig(homePath string) (*Config, error) {
	cfgFile := CfgFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	var cfg Config
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the given configuration to be sane. This makes sure no
// illegal values or combination of values are set.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := cfg.NetParams(); err != nil {
		return err
	}

	if cfg.MinFeeRate == 0 {
		return fmt.Errorf("minimum fee rate must be positive")
	}

	if cfg.MinFeeRate > cfg.MaxFeeRate {
		return fmt.Errorf(
			"minimum fee rate %d must not exceed maximum fee rate %d",
			cfg.MinFeeRate, cfg.MaxFeeRate,
		)
	}

	return nil
}

// NetParams resolves the configured network name to chain parameters.
func (cfg *Config) NetParams() (*chaincfg.Params, error) {
	switch cfg.Network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network: %s", cfg.Network)
	}
}
