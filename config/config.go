package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultEthereumRPC      = "http://127.0.0.1:8545"
	DefaultEthereumChainID  = 31337
	DefaultContractAddress  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	DefaultSuiRPC           = "http://127.0.0.1:9000"
	DefaultSuiPackageID     = "0x64817713cd106a63f032f612b51bd9d7c859315ec1fdffacc924630df0616a54"
	DefaultSuiTreasuryCapID = "0x88bed88157d3bd4c75b2af5e4e37bd96ff93bfe2f49e72ccfa88175c32bf4cbd"
	DefaultSuiModule        = "ibt"
	DefaultSuiCoinName      = "IBT"
	DefaultSuiGasBudget     = "100000000"

	JournalBackendFile   = "file"
	JournalBackendPebble = "pebble"
)

// Config holds the application configuration
type Config struct {
	Ethereum EthereumConfig
	Sui      SuiConfig
	Journal  JournalConfig

	// AutoConfirm skips the interactive confirmation before a transfer
	AutoConfirm bool
}

// EthereumConfig holds the Ethereum side of the bridge
type EthereumConfig struct {
	RPCUrl          string
	ChainID         int64
	ContractAddress string
	PrivateKey      string  // hex, optional; without it the gateway is read-only
	GasLimit        *uint64 // optional, estimated when unset
	GasPrice        *int64  // optional, in wei; suggested by the node when unset
}

// SuiConfig holds the Sui side of the bridge
type SuiConfig struct {
	RPCUrl        string
	PackageID     string
	Module        string
	CoinName      string
	TreasuryCapID string
	Mnemonic      string // optional; without it the gateway is read-only
	GasBudget     string
	GasObject     string // optional; the node picks a gas coin when unset
}

// CoinType returns the fully qualified Move type of the bridged coin
func (s SuiConfig) CoinType() string {
	return fmt.Sprintf("%s::%s::%s", s.PackageID, s.Module, s.CoinName)
}

// JournalConfig selects where transfer records are kept
type JournalConfig struct {
	Backend string
	Path    string
}

var (
	globalConfig *Config
	configFile   string
)

// SetConfigFile points Load at an explicit config file
func SetConfigFile(path string) {
	configFile = path
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".ibt-bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// IBT_BRIDGE_ETHEREUM_RPC_URL -> ethereum.rpc_url
	v.SetEnvPrefix("IBT_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional unless one was named explicitly
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ethereum.rpc_url", DefaultEthereumRPC)
	v.SetDefault("ethereum.chain_id", DefaultEthereumChainID)
	v.SetDefault("ethereum.contract_address", DefaultContractAddress)

	v.SetDefault("sui.rpc_url", DefaultSuiRPC)
	v.SetDefault("sui.package_id", DefaultSuiPackageID)
	v.SetDefault("sui.module", DefaultSuiModule)
	v.SetDefault("sui.coin_name", DefaultSuiCoinName)
	v.SetDefault("sui.treasury_cap_id", DefaultSuiTreasuryCapID)
	v.SetDefault("sui.gas_budget", DefaultSuiGasBudget)

	v.SetDefault("journal.backend", JournalBackendFile)
	v.SetDefault("auto_confirm", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Ethereum: EthereumConfig{
			RPCUrl:          v.GetString("ethereum.rpc_url"),
			ChainID:         v.GetInt64("ethereum.chain_id"),
			ContractAddress: v.GetString("ethereum.contract_address"),
			PrivateKey:      v.GetString("ethereum.private_key"),
		},
		Sui: SuiConfig{
			RPCUrl:        v.GetString("sui.rpc_url"),
			PackageID:     v.GetString("sui.package_id"),
			Module:        v.GetString("sui.module"),
			CoinName:      v.GetString("sui.coin_name"),
			TreasuryCapID: v.GetString("sui.treasury_cap_id"),
			Mnemonic:      v.GetString("sui.mnemonic"),
			GasBudget:     v.GetString("sui.gas_budget"),
			GasObject:     v.GetString("sui.gas_object"),
		},
		Journal: JournalConfig{
			Backend: strings.ToLower(v.GetString("journal.backend")),
			Path:    v.GetString("journal.path"),
		},
		AutoConfirm: v.GetBool("auto_confirm"),
	}

	if v.IsSet("ethereum.gas_limit") {
		gasLimit := v.GetUint64("ethereum.gas_limit")
		cfg.Ethereum.GasLimit = &gasLimit
	}
	if v.IsSet("ethereum.gas_price") {
		gasPrice := v.GetInt64("ethereum.gas_price")
		cfg.Ethereum.GasPrice = &gasPrice
	}

	if cfg.Journal.Path == "" {
		path, err := defaultJournalPath(cfg.Journal.Backend)
		if err != nil {
			return nil, err
		}
		cfg.Journal.Path = path
	}

	return cfg, nil
}

func defaultJournalPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if backend == JournalBackendPebble {
		return filepath.Join(home, ".ibt-bridge", "journal"), nil
	}
	return filepath.Join(home, ".ibt-bridge-transfers.json"), nil
}

// Validate checks the settings every command depends on
func (c *Config) Validate() error {
	if c.Ethereum.RPCUrl == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}
	if c.Ethereum.ContractAddress == "" {
		return fmt.Errorf("ethereum.contract_address is required")
	}
	if c.Sui.RPCUrl == "" {
		return fmt.Errorf("sui.rpc_url is required")
	}
	if c.Sui.PackageID == "" {
		return fmt.Errorf("sui.package_id is required")
	}
	if c.Sui.TreasuryCapID == "" {
		return fmt.Errorf("sui.treasury_cap_id is required")
	}
	if c.Sui.Module == "" || c.Sui.CoinName == "" {
		return fmt.Errorf("sui.module and sui.coin_name are required")
	}
	switch c.Journal.Backend {
	case JournalBackendFile, JournalBackendPebble:
	default:
		return fmt.Errorf("journal.backend must be '%s' or '%s', got '%s'", JournalBackendFile, JournalBackendPebble, c.Journal.Backend)
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}
