package walletconfig

import (
	"os"
	"path/filepath"
	"strings"

	"sable-wallet/walletd/internal/ledger"

	"gopkg.in/yaml.v3"
)

// Config is the resolved daemon configuration after file, defaults, and
// environment are merged.
type Config struct {
	RPCAddr        string
	DataDir        string
	LedgerEndpoint string
	Commitment     string
	BridgeAddr     string
}

type DaemonConfig struct {
	RPC     RPCFileConfig     `yaml:"rpc"`
	Ledger  LedgerFileConfig  `yaml:"ledger"`
	Device  DeviceFileConfig  `yaml:"device"`
	Storage StorageFileConfig `yaml:"storage"`
}

type RPCFileConfig struct {
	Addr string `yaml:"addr"`
}

type LedgerFileConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Commitment string `yaml:"commitment"`
}

type DeviceFileConfig struct {
	BridgeAddr string `yaml:"bridgeAddr"`
}

type StorageFileConfig struct {
	DataDir string `yaml:"dataDir"`
}

func DefaultConfig() Config {
	return Config{
		RPCAddr:        "127.0.0.1:8787",
		DataDir:        defaultDataDir(),
		LedgerEndpoint: "https://api.devnet.solana.com",
		Commitment:     string(ledger.CommitmentConfirmed),
		BridgeAddr:     "127.0.0.1:9151",
	}
}

func LoadFromPath(configPath string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/walletd.yaml",
			"walletd.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed DaemonConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}

		merged := cfg
		Merge(&merged, parsed)
		ApplyEnvOverrides(&merged)
		return merged
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src DaemonConfig) {
	if src.RPC.Addr != "" {
		dst.RPCAddr = src.RPC.Addr
	}
	if src.Ledger.Endpoint != "" {
		dst.LedgerEndpoint = src.Ledger.Endpoint
	}
	if src.Ledger.Commitment != "" {
		dst.Commitment = src.Ledger.Commitment
	}
	if src.Device.BridgeAddr != "" {
		dst.BridgeAddr = src.Device.BridgeAddr
	}
	if src.Storage.DataDir != "" {
		dst.DataDir = src.Storage.DataDir
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if addr := strings.TrimSpace(os.Getenv("SABLE_RPC_ADDR")); addr != "" {
		cfg.RPCAddr = addr
	}
	if dir := strings.TrimSpace(os.Getenv("SABLE_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	if endpoint := strings.TrimSpace(os.Getenv("SABLE_LEDGER_ENDPOINT")); endpoint != "" {
		cfg.LedgerEndpoint = endpoint
	}
	if commitment := strings.TrimSpace(os.Getenv("SABLE_LEDGER_COMMITMENT")); commitment != "" {
		cfg.Commitment = commitment
	}
	if addr := strings.TrimSpace(os.Getenv("SABLE_BRIDGE_ADDR")); addr != "" {
		cfg.BridgeAddr = addr
	}
}

// LedgerCommitment maps the configured string onto a known commitment
// level, falling back to confirmed.
func (c Config) LedgerCommitment() ledger.Commitment {
	switch strings.ToLower(strings.TrimSpace(c.Commitment)) {
	case string(ledger.CommitmentProcessed):
		return ledger.CommitmentProcessed
	case string(ledger.CommitmentFinalized):
		return ledger.CommitmentFinalized
	default:
		return ledger.CommitmentConfirmed
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sable", "walletd")
}
