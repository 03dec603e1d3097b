package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"rewardhub/crypto"
)

// Config is the rewardhubd node configuration.
type Config struct {
	Environment  string       `toml:"Environment"`
	DataDir      string       `toml:"DataDir"`
	Log          Log          `toml:"log"`
	Storage      Storage      `toml:"storage"`
	Journal      Journal      `toml:"journal"`
	Gateway      Gateway      `toml:"gateway"`
	Ledger       Ledger       `toml:"ledger"`
	Oracle       Oracle       `toml:"oracle"`
	Points       []PointsCap  `toml:"points"`
	Genesis      []Allocation `toml:"genesis"`
	Telemetry    Telemetry    `toml:"telemetry"`
	Pauses       Pauses       `toml:"pauses"`
	secretLookup func(string) string
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a single-node development configuration.
func Default() *Config {
	return &Config{
		Environment: "dev",
		DataDir:     "./rewardhub-data",
		Log:         Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 14},
		Storage:     Storage{Backend: "leveldb"},
		Gateway: Gateway{
			ListenAddress:        ":8080",
			ReadHeaderTimeoutSec: 5,
			ReadTimeoutSec:       15,
			WriteTimeoutSec:      15,
			IdleTimeoutSec:       60,
			JWTSecretEnv:         "REWARDHUB_JWT_SECRET",
			JWTIssuer:            "rewardhub",
			CallbackSecretEnv:    "REWARDHUB_CALLBACK_SECRET",
			CallbackRelayID:      "oracle-relay",
			RateLimitPerSecond:   20,
			RateLimitBurst:       40,
		},
		Ledger: Ledger{DefaultFeeRate: "0"},
		Oracle: Oracle{
			BondCurrency: "BOND",
			LivenessSec:  7200,
			Host:         "local",
			Local:        LocalHost{MinimumBond: "0", SettleIntervalSec: 5},
			EVM:          EVMHost{PrivateKeyEnv: "REWARDHUB_ORACLE_KEY", ReceiptTimeoutSec: 120, ReconcileIntervalSec: 60},
		},
	}
}

func (c *Config) applyDefaults(path string) {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(filepath.Dir(path), "rewardhub-data")
	}
	if c.Storage.Path == "" && c.Storage.Backend != "memory" {
		c.Storage.Path = filepath.Join(c.DataDir, "state")
	}
	if c.Gateway.NonceStorePath == "" {
		c.Gateway.NonceStorePath = filepath.Join(c.DataDir, "callback-nonces")
	}
	if c.Oracle.VerifierAddress == "" {
		c.Oracle.VerifierAddress = crypto.DeriveAddress("oracle-settlement").String()
	}
	if c.Oracle.HostIdentity == "" && c.Oracle.Host == "local" {
		c.Oracle.HostIdentity = crypto.DeriveAddress("oracle-localhost").String()
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.applyDefaults(path)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) lookupEnv(name string) string {
	if c.secretLookup != nil {
		return c.secretLookup(name)
	}
	return os.Getenv(name)
}

func (c *Config) secret(inline, env string) string {
	if v := strings.TrimSpace(inline); v != "" {
		return v
	}
	if env = strings.TrimSpace(env); env != "" {
		return strings.TrimSpace(c.lookupEnv(env))
	}
	return ""
}

// JWTSecret resolves the bearer token signing secret.
func (c *Config) JWTSecret() string {
	return c.secret(c.Gateway.JWTSecret, c.Gateway.JWTSecretEnv)
}

// CallbackSecret resolves the shared secret used to verify relayed oracle
// callbacks.
func (c *Config) CallbackSecret() string {
	return c.secret(c.Gateway.CallbackSecret, c.Gateway.CallbackSecretEnv)
}

// OraclePrivateKey resolves the EVM signing key from the environment.
func (c *Config) OraclePrivateKey() string {
	return c.secret("", c.Oracle.EVM.PrivateKeyEnv)
}

// Seconds converts a whole-second config value into a duration.
func Seconds(v int) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

// ParseAmount parses a non-negative base-10 integer. Empty means zero.
func ParseAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return v, nil
}

// ParsePrincipal parses an address, returning the zero address for empty
// input.
func ParsePrincipal(raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, err
	}
	return addr, nil
}
