package oraclerelayd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for the relay.
type Config struct {
	Environment string          `yaml:"environment"`
	StatePath   string          `yaml:"state"`
	EVM         EVMConfig       `yaml:"evm"`
	Hub         HubConfig       `yaml:"hub"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// EVMConfig selects the oracle contract to watch.
type EVMConfig struct {
	RPCURL        string   `yaml:"rpc_url"`
	OracleAddress string   `yaml:"oracle_address"`
	StartBlock    uint64   `yaml:"start_block"`
	Confirmations uint64   `yaml:"confirmations"`
	BatchBlocks   uint64   `yaml:"batch_blocks"`
	PollInterval  Duration `yaml:"poll_interval"`
}

// HubConfig points at the rewardhubd callback endpoint.
type HubConfig struct {
	URL       string   `yaml:"url"`
	RelayID   string   `yaml:"relay_id"`
	Secret    string   `yaml:"secret"`
	SecretEnv string   `yaml:"secret_env"`
	Timeout   Duration `yaml:"timeout"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	Headers  string `yaml:"headers"`
}

// LoadConfig reads configuration from the supplied path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StatePath == "" {
		cfg.StatePath = "oracle-relayd.db"
	}
	if cfg.EVM.BatchBlocks == 0 {
		cfg.EVM.BatchBlocks = 2_000
	}
	if cfg.EVM.PollInterval.Duration <= 0 {
		cfg.EVM.PollInterval.Duration = 15 * time.Second
	}
	if cfg.Hub.RelayID == "" {
		cfg.Hub.RelayID = "oracle-relay"
	}
	if cfg.Hub.SecretEnv == "" {
		cfg.Hub.SecretEnv = "REWARDHUB_CALLBACK_SECRET"
	}
	if cfg.Hub.Timeout.Duration <= 0 {
		cfg.Hub.Timeout.Duration = 10 * time.Second
	}
}

func validate(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.EVM.RPCURL) == "" {
		errs = append(errs, errors.New("evm.rpc_url is required"))
	}
	if !ethcommon.IsHexAddress(cfg.EVM.OracleAddress) {
		errs = append(errs, fmt.Errorf("evm.oracle_address %q is not a hex address", cfg.EVM.OracleAddress))
	}
	if !strings.HasPrefix(cfg.Hub.URL, "http://") && !strings.HasPrefix(cfg.Hub.URL, "https://") {
		errs = append(errs, fmt.Errorf("hub.url %q must be an http(s) url", cfg.Hub.URL))
	}
	return errors.Join(errs...)
}

// ResolveSecret returns the inline secret or the one named by SecretEnv.
func (h HubConfig) ResolveSecret() string {
	if s := strings.TrimSpace(h.Secret); s != "" {
		return s
	}
	return strings.TrimSpace(os.Getenv(h.SecretEnv))
}
