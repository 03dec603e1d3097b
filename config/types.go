package config

// Log configures structured logging.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Storage selects the state backend.
type Storage struct {
	Backend string `toml:"Backend"` // memory, leveldb or bolt
	Path    string `toml:"Path"`
}

// Journal configures the sqlite event journal. An empty path disables it.
type Journal struct {
	Path string `toml:"Path"`
}

// Gateway configures the HTTP API.
type Gateway struct {
	ListenAddress        string   `toml:"ListenAddress"`
	ReadHeaderTimeoutSec int      `toml:"ReadHeaderTimeout"`
	ReadTimeoutSec       int      `toml:"ReadTimeout"`
	WriteTimeoutSec      int      `toml:"WriteTimeout"`
	IdleTimeoutSec       int      `toml:"IdleTimeout"`
	JWTSecret            string   `toml:"JWTSecret"`
	JWTSecretEnv         string   `toml:"JWTSecretEnv"`
	JWTIssuer            string   `toml:"JWTIssuer"`
	CallbackSecret       string   `toml:"CallbackSecret"`
	CallbackSecretEnv    string   `toml:"CallbackSecretEnv"`
	CallbackRelayID      string   `toml:"CallbackRelayID"`
	NonceStorePath       string   `toml:"NonceStorePath"`
	CORSOrigins          []string `toml:"CORSOrigins"`
	RateLimitPerSecond   float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst       int      `toml:"RateLimitBurst"`
}

// Ledger seeds the campaign ledger parameters on first start.
type Ledger struct {
	Owner          string `toml:"Owner"`
	DefaultFeeRate string `toml:"DefaultFeeRate"` // 1e18 scale
	FeeClaimant    string `toml:"FeeClaimant"`
}

// EVMHost configures the on-chain optimistic oracle adapter.
type EVMHost struct {
	RPCURL            string            `toml:"RPCURL"`
	OracleAddress     string            `toml:"OracleAddress"`
	PrivateKeyEnv     string            `toml:"PrivateKeyEnv"`
	CallbackRecipient string            `toml:"CallbackRecipient"`
	Currencies        map[string]string `toml:"Currencies"`
	ReceiptTimeoutSec int               `toml:"ReceiptTimeout"`
	// ReconcileIntervalSec is how often unconfirmed submissions are looked up.
	ReconcileIntervalSec int `toml:"ReconcileInterval"`
}

// LocalHost configures the in-process oracle host.
type LocalHost struct {
	MinimumBond       string `toml:"MinimumBond"`
	SettleIntervalSec int    `toml:"SettleInterval"`
}

// Oracle configures the optimistic-oracle settlement verifier.
type Oracle struct {
	Owner           string    `toml:"Owner"`
	VerifierAddress string    `toml:"VerifierAddress"`
	BondCurrency    string    `toml:"BondCurrency"`
	LivenessSec     uint64    `toml:"Liveness"`
	Asserters       []string  `toml:"Asserters"`
	Host            string    `toml:"Host"` // local or evm
	HostIdentity    string    `toml:"HostIdentity"`
	Local           LocalHost `toml:"local"`
	EVM             EVMHost   `toml:"evm"`
}

// PointsCap grants a provider a lifetime spend cap for a points asset.
type PointsCap struct {
	Provider string `toml:"Provider"`
	Asset    string `toml:"Asset"`
	Cap      string `toml:"Cap"`
}

// Allocation is a genesis balance.
type Allocation struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Metrics     bool    `toml:"Metrics"`
	Traces      bool    `toml:"Traces"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Pauses halts modules at startup.
type Pauses struct {
	Campaign bool `toml:"Campaign"`
	Oracle   bool `toml:"Oracle"`
}
