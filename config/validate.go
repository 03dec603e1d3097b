package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var feeRateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Validate checks the configuration for values the node cannot start with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Storage.Backend {
	case "memory", "leveldb", "bolt":
	default:
		add("storage: unsupported backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Gateway.ListenAddress) == "" {
		add("gateway: ListenAddress is required")
	}
	if c.Gateway.RateLimitPerSecond < 0 || c.Gateway.RateLimitBurst < 0 {
		add("gateway: rate limits must not be negative")
	}
	if c.Gateway.RateLimitPerSecond > 0 && c.Gateway.RateLimitBurst == 0 {
		add("gateway: RateLimitBurst must be positive when RateLimitPerSecond is set")
	}

	rate, err := ParseAmount(c.Ledger.DefaultFeeRate)
	if err != nil {
		add("ledger: DefaultFeeRate: %v", err)
	} else if rate.Cmp(feeRateScale) > 0 {
		add("ledger: DefaultFeeRate exceeds 1e18")
	}
	for name, raw := range map[string]string{
		"ledger.Owner":           c.Ledger.Owner,
		"ledger.FeeClaimant":     c.Ledger.FeeClaimant,
		"oracle.Owner":           c.Oracle.Owner,
		"oracle.VerifierAddress": c.Oracle.VerifierAddress,
		"oracle.HostIdentity":    c.Oracle.HostIdentity,
	} {
		if _, err := ParsePrincipal(raw); err != nil {
			add("%s: %v", name, err)
		}
	}
	for i, raw := range c.Oracle.Asserters {
		if _, err := ParsePrincipal(raw); err != nil || strings.TrimSpace(raw) == "" {
			add("oracle.Asserters[%d]: invalid address %q", i, raw)
		}
	}

	if c.Oracle.LivenessSec == 0 {
		add("oracle: Liveness must be positive")
	}
	if strings.TrimSpace(c.Oracle.BondCurrency) == "" {
		add("oracle: BondCurrency is required")
	}
	switch c.Oracle.Host {
	case "local":
		if _, err := ParseAmount(c.Oracle.Local.MinimumBond); err != nil {
			add("oracle.local: MinimumBond: %v", err)
		}
	case "evm":
		if strings.TrimSpace(c.Oracle.EVM.RPCURL) == "" {
			add("oracle.evm: RPCURL is required")
		}
		if strings.TrimSpace(c.Oracle.EVM.OracleAddress) == "" {
			add("oracle.evm: OracleAddress is required")
		}
		if _, ok := c.Oracle.EVM.Currencies[c.Oracle.BondCurrency]; !ok {
			add("oracle.evm: no token configured for bond currency %s", c.Oracle.BondCurrency)
		}
	default:
		add("oracle: unsupported host %q", c.Oracle.Host)
	}

	for i, p := range c.Points {
		if strings.TrimSpace(p.Asset) == "" {
			add("points[%d]: Asset is required", i)
		}
		if _, err := ParsePrincipal(p.Provider); err != nil || strings.TrimSpace(p.Provider) == "" {
			add("points[%d]: invalid provider %q", i, p.Provider)
		}
		if _, err := ParseAmount(p.Cap); err != nil {
			add("points[%d]: %v", i, err)
		}
	}
	for i, alloc := range c.Genesis {
		if _, err := ParsePrincipal(alloc.Address); err != nil || strings.TrimSpace(alloc.Address) == "" {
			add("genesis[%d]: invalid address %q", i, alloc.Address)
		}
		if strings.TrimSpace(alloc.Asset) == "" {
			add("genesis[%d]: Asset is required", i)
		}
		if _, err := ParseAmount(alloc.Amount); err != nil {
			add("genesis[%d]: %v", i, err)
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		add("telemetry: SampleRatio must be within [0,1]")
	}
	return errors.Join(errs...)
}
