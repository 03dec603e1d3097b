package oracle

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EVMHostConfig configures the on-chain optimistic oracle adapter.
type EVMHostConfig struct {
	RPCURL            string
	OracleAddress     string
	PrivateKeyHex     string
	CallbackRecipient string
	// Currencies maps ledger asset ids to ERC-20 bond token addresses.
	Currencies     map[string]string
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
}

// EVMBackend is the subset of ethclient used by EVMHost.
type EVMBackend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*gethtypes.Receipt, error)
}

var _ SubmissionResolver = (*EVMHost)(nil)

// EVMHost submits assertions to an UMA Optimistic Oracle V3 style contract.
// Its Identity is the oracle contract address.
type EVMHost struct {
	backend      EVMBackend
	contract     *bind.BoundContract
	abi          abi.ABI
	address      ethcommon.Address
	callback     ethcommon.Address
	currencies   map[string]ethcommon.Address
	transactor   *bind.TransactOpts
	timeout      time.Duration
	pollInterval time.Duration
}

// ParseOracleABI parses OptimisticOracleABI.
func ParseOracleABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(OptimisticOracleABI))
}

// DialEVMHost connects to the RPC endpoint and prepares the transactor.
func DialEVMHost(ctx context.Context, cfg EVMHostConfig) (*EVMHost, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, fmt.Errorf("evm host: rpc url is required")
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm host: dial rpc: %w", err)
	}
	key, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm host: fetch chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("evm host: transactor: %w", err)
	}
	return NewEVMHost(client, opts, cfg)
}

// NewEVMHost builds a host over an existing backend. transactor may be nil for
// read-only use.
func NewEVMHost(backend EVMBackend, transactor *bind.TransactOpts, cfg EVMHostConfig) (*EVMHost, error) {
	if !ethcommon.IsHexAddress(cfg.OracleAddress) {
		return nil, fmt.Errorf("evm host: invalid oracle address %q", cfg.OracleAddress)
	}
	parsed, err := ParseOracleABI()
	if err != nil {
		return nil, fmt.Errorf("evm host: parse abi: %w", err)
	}
	address := ethcommon.HexToAddress(cfg.OracleAddress)
	currencies := make(map[string]ethcommon.Address, len(cfg.Currencies))
	for asset, token := range cfg.Currencies {
		if !ethcommon.IsHexAddress(token) {
			return nil, fmt.Errorf("evm host: invalid token address for %s", asset)
		}
		currencies[asset] = ethcommon.HexToAddress(token)
	}
	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &EVMHost{
		backend:      backend,
		contract:     bind.NewBoundContract(address, parsed, backend, backend, backend),
		abi:          parsed,
		address:      address,
		callback:     ethcommon.HexToAddress(cfg.CallbackRecipient),
		currencies:   currencies,
		transactor:   transactor,
		timeout:      timeout,
		pollInterval: poll,
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("evm host: private key is required")
	}
	key, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("evm host: parse private key: %w", err)
	}
	return key, nil
}

func (h *EVMHost) Identity() [20]byte { return h.address }

func (h *EVMHost) currency(asset string) (ethcommon.Address, error) {
	token, ok := h.currencies[asset]
	if !ok {
		return ethcommon.Address{}, fmt.Errorf("evm host: no bond token configured for %s", asset)
	}
	return token, nil
}

func (h *EVMHost) MinimumBond(ctx context.Context, currency string) (*big.Int, error) {
	token, err := h.currency(currency)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getMinimumBond", token); err != nil {
		return nil, fmt.Errorf("evm host: getMinimumBond: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("evm host: unexpected getMinimumBond output")
	}
	bond, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("evm host: unexpected getMinimumBond type %T", out[0])
	}
	return bond, nil
}

func (h *EVMHost) defaultIdentifier(ctx context.Context) ([32]byte, error) {
	var out []interface{}
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, "defaultIdentifier"); err != nil {
		return [32]byte{}, fmt.Errorf("evm host: defaultIdentifier: %w", err)
	}
	if len(out) != 1 {
		return [32]byte{}, fmt.Errorf("evm host: unexpected defaultIdentifier output")
	}
	id, ok := out[0].([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("evm host: unexpected defaultIdentifier type %T", out[0])
	}
	return id, nil
}

// SubmitAssertion sends assertTruth and waits for the receipt to read the
// assertion id from the AssertionMade log.
func (h *EVMHost) SubmitAssertion(ctx context.Context, req AssertionRequest) (AssertionID, error) {
	if h.transactor == nil {
		return AssertionID{}, fmt.Errorf("evm host: read-only host cannot submit")
	}
	token, err := h.currency(req.Currency)
	if err != nil {
		return AssertionID{}, err
	}
	identifier, err := h.defaultIdentifier(ctx)
	if err != nil {
		return AssertionID{}, err
	}
	opts := *h.transactor
	opts.Context = ctx
	tx, err := h.contract.Transact(&opts, "assertTruth",
		req.Claim,
		ethcommon.Address(req.Asserter),
		h.callback,
		ethcommon.Address{},
		req.Liveness,
		token,
		cloneBigInt(req.Bond),
		identifier,
		[32]byte{},
	)
	if err != nil {
		return AssertionID{}, fmt.Errorf("evm host: assertTruth: %w", err)
	}
	return h.confirmSubmission(ctx, tx.Hash())
}

// confirmSubmission waits for the receipt of a sent assertTruth. Once the
// transaction is out, any failure short of a reverted receipt is reported as
// *UnconfirmedError so the caller keeps the bond reserved.
func (h *EVMHost) confirmSubmission(ctx context.Context, hash ethcommon.Hash) (AssertionID, error) {
	receipt, err := h.waitForReceipt(ctx, hash)
	if err != nil {
		return AssertionID{}, &UnconfirmedError{TxHash: hash, Err: err}
	}
	return h.submissionResult(receipt)
}

func (h *EVMHost) submissionResult(receipt *gethtypes.Receipt) (AssertionID, error) {
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return AssertionID{}, fmt.Errorf("%w: assertTruth in %s", ErrSubmissionReverted, receipt.TxHash.Hex())
	}
	return h.assertionIDFromReceipt(receipt)
}

// LookupSubmission reads the receipt of an earlier unconfirmed submission.
func (h *EVMHost) LookupSubmission(ctx context.Context, txHash [32]byte) (AssertionID, bool, error) {
	receipt, err := h.backend.TransactionReceipt(ctx, ethcommon.Hash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return AssertionID{}, false, nil
	}
	if err != nil {
		return AssertionID{}, false, fmt.Errorf("evm host: fetch receipt: %w", err)
	}
	if receipt == nil {
		return AssertionID{}, false, nil
	}
	id, err := h.submissionResult(receipt)
	if err != nil {
		return AssertionID{}, false, err
	}
	return id, true, nil
}

func (h *EVMHost) assertionIDFromReceipt(receipt *gethtypes.Receipt) (AssertionID, error) {
	topic := h.abi.Events["AssertionMade"].ID
	for _, log := range receipt.Logs {
		if log == nil || log.Address != h.address || len(log.Topics) < 2 {
			continue
		}
		if log.Topics[0] != topic {
			continue
		}
		return AssertionID(log.Topics[1]), nil
	}
	return AssertionID{}, fmt.Errorf("evm host: AssertionMade log missing from %s", receipt.TxHash.Hex())
}

func (h *EVMHost) waitForReceipt(ctx context.Context, hash ethcommon.Hash) (*gethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := h.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("evm host: fetch receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("evm host: waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
