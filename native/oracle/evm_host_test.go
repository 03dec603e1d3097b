package oracle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

const testOracleAddress = "0x9923D42eF695B5dd9911D05Ac944d4cAca3c4EAB"

func TestOracleABIParses(t *testing.T) {
	parsed, err := ParseOracleABI()
	require.NoError(t, err)
	for _, method := range []string{"assertTruth", "getMinimumBond", "defaultIdentifier"} {
		_, ok := parsed.Methods[method]
		require.Truef(t, ok, "missing method %s", method)
	}
	for _, event := range []string{"AssertionMade", "AssertionDisputed", "AssertionSettled"} {
		_, ok := parsed.Events[event]
		require.Truef(t, ok, "missing event %s", event)
	}
}

func TestNewEVMHostValidatesConfig(t *testing.T) {
	_, err := NewEVMHost(nil, nil, EVMHostConfig{OracleAddress: "not-an-address"})
	require.Error(t, err)

	_, err = NewEVMHost(nil, nil, EVMHostConfig{
		OracleAddress: testOracleAddress,
		Currencies:    map[string]string{"BOND": "0x123"},
	})
	require.Error(t, err)

	host, err := NewEVMHost(nil, nil, EVMHostConfig{OracleAddress: testOracleAddress})
	require.NoError(t, err)
	require.Equal(t, [20]byte(ethcommon.HexToAddress(testOracleAddress)), host.Identity())
}

func TestAssertionIDFromReceipt(t *testing.T) {
	host, err := NewEVMHost(nil, nil, EVMHostConfig{OracleAddress: testOracleAddress})
	require.NoError(t, err)
	topic := host.abi.Events["AssertionMade"].ID
	want := ethcommon.HexToHash("0xabc123")

	receipt := &gethtypes.Receipt{Logs: []*gethtypes.Log{
		{Address: ethcommon.HexToAddress("0x01"), Topics: []ethcommon.Hash{topic, ethcommon.HexToHash("0xdead")}},
		{Address: host.address, Topics: []ethcommon.Hash{ethcommon.HexToHash("0x02"), ethcommon.HexToHash("0xbeef")}},
		{Address: host.address, Topics: []ethcommon.Hash{topic, want}},
	}}
	id, err := host.assertionIDFromReceipt(receipt)
	require.NoError(t, err)
	require.Equal(t, AssertionID(want), id)

	_, err = host.assertionIDFromReceipt(&gethtypes.Receipt{})
	require.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	_, err := parsePrivateKey("")
	require.Error(t, err)
	key, err := parsePrivateKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	require.NotNil(t, key)
}

// receiptBackend serves receipts from a map; everything else is unused.
type receiptBackend struct {
	bind.ContractBackend
	mu       sync.Mutex
	receipts map[ethcommon.Hash]*gethtypes.Receipt
}

func (b *receiptBackend) TransactionReceipt(_ context.Context, hash ethcommon.Hash) (*gethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *receiptBackend) put(receipt *gethtypes.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receipts[receipt.TxHash] = receipt
}

func TestLateReceiptIsUnconfirmedThenResolvable(t *testing.T) {
	backend := &receiptBackend{receipts: make(map[ethcommon.Hash]*gethtypes.Receipt)}
	host, err := NewEVMHost(backend, nil, EVMHostConfig{
		OracleAddress:  testOracleAddress,
		ReceiptTimeout: 30 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	})
	require.NoError(t, err)
	ctx := context.Background()
	hash := ethcommon.HexToHash("0x5e1f")

	_, err = host.confirmSubmission(ctx, hash)
	var unconfirmed *UnconfirmedError
	require.ErrorAs(t, err, &unconfirmed)
	require.Equal(t, [32]byte(hash), unconfirmed.TxHash)
	require.ErrorIs(t, err, ErrSubmissionUnconfirmed)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, found, err := host.LookupSubmission(ctx, hash)
	require.NoError(t, err)
	require.False(t, found)

	want := ethcommon.HexToHash("0xa55e")
	backend.put(&gethtypes.Receipt{
		TxHash: hash,
		Status: gethtypes.ReceiptStatusSuccessful,
		Logs: []*gethtypes.Log{
			{Address: host.address, Topics: []ethcommon.Hash{host.abi.Events["AssertionMade"].ID, want}},
		},
	})
	id, found, err := host.LookupSubmission(ctx, hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, AssertionID(want), id)

	reverted := ethcommon.HexToHash("0xbad")
	backend.put(&gethtypes.Receipt{TxHash: reverted, Status: gethtypes.ReceiptStatusFailed})
	_, found, err = host.LookupSubmission(ctx, reverted)
	require.ErrorIs(t, err, ErrSubmissionReverted)
	require.False(t, found)
}

func TestSubmitFailureBeforeSendIsNotUnconfirmed(t *testing.T) {
	host, err := NewEVMHost(nil, nil, EVMHostConfig{OracleAddress: testOracleAddress})
	require.NoError(t, err)
	_, err = host.SubmitAssertion(context.Background(), AssertionRequest{Currency: "BOND"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubmissionUnconfirmed)
}
