package oraclerelayd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rewardhub/gateway"
	telemetry "rewardhub/observability/otel"
)

// LogSource is the subset of ethclient.Client the watcher needs.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// Sink receives decoded callbacks.
type Sink interface {
	Deliver(ctx context.Context, cb Callback) error
}

// Watcher scans the oracle contract for settlement and dispute events and
// forwards each one to the hub exactly once.
type Watcher struct {
	source        LogSource
	sink          Sink
	store         *Store
	oracle        ethcommon.Address
	abi           abi.ABI
	startBlock    uint64
	confirmations uint64
	batch         uint64
	logger        *slog.Logger

	delivered metric.Int64Counter
	rejected  metric.Int64Counter
	failures  metric.Int64Counter
}

// WatcherConfig collects the scan parameters.
type WatcherConfig struct {
	Oracle        ethcommon.Address
	ABI           abi.ABI
	StartBlock    uint64
	Confirmations uint64
	BatchBlocks   uint64
}

func NewWatcher(source LogSource, sink Sink, store *Store, cfg WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if source == nil || sink == nil || store == nil {
		return nil, errors.New("relay: source, sink and store are required")
	}
	for _, name := range []string{"AssertionSettled", "AssertionDisputed"} {
		if _, ok := cfg.ABI.Events[name]; !ok {
			return nil, fmt.Errorf("relay: abi is missing %s", name)
		}
	}
	if cfg.BatchBlocks == 0 {
		cfg.BatchBlocks = 2_000
	}
	if logger == nil {
		logger = slog.Default()
	}
	meter := telemetry.Meter("relay")
	delivered, err := meter.Int64Counter("relay_callbacks_delivered_total", metric.WithDescription("Oracle callbacks accepted by the hub"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("relay_callbacks_rejected_total", metric.WithDescription("Oracle callbacks the hub refused permanently"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("relay_scan_failures_total", metric.WithDescription("Scan rounds that ended in an error"))
	if err != nil {
		return nil, err
	}
	return &Watcher{
		source:        source,
		sink:          sink,
		store:         store,
		oracle:        cfg.Oracle,
		abi:           cfg.ABI,
		startBlock:    cfg.StartBlock,
		confirmations: cfg.Confirmations,
		batch:         cfg.BatchBlocks,
		logger:        logger,
		delivered:     delivered,
		rejected:      rejected,
		failures:      failures,
	}, nil
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.failures.Add(ctx, 1)
			w.logger.Warn("relay scan failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll scans every confirmed block not yet covered by the cursor. The cursor
// only advances past a range once every callback in it has been delivered.
func (w *Watcher) Poll(ctx context.Context) error {
	head, err := w.source.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("block number: %w", err)
	}
	if head < w.confirmations {
		return nil
	}
	safe := head - w.confirmations
	next, ok, err := w.store.NextBlock()
	if err != nil {
		return err
	}
	if !ok {
		next = w.startBlock
	}
	for next <= safe {
		to := next + w.batch - 1
		if to > safe {
			to = safe
		}
		if err := w.scanRange(ctx, next, to); err != nil {
			return err
		}
		if err := w.store.SetNextBlock(to + 1); err != nil {
			return err
		}
		next = to + 1
	}
	return nil
}

func (w *Watcher) scanRange(ctx context.Context, from, to uint64) error {
	settled := w.abi.Events["AssertionSettled"].ID
	disputed := w.abi.Events["AssertionDisputed"].ID
	logs, err := w.source.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []ethcommon.Address{w.oracle},
		Topics:    [][]ethcommon.Hash{{settled, disputed}},
	})
	if err != nil {
		return fmt.Errorf("filter logs %d-%d: %w", from, to, err)
	}
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		cb, err := w.decode(lg)
		if err != nil {
			w.logger.Warn("skipping undecodable oracle log",
				slog.String("tx", lg.TxHash.Hex()),
				slog.Uint64("index", uint64(lg.Index)),
				slog.Any("error", err))
			continue
		}
		if err := w.forward(ctx, cb); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) forward(ctx context.Context, cb Callback) error {
	done, err := w.store.Delivered(cb.Key())
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	attrs := metric.WithAttributes(attribute.String("type", cb.Type))
	err = w.sink.Deliver(ctx, cb)
	switch {
	case err == nil:
		w.delivered.Add(ctx, 1, attrs)
		w.logger.Info("callback delivered", slog.String("type", cb.Type), slog.String("assertion", cb.AssertionID))
	case errors.Is(err, ErrRejected):
		w.rejected.Add(ctx, 1, attrs)
		w.logger.Warn("callback rejected", slog.String("type", cb.Type), slog.String("assertion", cb.AssertionID), slog.Any("error", err))
	default:
		return fmt.Errorf("deliver %s: %w", cb.Key(), err)
	}
	return w.store.MarkDelivered(cb.Key(), time.Now())
}

func (w *Watcher) decode(lg gethtypes.Log) (Callback, error) {
	if len(lg.Topics) < 2 {
		return Callback{}, errors.New("missing assertion topic")
	}
	id := lg.Topics[1].Hex()
	switch lg.Topics[0] {
	case w.abi.Events["AssertionDisputed"].ID:
		return Callback{Type: gateway.CallbackDisputed, AssertionID: id}, nil
	case w.abi.Events["AssertionSettled"].ID:
		var body struct {
			Disputed             bool
			SettlementResolution bool
			SettleCaller         ethcommon.Address
		}
		if err := w.abi.UnpackIntoInterface(&body, "AssertionSettled", lg.Data); err != nil {
			return Callback{}, err
		}
		return Callback{Type: gateway.CallbackResolved, AssertionID: id, Truthful: body.SettlementResolution}, nil
	default:
		return Callback{}, fmt.Errorf("unexpected topic %s", lg.Topics[0].Hex())
	}
}
