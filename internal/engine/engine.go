// Package engine orchestrates one transaction end-to-end: signature
// verification, the exclusive writer lease, sequence and fee validation,
// gas-metered VM invocation, and the ChangeSet apply — exactly the
// operation the execution core exists to serialize (spec §4.5).
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/errs"
	"github.com/kanari-network/kanari-core/internal/gas"
	"github.com/kanari-network/kanari-core/internal/metrics"
	"github.com/kanari-network/kanari-core/internal/txn"
	"github.com/kanari-network/kanari-core/internal/vmboundary"
)

// Store is the subset of *statestore.Store the engine depends on. Kept as
// an interface (the teacher's capability-set convention, spec §9) so
// tests can exercise Submit against an in-memory fake instead of a real
// pebble-backed store.
type Store interface {
	ReadAccount(addr address.Address) (account.State, error)
	TotalSupply() (uint64, error)
	ValidateSequence(addr address.Address, expected uint64) error
	Apply(cs *changeset.ChangeSet) error
}

// Boundary is the subset of *vmboundary.Boundary the engine depends on.
type Boundary interface {
	Run(ctx context.Context, tx txn.Transaction, sender address.Address, meter *gas.Meter, view vmboundary.ReadView) *changeset.ChangeSet
}

// TxReceipt is Engine.Submit's result: the transaction's hash, whether it
// committed, how much gas it consumed, and the error kind on failure.
type TxReceipt struct {
	Hash    txn.Hash
	Success bool
	GasUsed uint64
	Error   string
}

// Stats is a snapshot of the Engine's local block-clock counters. These
// are not consensus artifacts; they advance once per successfully
// committed transaction (spec §3).
type Stats struct {
	BlockHeight      uint64
	TxCount          uint64
	TotalGasConsumed uint64
}

// Engine is the sole orchestrator of state-mutating operations. Submit
// calls are serialized by lease, a plain mutex rather than a channel
// semaphore since at most one holder ever exists (spec §5, §8 concurrency
// model). Read-only accessors below never take lease.
type Engine struct {
	lease    sync.Mutex
	store    Store
	boundary Boundary
	treasury address.Address
	logger   log.Logger
	metrics  *metrics.Registry

	blockHeight      atomic.Uint64
	txCount          atomic.Uint64
	totalGasConsumed atomic.Uint64
}

// New constructs an Engine. treasury is the only signer Mint transactions
// may originate from (SPEC_FULL.md §7 Open Question resolution); a
// signer's address is derived by hashing its public key, the same way the
// teacher's crypto package derives an account address from a key.
func New(store Store, boundary Boundary, treasury address.Address, logger log.Logger, reg *metrics.Registry) *Engine {
	return &Engine{store: store, boundary: boundary, treasury: treasury, logger: logger, metrics: reg}
}

// DeriveSignerAddress hashes a public key into the Address that signed a
// transaction, used to authorize Mint (which carries no sender field of
// its own) against the configured treasury principal.
func DeriveSignerAddress(publicKey []byte) address.Address {
	digest := sha3.Sum256(publicKey)
	var a address.Address
	copy(a[:], digest[:])
	return a
}

// Submit runs signed_tx through the ten-step sequence in spec §4.5 and
// returns its receipt. The only error Submit itself returns (as opposed
// to reporting inside the receipt) is an internal StoreIoError: every
// domain failure surfaces as a non-nil TxReceipt.Error with Success=false.
func (e *Engine) Submit(ctx context.Context, stx txn.SignedTransaction) (TxReceipt, error) {
	hash := txn.ComputeHash(stx)

	if !txn.VerifySignature(stx) {
		e.incFailed()
		e.warn("rejected transaction", "hash", hash.String(), "kind", errs.KindInvalidSignature)
		return TxReceipt{Hash: hash, Error: string(errs.KindInvalidSignature)}, nil
	}

	leaseStart := time.Now()
	e.lease.Lock()
	defer e.lease.Unlock()
	if e.metrics != nil {
		e.metrics.WriterLeaseWait.Observe(time.Since(leaseStart).Seconds())
		e.metrics.TxSubmitted.Inc()
	}

	sender := stx.Tx.Sender()
	if stx.Tx.Kind() == txn.KindMint {
		if DeriveSignerAddress(stx.PublicKey) != e.treasury {
			e.incFailed()
			e.warn("rejected transaction", "hash", hash.String(), "kind", errs.KindUnauthorizedMint)
			return TxReceipt{Hash: hash, Error: string(errs.KindUnauthorizedMint)}, nil
		}
		// Mint carries no sender field of its own; the treasury account is
		// the one that pays the fee and advances its own sequence.
		sender = e.treasury
	}

	if err := e.store.ValidateSequence(sender, stx.Tx.Sequence()); err != nil {
		e.incFailed()
		e.warn("rejected transaction", "hash", hash.String(), "kind", errMessage(err))
		return TxReceipt{Hash: hash, Error: errMessage(err)}, nil
	}

	maxFee := new(uint256.Int).Mul(uint256.NewInt(stx.Tx.GasLimit()), uint256.NewInt(stx.Tx.GasPrice()))
	senderAccount, err := e.store.ReadAccount(sender)
	if err != nil {
		return TxReceipt{}, err
	}
	if maxFee.Cmp(uint256.NewInt(senderAccount.Balance)) > 0 {
		e.incFailed()
		e.warn("rejected transaction", "hash", hash.String(), "kind", errs.KindInsufficientFee)
		return TxReceipt{Hash: hash, Error: string(errs.KindInsufficientFee)}, nil
	}

	meter := gas.New(stx.Tx.GasLimit(), stx.Tx.GasPrice())
	cs := e.boundary.Run(ctx, stx.Tx, sender, meter, e.store)

	if !cs.Success {
		if err := e.settleFailedFee(sender, meter, cs); err != nil {
			return TxReceipt{}, err
		}
		e.incFailed()
		e.warn("transaction execution failed", "hash", hash.String(), "error", cs.ErrorMessage, "gas_used", cs.GasUsed)
		return TxReceipt{Hash: hash, GasUsed: cs.GasUsed, Error: cs.ErrorMessage}, nil
	}

	applyStart := time.Now()
	applyErr := e.store.Apply(cs)
	if e.metrics != nil {
		e.metrics.ApplyDuration.Observe(time.Since(applyStart).Seconds())
	}
	if err := applyErr; err != nil {
		e.incFailed()
		e.warn("apply rejected changeset", "hash", hash.String(), "error", errMessage(err))
		return TxReceipt{Hash: hash, GasUsed: cs.GasUsed, Error: errMessage(err)}, nil
	}

	e.txCount.Add(1)
	e.totalGasConsumed.Add(cs.GasUsed)
	e.blockHeight.Add(1)
	if e.metrics != nil {
		e.metrics.TxCommitted.Inc()
		e.metrics.GasConsumedTotal.Add(float64(cs.GasUsed))
	}
	if e.logger != nil {
		e.logger.Debug("transaction committed", "hash", hash.String(), "gas_used", cs.GasUsed, "block_height", e.blockHeight.Load())
	}

	return TxReceipt{Hash: hash, Success: true, GasUsed: cs.GasUsed}, nil
}

func (e *Engine) warn(msg string, ctx ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, ctx...)
	}
}

// settleFailedFee applies the system-authored burn ChangeSet for a
// transaction that consumed gas but did not commit (SPEC_FULL.md §7: gas
// fee settlement on failure resolved as burn, not treasury credit). The
// sender's affordability was already checked against the maximum possible
// fee before the VM ran, so gas_used × gas_price can never exceed their
// balance here.
func (e *Engine) settleFailedFee(sender address.Address, meter *gas.Meter, failed *changeset.ChangeSet) error {
	if failed.GasUsed == 0 {
		return nil
	}
	fee := meter.CostInFeeUnits()
	if !fee.IsUint64() {
		return errs.Wrap(errs.KindStoreIoError, errs.ErrGasUintOverflow, "fee settlement amount exceeds uint64 range")
	}
	burn := changeset.New()
	burn.RecordBurn(sender, fee.Uint64())
	burn.RecordSequenceIncrement(sender)
	burn.MarkSuccess()
	if err := e.store.Apply(burn); err != nil {
		return errs.Wrap(errs.KindStoreIoError, err, "settling failed-transaction fee")
	}
	return nil
}

func (e *Engine) incFailed() {
	if e.metrics != nil {
		e.metrics.TxFailed.Inc()
	}
}

func errMessage(err error) string {
	if kind, ok := errs.KindOf(err); ok {
		return string(kind)
	}
	return err.Error()
}
