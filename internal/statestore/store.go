// Package statestore implements the persistent, crash-safe mapping from
// address to AccountState plus the process-wide total-supply scalar, and
// the atomic ChangeSet-apply path that is the heart of the execution core
// (spec §4.3).
package statestore

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/errs"
)

// Store is the persistent state layer: an embedded ordered key-value
// store (pebble) fronted by a journal for crash-safe atomic commits, and
// an LRU cache for hot account reads. Store is safe for concurrent reads;
// writes (Apply) are serialized by mu, which also gives readers the
// consistent-point-in-time view spec §5 requires for any single read.
type Store struct {
	mu      sync.RWMutex
	db      kvHandle
	journal *journal
	cache   *lru.Cache[address.Address, account.State]
	logger  log.Logger
	closed  bool
}

// AccountCacheSize is the default number of hot accounts kept in the LRU
// read cache in front of pebble.
const AccountCacheSize = 4096

// Open opens (or creates) the state store rooted at dataDir, replaying any
// pending journal entry left by a crash before returning. dataDir must
// contain (or will be given) "state/" and "journal/" subdirectories, per
// spec §6's on-disk layout.
func Open(dataDir string, logger log.Logger) (*Store, error) {
	db, err := openPebble(dataDir + "/state")
	if err != nil {
		return nil, fmt.Errorf("statestore: open pebble: %w", err)
	}
	j, err := openJournal(dataDir+"/journal", logger)
	if err != nil {
		db.close()
		return nil, err
	}
	cache, err := lru.New[address.Address, account.State](AccountCacheSize)
	if err != nil {
		db.close()
		return nil, fmt.Errorf("statestore: create account cache: %w", err)
	}
	s := &Store{db: db, journal: j, cache: cache, logger: logger}

	if err := replayWithRetry(j, s.commit); err != nil {
		db.close()
		return nil, fmt.Errorf("statestore: journal replay: %w", err)
	}
	return s, nil
}

// Close releases the underlying key-value store. Subsequent calls to any
// Store method fail with ErrStoreClosed rather than touching a closed db
// handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "closing store")
	}
	s.closed = true
	return s.db.close()
}

// ReadAccount returns addr's account, or a zero-valued account if addr
// has never been referenced. Never fails outside of I/O errors.
func (s *Store) ReadAccount(addr address.Address) (account.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return account.State{}, errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "reading account %s", addr)
	}
	return s.readAccountLocked(addr)
}

func (s *Store) readAccountLocked(addr address.Address) (account.State, error) {
	if cached, ok := s.cache.Get(addr); ok {
		return cached.Clone(), nil
	}
	raw, found, err := s.db.get(accountKey(addr))
	if err != nil {
		return account.State{}, errs.Wrap(errs.KindStoreIoError, err, "reading account %s", addr)
	}
	if !found {
		return account.New(), nil
	}
	st, err := account.Decode(raw)
	if err != nil {
		return account.State{}, errs.Wrap(errs.KindStoreIoError, err, "decoding account %s", addr)
	}
	s.cache.Add(addr, st.Clone())
	return st, nil
}

// TotalSupply returns the process-wide sum of all balances.
func (s *Store) TotalSupply() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "reading total supply")
	}
	return s.totalSupplyLocked()
}

func (s *Store) totalSupplyLocked() (uint64, error) {
	raw, found, err := s.db.get(totalSupplyKey)
	if err != nil {
		return 0, errs.Wrap(errs.KindStoreIoError, err, "reading total supply")
	}
	if !found {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, errs.New(errs.KindStoreIoError, "total supply record has wrong length %d", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// ValidateSequence succeeds iff addr's current sequence equals expected.
// For a nonexistent account, only expected == 0 succeeds (spec's strict
// interpretation, see DESIGN.md's Open Question resolutions).
func (s *Store) ValidateSequence(addr address.Address, expected uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "validating sequence for %s", addr)
	}
	acc, err := s.readAccountLocked(addr)
	if err != nil {
		return err
	}
	if acc.Sequence != expected {
		return errs.New(errs.KindSequenceMismatch, "account %s has sequence %d, expected %d", addr, acc.Sequence, expected).
			WithContext("address", addr.String(), "have", acc.Sequence, "expected", expected)
	}
	return nil
}

// Apply is the atomic write path: it validates cs against every invariant
// in spec §4.3 steps 2-4, then persists every resulting mutation via the
// journal-then-batch discipline in step 5, or aborts leaving the store
// byte-for-byte unchanged.
func (s *Store) Apply(cs *changeset.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "applying changeset")
	}
	if !cs.Success {
		return nil
	}
	if err := s.journal.write(cs); err != nil {
		return errs.Wrap(errs.KindStoreIoError, err, "journaling changeset")
	}
	if err := s.commit(cs); err != nil {
		// A validation failure (InsufficientBalance, BalanceOverflow, and
		// the like) means the journaled entry can never land: discard it
		// now rather than leave it to poison the next Open()'s replay,
		// which would retry and fail identically forever. Only a genuine
		// StoreIoError (a transient I/O fault) is worth leaving in place
		// for replay to retry.
		if kind, ok := errs.KindOf(err); !ok || kind != errs.KindStoreIoError {
			if truncErr := s.journal.truncate(); truncErr != nil {
				return errs.Wrap(errs.KindStoreIoError, truncErr, "truncating journal after rejected commit")
			}
		}
		return err
	}
	if err := s.journal.truncate(); err != nil {
		return errs.Wrap(errs.KindStoreIoError, err, "truncating journal")
	}
	return nil
}

// commit performs the validate-then-batch-write half of Apply. It is
// reused by journal replay at startup, since replaying a journaled entry
// is exactly re-running the same commit the crash interrupted.
func (s *Store) commit(cs *changeset.ChangeSet) error {
	if !cs.Success {
		return nil
	}

	supplyDelta := new(big.Int)
	for _, ac := range cs.PerAccount {
		supplyDelta.Add(supplyDelta, ac.BalanceDelta)
	}

	type staged struct {
		addr    address.Address
		account account.State
	}
	plan := make([]staged, 0, len(cs.PerAccount))

	addrs := make([]address.Address, 0, len(cs.PerAccount))
	for a := range cs.PerAccount {
		addrs = append(addrs, a)
	}
	sortAddresses(addrs)

	for _, addr := range addrs {
		change := cs.PerAccount[addr]
		current, err := s.readAccountLocked(addr)
		if err != nil {
			return err
		}

		if change.BalanceDelta.Sign() < 0 {
			need := new(big.Int).Neg(change.BalanceDelta)
			have := new(big.Int).SetUint64(current.Balance)
			if need.Cmp(have) > 0 {
				return errs.New(errs.KindInsufficientBalance, "account %s needs %s, has %d", addr, need, current.Balance).
					WithContext("address", addr.String(), "needed", need.String(), "have", current.Balance)
			}
		}

		newBalance := new(big.Int).Add(new(big.Int).SetUint64(current.Balance), change.BalanceDelta)
		if newBalance.Sign() < 0 || newBalance.BitLen() > 64 {
			return errs.New(errs.KindBalanceOverflow, "balance overflow for account %s", addr).
				WithContext("address", addr.String())
		}

		newSequence, overflowed := addUint64Overflow(current.Sequence, change.SequenceIncrement)
		if overflowed {
			return errs.New(errs.KindSequenceOverflow, "sequence overflow for account %s", addr).
				WithContext("address", addr.String())
		}

		next := current.Clone()
		next.Balance = newBalance.Uint64()
		next.Sequence = newSequence
		for _, name := range change.ModulesAdded {
			if next.HasModule(name) {
				return errs.New(errs.KindModuleAlreadyPublished, "module %q already published to %s", name, addr).
					WithContext("address", addr.String(), "module", name)
			}
			if next.Modules == nil {
				next.Modules = make(map[string]struct{})
			}
			next.Modules[name] = struct{}{}
		}
		plan = append(plan, staged{addr: addr, account: next})
	}

	currentSupply, err := s.totalSupplyLocked()
	if err != nil {
		return err
	}
	newSupply := currentSupply
	switch supplyDelta.Sign() {
	case 1:
		sum := new(big.Int).Add(new(big.Int).SetUint64(currentSupply), supplyDelta)
		if sum.BitLen() > 64 {
			return errs.New(errs.KindSupplyOverflow, "total supply overflow")
		}
		newSupply = sum.Uint64()
	case -1:
		dec := new(big.Int).Neg(supplyDelta)
		if dec.Cmp(new(big.Int).SetUint64(currentSupply)) > 0 {
			return errs.New(errs.KindSupplyUnderflow, "total supply underflow")
		}
		newSupply = currentSupply - dec.Uint64()
	}

	batch := s.db.newBatch()
	for _, st := range plan {
		batch.set(accountKey(st.addr), account.Encode(st.account))
	}
	supplyBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(supplyBuf, newSupply)
	batch.set(totalSupplyKey, supplyBuf)
	if err := batch.commitSync(); err != nil {
		return errs.Wrap(errs.KindStoreIoError, err, "committing batch")
	}

	for _, st := range plan {
		s.cache.Add(st.addr, st.account.Clone())
	}
	return nil
}

func addUint64Overflow(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}
