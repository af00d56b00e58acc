package statestore

import (
	"math/big"
	"testing"

	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
)

func testLogger() log.Logger {
	l := log.New()
	l.SetHandler(log.DiscardHandler())
	return l
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addr(b byte) address.Address {
	a, _ := address.FromBytes([]byte{b})
	return a
}

func successSet(per map[address.Address]*changeset.AccountChange) *changeset.ChangeSet {
	cs := changeset.New()
	cs.Success = true
	for a, c := range per {
		cs.PerAccount[a] = c
	}
	return cs
}

func delta(v int64) *big.Int { return big.NewInt(v) }

// Scenario 1: genesis mint.
func TestApplyGenesisMint(t *testing.T) {
	s := openTestStore(t)
	aa := addr(0xAA)
	want, _ := new(big.Int).SetString("10000000000000000000", 10)
	cs := successSet(map[address.Address]*changeset.AccountChange{
		aa: {BalanceDelta: want, SequenceIncrement: 0},
	})

	if err := s.Apply(cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := s.ReadAccount(aa)
	if err != nil {
		t.Fatalf("ReadAccount: %v", err)
	}
	wantBalance := want.Uint64()
	if got.Balance != wantBalance {
		t.Fatalf("balance = %d, want %d", got.Balance, wantBalance)
	}
	supply, err := s.TotalSupply()
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if supply != wantBalance {
		t.Fatalf("supply = %d, want %d", supply, wantBalance)
	}
}

// Scenario 2 as an apply-level test (Engine-level replay rejection is
// covered in the engine package, burn in TestApplyBurn); here we check
// transfer bookkeeping against the store directly.
func TestApplyTransfer(t *testing.T) {
	s := openTestStore(t)
	aa, bb := addr(0xAA), addr(0xBB)

	seed := successSet(map[address.Address]*changeset.AccountChange{
		aa: {BalanceDelta: delta(1000)},
	})
	if err := s.Apply(seed); err != nil {
		t.Fatalf("seed Apply: %v", err)
	}

	transfer := successSet(map[address.Address]*changeset.AccountChange{
		aa: {BalanceDelta: delta(-300), SequenceIncrement: 1},
		bb: {BalanceDelta: delta(300)},
	})
	if err := s.Apply(transfer); err != nil {
		t.Fatalf("transfer Apply: %v", err)
	}

	gotAA, _ := s.ReadAccount(aa)
	gotBB, _ := s.ReadAccount(bb)
	if gotAA.Balance != 700 || gotAA.Sequence != 1 {
		t.Fatalf("aa = %+v", gotAA)
	}
	if gotBB.Balance != 300 {
		t.Fatalf("bb = %+v", gotBB)
	}
	supply, _ := s.TotalSupply()
	if supply != 1000 {
		t.Fatalf("supply changed across a transfer: %d", supply)
	}
}

// Scenario 4: insufficient balance aborts with no mutation.
func TestApplyInsufficientBalance(t *testing.T) {
	s := openTestStore(t)
	cc, dd := addr(0xCC), addr(0xDD)

	seed := successSet(map[address.Address]*changeset.AccountChange{cc: {BalanceDelta: delta(50)}})
	if err := s.Apply(seed); err != nil {
		t.Fatalf("seed Apply: %v", err)
	}

	bad := successSet(map[address.Address]*changeset.AccountChange{
		cc: {BalanceDelta: delta(-100)},
		dd: {BalanceDelta: delta(100)},
	})
	err := s.Apply(bad)
	if err == nil {
		t.Fatalf("expected InsufficientBalance error")
	}

	gotCC, _ := s.ReadAccount(cc)
	gotDD, _ := s.ReadAccount(dd)
	if gotCC.Balance != 50 {
		t.Fatalf("cc balance mutated: %+v", gotCC)
	}
	if gotDD.Balance != 0 {
		t.Fatalf("dd balance mutated: %+v", gotDD)
	}
}

// Scenario 5: burn bookkeeping.
func TestApplyBurn(t *testing.T) {
	s := openTestStore(t)
	aa := addr(0xAA)
	seed := successSet(map[address.Address]*changeset.AccountChange{aa: {BalanceDelta: delta(700)}})
	if err := s.Apply(seed); err != nil {
		t.Fatalf("seed Apply: %v", err)
	}
	beforeSupply, _ := s.TotalSupply()

	burn := successSet(map[address.Address]*changeset.AccountChange{aa: {BalanceDelta: delta(-200)}})
	if err := s.Apply(burn); err != nil {
		t.Fatalf("burn Apply: %v", err)
	}

	got, _ := s.ReadAccount(aa)
	if got.Balance != 500 {
		t.Fatalf("balance = %d, want 500", got.Balance)
	}
	after, _ := s.TotalSupply()
	if after != beforeSupply-200 {
		t.Fatalf("supply = %d, want %d", after, beforeSupply-200)
	}
}

// Scenario 6: module publish then double-publish.
func TestApplyModulePublishThenDuplicate(t *testing.T) {
	s := openTestStore(t)
	ee := addr(0xEE)

	first := successSet(map[address.Address]*changeset.AccountChange{
		ee: {BalanceDelta: big.NewInt(0), ModulesAdded: []string{"swap"}},
	})
	if err := s.Apply(first); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	got, _ := s.ReadAccount(ee)
	if !got.HasModule("swap") {
		t.Fatalf("expected swap module, got %+v", got)
	}

	second := successSet(map[address.Address]*changeset.AccountChange{
		ee: {BalanceDelta: big.NewInt(0), ModulesAdded: []string{"swap"}},
	})
	err := s.Apply(second)
	if err == nil {
		t.Fatalf("expected ModuleAlreadyPublished error")
	}
	got, _ = s.ReadAccount(ee)
	if len(got.Modules) != 1 {
		t.Fatalf("modules mutated on failed apply: %+v", got.Modules)
	}
}

func TestApplyFailedChangeSetIsNoOp(t *testing.T) {
	s := openTestStore(t)
	cs := changeset.New()
	cs.Success = false
	aa := addr(0xAA)
	cs.PerAccount[aa] = &changeset.AccountChange{BalanceDelta: delta(1000)}

	if err := s.Apply(cs); err != nil {
		t.Fatalf("Apply of failed changeset should be a no-op, got error: %v", err)
	}
	got, _ := s.ReadAccount(aa)
	if got.Balance != 0 {
		t.Fatalf("expected no mutation, got %+v", got)
	}
}

func TestValidateSequenceNonexistentAccount(t *testing.T) {
	s := openTestStore(t)
	aa := addr(0x01)
	if err := s.ValidateSequence(aa, 0); err != nil {
		t.Fatalf("expected sequence 0 to validate for nonexistent account: %v", err)
	}
	if err := s.ValidateSequence(aa, 1); err == nil {
		t.Fatalf("expected error validating nonzero sequence for nonexistent account")
	}
}

// A rejected Apply must not leave the journal holding an entry that can
// never commit: reopening the store after such a rejection must succeed,
// not replay the same doomed entry into a permanent Open() failure.
func TestApplyRejectionDoesNotPoisonJournalReplay(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()

	s, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cc, dd := addr(0xCC), addr(0xDD)

	bad := successSet(map[address.Address]*changeset.AccountChange{
		cc: {BalanceDelta: delta(-100)},
		dd: {BalanceDelta: delta(100)},
	})
	if err := s.Apply(bad); err == nil {
		t.Fatalf("expected InsufficientBalance error")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("reopen after rejected Apply should succeed, got: %v", err)
	}
	defer s2.Close()

	got, err := s2.ReadAccount(cc)
	if err != nil {
		t.Fatalf("ReadAccount: %v", err)
	}
	if got.Balance != 0 {
		t.Fatalf("expected no mutation from the rejected apply, got %+v", got)
	}
}

func TestStoreMethodsFailAfterClose(t *testing.T) {
	s := openTestStore(t)
	aa := addr(0xAA)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.ReadAccount(aa); err == nil {
		t.Fatalf("expected ReadAccount to fail after Close")
	}
	if _, err := s.TotalSupply(); err == nil {
		t.Fatalf("expected TotalSupply to fail after Close")
	}
	if err := s.ValidateSequence(aa, 0); err == nil {
		t.Fatalf("expected ValidateSequence to fail after Close")
	}
	cs := successSet(map[address.Address]*changeset.AccountChange{aa: {BalanceDelta: delta(10)}})
	if err := s.Apply(cs); err == nil {
		t.Fatalf("expected Apply to fail after Close")
	}
}

func TestStateRootDeterministicAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()

	s, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	aa := addr(0xAA)
	cs := successSet(map[address.Address]*changeset.AccountChange{aa: {BalanceDelta: delta(500)}})
	if err := s.Apply(cs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	root1, err := s.StateRoot()
	if err != nil {
		t.Fatalf("StateRoot: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	root2, err := s2.StateRoot()
	if err != nil {
		t.Fatalf("StateRoot after restart: %v", err)
	}
	if root1 != root2 {
		t.Fatalf("state root changed across restart: %x != %x", root1, root2)
	}
}
