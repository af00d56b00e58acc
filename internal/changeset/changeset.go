// Package changeset implements the canonical, accumulable state diff a
// single transaction produces: the ChangeSet component of spec §4.2.
package changeset

import (
	"math/big"

	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/errs"
)

// AccountChange is the per-account slice of a ChangeSet: a signed balance
// delta, a sequence increment, and any modules newly published to this
// address by the transaction.
type AccountChange struct {
	BalanceDelta      *big.Int
	SequenceIncrement uint64
	ModulesAdded      []string

	modulesSeen map[string]struct{}
}

// ChangeSet is the canonical diff produced by exactly one VM invocation
// and consumed by exactly one StateStore.Apply call. It is append-only
// during construction and immutable once returned from the VM boundary.
type ChangeSet struct {
	PerAccount   map[address.Address]*AccountChange
	GasUsed      uint64
	Success      bool
	ErrorMessage string

	failed bool
}

// New returns an empty, in-progress ChangeSet.
func New() *ChangeSet {
	return &ChangeSet{PerAccount: make(map[address.Address]*AccountChange)}
}

func (cs *ChangeSet) entry(addr address.Address) *AccountChange {
	ac, ok := cs.PerAccount[addr]
	if !ok {
		ac = &AccountChange{BalanceDelta: new(big.Int), modulesSeen: make(map[string]struct{})}
		cs.PerAccount[addr] = ac
	}
	return ac
}

// RecordTransfer adds -amount to from and +amount to to. Forbidden when
// from == to or amount == 0, in which case no mutation is made and an
// InvalidTransfer error is returned for the caller to surface (typically
// by calling MarkFailure).
func (cs *ChangeSet) RecordTransfer(from, to address.Address, amount uint64) error {
	if cs.failed {
		return nil
	}
	if from == to {
		return errs.New(errs.KindInvalidTransfer, "self-transfer to %s", from)
	}
	if amount == 0 {
		return errs.New(errs.KindInvalidTransfer, "zero-amount transfer")
	}
	delta := new(big.Int).SetUint64(amount)
	cs.entry(from).BalanceDelta.Sub(cs.entry(from).BalanceDelta, delta)
	cs.entry(to).BalanceDelta.Add(cs.entry(to).BalanceDelta, delta)
	return nil
}

// RecordMint adds +amount to to. Callers are responsible for having
// authorized the mint (the engine only calls this for the designated
// treasury principal); the ChangeSet itself does not enforce that policy.
func (cs *ChangeSet) RecordMint(to address.Address, amount uint64) {
	if cs.failed {
		return
	}
	delta := new(big.Int).SetUint64(amount)
	cs.entry(to).BalanceDelta.Add(cs.entry(to).BalanceDelta, delta)
}

// RecordBurn adds -amount to from.
func (cs *ChangeSet) RecordBurn(from address.Address, amount uint64) {
	if cs.failed {
		return
	}
	delta := new(big.Int).SetUint64(amount)
	cs.entry(from).BalanceDelta.Sub(cs.entry(from).BalanceDelta, delta)
}

// RecordSequenceIncrement adds 1 to addr's sequence increment. Invoked
// exactly once per transaction, for the sender.
func (cs *ChangeSet) RecordSequenceIncrement(addr address.Address) {
	if cs.failed {
		return
	}
	cs.entry(addr).SequenceIncrement++
}

// RecordModule appends name to addr's modules_added. A name already
// present is rejected here only for duplicate-within-this-ChangeSet;
// collision with a module already live on the account is the state
// store's / VM boundary's job to detect (spec §4.2).
func (cs *ChangeSet) RecordModule(addr address.Address, name string) error {
	if cs.failed {
		return nil
	}
	ac := cs.entry(addr)
	if _, dup := ac.modulesSeen[name]; dup {
		return errs.New(errs.KindModuleAlreadyPublished, "module %q recorded twice in one changeset for %s", name, addr)
	}
	ac.modulesSeen[name] = struct{}{}
	ac.ModulesAdded = append(ac.ModulesAdded, name)
	return nil
}

// RecordGas sets the ChangeSet's gas_used.
func (cs *ChangeSet) RecordGas(amount uint64) {
	cs.GasUsed = amount
}

// MarkSuccess finalizes the ChangeSet as successful. It is itself a no-op
// after MarkFailure; it does not block later Record* calls.
func (cs *ChangeSet) MarkSuccess() {
	if cs.failed {
		return
	}
	cs.Success = true
}

// MarkFailure finalizes the ChangeSet as failed: per_account is cleared
// (spec invariant: on success=false, per_account is empty), message is
// recorded, and all further Record* calls except RecordGas become no-ops
// (RecordGas still sets gas_used, since a failed transaction consumes gas).
func (cs *ChangeSet) MarkFailure(message string) {
	cs.failed = true
	cs.Success = false
	cs.ErrorMessage = message
	cs.PerAccount = make(map[address.Address]*AccountChange)
}
