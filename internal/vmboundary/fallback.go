package vmboundary

import (
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/errs"
	"github.com/kanari-network/kanari-core/internal/gas"
	"github.com/kanari-network/kanari-core/internal/txn"
)

// runBuiltin produces the native Transfer/Mint ChangeSet directly, without
// invoking the Move VM (spec §4.4 step 5). Its semantics must match a
// VM-produced result bit for bit: the same OpTransfer gas charge, the same
// RecordTransfer/RecordMint balance bookkeeping, and the same sequence
// increment applied by the caller in Run.
func (b *Boundary) runBuiltin(cs *changeset.ChangeSet, tx txn.Transaction, meter *gas.Meter) error {
	switch tx.Kind() {
	case txn.KindTransfer:
		if err := meter.Charge(gas.OpTransfer); err != nil {
			return err
		}
		t := tx.Transfer
		return cs.RecordTransfer(t.From, t.To, t.Amount)
	case txn.KindMint:
		if err := meter.Charge(gas.OpTransfer); err != nil {
			return err
		}
		m := tx.Mint
		cs.RecordMint(m.To, m.Amount)
		return nil
	default:
		return errs.New(errs.KindVmExecutionFailure, "%v is not eligible for the built-in fallback", tx.Kind())
	}
}
