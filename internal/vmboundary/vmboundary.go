// Package vmboundary adapts the execution core to an external Move VM:
// it marshals a transaction into the VM's call descriptor, invokes the VM
// under a gas budget, and translates the result into a ChangeSet (spec
// §4.4). The Move VM itself is out of scope (spec §1) and is consumed
// here purely as the MoveVM interface below.
package vmboundary

import (
	"context"

	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/errs"
	"github.com/kanari-network/kanari-core/internal/gas"
	"github.com/kanari-network/kanari-core/internal/txn"
)

// ReadView is the narrow read-only capability the VM boundary needs from
// the state store. The external VM is expected to funnel every lookup it
// performs through an equivalent view (spec §4.4), so a single call
// observes one consistent snapshot.
type ReadView interface {
	ReadAccount(addr address.Address) (account.State, error)
}

// CallDescriptor is the marshaled form of a transaction handed to the
// external VM: function identifier, length-prefixed binary arguments with
// little-endian integers, type arguments, sender, and the gas budget.
type CallDescriptor struct {
	Sender   address.Address
	Package  address.Address
	Module   string
	Function string
	TypeArgs []string
	Args     [][]byte
	Meter    *gas.Meter
}

// VMResult is what a successful VM call reports back: balance changes,
// sequence increments, and newly added modules, mirrored into a
// ChangeSet by the boundary.
type VMResult struct {
	BalanceChanges []BalanceChange
	ModulesAdded   map[address.Address][]string
}

// BalanceChange is one signed balance adjustment the VM reports.
type BalanceChange struct {
	Address address.Address
	Delta   int64
}

// MoveVM is the external collaborator this package treats as a black
// box, per spec §1: it accepts a call descriptor and returns either a
// VMResult or a typed failure.
type MoveVM interface {
	RunCall(ctx context.Context, call CallDescriptor) (VMResult, error)
}

// Boundary runs one transaction through vm (or, for Transfer/Mint while
// the built-in fallback is enabled, natively) and returns the resulting
// ChangeSet. Boundary never mutates state; all lookups go through view.
type Boundary struct {
	vm       MoveVM
	fallback bool
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithBuiltinFallback enables the native Transfer/Mint fast path (spec
// §4.4 step 5, §9 Open Question — resolved as a permanent feature, see
// DESIGN.md). While enabled, every Transfer and Mint runs natively and is
// never handed to the VM; no check for loaded Move bytecode is made.
func WithBuiltinFallback(enabled bool) Option {
	return func(b *Boundary) { b.fallback = enabled }
}

// New constructs a Boundary over vm.
func New(vm MoveVM, opts ...Option) *Boundary {
	b := &Boundary{vm: vm, fallback: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes tx under meter against view, producing a ChangeSet. sender
// is the principal whose sequence this call advances — the Engine's
// resolved identity for tx, not necessarily tx.Sender() (Mint carries no
// sender field of its own and resolves to the configured treasury
// instead). The returned ChangeSet is always non-nil; its Success field
// distinguishes a VM/validation failure (where gas is still consumed)
// from a genuine state mutation.
func (b *Boundary) Run(ctx context.Context, tx txn.Transaction, sender address.Address, meter *gas.Meter, view ReadView) *changeset.ChangeSet {
	cs := changeset.New()

	fail := func(err error) *changeset.ChangeSet {
		kind, ok := errs.KindOf(err)
		if !ok {
			kind = errs.KindVmExecutionFailure
		}
		cs.MarkFailure(string(kind))
		cs.RecordGas(meter.Used())
		return cs
	}

	if b.fallback && isBuiltinEligible(tx) {
		if err := b.runBuiltin(cs, tx, meter); err != nil {
			return fail(err)
		}
		cs.RecordSequenceIncrement(sender)
		cs.RecordGas(meter.Used())
		cs.MarkSuccess()
		return cs
	}

	call, err := buildCallDescriptor(tx, meter)
	if err != nil {
		return fail(err)
	}

	if b.vm == nil {
		return fail(errs.New(errs.KindVmExecutionFailure, "no Move VM configured for transaction kind %d", tx.Kind()))
	}

	result, err := b.vm.RunCall(ctx, call)
	if err != nil {
		return fail(err)
	}

	for _, bc := range result.BalanceChanges {
		if bc.Delta >= 0 {
			cs.RecordMint(bc.Address, uint64(bc.Delta))
		} else {
			cs.RecordBurn(bc.Address, uint64(-bc.Delta))
		}
	}
	for addr, modules := range result.ModulesAdded {
		for _, name := range modules {
			live, rerr := view.ReadAccount(addr)
			if rerr != nil {
				return fail(rerr)
			}
			if live.HasModule(name) {
				return fail(errs.New(errs.KindModuleAlreadyPublished, "module %q already published to %s", name, addr))
			}
			if err := cs.RecordModule(addr, name); err != nil {
				return fail(err)
			}
		}
	}
	cs.RecordSequenceIncrement(sender)
	cs.RecordGas(meter.Used())
	cs.MarkSuccess()
	return cs
}

func buildCallDescriptor(tx txn.Transaction, meter *gas.Meter) (CallDescriptor, error) {
	switch tx.Kind() {
	case txn.KindPublishModule:
		p := tx.PublishModule
		return CallDescriptor{Sender: p.Sender, Module: p.Name, Args: [][]byte{p.Bytes}, Meter: meter}, nil
	case txn.KindExecuteFunction:
		e := tx.ExecuteFunction
		return CallDescriptor{
			Sender: e.Sender, Package: e.Package, Module: e.Module, Function: e.Function,
			TypeArgs: e.TypeArgs, Args: e.Args, Meter: meter,
		}, nil
	case txn.KindTransfer:
		t := tx.Transfer
		return CallDescriptor{Sender: t.From, Function: "transfer", Meter: meter}, nil
	case txn.KindMint:
		m := tx.Mint
		return CallDescriptor{Sender: address.Zero, Function: "mint", Args: [][]byte{addrBytes(m.To)}, Meter: meter}, nil
	default:
		return CallDescriptor{}, errs.New(errs.KindVmExecutionFailure, "unrecognized transaction kind")
	}
}

func addrBytes(a address.Address) []byte {
	b := make([]byte, len(a))
	copy(b, a[:])
	return b
}

func isBuiltinEligible(tx txn.Transaction) bool {
	return tx.Kind() == txn.KindTransfer || tx.Kind() == txn.KindMint
}
