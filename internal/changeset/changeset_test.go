package changeset

import (
	"testing"

	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/errs"
)

func addr(b byte) address.Address {
	a, _ := address.FromBytes([]byte{b})
	return a
}

func TestRecordTransfer(t *testing.T) {
	cs := New()
	from, to := addr(0xAA), addr(0xBB)
	if err := cs.RecordTransfer(from, to, 300); err != nil {
		t.Fatalf("RecordTransfer: %v", err)
	}
	if cs.PerAccount[from].BalanceDelta.Int64() != -300 {
		t.Fatalf("from delta = %v", cs.PerAccount[from].BalanceDelta)
	}
	if cs.PerAccount[to].BalanceDelta.Int64() != 300 {
		t.Fatalf("to delta = %v", cs.PerAccount[to].BalanceDelta)
	}
}

func TestRecordTransferSelfRejected(t *testing.T) {
	cs := New()
	a := addr(0x01)
	err := cs.RecordTransfer(a, a, 10)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindInvalidTransfer {
		t.Fatalf("expected InvalidTransfer, got %v", err)
	}
}

func TestRecordTransferZeroRejected(t *testing.T) {
	cs := New()
	err := cs.RecordTransfer(addr(0x01), addr(0x02), 0)
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindInvalidTransfer {
		t.Fatalf("expected InvalidTransfer, got %v", err)
	}
}

func TestRecordModuleDuplicateWithinChangeSet(t *testing.T) {
	cs := New()
	a := addr(0xEE)
	if err := cs.RecordModule(a, "swap"); err != nil {
		t.Fatalf("first RecordModule: %v", err)
	}
	err := cs.RecordModule(a, "swap")
	if kind, ok := errs.KindOf(err); !ok || kind != errs.KindModuleAlreadyPublished {
		t.Fatalf("expected ModuleAlreadyPublished, got %v", err)
	}
}

func TestMarkFailureClearsPerAccount(t *testing.T) {
	cs := New()
	_ = cs.RecordTransfer(addr(0x01), addr(0x02), 10)
	cs.MarkFailure("insufficient balance")
	if len(cs.PerAccount) != 0 {
		t.Fatalf("expected empty per_account after failure, got %d entries", len(cs.PerAccount))
	}
	if cs.Success {
		t.Fatalf("expected success=false")
	}
	if cs.ErrorMessage != "insufficient balance" {
		t.Fatalf("unexpected message: %s", cs.ErrorMessage)
	}
}

func TestRecordsAreNoOpsAfterFailure(t *testing.T) {
	cs := New()
	cs.MarkFailure("boom")
	if err := cs.RecordTransfer(addr(0x01), addr(0x02), 10); err != nil {
		t.Fatalf("post-failure record should be a silent no-op, got %v", err)
	}
	if len(cs.PerAccount) != 0 {
		t.Fatalf("expected no mutation after failure")
	}
}

func TestMarkSuccessIgnoredAfterFailure(t *testing.T) {
	cs := New()
	cs.MarkFailure("boom")
	cs.MarkSuccess()
	if cs.Success {
		t.Fatalf("MarkSuccess should not revive a failed changeset")
	}
}
