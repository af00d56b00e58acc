package txn

import (
	"testing"

	"github.com/kanari-network/kanari-core/internal/address"
)

func mkAddr(b byte) address.Address {
	a, _ := address.FromBytes([]byte{b})
	return a
}

func sampleTransfer() SignedTransaction {
	return SignedTransaction{
		Tx: Transaction{Transfer: &Transfer{
			From: mkAddr(0xAA), To: mkAddr(0xBB), Amount: 300,
			GasLimit: 10_000, GasPrice: 1, Sequence: 0,
		}},
		Signature: []byte{1, 2, 3},
		PublicKey: []byte{4, 5, 6},
		Curve:     CurveEd25519,
	}
}

func TestHashDeterministic(t *testing.T) {
	a := ComputeHash(sampleTransfer())
	b := ComputeHash(sampleTransfer())
	if a != b {
		t.Fatalf("expected identical hashes for structurally equal transactions")
	}
}

func TestHashDiffersOnFieldChange(t *testing.T) {
	stx := sampleTransfer()
	a := ComputeHash(stx)
	stx.Tx.Transfer.Amount = 301
	b := ComputeHash(stx)
	if a == b {
		t.Fatalf("expected different hashes after amount change")
	}
}

func TestHashStringFormat(t *testing.T) {
	h := ComputeHash(sampleTransfer())
	s := h.String()
	if len(s) != 66 || s[0:2] != "0x" {
		t.Fatalf("unexpected hash string: %s", s)
	}
}

func TestKindSenderSequence(t *testing.T) {
	stx := sampleTransfer()
	if stx.Tx.Kind() != KindTransfer {
		t.Fatalf("expected KindTransfer")
	}
	if stx.Tx.Sender() != mkAddr(0xAA) {
		t.Fatalf("unexpected sender")
	}
	if stx.Tx.Sequence() != 0 {
		t.Fatalf("unexpected sequence")
	}
}
