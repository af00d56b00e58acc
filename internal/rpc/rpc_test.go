package rpc

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/engine"
	"github.com/kanari-network/kanari-core/internal/errs"
	"github.com/kanari-network/kanari-core/internal/txn"
	"github.com/kanari-network/kanari-core/internal/vmboundary"
)

type fakeStore struct {
	accounts map[address.Address]account.State
}

func (s *fakeStore) ReadAccount(addr address.Address) (account.State, error) {
	if st, ok := s.accounts[addr]; ok {
		return st.Clone(), nil
	}
	return account.New(), nil
}

func (s *fakeStore) TotalSupply() (uint64, error) {
	var total uint64
	for _, acc := range s.accounts {
		total += acc.Balance
	}
	return total, nil
}

func (s *fakeStore) ValidateSequence(addr address.Address, expected uint64) error {
	acc, _ := s.ReadAccount(addr)
	if acc.Sequence != expected {
		return errs.New(errs.KindSequenceMismatch, "mismatch")
	}
	return nil
}

func (s *fakeStore) Apply(cs *changeset.ChangeSet) error {
	if !cs.Success {
		return nil
	}
	for addr, ac := range cs.PerAccount {
		cur := s.accounts[addr]
		cur.Balance = uint64(int64(cur.Balance) + ac.BalanceDelta.Int64())
		cur.Sequence += ac.SequenceIncrement
		s.accounts[addr] = cur
	}
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeStore, address.Address, ed25519.PrivateKey, ed25519.PublicKey) {
	t.Helper()
	store := &fakeStore{accounts: make(map[address.Address]account.State)}
	boundary := vmboundary.New(nil, vmboundary.WithBuiltinFallback(true))
	pub, priv, _ := ed25519.GenerateKey(nil)
	eng := engine.New(store, boundary, address.Zero, nil, nil)
	return New(eng, nil, nil), store, address.Zero, priv, pub
}

func mkAddr(t *testing.T, b byte) address.Address {
	t.Helper()
	a, err := address.FromBytes([]byte{b})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return a
}

func doRPC(t *testing.T, s *Server, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
	return out
}

func TestGetBalanceUnknownAccountIsZero(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)
	addr := mkAddr(t, 0x01)
	body := `{"jsonrpc":"2.0","method":"kanari_getBalance","params":{"address":"` + addr.String() + `"},"id":1}`
	out := doRPC(t, s, body)
	if out["error"] != nil {
		t.Fatalf("unexpected error: %+v", out["error"])
	}
	result := out["result"].(map[string]any)
	if result["balance"].(float64) != 0 {
		t.Fatalf("balance = %v, want 0", result["balance"])
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)
	out := doRPC(t, s, `{"jsonrpc":"2.0","method":"kanari_bogus","params":{},"id":1}`)
	errObj := out["error"].(map[string]any)
	if int(errObj["code"].(float64)) != codeMethodNotFound {
		t.Fatalf("code = %v, want %d", errObj["code"], codeMethodNotFound)
	}
}

func TestSubmitTransferOverHTTP(t *testing.T) {
	s, store, _, priv, pub := newTestServer(t)
	from := mkAddr(t, 0xAA)
	to := mkAddr(t, 0xBB)
	store.accounts[from] = account.State{Balance: 1000, Modules: map[string]struct{}{}}

	tx := txn.Transaction{Transfer: &txn.Transfer{From: from, To: to, Amount: 250, GasLimit: 1000, GasPrice: 1}}
	sig := ed25519.Sign(priv, txn.SigningPayload(tx))

	body := `{"jsonrpc":"2.0","method":"kanari_submitTransaction","params":{"transfer":{` +
		`"from":"` + from.String() + `","to":"` + to.String() + `","amount":250,` +
		`"gas_limit":1000,"gas_price":1,"sequence":0,` +
		`"signature":"0x` + hex.EncodeToString(sig) + `",` +
		`"public_key":"0x` + hex.EncodeToString(pub) + `","curve":"ed25519"}},"id":1}`

	out := doRPC(t, s, body)
	if out["error"] != nil {
		t.Fatalf("unexpected error: %+v", out["error"])
	}
	result := out["result"].(map[string]any)
	if success, _ := result["success"].(bool); !success {
		t.Fatalf("expected success, got %+v", result)
	}
	if store.accounts[to].Balance != 250 {
		t.Fatalf("recipient balance = %d, want 250", store.accounts[to].Balance)
	}
}

func TestBatchRequestDispatchesEachIndependently(t *testing.T) {
	s, _, _, _, _ := newTestServer(t)
	addrA := mkAddr(t, 0x20)
	addrB := mkAddr(t, 0x21)
	body := `[` +
		`{"jsonrpc":"2.0","method":"kanari_getBalance","params":{"address":"` + addrA.String() + `"},"id":1},` +
		`{"jsonrpc":"2.0","method":"kanari_bogus","params":{},"id":2},` +
		`{"jsonrpc":"2.0","method":"kanari_getBalance","params":{"address":"` + addrB.String() + `"},"id":3}` +
		`]`

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode batch response: %v (body=%s)", err, rec.Body.String())
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(out))
	}
	if out[0]["error"] != nil {
		t.Fatalf("response 0: unexpected error %+v", out[0]["error"])
	}
	if out[1]["error"] == nil {
		t.Fatalf("response 1: expected method-not-found error")
	}
	if out[2]["error"] != nil {
		t.Fatalf("response 2: unexpected error %+v", out[2]["error"])
	}
}

func TestSubmitTransferInvalidSignatureIsDomainError(t *testing.T) {
	s, store, _, priv, pub := newTestServer(t)
	from := mkAddr(t, 0xCC)
	to := mkAddr(t, 0xDD)
	store.accounts[from] = account.State{Balance: 1000, Modules: map[string]struct{}{}}

	tx := txn.Transaction{Transfer: &txn.Transfer{From: from, To: to, Amount: 10, GasLimit: 100000, GasPrice: 1}}
	sig := ed25519.Sign(priv, txn.SigningPayload(tx))
	sig[0] ^= 0xFF

	body := `{"jsonrpc":"2.0","method":"kanari_submitTransaction","params":{"transfer":{` +
		`"from":"` + from.String() + `","to":"` + to.String() + `","amount":10,` +
		`"gas_limit":100000,"gas_price":1,"sequence":0,` +
		`"signature":"0x` + hex.EncodeToString(sig) + `",` +
		`"public_key":"0x` + hex.EncodeToString(pub) + `","curve":"ed25519"}},"id":1}`

	out := doRPC(t, s, body)
	errObj, ok := out["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error response, got %+v", out)
	}
	if int(errObj["code"].(float64)) != errs.KindInvalidSignature.RPCCode() {
		t.Fatalf("code = %v, want %d", errObj["code"], errs.KindInvalidSignature.RPCCode())
	}
}
