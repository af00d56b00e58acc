// Package txn implements the transaction tagged-union, its signed wrapper,
// and the canonical serialization used for transaction-hash computation
// (spec §3, §4.5, §6).
package txn

import "github.com/kanari-network/kanari-core/internal/address"

// Kind tags which variant a Transaction carries.
type Kind uint8

const (
	KindTransfer Kind = iota
	KindMint
	KindPublishModule
	KindExecuteFunction
)

// Curve identifies the signature scheme of a SignedTransaction.
type Curve uint8

const (
	CurveEd25519 Curve = iota
	CurveSecp256k1
)

// Transfer moves amount from one account to another.
type Transfer struct {
	From     address.Address
	To       address.Address
	Amount   uint64
	GasLimit uint64
	GasPrice uint64
	Sequence uint64
}

// Mint credits amount to To. Only valid when sent by the configured
// treasury principal; the Engine enforces that, not this type.
type Mint struct {
	To       address.Address
	Amount   uint64
	GasLimit uint64
	GasPrice uint64
	Sequence uint64
}

// PublishModule deploys Bytes under Name on Sender's account.
type PublishModule struct {
	Sender   address.Address
	Bytes    []byte
	Name     string
	GasLimit uint64
	GasPrice uint64
	Sequence uint64
}

// ExecuteFunction invokes an already-published Move function.
type ExecuteFunction struct {
	Sender   address.Address
	Package  address.Address
	Module   string
	Function string
	TypeArgs []string
	Args     [][]byte
	GasLimit uint64
	GasPrice uint64
	Sequence uint64
}

// Transaction is the tagged-union view over exactly one of the four
// concrete variants above. Exactly one of the Transfer/Mint/PublishModule/
// ExecuteFunction fields is non-nil, matched on Kind().
type Transaction struct {
	Transfer        *Transfer
	Mint            *Mint
	PublishModule   *PublishModule
	ExecuteFunction *ExecuteFunction
}

// Kind reports which variant this Transaction carries.
func (t Transaction) Kind() Kind {
	switch {
	case t.Transfer != nil:
		return KindTransfer
	case t.Mint != nil:
		return KindMint
	case t.PublishModule != nil:
		return KindPublishModule
	case t.ExecuteFunction != nil:
		return KindExecuteFunction
	default:
		panic("txn: Transaction carries no variant")
	}
}

// Sender returns the transaction's originating address, regardless of
// variant.
func (t Transaction) Sender() address.Address {
	switch t.Kind() {
	case KindTransfer:
		return t.Transfer.From
	case KindMint:
		// Mint has no "from" in the wire format; the treasury principal is
		// validated by the Engine against its own configuration, not
		// derived from the transaction.
		return address.Zero
	case KindPublishModule:
		return t.PublishModule.Sender
	case KindExecuteFunction:
		return t.ExecuteFunction.Sender
	default:
		panic("txn: unreachable")
	}
}

// Sequence returns the transaction's sequence number, regardless of
// variant.
func (t Transaction) Sequence() uint64 {
	switch t.Kind() {
	case KindTransfer:
		return t.Transfer.Sequence
	case KindMint:
		return t.Mint.Sequence
	case KindPublishModule:
		return t.PublishModule.Sequence
	case KindExecuteFunction:
		return t.ExecuteFunction.Sequence
	default:
		panic("txn: unreachable")
	}
}

// GasLimit returns the transaction's declared gas limit.
func (t Transaction) GasLimit() uint64 {
	switch t.Kind() {
	case KindTransfer:
		return t.Transfer.GasLimit
	case KindMint:
		return t.Mint.GasLimit
	case KindPublishModule:
		return t.PublishModule.GasLimit
	case KindExecuteFunction:
		return t.ExecuteFunction.GasLimit
	default:
		panic("txn: unreachable")
	}
}

// GasPrice returns the transaction's declared gas price.
func (t Transaction) GasPrice() uint64 {
	switch t.Kind() {
	case KindTransfer:
		return t.Transfer.GasPrice
	case KindMint:
		return t.Mint.GasPrice
	case KindPublishModule:
		return t.PublishModule.GasPrice
	case KindExecuteFunction:
		return t.ExecuteFunction.GasPrice
	default:
		panic("txn: unreachable")
	}
}

// SignedTransaction wraps a Transaction with its signature and the public
// key/curve that produced it.
type SignedTransaction struct {
	Tx        Transaction
	Signature []byte
	PublicKey []byte
	Curve     Curve
}
