package rpc

import (
	"github.com/erigontech/erigon-lib/common/hexutility"

	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/txn"
)

// addressParam decodes as a 0x-prefixed hex string into an address.Address.
type addressParam address.Address

func (a *addressParam) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := address.Parse(s)
	if err != nil {
		return err
	}
	*a = addressParam(parsed)
	return nil
}

// signedFields is the part of a submit-style request shared by every
// transaction kind: the signature envelope plus fee/ordering fields (spec
// §3's common transaction fields).
type signedFields struct {
	GasLimit  uint64            `json:"gas_limit"`
	GasPrice  uint64            `json:"gas_price"`
	Sequence  uint64            `json:"sequence"`
	Signature hexutility.Bytes  `json:"signature"`
	PublicKey hexutility.Bytes  `json:"public_key"`
	Curve     string            `json:"curve"`
}

func (f signedFields) curve() (txn.Curve, error) {
	switch f.Curve {
	case "ed25519":
		return txn.CurveEd25519, nil
	case "secp256k1":
		return txn.CurveSecp256k1, nil
	default:
		return 0, &invalidParamsError{message: "unrecognized curve " + f.Curve}
	}
}

type transferParams struct {
	signedFields
	From   addressParam `json:"from"`
	To     addressParam `json:"to"`
	Amount uint64       `json:"amount"`
}

type mintParams struct {
	signedFields
	To     addressParam `json:"to"`
	Amount uint64       `json:"amount"`
}

type publishModuleParams struct {
	signedFields
	Sender addressParam     `json:"sender"`
	Name   string           `json:"name"`
	Bytes  hexutility.Bytes `json:"bytes"`
}

type callFunctionParams struct {
	signedFields
	Sender   addressParam       `json:"sender"`
	Package  addressParam       `json:"package"`
	Module   string             `json:"module"`
	Function string             `json:"function"`
	TypeArgs []string           `json:"type_args"`
	Args     []hexutility.Bytes `json:"args"`
}

// submitTransactionParams accepts any one of Transfer or Mint, tagged by
// which field is populated, mirroring the Transaction tagged union
// (kanari_submitTransaction covers the two kinds with no dedicated
// endpoint of their own, spec §4.6).
type submitTransactionParams struct {
	Transfer *transferParams `json:"transfer"`
	Mint     *mintParams     `json:"mint"`
}

func (p submitTransactionParams) toSigned() (txn.SignedTransaction, error) {
	switch {
	case p.Transfer != nil && p.Mint != nil:
		return txn.SignedTransaction{}, &invalidParamsError{message: "exactly one of transfer or mint must be set"}
	case p.Transfer != nil:
		t := p.Transfer
		curve, err := t.curve()
		if err != nil {
			return txn.SignedTransaction{}, err
		}
		tx := txn.Transaction{Transfer: &txn.Transfer{
			From: address.Address(t.From), To: address.Address(t.To), Amount: t.Amount,
			GasLimit: t.GasLimit, GasPrice: t.GasPrice, Sequence: t.Sequence,
		}}
		return txn.SignedTransaction{Tx: tx, Signature: t.Signature, PublicKey: t.PublicKey, Curve: curve}, nil
	case p.Mint != nil:
		m := p.Mint
		curve, err := m.curve()
		if err != nil {
			return txn.SignedTransaction{}, err
		}
		tx := txn.Transaction{Mint: &txn.Mint{
			To: address.Address(m.To), Amount: m.Amount,
			GasLimit: m.GasLimit, GasPrice: m.GasPrice, Sequence: m.Sequence,
		}}
		return txn.SignedTransaction{Tx: tx, Signature: m.Signature, PublicKey: m.PublicKey, Curve: curve}, nil
	default:
		return txn.SignedTransaction{}, &invalidParamsError{message: "exactly one of transfer or mint must be set"}
	}
}

func bytesOf(args []hexutility.Bytes) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
