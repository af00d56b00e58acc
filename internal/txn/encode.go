package txn

import (
	"bytes"
	"encoding/binary"
)

// Encode produces the canonical serialization of a SignedTransaction:
// sender, transaction-kind tag, kind-specific fields in declared order,
// then gas_limit, gas_price, sequence, signature, public_key, curve-tag.
// Integers are little-endian; variable-length fields are length-prefixed
// by a 4-byte unsigned count. Two SignedTransactions that are equal under
// structural comparison encode identically (spec §8 P6).
func Encode(stx SignedTransaction) []byte {
	var buf bytes.Buffer
	tx := stx.Tx

	buf.Write(tx.Sender().Bytes())
	buf.WriteByte(byte(tx.Kind()))

	switch tx.Kind() {
	case KindTransfer:
		t := tx.Transfer
		buf.Write(t.To.Bytes())
		putU64(&buf, t.Amount)
	case KindMint:
		m := tx.Mint
		buf.Write(m.To.Bytes())
		putU64(&buf, m.Amount)
	case KindPublishModule:
		p := tx.PublishModule
		putBytes(&buf, p.Bytes)
		putString(&buf, p.Name)
	case KindExecuteFunction:
		e := tx.ExecuteFunction
		buf.Write(e.Package.Bytes())
		putString(&buf, e.Module)
		putString(&buf, e.Function)
		putU32(&buf, uint32(len(e.TypeArgs)))
		for _, ta := range e.TypeArgs {
			putString(&buf, ta)
		}
		putU32(&buf, uint32(len(e.Args)))
		for _, a := range e.Args {
			putBytes(&buf, a)
		}
	}

	putU64(&buf, tx.GasLimit())
	putU64(&buf, tx.GasPrice())
	putU64(&buf, tx.Sequence())
	putBytes(&buf, stx.Signature)
	putBytes(&buf, stx.PublicKey)
	buf.WriteByte(byte(stx.Curve))

	return buf.Bytes()
}

// SigningPayload produces the bytes a signer signs over: the same
// canonical encoding as Encode up to and including sequence, but without
// the signature/public_key/curve fields those fields themselves
// authenticate.
func SigningPayload(tx Transaction) []byte {
	var buf bytes.Buffer

	buf.Write(tx.Sender().Bytes())
	buf.WriteByte(byte(tx.Kind()))

	switch tx.Kind() {
	case KindTransfer:
		t := tx.Transfer
		buf.Write(t.To.Bytes())
		putU64(&buf, t.Amount)
	case KindMint:
		m := tx.Mint
		buf.Write(m.To.Bytes())
		putU64(&buf, m.Amount)
	case KindPublishModule:
		p := tx.PublishModule
		putBytes(&buf, p.Bytes)
		putString(&buf, p.Name)
	case KindExecuteFunction:
		e := tx.ExecuteFunction
		buf.Write(e.Package.Bytes())
		putString(&buf, e.Module)
		putString(&buf, e.Function)
		putU32(&buf, uint32(len(e.TypeArgs)))
		for _, ta := range e.TypeArgs {
			putString(&buf, ta)
		}
		putU32(&buf, uint32(len(e.Args)))
		for _, a := range e.Args {
			putBytes(&buf, a)
		}
	}

	putU64(&buf, tx.GasLimit())
	putU64(&buf, tx.GasPrice())
	putU64(&buf, tx.Sequence())

	return buf.Bytes()
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putBytes(buf *bytes.Buffer, v []byte) {
	putU32(buf, uint32(len(v)))
	buf.Write(v)
}

func putString(buf *bytes.Buffer, v string) {
	putBytes(buf, []byte(v))
}
