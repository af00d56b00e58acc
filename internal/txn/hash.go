package txn

import "golang.org/x/crypto/sha3"

// Hash is a transaction's 32-byte identity: the SHA3-256 digest of the
// canonical serialization of its SignedTransaction (spec §4.5).
type Hash [32]byte

// ComputeHash hashes stx's canonical encoding.
func ComputeHash(stx SignedTransaction) Hash {
	return Hash(sha3.Sum256(Encode(stx)))
}

// String renders the hash as lowercase 0x-prefixed hex.
func (h Hash) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 2+len(h)*2)
	out[0], out[1] = '0', 'x'
	for i, b := range h {
		out[2+i*2] = hextable[b>>4]
		out[2+i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
