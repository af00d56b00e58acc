package txn

import (
	"crypto/ed25519"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// VerifySignature checks stx.Signature against stx.PublicKey and
// stx.Curve over SigningPayload(stx.Tx). Matches the teacher's convention
// of keeping curve-specific verification out of the hot hashing path
// (see erigontech/secp256k1's use in transaction signing) while picking
// the curves actually present in the corpus: Ed25519 via the standard
// library, Secp256k1 via the decred ECDSA implementation also vendored
// by the teacher as an indirect dependency.
func VerifySignature(stx SignedTransaction) bool {
	payload := SigningPayload(stx.Tx)

	switch stx.Curve {
	case CurveEd25519:
		if len(stx.PublicKey) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(stx.PublicKey), payload, stx.Signature)
	case CurveSecp256k1:
		return verifySecp256k1(stx.PublicKey, payload, stx.Signature)
	default:
		return false
	}
}

func verifySecp256k1(pubKeyBytes, payload, sig []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := sha3.Sum256(payload)
	return signature.Verify(digest[:], pubKey)
}
