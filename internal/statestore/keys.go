package statestore

import "github.com/kanari-network/kanari-core/internal/address"

// Key layout (spec §6): account records live under a one-byte account
// prefix followed by the 32-byte address, so the reserved total-supply
// scalar can live at a single fixed key outside that range without
// colliding with the (legitimate) all-zero address account.
const (
	prefixTotalSupply byte = 0x00
	prefixAccount     byte = 0x01
)

var totalSupplyKey = []byte{prefixTotalSupply}

func accountKey(addr address.Address) []byte {
	key := make([]byte, 1+address.Size)
	key[0] = prefixAccount
	copy(key[1:], addr[:])
	return key
}

func addressFromAccountKey(key []byte) (address.Address, bool) {
	if len(key) != 1+address.Size || key[0] != prefixAccount {
		return address.Address{}, false
	}
	var a address.Address
	copy(a[:], key[1:])
	return a, true
}

// accountKeyLowerBound and accountKeyUpperBound bound an iteration over
// every account record, in ascending address order (pebble/LSM keys sort
// byte-wise, so the prefix byte keeps accounts a contiguous range).
func accountKeyLowerBound() []byte {
	return []byte{prefixAccount}
}

func accountKeyUpperBound() []byte {
	return []byte{prefixAccount + 1}
}
