package statestore

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/errs"
)

// StateRoot computes the deterministic digest of the full account map and
// total supply: accounts sorted by address ascending, their canonical
// serialized records concatenated, total supply appended, hashed with
// SHA3-256 (spec §4.3). Equal to a fresh StateRoot() after a restart
// because the account iteration order depends only on key bytes, not
// insertion order (spec §8 P7).
func (s *Store) StateRoot() ([32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return [32]byte{}, errs.Wrap(errs.KindStoreIoError, errs.ErrStoreClosed, "computing state root")
	}

	it, err := s.db.newIterator(accountKeyLowerBound(), accountKeyUpperBound())
	if err != nil {
		return [32]byte{}, errs.Wrap(errs.KindStoreIoError, err, "opening state root iterator")
	}
	defer it.close()

	h := sha3.New256()
	for ok := it.first(); ok; ok = it.next() {
		addr, valid := addressFromAccountKey(it.key())
		if !valid {
			continue
		}
		st, decErr := account.Decode(it.value())
		if decErr != nil {
			return [32]byte{}, errs.Wrap(errs.KindStoreIoError, decErr, "decoding account %s for state root", addr)
		}
		h.Write(addr[:])
		h.Write(account.Encode(st))
	}

	supply, err := s.totalSupplyLocked()
	if err != nil {
		return [32]byte{}, err
	}
	var supplyBuf [8]byte
	binary.LittleEndian.PutUint64(supplyBuf[:], supply)
	h.Write(supplyBuf[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
