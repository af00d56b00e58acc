package statestore

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/changeset"
)

// encodeChangeSet serializes a ChangeSet into the journal's canonical
// on-disk form: gas_used (u64 LE), success (1 byte), error_message
// (length-prefixed UTF-8), account count (u32 LE), then per account the
// 32-byte address, signed balance delta (a sign byte, 1 for negative,
// then the u32-LE length-prefixed big-endian magnitude from
// big.Int.Bytes), sequence increment (u64 LE), module count (u32 LE), and
// length-prefixed module names.
func encodeChangeSet(cs *changeset.ChangeSet) []byte {
	var out []byte
	out = appendU64(out, cs.GasUsed)
	if cs.Success {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendString(out, cs.ErrorMessage)
	out = appendU32(out, uint32(len(cs.PerAccount)))

	addrs := make([]address.Address, 0, len(cs.PerAccount))
	for a := range cs.PerAccount {
		addrs = append(addrs, a)
	}
	sortAddresses(addrs)

	for _, a := range addrs {
		ac := cs.PerAccount[a]
		out = append(out, a[:]...)
		out = appendBigInt(out, ac.BalanceDelta)
		out = appendU64(out, ac.SequenceIncrement)
		out = appendU32(out, uint32(len(ac.ModulesAdded)))
		for _, name := range ac.ModulesAdded {
			out = appendString(out, name)
		}
	}
	return out
}

func decodeChangeSet(buf []byte) (*changeset.ChangeSet, error) {
	cs := changeset.New()
	off := 0

	gasUsed, n, err := readU64(buf, off)
	if err != nil {
		return nil, err
	}
	cs.GasUsed = gasUsed
	off += n

	if off >= len(buf) {
		return nil, fmt.Errorf("statestore: journal entry truncated before success flag")
	}
	cs.Success = buf[off] == 1
	off++

	msg, n, err := readString(buf, off)
	if err != nil {
		return nil, err
	}
	cs.ErrorMessage = msg
	off += n

	count, n, err := readU32(buf, off)
	if err != nil {
		return nil, err
	}
	off += n

	for i := uint32(0); i < count; i++ {
		if off+address.Size > len(buf) {
			return nil, fmt.Errorf("statestore: journal entry truncated reading address %d", i)
		}
		var addr address.Address
		copy(addr[:], buf[off:off+address.Size])
		off += address.Size

		delta, n, err := readBigInt(buf, off)
		if err != nil {
			return nil, err
		}
		off += n

		seqInc, n, err := readU64(buf, off)
		if err != nil {
			return nil, err
		}
		off += n

		moduleCount, n, err := readU32(buf, off)
		if err != nil {
			return nil, err
		}
		off += n

		ac := &changeset.AccountChange{BalanceDelta: delta, SequenceIncrement: seqInc}
		for j := uint32(0); j < moduleCount; j++ {
			name, n, err := readString(buf, off)
			if err != nil {
				return nil, err
			}
			off += n
			ac.ModulesAdded = append(ac.ModulesAdded, name)
		}
		cs.PerAccount[addr] = ac
	}
	return cs, nil
}

func sortAddresses(addrs []address.Address) {
	for i := 1; i < len(addrs); i++ {
		for j := i; j > 0 && address.Less(addrs[j], addrs[j-1]); j-- {
			addrs[j], addrs[j-1] = addrs[j-1], addrs[j]
		}
	}
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBigInt(buf []byte, v *big.Int) []byte {
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	mag := new(big.Int).Abs(v).Bytes()
	buf = append(buf, sign)
	buf = appendU32(buf, uint32(len(mag)))
	return append(buf, mag...)
}

func readU32(buf []byte, off int) (uint32, int, error) {
	if off+4 > len(buf) {
		return 0, 0, fmt.Errorf("statestore: truncated u32 at offset %d", off)
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), 4, nil
}

func readU64(buf []byte, off int) (uint64, int, error) {
	if off+8 > len(buf) {
		return 0, 0, fmt.Errorf("statestore: truncated u64 at offset %d", off)
	}
	return binary.LittleEndian.Uint64(buf[off : off+8]), 8, nil
}

func readString(buf []byte, off int) (string, int, error) {
	l, n, err := readU32(buf, off)
	if err != nil {
		return "", 0, err
	}
	total := n + int(l)
	if off+total > len(buf) {
		return "", 0, fmt.Errorf("statestore: truncated string at offset %d", off)
	}
	return string(buf[off+n : off+total]), total, nil
}

func readBigInt(buf []byte, off int) (*big.Int, int, error) {
	if off+1 > len(buf) {
		return nil, 0, fmt.Errorf("statestore: truncated bigint sign at offset %d", off)
	}
	sign := buf[off]
	l, n, err := readU32(buf, off+1)
	if err != nil {
		return nil, 0, err
	}
	start := off + 1 + n
	if start+int(l) > len(buf) {
		return nil, 0, fmt.Errorf("statestore: truncated bigint magnitude at offset %d", off)
	}
	v := new(big.Int).SetBytes(buf[start : start+int(l)])
	if sign == 1 {
		v.Neg(v)
	}
	return v, 1 + n + int(l), nil
}
