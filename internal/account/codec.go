package account

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes s into the canonical on-disk record: balance (u64 LE),
// sequence (u64 LE), module count (u32 LE), then for each module (sorted)
// a u32-LE length-prefixed UTF-8 name. This is the exact layout persisted
// under an address key in the state store (see statestore package).
func Encode(s State) []byte {
	names := s.ModuleNames()
	size := 8 + 8 + 4
	for _, n := range names {
		size += 4 + len(n)
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], s.Balance)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], s.Sequence)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(names)))
	off += 4
	for _, n := range names {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(n)))
		off += 4
		copy(buf[off:], n)
		off += len(n)
	}
	return buf
}

// Decode parses the canonical on-disk record produced by Encode.
func Decode(buf []byte) (State, error) {
	if len(buf) < 20 {
		return State{}, fmt.Errorf("account: record too short: %d bytes", len(buf))
	}
	s := New()
	off := 0
	s.Balance = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	s.Sequence = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	count := binary.LittleEndian.Uint32(buf[off:])
	off += 4
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return State{}, fmt.Errorf("account: truncated module length at index %d", i)
		}
		l := int(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		if off+l > len(buf) {
			return State{}, fmt.Errorf("account: truncated module name at index %d", i)
		}
		name := string(buf[off : off+l])
		off += l
		if _, dup := s.Modules[name]; dup {
			return State{}, fmt.Errorf("account: duplicate module %q in record", name)
		}
		s.Modules[name] = struct{}{}
	}
	return s, nil
}
