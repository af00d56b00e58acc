package statestore

// kvHandle is the narrow capability set this package depends on: look up
// a key, open a write batch that can commit with a durability guarantee,
// and iterate keys in order. Any embedded ordered key-value engine
// satisfying this shape is substitutable for the pebble-backed adapter in
// backend_pebble.go — this is the "interface polymorphism over the
// key-value backend" design note from spec §9, expressed as a capability
// set rather than a concrete package import anywhere outside that one
// adapter file.
type kvHandle interface {
	get(key []byte) (value []byte, found bool, err error)
	newBatch() kvBatch
	newIterator(lowerBound, upperBound []byte) (kvIterator, error)
	newSnapshot() kvSnapshot
	close() error
}

// kvSnapshot is a consistent point-in-time view of the key-value store: a
// read through it observes either the pre- or post-state of any commit,
// never a mixture (spec §5). Store's own read operations do not open
// snapshots; they get that guarantee from Store.mu's read lock instead.
type kvSnapshot interface {
	get(key []byte) (value []byte, found bool, err error)
	newIterator(lowerBound, upperBound []byte) (kvIterator, error)
	close() error
}

// kvBatch stages a set of mutations for a single atomic commit.
type kvBatch interface {
	set(key, value []byte)
	delete(key []byte)
	commitSync() error
}

// kvIterator walks a key range in ascending order.
type kvIterator interface {
	first() bool
	next() bool
	valid() bool
	key() []byte
	value() []byte
	close() error
}
