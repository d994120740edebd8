// Package memtable implements the in-memory, arena-backed, internal-key-
// ordered write buffer: an ordered skip list over entries allocated out
// of an arena.Arena, keyed by (user key, sequence, type) so that Get can
// resolve the newest visible value — or a tombstone — for a key.
package memtable

import (
	"github.com/kvcore/kvcore/arena"
)

// LookupStatus reports the outcome of a Get.
type LookupStatus int

const (
	// Missing means no entry for the key with sequence <= the lookup's
	// sequence exists in the memtable (not even a tombstone) — the caller
	// should keep searching deeper levels of the storage stack.
	Missing LookupStatus = iota
	// Found means a live value was located.
	Found
	// Deleted means the newest entry for the key is a tombstone: the key
	// is known to be absent, and the caller must not search deeper.
	Deleted
)

// Memtable is an arena-backed, internal-key-ordered skip list. It is
// append-only: entries are never mutated or removed once added, only
// shadowed by newer entries with the same user key. A Memtable must not
// be mutated concurrently by more than one writer; concurrent readers
// (Get, iterators) are always safe, including while a writer is
// inserting, per the skip list's publish-safe design.
type Memtable struct {
	arena *arena.Arena
	list  *skipList
	cmp   UserComparator
}

// New returns an empty Memtable ordering user keys with cmp.
func New(cmp UserComparator) *Memtable {
	if cmp == nil {
		cmp = BytewiseComparator{}
	}
	m := &Memtable{
		arena: arena.New(),
		cmp:   cmp,
	}
	m.list = newSkipList(internalKeyCompare(cmp))
	return m
}

// Add inserts a new entry. seq must be strictly increasing across calls
// for a given Memtable to preserve the newest-wins Get semantics (the
// caller — the engine's sequence allocator — owns that invariant; this
// package only orders by whatever tags it is given).
func (m *Memtable) Add(seq uint64, typ byte, key, value []byte) {
	n := encodedEntryLen(key, value)
	buf := m.arena.Allocate(n)
	encodeEntry(buf, seq, typ, key, value)
	m.list.Insert(buf)
}

// Get looks up the newest entry for key with sequence <= seq. It
// returns (Found, value) for a live value, (Deleted, nil) for a
// tombstone, or (Missing, nil) if the memtable has no entry for key
// with sequence <= seq.
func (m *Memtable) Get(key []byte, seq uint64) (LookupStatus, []byte) {
	lookup := encodeLookupKey(key, seq)

	it := m.list.NewIterator()
	it.Seek(lookup)
	if !it.Valid() {
		return Missing, nil
	}

	ikey, rest, err := splitEntry(it.Key())
	if err != nil {
		return Missing, nil
	}
	foundUser, tag := userKeyAndTag(ikey)
	if m.cmp.Compare(foundUser, key) != 0 {
		return Missing, nil
	}

	switch unpackType(tag) {
	case TypeValue:
		value, _, err := splitEntry(rest)
		if err != nil {
			return Missing, nil
		}
		return Found, value
	case TypeDeletion:
		return Deleted, nil
	default:
		return Missing, nil
	}
}

// ApproximateMemoryUsage returns the Memtable's backing arena's memory
// usage estimate — the signal an engine would use to decide when a
// memtable is full and should be swapped out and flushed.
func (m *Memtable) ApproximateMemoryUsage() uint64 {
	return m.arena.MemoryUsage()
}

// NewIterator returns an Iterator over every entry in the memtable, in
// internal-key order (ascending user key, then descending sequence).
// Unlike Get, it does not filter by snapshot sequence or skip
// tombstones — that policy belongs to whatever merges memtable output
// with other sources.
func (m *Memtable) NewIterator() *Iterator {
	return &Iterator{it: m.list.NewIterator()}
}

// Iterator walks a Memtable's entries in internal-key order, decoding
// each entry's user key, sequence, type, and value on demand.
type Iterator struct {
	it  *iterator
	err error
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.it.Valid() }

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() { it.it.SeekToFirst() }

// SeekToLast positions the iterator at the last entry.
func (it *Iterator) SeekToLast() { it.it.SeekToLast() }

// Seek positions the iterator at the first entry whose internal key is
// >= the lookup key built from (key, seq), i.e. the newest entry for
// key with sequence <= seq, if one exists.
func (it *Iterator) Seek(key []byte, seq uint64) {
	it.it.Seek(encodeLookupKey(key, seq))
}

// Next advances the iterator.
func (it *Iterator) Next() { it.it.Next() }

// Prev moves the iterator backward.
func (it *Iterator) Prev() { it.it.Prev() }

// Key decodes the current entry's user key, sequence, and type.
func (it *Iterator) Key() (userKey []byte, seq uint64, typ byte) {
	ikey, _, err := splitEntry(it.it.Key())
	if err != nil {
		it.err = err
		return nil, 0, 0
	}
	user, tag := userKeyAndTag(ikey)
	return user, unpackSequence(tag), unpackType(tag)
}

// Value decodes the current entry's value. It is only meaningful when
// Key's type is TypeValue.
func (it *Iterator) Value() []byte {
	_, rest, err := splitEntry(it.it.Key())
	if err != nil {
		it.err = err
		return nil
	}
	value, _, err := splitEntry(rest)
	if err != nil {
		it.err = err
		return nil
	}
	return value
}

// Status returns the first decoding error the iterator encountered, if
// any. A correctly built Memtable never produces one — this exists for
// the same reason batch.Batch.Iterate reports corruption explicitly,
// rather than panicking on malformed bytes.
func (it *Iterator) Status() error { return it.err }
