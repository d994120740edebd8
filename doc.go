// Package kvcore is the write-path core of an ordered embedded key-value
// storage engine: write batches, a bump-allocating arena, an arena-backed
// memtable, and a block-framed write-ahead log writer.
//
// The four subsystems, and the codec they share, live in their own
// packages:
//
//	codec/    varint and fixed-width integer encoding
//	arena/    monotonic bump allocator
//	batch/    atomic write batch (Put/Delete) serialization
//	wal/      32KiB block-framed WAL writer with CRC32C fragment headers
//	memtable/ arena-backed, internal-key-ordered skip list
//
// A write flows: construct a batch (batch), serialize it as one WAL
// record (wal), then replay it into the memtable (memtable) through the
// batch's Handler interface. Assigning sequence numbers and driving that
// flow end to end belongs to a higher-level DB layer that is out of
// scope for this module.
package kvcore
