// Package batch implements the write batch: an atomic group of Put/Delete
// mutations serialized into a single self-describing byte buffer sharing
// one sequence number range and one WAL record.
package batch

import (
	"errors"

	"github.com/kvcore/kvcore/codec"
)

// Record tags, part of the wire format — do not change.
const (
	TypeDeletion byte = 0x00
	TypeValue    byte = 0x01
)

// HeaderSize is the fixed size of a batch's header: an 8-byte sequence
// number followed by a 4-byte record count.
const HeaderSize = 12

// ErrCorrupt indicates a malformed batch: a header shorter than
// HeaderSize, an unrecognized tag byte, a truncated length-prefixed
// slice, or a dispatched-record count that disagrees with the header.
var ErrCorrupt = errors.New("batch: corrupt")

// Handler receives the records dispatched by Batch.Iterate. The memtable
// inserter is the production implementation; tests typically supply a
// recording handler.
type Handler interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch accumulates Put/Delete records into a single growing byte
// buffer, the wire format also used as a WAL record payload.
type Batch struct {
	rep []byte
}

// New returns an empty batch: a 12-byte zeroed header and no records.
func New() *Batch {
	return &Batch{rep: make([]byte, HeaderSize)}
}

// Clear resets the batch to its empty state.
func (b *Batch) Clear() {
	b.rep = b.rep[:0]
	b.rep = append(b.rep, make([]byte, HeaderSize)...)
}

// Put appends a VALUE record and increments the header count.
func (b *Batch) Put(key, value []byte) {
	b.setCount(b.Count() + 1)
	b.rep = append(b.rep, TypeValue)
	b.rep = codec.AppendLengthPrefixedSlice(b.rep, key)
	b.rep = codec.AppendLengthPrefixedSlice(b.rep, value)
}

// Delete appends a DELETION record and increments the header count.
func (b *Batch) Delete(key []byte) {
	b.setCount(b.Count() + 1)
	b.rep = append(b.rep, TypeDeletion)
	b.rep = codec.AppendLengthPrefixedSlice(b.rep, key)
}

// Append concatenates other's records onto b. b's header count becomes
// the sum of both counts; b's sequence number is preserved and other's
// is ignored.
func (b *Batch) Append(other *Batch) {
	b.rep = append(b.rep, other.rep[HeaderSize:]...)
	b.setCount(b.Count() + other.Count())
}

// ApproximateSize returns the size in bytes of the batch's byte image.
func (b *Batch) ApproximateSize() int {
	return len(b.rep)
}

// Sequence returns the batch's base sequence number.
func (b *Batch) Sequence() uint64 {
	return codec.Fixed64(b.rep[0:8])
}

// SetSequence sets the batch's base sequence number.
func (b *Batch) SetSequence(seq uint64) {
	codec.PutFixed64(b.rep[0:8], seq)
}

// Count returns the number of records currently in the batch.
func (b *Batch) Count() uint32 {
	return codec.Fixed32(b.rep[8:12])
}

func (b *Batch) setCount(count uint32) {
	codec.PutFixed32(b.rep[8:12], count)
}

// Contents returns the batch's raw byte image, suitable for writing as a
// WAL record.
func (b *Batch) Contents() []byte {
	return b.rep
}

// SetContents replaces the batch's byte image wholesale, e.g. when
// reconstructing a batch from a WAL record.
func (b *Batch) SetContents(rep []byte) {
	b.rep = rep
}

// Iterate walks the batch's records in order, dispatching each to
// handler. It returns ErrCorrupt if the batch is malformed: too short to
// hold a header, an unrecognized tag, a truncated record, or a dispatch
// count that disagrees with the header's count.
func (b *Batch) Iterate(handler Handler) error {
	if len(b.rep) < HeaderSize {
		return ErrCorrupt
	}

	data := b.rep[HeaderSize:]
	var dispatched uint32

	for len(data) > 0 {
		tag := data[0]
		data = data[1:]

		switch tag {
		case TypeValue:
			key, rest, err := codec.GetLengthPrefixedSlice(data)
			if err != nil {
				return ErrCorrupt
			}
			value, rest, err := codec.GetLengthPrefixedSlice(rest)
			if err != nil {
				return ErrCorrupt
			}
			if err := handler.Put(key, value); err != nil {
				return err
			}
			data = rest
		case TypeDeletion:
			key, rest, err := codec.GetLengthPrefixedSlice(data)
			if err != nil {
				return ErrCorrupt
			}
			if err := handler.Delete(key); err != nil {
				return err
			}
			data = rest
		default:
			return ErrCorrupt
		}

		dispatched++
	}

	if dispatched != b.Count() {
		return ErrCorrupt
	}

	return nil
}
