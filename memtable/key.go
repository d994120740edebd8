package memtable

import (
	"github.com/kvcore/kvcore/codec"
)

// Value types, part of the wire format — do not change.
const (
	TypeDeletion byte = 0x00
	TypeValue    byte = 0x01
)

// typeForSeek is the value type used when constructing a lookup key:
// since ties at equal (user key, sequence) break on type descending and
// TypeValue is the larger of the two types, anchoring a seek at
// TypeValue guarantees the seek lands at or before any real entry with
// the same user key and sequence.
const typeForSeek = TypeValue

// maxSequence is the largest sequence number that fits in the 56 high
// bits of a packed tag.
const maxSequence = 1<<56 - 1

// packTag packs a sequence number and value type into the 64-bit tag
// appended to every internal key: tag = (seq << 8) | type. seq must fit
// in 56 bits — callers (sequence allocation) are responsible for
// enforcing that bound.
func packTag(seq uint64, typ byte) uint64 {
	if seq > maxSequence {
		panic("memtable: sequence number exceeds 56 bits")
	}
	return (seq << 8) | uint64(typ)
}

func unpackType(tag uint64) byte {
	return byte(tag)
}

func unpackSequence(tag uint64) uint64 {
	return tag >> 8
}

// encodeEntry builds the arena-resident byte layout for one memtable
// entry:
//
//	varint32 internal_key_len   (= len(userKey) + 8)
//	user_key bytes
//	fixed64  tag                (little-endian)
//	varint32 value_len
//	value bytes
//
// dst must be exactly encodedEntryLen(userKey, value) bytes long.
func encodeEntry(dst []byte, seq uint64, typ byte, userKey, value []byte) {
	ikeyLen := len(userKey) + 8
	n := codec.EncodeVarint32(dst, uint32(ikeyLen))
	dst = dst[n:]

	n = copy(dst, userKey)
	dst = dst[n:]

	codec.PutFixed64(dst[:8], packTag(seq, typ))
	dst = dst[8:]

	n = codec.EncodeVarint32(dst, uint32(len(value)))
	dst = dst[n:]
	copy(dst, value)
}

// encodedEntryLen returns the exact arena allocation size encodeEntry
// requires for the given user key and value.
func encodedEntryLen(userKey, value []byte) int {
	ikeyLen := len(userKey) + 8
	return codec.VarintLength32(uint32(ikeyLen)) + ikeyLen +
		codec.VarintLength32(uint32(len(value))) + len(value)
}

// encodeLookupKey builds a seek key in the same length-prefixed-internal-
// key format as encodeEntry, but without a trailing value: varint32(len)
// ‖ user_key ‖ tag. Seeking to the first entry >= this key lands on the
// newest entry for userKey with sequence <= seq (or the first entry of
// the next user key, if userKey has no such entry).
func encodeLookupKey(userKey []byte, seq uint64) []byte {
	ikeyLen := len(userKey) + 8
	dst := make([]byte, 0, codec.VarintLength32(uint32(ikeyLen))+ikeyLen)
	dst = codec.AppendVarint32(dst, uint32(ikeyLen))
	dst = append(dst, userKey...)
	var tagBuf [8]byte
	codec.PutFixed64(tagBuf[:], packTag(seq, typeForSeek))
	return append(dst, tagBuf[:]...)
}

// splitEntry decodes an encoded entry (or a lookup key, which simply has
// no trailing value bytes) into its internal key (user_key ‖ tag, as a
// single contiguous slice) and its remaining bytes (the length-prefixed
// value, or nothing for a lookup key).
func splitEntry(entry []byte) (ikey []byte, rest []byte, err error) {
	return codec.GetLengthPrefixedSlice(entry)
}

// userKeyAndTag splits an internal key (user_key ‖ 8-byte tag) into its
// two parts.
func userKeyAndTag(ikey []byte) (userKey []byte, tag uint64) {
	n := len(ikey) - 8
	return ikey[:n], codec.Fixed64(ikey[n:])
}
