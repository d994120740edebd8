// Package codec implements the fixed-width and varint encodings shared by
// the batch, WAL, and memtable formats: little-endian fixed32/fixed64 and
// base-128 varint32/varint64, plus length-prefixed byte slice helpers.
package codec

import (
	"encoding/binary"
	"errors"
)

// ErrCorrupt is returned when a varint or length-prefixed slice cannot be
// decoded from the bytes available — truncated input or a varint that
// never terminates within its maximum byte count.
var ErrCorrupt = errors.New("codec: corrupt encoding")

const (
	maxVarint32Bytes = 5
	maxVarint64Bytes = 10
)

// PutFixed32 writes v to buf[0:4] in little-endian order. buf must have
// length at least 4.
func PutFixed32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// PutFixed64 writes v to buf[0:8] in little-endian order. buf must have
// length at least 8.
func PutFixed64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// Fixed32 decodes a little-endian uint32 from buf[0:4].
func Fixed32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// Fixed64 decodes a little-endian uint64 from buf[0:8].
func Fixed64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// VarintLength32 returns the number of bytes EncodeVarint32 would emit for v.
func VarintLength32(v uint32) int {
	return varintLength(uint64(v))
}

// VarintLength64 returns the number of bytes EncodeVarint64 would emit for v.
func VarintLength64(v uint64) int {
	return varintLength(v)
}

func varintLength(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// AppendVarint32 appends the base-128 varint encoding of v to dst and
// returns the extended slice.
func AppendVarint32(dst []byte, v uint32) []byte {
	return AppendVarint64(dst, uint64(v))
}

// AppendVarint64 appends the base-128 varint encoding of v to dst and
// returns the extended slice.
func AppendVarint64(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeVarint32 writes the varint encoding of v into dst starting at
// offset 0 and returns the number of bytes written. dst must be at least
// VarintLength32(v) bytes long.
func EncodeVarint32(dst []byte, v uint32) int {
	return encodeVarint(dst, uint64(v))
}

// EncodeVarint64 writes the varint encoding of v into dst starting at
// offset 0 and returns the number of bytes written. dst must be at least
// VarintLength64(v) bytes long.
func EncodeVarint64(dst []byte, v uint64) int {
	return encodeVarint(dst, v)
}

func encodeVarint(dst []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// DecodeVarint32 decodes a varint32 from the front of p, returning the
// value and the number of bytes consumed. It fails if p is exhausted
// before a terminating byte, or if more than 5 bytes are consumed.
func DecodeVarint32(p []byte) (v uint32, n int, err error) {
	val, n, err := decodeVarint(p, maxVarint32Bytes)
	return uint32(val), n, err
}

// DecodeVarint64 decodes a varint64 from the front of p, returning the
// value and the number of bytes consumed. It fails if p is exhausted
// before a terminating byte, or if more than 10 bytes are consumed.
func DecodeVarint64(p []byte) (v uint64, n int, err error) {
	return decodeVarint(p, maxVarint64Bytes)
}

func decodeVarint(p []byte, maxBytes int) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(p) && i < maxBytes; i++ {
		b := p[i]
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrCorrupt
}

// AppendLengthPrefixedSlice appends a varint32 length prefix followed by
// s itself to dst.
func AppendLengthPrefixedSlice(dst []byte, s []byte) []byte {
	dst = AppendVarint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// GetLengthPrefixedSlice reads a varint32-length-prefixed byte slice from
// the front of p. It returns the slice (a view into p, not a copy), the
// remainder of p after the slice, and an error if p is truncated.
func GetLengthPrefixedSlice(p []byte) (s []byte, rest []byte, err error) {
	length, n, err := DecodeVarint32(p)
	if err != nil {
		return nil, nil, ErrCorrupt
	}
	p = p[n:]
	if uint32(len(p)) < length {
		return nil, nil, ErrCorrupt
	}
	return p[:length], p[length:], nil
}
