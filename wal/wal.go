// Package wal implements the write-ahead log writer: it fragments an
// opaque record across fixed 32 KiB blocks, each fragment framed by a
// 7-byte header carrying a masked CRC32C checksum, a length, and a
// fragment type. Reading the log back is out of scope — this package
// only writes.
package wal

import (
	"encoding/binary"
	"hash/crc32"
)

// BlockSize is the fixed size of a WAL block, part of the wire format.
const BlockSize = 32 * 1024

// headerSize is the fixed size of a fragment header: 4-byte masked CRC,
// 2-byte length, 1-byte type.
const headerSize = 7

// Fragment types, part of the wire format — do not change.
const (
	TypeZero   byte = 0 // padding / seed, never a real fragment on the wire
	TypeFull   byte = 1
	TypeFirst  byte = 2
	TypeMiddle byte = 3
	TypeLast   byte = 4
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// crcSeed holds crc32c(type_byte) for each fragment type, precomputed so
// emitPhysicalRecord only has to extend the seed over the payload.
var crcSeed = [5]uint32{
	TypeZero:   crc32.Checksum([]byte{TypeZero}, castagnoli),
	TypeFull:   crc32.Checksum([]byte{TypeFull}, castagnoli),
	TypeFirst:  crc32.Checksum([]byte{TypeFirst}, castagnoli),
	TypeMiddle: crc32.Checksum([]byte{TypeMiddle}, castagnoli),
	TypeLast:   crc32.Checksum([]byte{TypeLast}, castagnoli),
}

// maskDelta is LevelDB's CRC masking constant: masking avoids
// catastrophic equivalence between the CRC of header-less and
// header-bearing representations of the same bytes during partial
// writes.
const maskDelta = 0xa282ead8

func mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Sink is the output a Writer appends fragments to. Real implementations
// typically wrap an *os.File; the only contract this package relies on
// is append-then-flush.
type Sink interface {
	Append(p []byte) error
	Flush() error
}

// Writer fragments records into a Sink's fixed-size block grid. A Writer
// is not safe for concurrent use — the engine above serializes writes.
type Writer struct {
	sink        Sink
	blockOffset int
}

// NewWriter returns a Writer that starts writing at the beginning of a
// fresh block.
func NewWriter(sink Sink) *Writer {
	return &Writer{sink: sink}
}

// NewWriterAt returns a Writer that continues appending to a sink whose
// existing length is existingLength, aligning block_offset to the
// existing block grid so that appends land correctly without rewriting
// earlier blocks.
func NewWriterAt(sink Sink, existingLength int64) *Writer {
	return &Writer{
		sink:        sink,
		blockOffset: int(existingLength % BlockSize),
	}
}

// AddRecord fragments payload across the block grid and writes it to the
// sink as FULL, or FIRST·MIDDLE*·LAST. It runs at least one iteration
// even for an empty payload, emitting a zero-length FULL fragment. Any
// sink error aborts immediately; blockOffset reflects whatever the sink
// accepted before the failure.
func (w *Writer) AddRecord(payload []byte) error {
	first := true

	for {
		if leftover := BlockSize - w.blockOffset; leftover < headerSize {
			if leftover > 0 {
				if err := w.sink.Append(make([]byte, leftover)); err != nil {
					return err
				}
			}
			w.blockOffset = 0
		}

		avail := BlockSize - w.blockOffset - headerSize
		fragLen := len(payload)
		if fragLen > avail {
			fragLen = avail
		}

		last := fragLen == len(payload)
		var typ byte
		switch {
		case first && last:
			typ = TypeFull
		case first:
			typ = TypeFirst
		case last:
			typ = TypeLast
		default:
			typ = TypeMiddle
		}

		if err := w.emitPhysicalRecord(typ, payload[:fragLen]); err != nil {
			return err
		}

		payload = payload[fragLen:]
		first = false

		if last {
			return nil
		}
	}
}

func (w *Writer) emitPhysicalRecord(typ byte, payload []byte) error {
	var header [headerSize]byte

	crc := crc32.Update(crcSeed[typ], castagnoli, payload)
	binary.LittleEndian.PutUint32(header[0:4], mask(crc))
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(payload)))
	header[6] = typ

	if err := w.sink.Append(header[:]); err != nil {
		return err
	}
	w.blockOffset += headerSize
	if len(payload) > 0 {
		if err := w.sink.Append(payload); err != nil {
			return err
		}
		w.blockOffset += len(payload)
	}
	return w.sink.Flush()
}
