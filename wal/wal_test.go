package wal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

// memSink is an in-memory Sink used to inspect exactly what bytes a
// Writer produces.
type memSink struct {
	buf bytes.Buffer
}

func (m *memSink) Append(p []byte) error {
	_, err := m.buf.Write(p)
	return err
}

func (m *memSink) Flush() error { return nil }

// parsedFragment is a block-framed fragment decoded back out of a
// memSink's bytes, used to assert framing/CRC properties without a
// production reader (reading is out of scope for this package).
type parsedFragment struct {
	typ     byte
	payload []byte
}

func parseFragments(t *testing.T, data []byte) []parsedFragment {
	t.Helper()

	var frags []parsedFragment
	for len(data) > 0 {
		blockEnd := BlockSize
		if len(data) < BlockSize {
			blockEnd = len(data)
		}
		block := data[:blockEnd]
		data = data[blockEnd:]

		off := 0
		for off+headerSize <= len(block) {
			crcField := binary.LittleEndian.Uint32(block[off : off+4])
			length := binary.LittleEndian.Uint16(block[off+4 : off+6])
			typ := block[off+6]

			if typ == TypeZero {
				break // padding to end of block
			}

			payloadStart := off + headerSize
			payloadEnd := payloadStart + int(length)
			if payloadEnd > len(block) {
				t.Fatalf("fragment payload overruns block")
			}
			payload := block[payloadStart:payloadEnd]

			got := mask(crc32.Update(crcSeed[typ], castagnoli, payload))
			if got != crcField {
				t.Fatalf("crc mismatch for fragment type %d", typ)
			}

			frags = append(frags, parsedFragment{typ: typ, payload: append([]byte(nil), payload...)})
			off = payloadEnd
		}
	}
	return frags
}

func TestSmallRecordIsFullFragment(t *testing.T) {
	sink := &memSink{}
	w := NewWriter(sink)

	payload := bytes.Repeat([]byte{0xAB}, 100)
	if err := w.AddRecord(payload); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	if sink.buf.Len() != headerSize+100 {
		t.Fatalf("expected %d bytes, got %d", headerSize+100, sink.buf.Len())
	}

	frags := parseFragments(t, sink.buf.Bytes())
	if len(frags) != 1 || frags[0].typ != TypeFull {
		t.Fatalf("expected single FULL fragment, got %+v", frags)
	}
	if !bytes.Equal(frags[0].payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestEmptyPayloadEmitsZeroLengthFullFragment(t *testing.T) {
	sink := &memSink{}
	w := NewWriter(sink)

	if err := w.AddRecord(nil); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	if sink.buf.Len() != headerSize {
		t.Fatalf("expected exactly one header, got %d bytes", sink.buf.Len())
	}

	frags := parseFragments(t, sink.buf.Bytes())
	if len(frags) != 1 || frags[0].typ != TypeFull || len(frags[0].payload) != 0 {
		t.Fatalf("expected one zero-length FULL fragment, got %+v", frags)
	}
}

func TestFragmentationAcrossBlocks(t *testing.T) {
	sink := &memSink{}
	w := NewWriter(sink)

	payload := bytes.Repeat([]byte{0x01}, 40000)
	if err := w.AddRecord(payload); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	frags := parseFragments(t, sink.buf.Bytes())
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].typ != TypeFirst || frags[1].typ != TypeLast {
		t.Fatalf("expected FIRST then LAST, got %d then %d", frags[0].typ, frags[1].typ)
	}

	firstLen := BlockSize - headerSize
	if len(frags[0].payload) != firstLen {
		t.Fatalf("expected first fragment of %d bytes, got %d", firstLen, len(frags[0].payload))
	}
	if len(frags[1].payload) != 40000-firstLen {
		t.Fatalf("expected last fragment of %d bytes, got %d", 40000-firstLen, len(frags[1].payload))
	}

	// The second block starts exactly at the 32KiB boundary.
	if sink.buf.Len() <= BlockSize {
		t.Fatalf("expected output spanning more than one block")
	}

	var reassembled []byte
	for _, f := range frags {
		reassembled = append(reassembled, f.payload...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Fatalf("reassembled payload mismatch")
	}
}

func TestThreeFragmentRecordUsesFirstMiddleLast(t *testing.T) {
	sink := &memSink{}
	w := NewWriter(sink)

	// Large enough to need FIRST, at least one MIDDLE, and a LAST.
	payload := bytes.Repeat([]byte{0x42}, BlockSize*2+500)
	if err := w.AddRecord(payload); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	frags := parseFragments(t, sink.buf.Bytes())
	if len(frags) < 3 {
		t.Fatalf("expected at least 3 fragments, got %d", len(frags))
	}
	if frags[0].typ != TypeFirst {
		t.Fatalf("expected first fragment FIRST, got %d", frags[0].typ)
	}
	if frags[len(frags)-1].typ != TypeLast {
		t.Fatalf("expected last fragment LAST, got %d", frags[len(frags)-1].typ)
	}
	for _, f := range frags[1 : len(frags)-1] {
		if f.typ != TypeMiddle {
			t.Fatalf("expected interior fragments MIDDLE, got %d", f.typ)
		}
	}

	var reassembled []byte
	for _, f := range frags {
		reassembled = append(reassembled, f.payload...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Fatalf("reassembled payload mismatch")
	}
}

func TestBlockPaddingOnShortTrailer(t *testing.T) {
	sink := &memSink{}
	w := NewWriter(sink)

	// Leave exactly 5 bytes in the block (< headerSize of 7), forcing
	// the next AddRecord to pad and roll to a new block.
	first := bytes.Repeat([]byte{0x01}, BlockSize-headerSize-5)
	if err := w.AddRecord(first); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	if w.blockOffset != BlockSize-5 {
		t.Fatalf("expected blockOffset=%d, got %d", BlockSize-5, w.blockOffset)
	}

	lenBeforeSecond := sink.buf.Len()

	second := []byte("hi")
	if err := w.AddRecord(second); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	// Exactly 5 padding bytes, then a fresh FULL fragment.
	producedForSecond := sink.buf.Len() - lenBeforeSecond
	if producedForSecond != 5+headerSize+len(second) {
		t.Fatalf("expected %d bytes (5 pad + header + payload), got %d", 5+headerSize+len(second), producedForSecond)
	}

	padding := sink.buf.Bytes()[lenBeforeSecond : lenBeforeSecond+5]
	for _, b := range padding {
		if b != 0 {
			t.Fatalf("expected zero padding, got %v", padding)
		}
	}

	if w.blockOffset != headerSize+len(second) {
		t.Fatalf("expected writer to resume at start of new block plus record, got blockOffset=%d", w.blockOffset)
	}
}

func TestNewWriterAtAlignsToExistingLength(t *testing.T) {
	sink := &memSink{}
	w := NewWriterAt(sink, BlockSize+123)

	if w.blockOffset != 123 {
		t.Fatalf("expected blockOffset=123, got %d", w.blockOffset)
	}
}

func TestSinkErrorAbortsImmediately(t *testing.T) {
	sink := &failingSink{failAfter: 0}
	w := NewWriter(sink)

	err := w.AddRecord([]byte("hello"))
	if err == nil {
		t.Fatalf("expected error from failing sink")
	}
	if sink.calls != 1 {
		t.Fatalf("expected exactly one sink call before abort, got %d", sink.calls)
	}
}

type failingSink struct {
	calls     int
	failAfter int
}

func (f *failingSink) Append(p []byte) error {
	f.calls++
	if f.calls > f.failAfter {
		return bytes.ErrTooLarge
	}
	return nil
}

func (f *failingSink) Flush() error { return nil }
