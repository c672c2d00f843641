// Package protocol implements ONC RPC record marking (RFC 5531 section 11) over TCP.
//
// TCP is a byte stream, so every RPC message is sent as a record made of one
// or more fragments. Each fragment starts with a 4-byte header: the high bit
// marks the last fragment of the record, the low 31 bits give the fragment
// length. The receiver reads fragments until it sees the last one.
//
// Fragment format:
//
//	0                            4
//	┌─┬──────────────────────────┬───────────────────┐
//	│L│    fragment length       │   fragment ...    │
//	│ │    31 bits, big-endian   │   length bytes    │
//	└─┴──────────────────────────┴───────────────────┘
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	HeaderSize      = 4
	LastFragment    = uint32(1) << 31
	MaxFragmentSize = int(LastFragment - 1)
	// MaxRecordSize bounds a reassembled record. The largest DDS message is a
	// few kilobytes; anything near this limit is a broken or hostile peer.
	MaxRecordSize = 4 << 20
)

// Header is a decoded fragment header.
type Header struct {
	Last   bool   // This fragment completes the record
	Length uint32 // Fragment body length in bytes
}

// ReadHeader reads one fragment header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	v := binary.BigEndian.Uint32(buf[:])
	return &Header{
		Last:   v&LastFragment != 0,
		Length: v &^ LastFragment,
	}, nil
}

// Encode writes body to w as a single-fragment record.
func Encode(w io.Writer, body []byte) error {
	return EncodeFragments(w, body, MaxFragmentSize)
}

// EncodeFragments writes body to w split into fragments of at most
// fragSize bytes. The whole record is written with one Write call so that
// concurrent writers holding a lock never interleave partial records.
func EncodeFragments(w io.Writer, body []byte, fragSize int) error {
	if fragSize <= 0 || fragSize > MaxFragmentSize {
		return fmt.Errorf("invalid fragment size: %d", fragSize)
	}
	if len(body) > MaxRecordSize {
		return fmt.Errorf("record too large: %d bytes", len(body))
	}

	nFrags := (len(body) + fragSize - 1) / fragSize
	if nFrags == 0 {
		nFrags = 1 // empty record still needs a last-fragment header
	}
	buf := make([]byte, 0, len(body)+nFrags*HeaderSize)

	for off := 0; ; {
		end := off + fragSize
		if end > len(body) {
			end = len(body)
		}
		v := uint32(end - off)
		if end == len(body) {
			v |= LastFragment
		}
		buf = binary.BigEndian.AppendUint32(buf, v)
		buf = append(buf, body[off:end]...)
		if end == len(body) {
			break
		}
		off = end
	}

	_, err := w.Write(buf)
	return err
}

// Decode reads one complete record from r, reassembling its fragments.
// Uses io.ReadFull for every piece so short reads never split a fragment.
func Decode(r io.Reader) ([]byte, error) {
	var record []byte
	for {
		h, err := ReadHeader(r)
		if err != nil {
			if len(record) > 0 && err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if len(record)+int(h.Length) > MaxRecordSize {
			return nil, fmt.Errorf("record exceeds %d bytes", MaxRecordSize)
		}

		start := len(record)
		record = append(record, make([]byte, h.Length)...)
		if _, err := io.ReadFull(r, record[start:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if h.Last {
			if record == nil {
				record = []byte{}
			}
			return record, nil
		}
	}
}
