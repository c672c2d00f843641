package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	body := []byte("hello world")

	var buf bytes.Buffer
	if err := Encode(&buf, body); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// One fragment: header + body
	if buf.Len() != HeaderSize+len(body) {
		t.Fatalf("expect %d bytes on the wire, got %d", HeaderSize+len(body), buf.Len())
	}
	hdr := binary.BigEndian.Uint32(buf.Bytes()[:4])
	if hdr&LastFragment == 0 {
		t.Fatal("single fragment must carry the last-fragment bit")
	}
	if hdr&^LastFragment != uint32(len(body)) {
		t.Fatalf("fragment length mismatch: got %d, want %d", hdr&^LastFragment, len(body))
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Errorf("Body mismatch: got %s, want %s", decoded, body)
	}
}

func TestDecodeFragmentedRecord(t *testing.T) {
	body := make([]byte, 1000)
	for i := range body {
		body[i] = byte(i % 251)
	}

	var buf bytes.Buffer
	if err := EncodeFragments(&buf, body, 64); err != nil {
		t.Fatalf("EncodeFragments failed: %v", err)
	}

	// 1000/64 -> 16 fragments
	if want := len(body) + 16*HeaderSize; buf.Len() != want {
		t.Fatalf("expect %d bytes on the wire, got %d", want, buf.Len())
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Error("reassembled record does not match")
	}
}

func TestDecodeBackToBackRecords(t *testing.T) {
	var buf bytes.Buffer
	Encode(&buf, []byte("first"))
	Encode(&buf, []byte("second"))

	first, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != "first" || string(second) != "second" {
		t.Fatalf("got %q, %q", first, second)
	}

	if _, err := Decode(&buf); err != io.EOF {
		t.Fatalf("expect io.EOF on empty stream, got %v", err)
	}
}

func TestDecodeEmptyRecord(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded == nil || len(decoded) != 0 {
		t.Errorf("expect empty non-nil record, got %v", decoded)
	}
}

func TestDecodeTruncated(t *testing.T) {
	var buf bytes.Buffer
	Encode(&buf, []byte("hello world"))
	truncated := bytes.NewReader(buf.Bytes()[:8])

	_, err := Decode(truncated)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expect io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecodeMissingLastFragment(t *testing.T) {
	// A non-last fragment followed by end of stream
	frame := []byte{0x00, 0x00, 0x00, 0x02, 'h', 'i'}

	_, err := Decode(bytes.NewReader(frame))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expect io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecodeOversizedRecord(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], LastFragment|uint32(MaxRecordSize+1))

	_, err := Decode(bytes.NewReader(hdr[:]))
	if err == nil {
		t.Fatal("expect error for oversized record")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEncodeInvalidFragmentSize(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeFragments(&buf, []byte("x"), 0); err == nil {
		t.Fatal("expect error for zero fragment size")
	}
}
