package codec

import (
	"bytes"

	xdr "github.com/davecgh/go-xdr/xdr2"
)

// XDRCodec serializes values with External Data Representation (RFC 4506).
// Go fixed-size arrays map to XDR fixed arrays, slices to variable-length
// arrays, int32 to int and float64 to double.
type XDRCodec struct{}

func (c *XDRCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode unmarshals data into v, which must be a pointer. Trailing bytes are
// ignored, as the Sun RPC runtime does. A length prefix larger than data is
// rejected before anything is allocated for it.
func (c *XDRCodec) Decode(data []byte, v any) error {
	return unmarshal(bytes.NewReader(data), v)
}

// unmarshal decodes one value from r. No array, opaque or string may claim
// more elements than r has bytes left.
func unmarshal(r *bytes.Reader, v any) error {
	_, err := xdr.UnmarshalLimited(r, v, uint(r.Len()))
	return err
}

func (c *XDRCodec) Type() CodecType {
	return CodecTypeXDR
}
