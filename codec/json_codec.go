package codec

import (
	"encoding/json"
)

// JSONCodec serializes registry entries and command line output. A non-empty
// Indent pretty-prints the encoding.
type JSONCodec struct {
	Indent string
}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
