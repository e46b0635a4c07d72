// Package json implements the JSON codec of the records.
package json

import (
	"bytes"
	"encoding/json"

	"go.dedis.ch/dmarket/serde"
	"golang.org/x/xerrors"
)

// codec encodes the values in JSON. HTML characters are kept unescaped so that
// the image URLs are stored as they were given.
//
// - implements serde.Codec
type codec struct{}

// NewContext returns a JSON context.
func NewContext() serde.Context {
	return serde.NewContext(codec{})
}

// Format implements serde.Codec.
func (codec) Format() serde.Format {
	return serde.FormatJSON
}

// Marshal implements serde.Codec. The output has no trailing newline.
func (codec) Marshal(v interface{}) ([]byte, error) {
	buffer := new(bytes.Buffer)

	enc := json.NewEncoder(buffer)
	enc.SetEscapeHTML(false)

	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// Unmarshal implements serde.Codec. Unknown fields are rejected.
func (codec) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		return err
	}

	if dec.More() {
		return xerrors.Errorf("unexpected data after offset %d", dec.InputOffset())
	}

	return nil
}
