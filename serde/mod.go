// Package serde defines how the records of the node are encoded.
//
// A record does not know its encoding. It looks up the engine registered for
// the format of the context it is given, and the packages of the wire formats
// register their engines when they are imported.
package serde

// Format is the identifier of an encoding.
type Format string

// FormatJSON is the identifier of the JSON encoding.
const FormatJSON Format = "JSON"

// Codec encodes plain values in a format.
type Codec interface {
	// Format returns the identifier of the encoding.
	Format() Format

	Marshal(v interface{}) ([]byte, error)

	Unmarshal(data []byte, v interface{}) error
}

// Context is passed to every encoding and decoding request.
type Context struct {
	Codec
}

// NewContext returns a context that encodes with the codec.
func NewContext(codec Codec) Context {
	return Context{Codec: codec}
}

// Message is a record that can be encoded.
type Message interface {
	Serialize(ctx Context) ([]byte, error)
}

// Engine converts the records of type T from and to one format.
type Engine[T any] interface {
	Encode(ctx Context, record T) ([]byte, error)

	Decode(ctx Context, data []byte) (T, error)
}
