package fake

import (
	"go.dedis.ch/dmarket/serde"
)

const (
	// GoodFormat is the format of a context that succeeds.
	GoodFormat = serde.Format("FakeGood")

	// BadFormat is the format of a context that fails.
	BadFormat = serde.Format("FakeBad")
)

// Engine is a fake engine for the records of type T. It decodes the value and
// records the calls if Call is set.
type Engine[T any] struct {
	Value T
	Call  *Call
	Err   error
}

// Encode implements serde.Engine.
func (e Engine[T]) Encode(ctx serde.Context, record T) ([]byte, error) {
	if e.Call != nil {
		e.Call.Add(ctx, record)
	}

	return []byte("{}"), e.Err
}

// Decode implements serde.Engine.
func (e Engine[T]) Decode(ctx serde.Context, data []byte) (T, error) {
	if e.Call != nil {
		e.Call.Add(ctx, data)
	}

	return e.Value, e.Err
}

// codec is a fake codec that uses the given format name.
type codec struct {
	format serde.Format
	err    error
}

// NewContext returns a new serde context with the good format.
func NewContext() serde.Context {
	return NewContextWithFormat(GoodFormat)
}

// NewContextWithFormat returns a new serde context with the given format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(codec{format: f})
}

// NewBadContext returns a new serde context with the bad format and a codec
// that always fails.
func NewBadContext() serde.Context {
	return serde.NewContext(codec{format: BadFormat, err: fakeErr})
}

func (c codec) Format() serde.Format {
	return c.format
}

func (c codec) Marshal(interface{}) ([]byte, error) {
	return []byte("{}"), c.err
}

func (c codec) Unmarshal([]byte, interface{}) error {
	return c.err
}
