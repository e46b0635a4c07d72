// Package registry maps the formats to the engines of one type of record.
package registry

import (
	"sync"

	"go.dedis.ch/dmarket/serde"
	"golang.org/x/xerrors"
)

// Registry holds the engines of the records of type T. It can be filled and
// read concurrently.
type Registry[T any] struct {
	sync.RWMutex

	engines map[serde.Format]serde.Engine[T]
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		engines: make(map[serde.Format]serde.Engine[T]),
	}
}

// Register sets the engine of the format, replacing any previous one.
func (r *Registry[T]) Register(format serde.Format, engine serde.Engine[T]) {
	r.Lock()
	r.engines[format] = engine
	r.Unlock()
}

// Lookup returns the engine of the format, or an error if none is registered.
func (r *Registry[T]) Lookup(format serde.Format) (serde.Engine[T], error) {
	r.RLock()
	engine, found := r.engines[format]
	r.RUnlock()

	if !found {
		return nil, xerrors.Errorf("format '%s' is not implemented", format)
	}

	return engine, nil
}

// Encode encodes the record with the engine of the format of the context.
func (r *Registry[T]) Encode(ctx serde.Context, record T) ([]byte, error) {
	engine, err := r.Lookup(ctx.Format())
	if err != nil {
		return nil, err
	}

	return engine.Encode(ctx, record)
}

// Decode decodes a record with the engine of the format of the context.
func (r *Registry[T]) Decode(ctx serde.Context, data []byte) (T, error) {
	engine, err := r.Lookup(ctx.Format())
	if err != nil {
		var zero T
		return zero, err
	}

	return engine.Decode(ctx, data)
}
