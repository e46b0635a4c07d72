// This file contains the implementation of a dependency injector using
// reflection.

package node

import (
	"reflect"
	"sync"

	"golang.org/x/xerrors"
)

// dependency is an injected value and its concrete type.
type dependency struct {
	typ   reflect.Type
	value interface{}
}

// ReflectInjector is a dependency injector that uses reflection to resolve
// specific interfaces. The daemon runs the actions concurrently, so the
// dependencies are protected by a lock.
//
// - implements node.Injector
type reflectInjector struct {
	sync.RWMutex

	deps []dependency
}

// NewInjector returns a empty injector.
func NewInjector() Injector {
	return &reflectInjector{}
}

// Resolve implements node.Injector. It populates the given interface with the
// first compatible dependency in the order of injection.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	if !rv.Elem().IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	inj.RLock()
	defer inj.RUnlock()

	for _, dep := range inj.deps {
		if dep.typ.AssignableTo(rv.Elem().Type()) {
			rv.Elem().Set(reflect.ValueOf(dep.value))
			return nil
		}
	}

	return xerrors.Errorf("couldn't find dependency for '%v'", rv.Elem().Type())
}

// Inject implements node.Injector. It injects the dependency to be available
// later on. A dependency of the same concrete type is replaced in place.
func (inj *reflectInjector) Inject(v interface{}) {
	typ := reflect.TypeOf(v)

	inj.Lock()
	defer inj.Unlock()

	for i, dep := range inj.deps {
		if dep.typ == typ {
			inj.deps[i].value = v
			return
		}
	}

	inj.deps = append(inj.deps, dependency{typ: typ, value: v})
}
