// Package loader loads the key of a node, and creates it on the first start.
package loader

// Generator creates a new marshaled key.
type Generator interface {
	Generate() ([]byte, error)
}

// Loader gives access to a key kept across the restarts of a node.
type Loader interface {
	// LoadOrCreate returns the key, after generating and storing it if it does
	// not exist yet.
	LoadOrCreate(Generator) ([]byte, error)

	// Load returns the key, or an error if it does not exist.
	Load() ([]byte, error)
}
