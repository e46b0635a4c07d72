// Package types defines the records of the marketplace.
package types

import (
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/serde"
	"go.dedis.ch/dmarket/serde/registry"
	"golang.org/x/xerrors"
)

var productFormats = registry.New[Product]()

// RegisterProductFormat registers the engine of the products for the format.
func RegisterProductFormat(f serde.Format, e serde.Engine[Product]) {
	productFormats.Register(f, e)
}

// Product is a listed item of the marketplace.
//
// - implements serde.Message
type Product struct {
	ID          string
	Name        string
	Description string
	Image       string
	Location    string
	Price       amount.Amount
	Owner       string
	Sold        uint32
}

// Equal returns true when both products have the same fields.
func (p Product) Equal(other Product) bool {
	return p.ID == other.ID &&
		p.Name == other.Name &&
		p.Description == other.Description &&
		p.Image == other.Image &&
		p.Location == other.Location &&
		p.Price.Equal(other.Price) &&
		p.Owner == other.Owner &&
		p.Sold == other.Sold
}

// Serialize implements serde.Message. It returns the serialized data of the
// product.
func (p Product) Serialize(ctx serde.Context) ([]byte, error) {
	data, err := productFormats.Encode(ctx, p)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// ProductCandidate is the client-supplied description of a product to list.
// The owner and the sold counter are never accepted from a client.
type ProductCandidate struct {
	ID          string
	Name        string
	Description string
	Image       string
	Location    string
	Price       string
}

// ProductFactory decodes the products.
type ProductFactory struct{}

// NewProductFactory returns a new factory.
func NewProductFactory() ProductFactory {
	return ProductFactory{}
}

// ProductOf returns the product of the data in the format of the context.
func (ProductFactory) ProductOf(ctx serde.Context, data []byte) (Product, error) {
	product, err := productFormats.Decode(ctx, data)
	if err != nil {
		return Product{}, xerrors.Errorf("failed to decode: %v", err)
	}

	return product, nil
}
