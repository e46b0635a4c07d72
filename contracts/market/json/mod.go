// Package json implements the JSON format of the marketplace records.
package json

import (
	"go.dedis.ch/dmarket/contracts/market/types"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterProductFormat(serde.FormatJSON, productFormat{})
}

// ProductJSON is the JSON message of a product. The price is a decimal string.
type ProductJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Location    string `json:"location"`
	Price       string `json:"price"`
	Owner       string `json:"owner"`
	Sold        uint32 `json:"sold"`
}

// productFormat is the JSON engine of the products.
//
// - implements serde.Engine[types.Product]
type productFormat struct{}

// Encode implements serde.Engine. The price is written as a decimal string.
func (productFormat) Encode(ctx serde.Context, product types.Product) ([]byte, error) {
	m := ProductJSON{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Image:       product.Image,
		Location:    product.Location,
		Price:       product.Price.String(),
		Owner:       product.Owner,
		Sold:        product.Sold,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.Engine.
func (productFormat) Decode(ctx serde.Context, data []byte) (types.Product, error) {
	m := ProductJSON{}
	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return types.Product{}, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	price, err := amount.Parse(m.Price)
	if err != nil {
		return types.Product{}, xerrors.Errorf("invalid price: %v", err)
	}

	product := types.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Image:       m.Image,
		Location:    m.Location,
		Price:       price,
		Owner:       m.Owner,
		Sold:        m.Sold,
	}

	return product, nil
}
