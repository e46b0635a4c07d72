package types

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/internal/testing/fake"
	"go.dedis.ch/dmarket/serde"
)

func init() {
	RegisterProductFormat(fake.GoodFormat, fake.Engine[Product]{Value: Product{ID: "1"}})
	RegisterProductFormat(fake.BadFormat, fake.Engine[Product]{Err: fake.GetError()})
}

func TestProduct_Equal(t *testing.T) {
	p := Product{ID: "5", Name: "coffee", Price: amount.FromUint64(3), Owner: "alice"}

	require.True(t, p.Equal(p))
	require.True(t, p.Equal(Product{ID: "5", Name: "coffee", Price: amount.FromUint64(3), Owner: "alice"}))

	other := p
	other.Sold = 1
	require.False(t, p.Equal(other))

	other = p
	other.Price = amount.FromUint64(4)
	require.False(t, p.Equal(other))

	other = p
	other.Owner = "bob"
	require.False(t, p.Equal(other))
}

func TestProduct_Serialize(t *testing.T) {
	p := Product{ID: "1"}

	data, err := p.Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))

	_, err = p.Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("failed to encode"))

	_, err = p.Serialize(fake.NewContextWithFormat(serde.Format("XML")))
	require.EqualError(t, err, "failed to encode: format 'XML' is not implemented")
}

func TestProductFactory_ProductOf(t *testing.T) {
	factory := NewProductFactory()

	product, err := factory.ProductOf(fake.NewContext(), nil)
	require.NoError(t, err)
	require.Equal(t, Product{ID: "1"}, product)

	_, err = factory.ProductOf(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("failed to decode"))

	_, err = factory.ProductOf(fake.NewContextWithFormat(serde.Format("XML")), nil)
	require.EqualError(t, err, "failed to decode: format 'XML' is not implemented")
}
