// Package market implements the marketplace of products.
//
// The products are stored in their own namespace of the store. A product is
// listed by its owner and can be purchased any number of times by paying its
// exact price, which is transferred in full to the owner.
//
// Every operation works on the snapshot it is given. A failed operation may
// have written to it, so the caller is expected to discard the snapshot on
// error, which the ledger does for every refused transaction.
package market

import (
	"fmt"
	"math"
	"unicode/utf8"

	"go.dedis.ch/dmarket/contracts/market/types"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/store"
	"go.dedis.ch/dmarket/core/store/prefixed"
	"go.dedis.ch/dmarket/serde"
	"go.dedis.ch/dmarket/serde/json"
	"golang.org/x/xerrors"

	// Registers the JSON format of the products.
	_ "go.dedis.ch/dmarket/contracts/market/json"
)

// ProductsNamespace is the store namespace of the products.
const ProductsNamespace = "market:products"

// DuplicateIDError is returned when a product is created with the identifier
// of an existing one.
type DuplicateIDError struct {
	ID string
}

// Error implements error.
func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("product '%s' already exists", e.ID)
}

// ProductNotFoundError is returned when the product to purchase does not
// exist.
type ProductNotFoundError struct {
	ID string
}

// Error implements error.
func (e ProductNotFoundError) Error() string {
	return fmt.Sprintf("product '%s' not found", e.ID)
}

// PriceMismatchError is returned when the attached payment is not exactly the
// price of the product.
type PriceMismatchError struct {
	ID      string
	Price   amount.Amount
	Deposit amount.Amount
}

// Error implements error.
func (e PriceMismatchError) Error() string {
	return fmt.Sprintf("deposit %s does not match the price %s of product '%s'",
		e.Deposit, e.Price, e.ID)
}

// Transfer is the value transfer used to pay the owner of a product.
type Transfer interface {
	// Transfer moves the value from one account to the other, or fails
	// without moving anything.
	Transfer(snap store.Snapshot, from, to string, value amount.Amount) error
}

// Call is the context of an operation: the account of the caller and the
// value attached to the call.
type Call struct {
	Caller  string
	Deposit amount.Amount
}

// Marketplace provides the operations on the products of a snapshot.
type Marketplace struct {
	transfer Transfer
	context  serde.Context
	factory  types.ProductFactory
}

// NewMarketplace returns a marketplace that pays the owners with the transfer.
func NewMarketplace(transfer Transfer) Marketplace {
	return Marketplace{
		transfer: transfer,
		context:  json.NewContext(),
		factory:  types.NewProductFactory(),
	}
}

// ListProducts returns all the products of the snapshot, ordered by
// identifier.
func (m Marketplace) ListProducts(snap store.Snapshot) ([]types.Product, error) {
	products := []types.Product{}

	err := prefixed.NewSnapshot(ProductsNamespace, snap).Scan(nil, func(key, value []byte) error {
		product, err := m.factory.ProductOf(m.context, value)
		if err != nil {
			return xerrors.Errorf("failed to decode product '%s': %v", key, err)
		}

		products = append(products, product)

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to scan products: %v", err)
	}

	return products, nil
}

// GetProduct returns the product with the identifier. The boolean is false
// when the product does not exist.
func (m Marketplace) GetProduct(snap store.Readable, id string) (types.Product, bool, error) {
	value, err := prefixed.NewReadable(ProductsNamespace, snap).Get([]byte(id))
	if err != nil {
		return types.Product{}, false, xerrors.Errorf("failed to read product: %v", err)
	}

	if value == nil {
		return types.Product{}, false, nil
	}

	product, err := m.factory.ProductOf(m.context, value)
	if err != nil {
		return types.Product{}, false, xerrors.Errorf("failed to decode product '%s': %v", id, err)
	}

	return product, true, nil
}

// CreateProduct lists a new product owned by the caller. Only the descriptive
// fields and the price are copied from the candidate.
func (m Marketplace) CreateProduct(snap store.Snapshot, call Call, candidate types.ProductCandidate) (types.Product, error) {
	if call.Caller == "" {
		return types.Product{}, xerrors.New("missing caller")
	}

	if candidate.ID == "" {
		return types.Product{}, xerrors.New("missing product id")
	}

	err := checkText(candidate)
	if err != nil {
		return types.Product{}, err
	}

	_, found, err := m.GetProduct(snap, candidate.ID)
	if err != nil {
		return types.Product{}, err
	}

	if found {
		return types.Product{}, DuplicateIDError{ID: candidate.ID}
	}

	price, err := amount.Parse(candidate.Price)
	if err != nil {
		return types.Product{}, xerrors.Errorf("invalid price: %v", err)
	}

	product := types.Product{
		ID:          candidate.ID,
		Name:        candidate.Name,
		Description: candidate.Description,
		Image:       candidate.Image,
		Location:    candidate.Location,
		Price:       price,
		Owner:       call.Caller,
		Sold:        0,
	}

	err = m.write(snap, product)
	if err != nil {
		return types.Product{}, err
	}

	return product, nil
}

// PurchaseProduct buys the product with the deposit of the call. The deposit
// must be exactly the price and it is transferred in full to the owner. It
// returns the product with its updated counter.
func (m Marketplace) PurchaseProduct(snap store.Snapshot, call Call, id string) (types.Product, error) {
	if call.Caller == "" {
		return types.Product{}, xerrors.New("missing caller")
	}

	product, found, err := m.GetProduct(snap, id)
	if err != nil {
		return types.Product{}, err
	}

	if !found {
		return types.Product{}, ProductNotFoundError{ID: id}
	}

	if !call.Deposit.Equal(product.Price) {
		return types.Product{}, PriceMismatchError{
			ID:      id,
			Price:   product.Price,
			Deposit: call.Deposit,
		}
	}

	if product.Sold == math.MaxUint32 {
		return types.Product{}, xerrors.Errorf("sold counter of product '%s' is exhausted", id)
	}

	err = m.transfer.Transfer(snap, call.Caller, product.Owner, call.Deposit)
	if err != nil {
		return types.Product{}, xerrors.Errorf("failed to pay the owner: %w", err)
	}

	product.Sold++

	err = m.write(snap, product)
	if err != nil {
		return types.Product{}, err
	}

	return product, nil
}

// checkText returns an error if a text field is not valid UTF-8, which the JSON
// record could not hold unchanged.
func checkText(candidate types.ProductCandidate) error {
	fields := []struct {
		name  string
		value string
	}{
		{"id", candidate.ID},
		{"name", candidate.Name},
		{"description", candidate.Description},
		{"image", candidate.Image},
		{"location", candidate.Location},
	}

	for _, field := range fields {
		if !utf8.ValidString(field.value) {
			return xerrors.Errorf("product %s is not valid UTF-8", field.name)
		}
	}

	return nil
}

func (m Marketplace) write(snap store.Snapshot, product types.Product) error {
	data, err := product.Serialize(m.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize product: %v", err)
	}

	err = prefixed.NewSnapshot(ProductsNamespace, snap).Set([]byte(product.ID), data)
	if err != nil {
		return xerrors.Errorf("failed to write product: %v", err)
	}

	return nil
}
