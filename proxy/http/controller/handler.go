package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.dedis.ch/dmarket/contracts/bank"
	"go.dedis.ch/dmarket/contracts/market"
	"go.dedis.ch/dmarket/contracts/market/types"
	"go.dedis.ch/dmarket/core/amount"
	"go.dedis.ch/dmarket/core/store"
	serdejson "go.dedis.ch/dmarket/serde/json"
)

const (
	productsPath = "/products"
	productPath  = "/products/"
	balancePath  = "/balances/"
	metricsPath  = "/metrics"
)

// querier is the read access to the ledger.
type querier interface {
	Query(fn func(store.Snapshot) error) error
}

// balanceResponse is the response of the balance endpoint.
type balanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

// errorResponse is the response of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handlers serves the read-only queries of the ledger.
type handlers struct {
	ledger querier
	market market.Marketplace
	bank   bank.Bank
}

// products returns all the products.
func (h handlers) products(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	var products []types.Product

	err := h.ledger.Query(func(snap store.Snapshot) error {
		var err error
		products, err = h.market.ListProducts(snap)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx := serdejson.NewContext()

	res := make([]json.RawMessage, len(products))
	for i, product := range products {
		data, err := product.Serialize(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		res[i] = data
	}

	writeJSON(w, http.StatusOK, res)
}

// product returns the product of the path, or 404 if it does not exist.
func (h handlers) product(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, productPath)
	if id == "" {
		h.products(w, r)
		return
	}

	var product types.Product
	var found bool

	err := h.ledger.Query(func(snap store.Snapshot) error {
		var err error
		product, found, err = h.market.GetProduct(snap, id)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !found {
		writeError(w, http.StatusNotFound, market.ProductNotFoundError{ID: id})
		return
	}

	data, err := product.Serialize(serdejson.NewContext())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, json.RawMessage(data))
}

// balance returns the balance of the account of the path.
func (h handlers) balance(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	account := strings.TrimPrefix(r.URL.Path, balancePath)

	var balance amount.Amount

	err := h.ledger.Query(func(snap store.Snapshot) error {
		var err error
		balance, err = h.bank.Balance(snap, account)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Account: account,
		Balance: balance.String(),
	})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}

	w.Header().Set("Allow", http.MethodGet)
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})

	return false
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
