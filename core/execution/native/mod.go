// Package native implements the execution service of the contracts compiled
// into the node.
//
// A transaction names its contract with the ContractArg argument. The contract
// runs with full access to the snapshot of the ledger, and an error or a panic
// of the contract refuses the transaction.
package native

import (
	"sort"

	"go.dedis.ch/dmarket/core/execution"
	"go.dedis.ch/dmarket/core/store"
	"golang.org/x/xerrors"
)

// ContractArg is the argument of a transaction with the name of its contract.
const ContractArg = "dmarket:contract"

// Contract is a contract compiled into the node.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error
}

// Service routes the transactions to the registered contracts.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
}

// NewExecution returns a service without any contract.
func NewExecution() *Service {
	return &Service{
		contracts: map[string]Contract{},
	}
}

// Set registers the contract under the name. It panics if the name is empty or
// already taken, as the contracts are registered when the node starts.
func (ns *Service) Set(name string, contract Contract) {
	if name == "" {
		panic("contract name is empty")
	}

	_, found := ns.contracts[name]
	if found {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	ns.contracts[name] = contract
}

// Names returns the sorted names of the registered contracts.
func (ns *Service) Names() []string {
	names := make([]string, 0, len(ns.contracts))
	for name := range ns.contracts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute implements execution.Service. A transaction for an unknown contract
// is an error, while a failure of the contract is a refusal.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	err := run(contract, snap, step)
	if err != nil {
		return execution.Result{Message: err.Error(), Err: err}, nil
	}

	return execution.Result{Accepted: true}, nil
}

func run(contract Contract, snap store.Snapshot, step execution.Step) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = xerrors.Errorf("contract panicked: %v", r)
		}
	}()

	return contract.Execute(snap, step)
}
