package engine

import (
	"github.com/kanari-network/kanari-core/internal/account"
	"github.com/kanari-network/kanari-core/internal/address"
)

// GetAccount returns addr's full account record. Read operations never
// acquire the writer lease (spec §4.5, §8).
func (e *Engine) GetAccount(addr address.Address) (account.State, error) {
	return e.store.ReadAccount(addr)
}

// GetBalance returns addr's current balance.
func (e *Engine) GetBalance(addr address.Address) (uint64, error) {
	acc, err := e.store.ReadAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// GetBlockHeight returns the Engine's local block-height counter.
func (e *Engine) GetBlockHeight() uint64 {
	return e.blockHeight.Load()
}

// GetStats returns a snapshot of the Engine's local counters.
func (e *Engine) GetStats() Stats {
	return Stats{
		BlockHeight:      e.blockHeight.Load(),
		TxCount:          e.txCount.Load(),
		TotalGasConsumed: e.totalGasConsumed.Load(),
	}
}

// GetContract reports whether name has been published to addr (a thin
// projection over ReadAccount; there is no separate contract-storage
// structure, SPEC_FULL.md §7).
func (e *Engine) GetContract(addr address.Address, name string) (bool, error) {
	acc, err := e.store.ReadAccount(addr)
	if err != nil {
		return false, err
	}
	return acc.HasModule(name), nil
}

// ListContracts returns the sorted module names published to addr.
func (e *Engine) ListContracts(addr address.Address) ([]string, error) {
	acc, err := e.store.ReadAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.ModuleNames(), nil
}
