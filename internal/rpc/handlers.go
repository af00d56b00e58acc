package rpc

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/kanari-network/kanari-core/internal/address"
	"github.com/kanari-network/kanari-core/internal/errs"
	"github.com/kanari-network/kanari-core/internal/txn"
)

// accountView is the wire projection of account.State returned by
// kanari_getAccount.
type accountView struct {
	Address  string   `json:"address"`
	Balance  uint64   `json:"balance"`
	Sequence uint64   `json:"sequence"`
	Modules  []string `json:"modules"`
}

type addrOnlyParams struct {
	Address addressParam `json:"address"`
}

func handleGetAccount(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p addrOnlyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	addr := address.Address(p.Address)
	acc, err := s.engine.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return accountView{Address: addr.String(), Balance: acc.Balance, Sequence: acc.Sequence, Modules: acc.ModuleNames()}, nil
}

func handleGetBalance(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p addrOnlyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	balance, err := s.engine.GetBalance(address.Address(p.Address))
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"balance": balance}, nil
}

// blockPlaceholder is returned by kanari_getBlock: the execution core
// keeps no block history of its own, only the local block-clock counter
// (spec §4.6 routing table: "returns fixed placeholder if no block
// history is stored").
type blockPlaceholder struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

func handleGetBlock(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	return blockPlaceholder{Height: s.engine.GetBlockHeight(), Hash: "0x" + "00"}, nil
}

func handleGetBlockHeight(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	return map[string]uint64{"block_height": s.engine.GetBlockHeight()}, nil
}

type statsView struct {
	BlockHeight      uint64 `json:"block_height"`
	TxCount          uint64 `json:"tx_count"`
	TotalGasConsumed uint64 `json:"total_gas_consumed"`
}

func handleGetStats(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	stats := s.engine.GetStats()
	return statsView{BlockHeight: stats.BlockHeight, TxCount: stats.TxCount, TotalGasConsumed: stats.TotalGasConsumed}, nil
}

// receiptView is the wire projection of engine.TxReceipt.
type receiptView struct {
	Hash    string `json:"hash"`
	Success bool   `json:"success"`
	GasUsed uint64 `json:"gas_used"`
	Error   string `json:"error,omitempty"`
}

// submitAndRespond runs stx through the engine and translates a domain
// failure (carried in the receipt, not a Go error) into a JSON-RPC error
// object, per spec §4.6's 1000-1999 domain code range.
func submitAndRespond(ctx context.Context, s *Server, stx txn.SignedTransaction) (any, error) {
	receipt, err := s.engine.Submit(ctx, stx)
	if err != nil {
		return nil, err
	}
	if !receipt.Success && receipt.Error != "" {
		return nil, &rpcDomainFailure{
			kind:    errs.Kind(receipt.Error),
			message: receipt.Error,
			hash:    receipt.Hash.String(),
			gasUsed: receipt.GasUsed,
		}
	}
	return receiptView{Hash: receipt.Hash.String(), Success: receipt.Success, GasUsed: receipt.GasUsed}, nil
}

// rpcDomainFailure carries a failed receipt's Kind and bookkeeping so
// classify can assign its JSON-RPC code and surface the receipt fields
// through the error's data member (spec §4.6: domain errors use codes
// 1000-1999 keyed off the error taxonomy).
type rpcDomainFailure struct {
	kind    errs.Kind
	message string
	hash    string
	gasUsed uint64
}

func (e *rpcDomainFailure) Error() string { return e.message }

func handleSubmitTransaction(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p submitTransactionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	stx, err := p.toSigned()
	if err != nil {
		return nil, err
	}
	return submitAndRespond(ctx, s, stx)
}

func handlePublishModule(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p publishModuleParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	curve, err := p.curve()
	if err != nil {
		return nil, err
	}
	tx := txn.Transaction{PublishModule: &txn.PublishModule{
		Sender: address.Address(p.Sender), Name: p.Name, Bytes: p.Bytes,
		GasLimit: p.GasLimit, GasPrice: p.GasPrice, Sequence: p.Sequence,
	}}
	stx := txn.SignedTransaction{Tx: tx, Signature: p.Signature, PublicKey: p.PublicKey, Curve: curve}
	return submitAndRespond(ctx, s, stx)
}

func handleCallFunction(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p callFunctionParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	curve, err := p.curve()
	if err != nil {
		return nil, err
	}
	tx := txn.Transaction{ExecuteFunction: &txn.ExecuteFunction{
		Sender: address.Address(p.Sender), Package: address.Address(p.Package),
		Module: p.Module, Function: p.Function, TypeArgs: p.TypeArgs, Args: bytesOf(p.Args),
		GasLimit: p.GasLimit, GasPrice: p.GasPrice, Sequence: p.Sequence,
	}}
	stx := txn.SignedTransaction{Tx: tx, Signature: p.Signature, PublicKey: p.PublicKey, Curve: curve}
	return submitAndRespond(ctx, s, stx)
}

type contractParams struct {
	Address addressParam `json:"address"`
	Name    string       `json:"name"`
}

func handleGetContract(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p contractParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	published, err := s.engine.GetContract(address.Address(p.Address), p.Name)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"published": published}, nil
}

func handleListContracts(ctx context.Context, s *Server, raw jsoniter.RawMessage) (any, error) {
	var p addrOnlyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	modules, err := s.engine.ListContracts(address.Address(p.Address))
	if err != nil {
		return nil, err
	}
	return map[string][]string{"modules": modules}, nil
}
