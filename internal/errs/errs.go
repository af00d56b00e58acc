// Package errs holds the execution core's error taxonomy: the sentinel
// errors raised by each layer, their JSON-RPC domain code, and a uniform
// way to carry typed context (address, amounts) alongside the sentinel.
package errs

import (
	"errors"
	"fmt"
)

// Kind tags a domain error with the stable string a client sees in the
// JSON-RPC error's data.kind field.
type Kind string

const (
	KindInvalidSignature       Kind = "InvalidSignature"
	KindSequenceMismatch       Kind = "SequenceMismatch"
	KindInsufficientFee        Kind = "InsufficientFee"
	KindGasExceeded            Kind = "GasExceeded"
	KindInsufficientBalance    Kind = "InsufficientBalance"
	KindBalanceOverflow        Kind = "BalanceOverflow"
	KindSupplyOverflow         Kind = "SupplyOverflow"
	KindSupplyUnderflow        Kind = "SupplyUnderflow"
	KindSequenceOverflow       Kind = "SequenceOverflow"
	KindModuleAlreadyPublished Kind = "ModuleAlreadyPublished"
	KindInvalidTransfer        Kind = "InvalidTransfer"
	KindVmExecutionFailure     Kind = "VmExecutionFailure"
	KindStoreIoError           Kind = "StoreIoError"
	KindUnauthorizedMint       Kind = "UnauthorizedMint"
)

// rpcCode is the JSON-RPC 2.0 domain error code assigned to each Kind,
// per spec range 1000-1999; internal I/O errors use the standard -32603.
var rpcCode = map[Kind]int{
	KindInvalidSignature:       1000,
	KindSequenceMismatch:       1001,
	KindInsufficientFee:        1002,
	KindGasExceeded:            1003,
	KindInsufficientBalance:    1004,
	KindBalanceOverflow:        1005,
	KindSupplyOverflow:         1006,
	KindSupplyUnderflow:        1007,
	KindSequenceOverflow:       1008,
	KindModuleAlreadyPublished: 1009,
	KindInvalidTransfer:        1010,
	KindVmExecutionFailure:     1011,
	KindUnauthorizedMint:       1012,
	KindStoreIoError:           -32603,
}

// RPCCode returns the JSON-RPC error code for k, or -32603 (internal
// error) if k is unrecognized.
func (k Kind) RPCCode() int {
	if c, ok := rpcCode[k]; ok {
		return c
	}
	return -32603
}

// DomainError is a typed, contextual failure raised by the engine, the
// VM boundary, or the state store. It wraps an optional underlying cause
// so callers can still errors.Is/As through to sentinels below.
type DomainError struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func (e *DomainError) Unwrap() error { return e.Cause }

// New builds a DomainError with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a DomainError carrying cause as its Unwrap target.
func Wrap(kind Kind, cause error, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithContext attaches structured context (e.g. "address", "needed",
// "have") to a DomainError and returns it for chaining.
func (e *DomainError) WithContext(kv ...any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e.Context[key] = kv[i+1]
	}
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) a *DomainError.
func KindOf(err error) (Kind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Sentinel errors matched by callers that need a plain comparison rather
// than a typed DomainError, mirroring the teacher's convention in
// core/state_transition.go of package-level Err* sentinels wrapped with
// fmt.Errorf("%w: ...").
var (
	ErrGasUintOverflow = errors.New("errs: gas uint64 overflow")
	ErrStoreClosed     = errors.New("errs: state store is closed")
	ErrJournalCorrupt  = errors.New("errs: journal entry failed to decode")
)
