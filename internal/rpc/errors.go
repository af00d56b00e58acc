package rpc

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/kanari-network/kanari-core/internal/errs"
)

// classify maps an error returned from a handler into a JSON-RPC Error. A
// failed receipt or a *errs.DomainError surfaces its own Kind and RPCCode
// (spec §4.6's 1000-1999 range); a params decoding failure is -32602;
// anything else is an internal error, -32603.
func classify(err error) *Error {
	var df *rpcDomainFailure
	if errors.As(err, &df) {
		return &Error{
			Code:    df.kind.RPCCode(),
			Message: df.message,
			Data:    map[string]any{"kind": string(df.kind), "hash": df.hash, "gas_used": df.gasUsed},
		}
	}
	var de *errs.DomainError
	if errors.As(err, &de) {
		return &Error{Code: de.Kind.RPCCode(), Message: err.Error(), Data: map[string]any{"kind": string(de.Kind)}}
	}
	var ip *invalidParamsError
	if errors.As(err, &ip) {
		return &Error{Code: codeInvalidParams, Message: ip.message}
	}
	return &Error{Code: codeInternal, Message: err.Error()}
}

// decodeParams unmarshals raw into dst, returning an invalid-params error
// on failure rather than propagating the raw decode error (spec §4.6:
// invalid params use code -32602).
func decodeParams(raw jsoniter.RawMessage, dst any) error {
	if len(raw) == 0 {
		return &invalidParamsError{message: "missing params"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &invalidParamsError{message: "invalid params: " + err.Error()}
	}
	return nil
}

type invalidParamsError struct{ message string }

func (e *invalidParamsError) Error() string { return e.message }
