// Package rpc fronts the execution core with a JSON-RPC 2.0 HTTP
// dispatcher: request framing, method routing against the table in spec
// §4.6, and translation of domain errors into JSON-RPC error objects.
// Mirrors the teacher's turbo/jsonrpc handler style (context-first
// methods, json-iterator encoding) without erigon's block/trace surface.
package rpc

import (
	"context"
	"net/http"
	"runtime"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/kanari-network/kanari-core/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is one JSON-RPC 2.0 call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  jsoniter.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

// Response is one JSON-RPC 2.0 reply.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error is a JSON-RPC 2.0 error object. Data carries the domain Kind
// string for 1000-1999 codes, spec §4.6/§7.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// handlerFunc is one method's implementation. Params is the request's raw
// "params" member, left undecoded until the method knows its shape.
type handlerFunc func(ctx context.Context, s *Server, params jsoniter.RawMessage) (any, error)

// Server dispatches JSON-RPC requests against a single Engine. Read
// methods call straight through (no writer lease); submit methods call
// Engine.Submit, which takes the lease internally (spec §4.6 routing
// table; the table itself is not re-implemented here as a separate lock
// since Engine already serializes Submit calls).
type Server struct {
	engine *engine.Engine
	logger log.Logger
	cors   *cors.Cors
}

// New constructs a Server. corsOrigins configures the allowed origins for
// the CORS middleware wrapping Handler(); a nil/empty slice allows none.
// Request-level metrics live on eng itself (spec §4.5); the dispatcher has
// no counters of its own.
func New(eng *engine.Engine, logger log.Logger, corsOrigins []string) *Server {
	opts := cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}
	if len(corsOrigins) == 0 {
		// rs/cors treats an empty origin list as "allow all"; reject instead.
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	return &Server{
		engine: eng,
		logger: logger,
		cors:   cors.New(opts),
	}
}

// Handler returns the CORS-wrapped HTTP handler to mount at the JSON-RPC
// endpoint (spec §6: HTTP POST, default bind 127.0.0.1:3000).
func (s *Server) Handler() http.Handler {
	return s.cors.Handler(http.HandlerFunc(s.serveHTTP))
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeResponse(w, errorResponse(nil, codeInvalidParams, "only POST is supported", nil))
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		writeResponse(w, errorResponse(nil, codeParseError, "invalid JSON-RPC request", err.Error()))
		return
	}

	switch v := body.(type) {
	case Request:
		resp := s.dispatch(r.Context(), v)
		writeResponse(w, resp)
	case []Request:
		_ = json.NewEncoder(w).Encode(s.dispatchBatch(r.Context(), v))
	}
}

// decodeBody distinguishes a single JSON-RPC object from a batch array
// (spec §6: batch requests are optional, a conforming server MAY accept
// them with per-item independence).
func decodeBody(r *http.Request) (any, error) {
	var raw jsoniter.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := bytesTrimLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []Request
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, err
		}
		return batch, nil
	}
	var single Request
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return single, nil
}

func bytesTrimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

// dispatchBatch runs every item in req independently and in parallel, up
// to the host's core count, mirroring the read-only worker pool spec §8
// describes for the RPC layer.
func (s *Server) dispatchBatch(ctx context.Context, reqs []Request) []Response {
	responses := make([]Response, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			responses[i] = s.dispatch(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return responses
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	h, ok := methodTable[req.Method]
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method, nil)
	}

	traceID := uuid.New().String()
	result, err := h(ctx, s, req.Params)
	if err != nil {
		rpcErr := classify(err)
		if s.logger != nil {
			s.logger.Debug("rpc call failed", "trace_id", traceID, "method", req.Method, "code", rpcErr.Code, "error", rpcErr.Message)
		}
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return Response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	resp.JSONRPC = "2.0"
	_ = json.NewEncoder(w).Encode(resp)
}

func errorResponse(id any, code int, message string, data any) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}

// methodTable is the routing table from spec §4.6.
var methodTable = map[string]handlerFunc{
	"kanari_getAccount":        handleGetAccount,
	"kanari_getBalance":        handleGetBalance,
	"kanari_getBlock":          handleGetBlock,
	"kanari_getBlockHeight":    handleGetBlockHeight,
	"kanari_getStats":          handleGetStats,
	"kanari_submitTransaction": handleSubmitTransaction,
	"kanari_publishModule":     handlePublishModule,
	"kanari_callFunction":      handleCallFunction,
	"kanari_getContract":       handleGetContract,
	"kanari_listContracts":     handleListContracts,
}
