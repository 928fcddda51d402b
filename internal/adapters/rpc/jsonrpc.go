package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"sable-wallet/walletd/internal/observe"
)

type rpcRequest struct {
	JSONRPC    string          `json:"jsonrpc"`
	ID         json.RawMessage `json:"id"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params"`
	APIVersion *int            `json:"api_version,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const maxRPCBodyBytes int64 = 1 << 20 // 1 MiB
const maxAddressListCount = 256

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !s.authorizeRPC(w, r) {
		return
	}
	if s.service == nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32099, Message: "service is not initialized"},
		})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := s.extractRPCToken(r)
	if !s.rpcLimiter.allow(rpcRateLimitKey(r, token), time.Now()) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRPCBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}
	if rpcErr := validateRPCAPIVersion(req.APIVersion); rpcErr != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}

	idemKey := rpcIdempotencyKey(r.Header.Get(rpcIdempotencyHeader), token)
	requestHash := ""
	if idemKey != "" {
		requestHash = rpcRequestHash(req)
		cached, hit, conflict := s.idem.get(idemKey, requestHash, time.Now())
		if conflict {
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: -32600, Message: "idempotency key was already used for a different request"},
			})
			return
		}
		if hit {
			cached.ID = req.ID
			writeRPC(w, cached)
			return
		}
	}

	reqID := fmt.Sprintf("rpc_%d", time.Now().UnixNano())
	started := time.Now()
	slog.Default().Info("rpc request", "request_id", reqID, "method", req.Method, "rpc_id", string(req.ID))

	result, rpcErr := s.dispatchRPC(r.Context(), req.Method, req.Params)
	if rpcErr != nil {
		slog.Default().Error("rpc failed", "request_id", reqID, "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		slog.Default().Info("rpc response", "request_id", reqID, "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	observe.RPCRequests.WithLabelValues(rpcMethodLabel(req.Method, rpcErr), rpcOutcomeLabel(rpcErr)).Inc()

	resp := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	}
	// Only successful responses are replay-safe; a failed transfer retried
	// under the same key must run again.
	if idemKey != "" && rpcErr == nil {
		s.idem.set(idemKey, requestHash, resp, time.Now())
	}
	writeRPC(w, resp)
}

func (s *Server) dispatchRPC(ctx context.Context, method string, rawParams json.RawMessage) (any, *rpcError) {
	if method == "health_check" {
		return map[string]string{"status": "ok"}, nil
	}
	if method == "rpc.version" {
		return rpcVersionInfo(), nil
	}
	if result, rpcErr, ok := s.dispatchSeedRPC(method, rawParams); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := s.dispatchWalletRPC(ctx, method, rawParams); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := s.dispatchTransferRPC(ctx, method, rawParams); ok {
		return result, rpcErr
	}
	if result, rpcErr, ok := s.dispatchDiagnosticsRPC(ctx, method); ok {
		return result, rpcErr
	}
	return nil, &rpcError{Code: -32601, Message: "method not found"}
}

// rpcMethodLabel keeps arbitrary client strings out of the metric label
// space; unknown methods collapse into one series.
func rpcMethodLabel(method string, rpcErr *rpcError) string {
	if rpcErr != nil && rpcErr.Code == -32601 {
		return "unknown"
	}
	return method
}

func rpcOutcomeLabel(rpcErr *rpcError) string {
	if rpcErr != nil {
		return "error"
	}
	return "ok"
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCInvalidRequest(w http.ResponseWriter, id json.RawMessage) {
	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: -32600, Message: "invalid request"},
	})
}
