package rpc

import (
	"context"
)

func (s *Server) dispatchDiagnosticsRPC(ctx context.Context, method string) (any, *rpcError, bool) {
	switch method {
	case "ledger.health":
		result, rpcErr := callWithoutParams(-32031, func() (any, error) {
			return s.service.GetLedgerHealth(ctx), nil
		})
		return result, rpcErr, true
	case "metrics.get":
		result, rpcErr := callWithoutParams(-32070, func() (any, error) {
			return s.service.GetMetrics(), nil
		})
		return result, rpcErr, true
	default:
		return nil, nil, false
	}
}
