package rpc

import (
	"context"
	"encoding/json"
)

// dispatchTransferRPC covers the methods that build, sign, and submit
// transactions, plus token account queries. Signing failures go through
// mapSigningRPCError so confirmation outcomes keep distinct codes.
func (s *Server) dispatchTransferRPC(ctx context.Context, method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "tx.transfer_sol":
		params, err := decodeTransferSolParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		receipt, err := s.service.TransferSOL(ctx, params.Destination, params.Lamports)
		if err != nil {
			return nil, mapSigningRPCError(-32050, err), true
		}
		return receipt, nil, true
	case "token.accounts":
		result, rpcErr := callWithoutParams(-32051, func() (any, error) {
			accounts, err := s.service.ListTokenAccounts(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"accounts": accounts}, nil
		})
		return result, rpcErr, true
	case "token.create_account":
		mint, err := decodeCreateTokenAccountParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		created, err := s.service.CreateTokenAccount(ctx, mint)
		if err != nil {
			return nil, mapSigningRPCError(-32052, err), true
		}
		return created, nil, true
	case "token.transfer":
		params, err := decodeTokenTransferParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		receipt, err := s.service.TransferToken(ctx, params.Source, params.Destination, params.Amount, params.Decimals, params.Memo)
		if err != nil {
			return nil, mapSigningRPCError(-32053, err), true
		}
		return receipt, nil, true
	case "token.close_account":
		address, err := decodeCloseTokenAccountParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		closed, err := s.service.CloseTokenAccount(ctx, address)
		if err != nil {
			return nil, mapSigningRPCError(-32054, err), true
		}
		return closed, nil, true
	default:
		return nil, nil, false
	}
}
