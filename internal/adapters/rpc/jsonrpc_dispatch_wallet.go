package rpc

import (
	"context"
	"encoding/json"
)

func (s *Server) dispatchWalletRPC(ctx context.Context, method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "wallet.login":
		params, err := decodeLoginParams(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		status, err := s.service.Login(ctx, params.Kind, params.Password, params.WalletIndex)
		if err != nil {
			return nil, rpcServiceError(-32040, err), true
		}
		return status, nil, true
	case "wallet.logout":
		result, rpcErr := callWithoutParams(-32041, func() (any, error) {
			if err := s.service.Logout(); err != nil {
				return nil, err
			}
			return map[string]bool{"logged_out": true}, nil
		})
		return result, rpcErr, true
	case "wallet.status":
		result, rpcErr := callWithoutParams(-32042, func() (any, error) {
			return s.service.GetWalletStatus(), nil
		})
		return result, rpcErr, true
	case "wallet.addresses":
		count, err := decodeAddressCountParam(rawParams)
		if err != nil {
			return nil, rpcInvalidParams(), true
		}
		entries, err := s.service.ListAddresses(count)
		if err != nil {
			return nil, rpcServiceError(-32043, err), true
		}
		return map[string]any{"addresses": entries}, nil, true
	case "wallet.select":
		result, rpcErr := callWithWalletIndexParam(rawParams, -32044, func(index uint32) (any, error) {
			return s.service.SelectWallet(ctx, index)
		})
		return result, rpcErr, true
	case "wallet.add":
		result, rpcErr := callWithoutParams(-32045, func() (any, error) {
			return s.service.AddWallet()
		})
		return result, rpcErr, true
	case "wallet.balance":
		result, rpcErr := callWithoutParams(-32046, func() (any, error) {
			return s.service.GetBalance(ctx)
		})
		return result, rpcErr, true
	default:
		return nil, nil, false
	}
}
