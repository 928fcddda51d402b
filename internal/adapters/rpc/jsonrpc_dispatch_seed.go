package rpc

import (
	"encoding/json"
)

func (s *Server) dispatchSeedRPC(method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "seed.status":
		result, rpcErr := callWithoutParams(-32020, func() (any, error) {
			return s.service.GetSeedStatus(), nil
		})
		return result, rpcErr, true
	case "seed.create":
		result, rpcErr := callWithSingleStringParam(rawParams, -32021, func(password string) (any, error) {
			mnemonic, first, err := s.service.CreateSeed(password)
			if err != nil {
				return nil, err
			}
			return map[string]any{"mnemonic": mnemonic, "first_address": first}, nil
		})
		return result, rpcErr, true
	case "seed.import":
		result, rpcErr := callWithTwoStringParams(rawParams, -32022, func(mnemonic, password string) (any, error) {
			first, err := s.service.ImportSeed(mnemonic, password)
			if err != nil {
				return nil, err
			}
			return map[string]any{"first_address": first}, nil
		})
		return result, rpcErr, true
	case "seed.validate_mnemonic":
		result, rpcErr := callWithSingleStringParam(rawParams, -32023, func(mnemonic string) (any, error) {
			return s.service.ValidateMnemonic(mnemonic), nil
		})
		return result, rpcErr, true
	case "seed.change_password":
		result, rpcErr := callWithTwoStringParams(rawParams, -32024, func(oldPassword, newPassword string) (any, error) {
			if err := s.service.ChangePassword(oldPassword, newPassword); err != nil {
				return nil, err
			}
			return map[string]bool{"changed": true}, nil
		})
		return result, rpcErr, true
	case "seed.export":
		result, rpcErr := callWithSingleStringParam(rawParams, -32025, func(password string) (any, error) {
			mnemonic, err := s.service.ExportMnemonic(password)
			if err != nil {
				return nil, err
			}
			return map[string]string{"mnemonic": mnemonic}, nil
		})
		return result, rpcErr, true
	default:
		return nil, nil, false
	}
}
