package rpc

import (
	"errors"

	"sable-wallet/walletd/internal/signing"
)

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: -32602, Message: "invalid params"}
}

func rpcServiceError(code int, err error) *rpcError {
	return &rpcError{Code: code, Message: err.Error()}
}

// mapSigningRPCError gives device confirmation outcomes their own codes so
// clients can tell a user's "no" apart from a failed call.
func mapSigningRPCError(code int, err error) *rpcError {
	switch {
	case errors.Is(err, signing.ErrUserRejected):
		return &rpcError{Code: -32055, Message: err.Error()}
	case errors.Is(err, signing.ErrSignerBusy):
		return &rpcError{Code: -32056, Message: err.Error()}
	default:
		return rpcServiceError(code, err)
	}
}
