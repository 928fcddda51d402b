package daemonserver

import (
	"context"

	"sable-wallet/walletd/internal/adapters/rpc"
	"sable-wallet/walletd/internal/api"
	"sable-wallet/walletd/internal/bootstrap/walletconfig"
	"sable-wallet/walletd/internal/signing"
	"sable-wallet/walletd/internal/wallet"
)

// NewRPCServerWithOptions wires the wallet service and RPC transport.
// Flag values override config file values; empty flags defer to the file
// and its defaults.
func NewRPCServerWithOptions(rpcAddr, configPath, dataDir string) (*rpc.Server, error) {
	cfg := walletconfig.LoadFromPath(configPath)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if rpcAddr == "" {
		rpcAddr = cfg.RPCAddr
	}

	svc, err := api.NewService(api.Options{
		DataDir:        cfg.DataDir,
		LedgerEndpoint: cfg.LedgerEndpoint,
		Commitment:     cfg.LedgerCommitment(),
		DeviceDialer:   bridgeDialer(cfg.BridgeAddr),
	})
	if err != nil {
		return nil, err
	}
	return rpc.NewServerWithService(rpcAddr, svc), nil
}

func bridgeDialer(addr string) wallet.DeviceDialer {
	return func(ctx context.Context) (signing.Transport, error) {
		return signing.DialBridgeContext(ctx, addr)
	}
}
