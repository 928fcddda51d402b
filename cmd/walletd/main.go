package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sable-wallet/walletd/internal/composition/daemonserver"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (default from config)")
	configPath := flag.String("config", "", "Path to walletd.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for seed vault and wallet settings (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-Sable-RPC-Token (optional)")
	ledgerEndpoint := flag.String("ledger-endpoint", "", "Ledger RPC endpoint override (optional)")
	bridgeAddr := flag.String("bridge-addr", "", "Hardware signer bridge address override (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("walletd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *rpcToken != "" {
		_ = os.Setenv("SABLE_RPC_TOKEN", *rpcToken)
	}
	if *ledgerEndpoint != "" {
		_ = os.Setenv("SABLE_LEDGER_ENDPOINT", *ledgerEndpoint)
	}
	if *bridgeAddr != "" {
		_ = os.Setenv("SABLE_BRIDGE_ADDR", *bridgeAddr)
	}

	srv, err := daemonserver.NewRPCServerWithOptions(*rpcAddr, *configPath, *dataDir)
	if err != nil {
		log.Fatalf("walletd failed to initialize: %v", err)
	}

	log.Println("walletd starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("walletd failed: %v", err)
	}
	log.Println("walletd stopped")
}
