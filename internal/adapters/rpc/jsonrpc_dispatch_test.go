package rpc

import (
	"errors"
	"net/http"
	"testing"

	"sable-wallet/walletd/internal/signing"
	"sable-wallet/walletd/pkg/models"
)

func TestRPCSeedMethods(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	ts := newRPCTestServer(t, svc, "", false)

	reply := callRPC(t, ts, `{"jsonrpc":"2.0","id":1,"method":"seed.status"}`, nil)
	var seed models.SeedStatus
	mustUnmarshal(t, reply.Result, &seed)
	if seed.Present || seed.Unlocked {
		t.Fatalf("seed status: %+v", seed)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"seed.create","params":["hunter2"]}`, nil)
	var created struct {
		Mnemonic     string              `json:"mnemonic"`
		FirstAddress models.AddressEntry `json:"first_address"`
	}
	mustUnmarshal(t, reply.Result, &created)
	if created.Mnemonic != stubMnemonic || created.FirstAddress.Address != stubAddr {
		t.Fatalf("seed.create result: %+v", created)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":3,"method":"seed.create","params":[]}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":4,"method":"seed.import","params":["`+stubMnemonic+`","hunter2"]}`, nil)
	var imported struct {
		FirstAddress models.AddressEntry `json:"first_address"`
	}
	mustUnmarshal(t, reply.Result, &imported)
	if imported.FirstAddress.Address != stubAddr {
		t.Fatalf("seed.import result: %+v", imported)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":5,"method":"seed.import","params":["only-one"]}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":6,"method":"seed.validate_mnemonic","params":["`+stubMnemonic+`"]}`, nil)
	var check models.MnemonicCheck
	mustUnmarshal(t, reply.Result, &check)
	if !check.Valid || check.WordCount != 12 {
		t.Fatalf("mnemonic check: %+v", check)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":7,"method":"seed.change_password","params":["old","new"]}`, nil)
	var changed map[string]bool
	mustUnmarshal(t, reply.Result, &changed)
	if !changed["changed"] {
		t.Fatalf("change_password result: %v", changed)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":8,"method":"seed.export","params":["hunter2"]}`, nil)
	var exported map[string]string
	mustUnmarshal(t, reply.Result, &exported)
	if exported["mnemonic"] != stubMnemonic {
		t.Fatalf("seed.export result: %v", exported)
	}

	svc.setExportErr(errors.New("vault is sealed"))
	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":9,"method":"seed.export","params":["hunter2"]}`, nil)
	wantRPCError(t, reply, -32025)
	if reply.Error.Message != "vault is sealed" {
		t.Fatalf("service error message: %q", reply.Error.Message)
	}
}

func TestRPCWalletMethods(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	ts := newRPCTestServer(t, svc, "", false)

	reply := callRPC(t, ts, `{"jsonrpc":"2.0","id":1,"method":"wallet.login","params":{"kind":"device","password":"","wallet_index":3}}`, nil)
	var status models.WalletStatus
	mustUnmarshal(t, reply.Result, &status)
	if status.State != "logged_in" || status.Address != stubAddr {
		t.Fatalf("login status: %+v", status)
	}
	kind, password, index := svc.loginArgs()
	if kind != "device" || password != "" || index != 3 {
		t.Fatalf("login args: kind=%q password=%q index=%d", kind, password, index)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"wallet.login","params":[{"kind":"local","password":"pw","wallet_index":1}]}`, nil)
	if reply.Error != nil {
		t.Fatalf("array-wrapped login: %+v", reply.Error)
	}
	kind, password, index = svc.loginArgs()
	if kind != "local" || password != "pw" || index != 1 {
		t.Fatalf("login args: kind=%q password=%q index=%d", kind, password, index)
	}

	// No params defaults to a local login on wallet 0.
	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":3,"method":"wallet.login"}`, nil)
	if reply.Error != nil {
		t.Fatalf("paramless login: %+v", reply.Error)
	}
	kind, password, index = svc.loginArgs()
	if kind != "" || password != "" || index != 0 {
		t.Fatalf("default login args: kind=%q password=%q index=%d", kind, password, index)
	}

	svc.setLoginErr(errors.New("already logged in"))
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":4,"method":"wallet.login"}`, nil), -32040)
	svc.setLoginErr(nil)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":5,"method":"wallet.addresses","params":[2]}`, nil)
	var addresses struct {
		Addresses []models.AddressEntry `json:"addresses"`
	}
	mustUnmarshal(t, reply.Result, &addresses)
	if len(addresses.Addresses) != 1 || addresses.Addresses[0].Address != stubAddr {
		t.Fatalf("addresses result: %+v", addresses)
	}
	if got := svc.addressCount(); got != 2 {
		t.Fatalf("address count forwarded: %d", got)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":6,"method":"wallet.addresses","params":[0]}`, nil), -32602)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":7,"method":"wallet.addresses","params":[257]}`, nil), -32602)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":8,"method":"wallet.addresses","params":["2"]}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":9,"method":"wallet.select","params":[4]}`, nil)
	if reply.Error != nil {
		t.Fatalf("select: %+v", reply.Error)
	}
	if got := svc.selectIndex(); got != 4 {
		t.Fatalf("select index forwarded: %d", got)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":10,"method":"wallet.select","params":[-1]}`, nil), -32602)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":11,"method":"wallet.select","params":[1.5]}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":12,"method":"wallet.balance"}`, nil)
	var balance models.BalanceInfo
	mustUnmarshal(t, reply.Result, &balance)
	if balance.Lamports != 42 || balance.Address != stubAddr {
		t.Fatalf("balance: %+v", balance)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":13,"method":"wallet.logout"}`, nil)
	var loggedOut map[string]bool
	mustUnmarshal(t, reply.Result, &loggedOut)
	if !loggedOut["logged_out"] {
		t.Fatalf("logout result: %v", loggedOut)
	}

	for _, method := range []string{"wallet.status", "wallet.add"} {
		reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":14,"method":"`+method+`"}`, nil)
		if reply.Error != nil {
			t.Fatalf("%s: %+v", method, reply.Error)
		}
	}
}

func TestRPCTransferMethods(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	svc.tokenAccounts = []models.TokenAccountView{{
		Address:       "EPZP3qkiRgzQ34HuBiTsLRq5rUSgVrWKCcA78Fhzv9qU",
		Mint:          "So11111111111111111111111111111111111111112",
		Owner:         stubAddr,
		Amount:        250,
		Decimals:      9,
		UIAmount:      "0.00000025",
		DecimalsKnown: true,
	}}
	ts := newRPCTestServer(t, svc, "", false)

	reply := callRPC(t, ts, `{"jsonrpc":"2.0","id":1,"method":"tx.transfer_sol","params":{"destination":"dst","lamports":7}}`, nil)
	var receipt models.TransferReceipt
	mustUnmarshal(t, reply.Result, &receipt)
	if receipt.Kind != "sol" || receipt.Destination != "dst" || receipt.Signature == "" {
		t.Fatalf("transfer receipt: %+v", receipt)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"tx.transfer_sol","params":[{"destination":"dst","lamports":7}]}`, nil)
	if reply.Error != nil {
		t.Fatalf("array-wrapped transfer: %+v", reply.Error)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":3,"method":"tx.transfer_sol","params":{"destination":"dst"}}`, nil), -32602)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":4,"method":"tx.transfer_sol","params":{"lamports":7}}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":5,"method":"token.accounts"}`, nil)
	var accounts struct {
		Accounts []models.TokenAccountView `json:"accounts"`
	}
	mustUnmarshal(t, reply.Result, &accounts)
	if len(accounts.Accounts) != 1 || accounts.Accounts[0].Amount != 250 {
		t.Fatalf("token accounts: %+v", accounts)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":6,"method":"token.transfer","params":{"source":"src","destination":"dst","amount":10,"decimals":6,"memo":"invoice 7"}}`, nil)
	mustUnmarshal(t, reply.Result, &receipt)
	if receipt.Kind != "token" || receipt.Source != "src" {
		t.Fatalf("token receipt: %+v", receipt)
	}
	if decimals, memo := svc.tokenArgs(); decimals != 6 || memo != "invoice 7" {
		t.Fatalf("token transfer args: decimals=%d memo=%q", decimals, memo)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":7,"method":"token.transfer","params":{"source":"src","destination":"dst"}}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":8,"method":"token.create_account","params":["MintAddr"]}`, nil)
	var created models.CreatedTokenAccount
	mustUnmarshal(t, reply.Result, &created)
	if created.Mint != "MintAddr" || created.Signature == "" {
		t.Fatalf("created account: %+v", created)
	}
	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":9,"method":"token.create_account","params":{"mint":"OtherMint"}}`, nil)
	mustUnmarshal(t, reply.Result, &created)
	if created.Mint != "OtherMint" {
		t.Fatalf("created account from object params: %+v", created)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":10,"method":"token.create_account","params":{}}`, nil), -32602)

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":11,"method":"token.close_account","params":["Acct"]}`, nil)
	var closed models.ClosedTokenAccount
	mustUnmarshal(t, reply.Result, &closed)
	if closed.Address != "Acct" || closed.Signature == "" {
		t.Fatalf("closed account: %+v", closed)
	}
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":12,"method":"token.close_account","params":[]}`, nil), -32602)
}

func TestRPCSigningErrorCodes(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	ts := newRPCTestServer(t, svc, "", false)
	transfer := `{"jsonrpc":"2.0","id":1,"method":"tx.transfer_sol","params":{"destination":"dst","lamports":7}}`

	svc.setTransferErr(signing.ErrUserRejected)
	wantRPCError(t, callRPC(t, ts, transfer, nil), -32055)

	svc.setTransferErr(signing.ErrSignerBusy)
	wantRPCError(t, callRPC(t, ts, transfer, nil), -32056)

	svc.setTransferErr(errors.New("blockhash expired"))
	wantRPCError(t, callRPC(t, ts, transfer, nil), -32050)

	svc.setTransferErr(signing.ErrUserRejected)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"token.transfer","params":{"source":"src","destination":"dst","amount":1}}`, nil), -32055)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":3,"method":"token.create_account","params":["Mint"]}`, nil), -32055)
	wantRPCError(t, callRPC(t, ts, `{"jsonrpc":"2.0","id":4,"method":"token.close_account","params":["Acct"]}`, nil), -32055)
}

func TestRPCDiagnosticsMethods(t *testing.T) {
	t.Parallel()

	svc := newStubService()
	svc.health = models.LedgerHealth{
		Ready:    true,
		Endpoint: "http://ledger.test",
		Checks:   []models.LedgerCheck{{Name: "node_healthy", Pass: true}},
	}
	svc.metrics = models.MetricsSnapshot{RetryAttemptsTotal: 3}
	ts := newRPCTestServer(t, svc, "", false)

	reply := callRPC(t, ts, `{"jsonrpc":"2.0","id":1,"method":"ledger.health"}`, nil)
	var health models.LedgerHealth
	mustUnmarshal(t, reply.Result, &health)
	if !health.Ready || len(health.Checks) != 1 || health.Checks[0].Name != "node_healthy" {
		t.Fatalf("ledger health: %+v", health)
	}

	reply = callRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"metrics.get"}`, nil)
	var snap models.MetricsSnapshot
	mustUnmarshal(t, reply.Result, &snap)
	if snap.RetryAttemptsTotal != 3 {
		t.Fatalf("metrics snapshot: %+v", snap)
	}

	// The Prometheus endpoint is mounted on the same mux.
	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics endpoint: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status: %d", resp.StatusCode)
	}
}
