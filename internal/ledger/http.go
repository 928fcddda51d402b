package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/observe"

	"github.com/sony/gobreaker"
)

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

// Breaker thresholds: trip once enough requests have failed at a high
// enough ratio.
var (
	maxFailingRequests = 10
	failingRatio       = 0.6
)

// HTTPClient implements Client against a node's JSON-RPC endpoint. Every
// call runs through a circuit breaker so a dead node fails fast instead of
// stacking up timeouts.
type HTTPClient struct {
	endpoint   string
	commitment Commitment
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	nextID     atomic.Uint64
}

func NewHTTPClient(endpoint string, commitment Commitment) *HTTPClient {
	if commitment == "" {
		commitment = CommitmentConfirmed
	}
	return &HTTPClient{
		endpoint:   endpoint,
		commitment: commitment,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "ledger-rpc",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return int(counts.Requests) > maxFailingRequests && ratio >= failingRatio
			},
		}),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		var parsed rpcResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if parsed.Error != nil {
			return nil, parsed.Error
		}
		return parsed.Result, nil
	})
	if err != nil {
		observe.LedgerRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s: %w", method, err)
	}
	observe.LedgerRequests.WithLabelValues(method, "ok").Inc()
	if out == nil {
		return nil
	}
	raw, ok := result.(json.RawMessage)
	if !ok {
		return fmt.Errorf("%s: unexpected result type", method)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (c *HTTPClient) commitmentParam() map[string]any {
	return map[string]any{"commitment": string(c.commitment)}
}

func (c *HTTPClient) LatestBlockhash(ctx context.Context) (chain.Hash, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{c.commitmentParam()}, &result); err != nil {
		return chain.Hash{}, err
	}
	return chain.ParseHash(result.Value.Blockhash)
}

func (c *HTTPClient) Balance(ctx context.Context, account chain.Pubkey) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{account.String(), c.commitmentParam()}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

type accountInfoValue struct {
	Data     []string `json:"data"`
	Lamports uint64   `json:"lamports"`
	Owner    string   `json:"owner"`
}

func decodeAccountData(value *accountInfoValue) ([]byte, error) {
	if value == nil {
		return nil, ErrAccountNotFound
	}
	if len(value.Data) < 1 {
		return nil, fmt.Errorf("account data missing")
	}
	raw, err := base64.StdEncoding.DecodeString(value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return raw, nil
}

func (c *HTTPClient) AccountData(ctx context.Context, account chain.Pubkey) ([]byte, error) {
	var result struct {
		Value *accountInfoValue `json:"value"`
	}
	params := []any{account.String(), map[string]any{
		"encoding":   "base64",
		"commitment": string(c.commitment),
	}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	return decodeAccountData(result.Value)
}

func (c *HTTPClient) OwnedTokenAccounts(ctx context.Context, owner chain.Pubkey) ([]OwnedAccount, error) {
	var result struct {
		Value []struct {
			Pubkey  string           `json:"pubkey"`
			Account accountInfoValue `json:"account"`
		} `json:"value"`
	}
	params := []any{
		owner.String(),
		map[string]any{"programId": chain.TokenProgramID.String()},
		map[string]any{"encoding": "base64", "commitment": string(c.commitment)},
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}
	accounts := make([]OwnedAccount, 0, len(result.Value))
	for _, entry := range result.Value {
		address, err := chain.ParsePubkey(entry.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("token account address: %w", err)
		}
		account := entry.Account
		data, err := decodeAccountData(&account)
		if err != nil {
			return nil, fmt.Errorf("token account %s: %w", address, err)
		}
		accounts = append(accounts, OwnedAccount{Address: address, Data: data})
	}
	return accounts, nil
}

func (c *HTTPClient) MinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error) {
	var lamports uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []any{space}, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

func (c *HTTPClient) SubmitTransaction(ctx context.Context, tx *chain.Transaction) (chain.Signature, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return chain.Signature{}, err
	}
	params := []any{
		base64.StdEncoding.EncodeToString(raw),
		map[string]any{"encoding": "base64", "preflightCommitment": string(c.commitment)},
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return chain.Signature{}, err
	}
	sig, err := chain.ParseSignature(signature)
	if err != nil {
		return chain.Signature{}, fmt.Errorf("submitted signature: %w", err)
	}
	return sig, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("ledger unhealthy: %s", status)
	}
	return nil
}
