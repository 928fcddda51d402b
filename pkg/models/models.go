package models

import (
	"time"
)

type WalletStatus struct {
	State       string `json:"state"`
	WalletIndex uint32 `json:"wallet_index"`
	WalletCount uint32 `json:"wallet_count"`
	Scheme      string `json:"scheme"`
	Address     string `json:"address,omitempty"`
	SignerKind  string `json:"signer_kind,omitempty"`
}

type AddressEntry struct {
	WalletIndex uint32 `json:"wallet_index"`
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

type BalanceInfo struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	Sol      string `json:"sol"`
}

type TokenAccountView struct {
	Address       string `json:"address"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	Amount        uint64 `json:"amount"`
	Decimals      uint8  `json:"decimals"`
	UIAmount      string `json:"ui_amount"`
	DecimalsKnown bool   `json:"decimals_known"`
	Frozen        bool   `json:"frozen,omitempty"`
}

type TransferReceipt struct {
	Signature   string    `json:"signature"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Kind        string    `json:"kind"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type CreatedTokenAccount struct {
	Address   string `json:"address"`
	Mint      string `json:"mint"`
	Signature string `json:"signature"`
}

type ClosedTokenAccount struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type SeedStatus struct {
	Present  bool `json:"present"`
	Unlocked bool `json:"unlocked"`
}

type MnemonicCheck struct {
	Valid     bool   `json:"valid"`
	WordCount int    `json:"word_count"`
	Reason    string `json:"reason,omitempty"`
}

type LedgerCheck struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

type LedgerHealth struct {
	Ready     bool          `json:"ready"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Checks    []LedgerCheck `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

type MetricsSnapshot struct {
	ErrorCounters       map[string]int             `json:"error_counters"`
	OperationStats      map[string]OperationMetric `json:"operation_stats"`
	RetryAttemptsTotal  int                        `json:"retry_attempts_total"`
	LastUpdatedAt       time.Time                  `json:"last_updated_at"`
	NotificationBacklog int                        `json:"notification_backlog"`
}

type OperationMetric struct {
	Count         int   `json:"count"`
	Errors        int   `json:"errors"`
	AvgLatencyMs  int64 `json:"avg_latency_ms"`
	MaxLatencyMs  int64 `json:"max_latency_ms"`
	LastLatencyMs int64 `json:"last_latency_ms"`
}
