package ledger

import (
	"context"
	"time"

	"sable-wallet/walletd/internal/chain"
)

type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

type HealthReport struct {
	Ready     bool      `json:"ready"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Doctor probes the node behind client and reports whether it is fit to back
// wallet operations. Individual probe failures land in the report, not in an
// error return.
func Doctor(ctx context.Context, client Client) HealthReport {
	report := HealthReport{
		Ready:     true,
		Checks:    make([]Check, 0, 3),
		CheckedAt: time.Now().UTC(),
	}
	appendCheck := func(name string, pass bool, reason string) {
		report.Checks = append(report.Checks, Check{Name: name, Pass: pass, Reason: reason})
		if !pass {
			report.Ready = false
		}
	}

	if err := client.Health(ctx); err != nil {
		appendCheck("node_healthy", false, err.Error())
	} else {
		appendCheck("node_healthy", true, "")
	}

	if _, err := client.LatestBlockhash(ctx); err != nil {
		appendCheck("recent_blockhash", false, err.Error())
		return report
	}
	appendCheck("recent_blockhash", true, "")

	// Only meaningful once the query path works at all.
	if _, err := client.AccountData(ctx, chain.TokenProgramID); err != nil {
		appendCheck("token_program_present", false, err.Error())
	} else {
		appendCheck("token_program_present", true, "")
	}
	return report
}
