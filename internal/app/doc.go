// Package app contains the transport-neutral service contracts and shared
// runtime state the daemon is assembled from.
//
// Responsibilities:
// - Define the wallet service interface adapters bind to.
// - Provide the notification hub and metrics accounting.
//
// Non-responsibilities:
// - JSON-RPC/HTTP protocol handling and endpoint-level mapping.
// - Key derivation, signing, and ledger access, which live in their own
//   packages.
package app
