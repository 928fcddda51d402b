package contracts

import "sable-wallet/walletd/internal/app"

// WalletdService is the import surface adapters bind to; aliasing keeps them
// decoupled from the rest of internal/app.
type WalletdService = app.WalletdService
type WalletAPI = app.WalletAPI

type NotificationBus = app.NotificationBus
type NotificationEvent = app.NotificationEvent

type CategorizedError = app.CategorizedError
