package app

import (
	"context"

	"sable-wallet/walletd/pkg/models"
)

type WalletAPI interface {
	GetSeedStatus() models.SeedStatus
	CreateSeed(password string) (string, models.AddressEntry, error)
	ImportSeed(mnemonic, password string) (models.AddressEntry, error)
	ValidateMnemonic(mnemonic string) models.MnemonicCheck
	ChangePassword(oldPassword, newPassword string) error
	ExportMnemonic(password string) (string, error)

	Login(ctx context.Context, kind, password string, walletIndex uint32) (models.WalletStatus, error)
	Logout() error
	GetWalletStatus() models.WalletStatus
	ListAddresses(count uint32) ([]models.AddressEntry, error)
	SelectWallet(ctx context.Context, walletIndex uint32) (models.WalletStatus, error)
	AddWallet() (models.WalletStatus, error)

	GetBalance(ctx context.Context) (models.BalanceInfo, error)
	TransferSOL(ctx context.Context, destination string, lamports uint64) (models.TransferReceipt, error)
	ListTokenAccounts(ctx context.Context) ([]models.TokenAccountView, error)
	CreateTokenAccount(ctx context.Context, mint string) (models.CreatedTokenAccount, error)
	TransferToken(ctx context.Context, source, destination string, amount uint64, decimals uint8, memo string) (models.TransferReceipt, error)
	CloseTokenAccount(ctx context.Context, address string) (models.ClosedTokenAccount, error)

	GetLedgerHealth(ctx context.Context) models.LedgerHealth
	GetMetrics() models.MetricsSnapshot
}
