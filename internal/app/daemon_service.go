package app

type WalletdService interface {
	WalletAPI
	SubscribeNotifications(cursor int64) ([]NotificationEvent, <-chan NotificationEvent, func())
}
