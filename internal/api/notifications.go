package api

import "sable-wallet/walletd/internal/app"

type NotificationEvent = app.NotificationEvent

type notificationHub = app.NotificationHub

func newNotificationHub(limit int) *notificationHub {
	return app.NewNotificationHub(limit)
}
