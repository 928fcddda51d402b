package app

type NotificationBus interface {
	Subscribe(fromSeq int64) ([]NotificationEvent, <-chan NotificationEvent, func())
	Publish(method string, payload any) NotificationEvent
	BacklogSize() int
}
