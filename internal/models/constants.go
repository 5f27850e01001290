package models

const (
	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// NotifyQueueSize размер очереди уведомлений
	NotifyQueueSize = 256

	// TimeLayout формат временных меток в API
	TimeLayout = "2006-01-02T15:04:05"
)
