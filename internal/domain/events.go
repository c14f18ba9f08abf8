package domain

import "time"

// QueueEventType identifies what happened to the queue
type QueueEventType string

const (
	EventEnqueued      QueueEventType = "enqueued"
	EventStatusChanged QueueEventType = "status_changed"
	EventDeleted       QueueEventType = "deleted"
	EventEmptied       QueueEventType = "emptied"
	EventRecovered     QueueEventType = "recovered"
)

// QueueEvent is broadcast to subscribers after each queue mutation
type QueueEvent struct {
	Type   QueueEventType `json:"type"`
	UUID   string         `json:"uuid,omitempty"`
	Status DownloadStatus `json:"status,omitempty"`
	Count  int64          `json:"count,omitempty"`
	Time   time.Time      `json:"time"`
}

// NewQueueEvent creates an event stamped with the current time
func NewQueueEvent(eventType QueueEventType, uuid string, status DownloadStatus) QueueEvent {
	return QueueEvent{
		Type:   eventType,
		UUID:   uuid,
		Status: status,
		Time:   time.Now(),
	}
}
