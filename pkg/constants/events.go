package constants

// EventType 广播事件类型
const (
	EventRegistered = "registered"
	EventStarted    = "started"
	EventSyncing    = "syncing"
	EventResumed    = "resumed"
	EventProgress   = "progress"
	EventCompleted  = "completed"
	EventFailed     = "failed"
	EventCancelled  = "cancelled"
)
