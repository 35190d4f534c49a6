// Package sse implements Server-Sent Events for real-time library updates
// and reconciliation progress broadcasting.
package sse

import (
	"time"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventVideoCreated represents a library record creation event.
	EventVideoCreated EventType = "video.created"
	// EventVideoUpdated represents a library record update event.
	EventVideoUpdated EventType = "video.updated"

	// EventReconcileProgress carries done/total counters for a running batch.
	EventReconcileProgress EventType = "reconcile.progress"
	// EventReconcileDecision signals that one decision changed state.
	EventReconcileDecision EventType = "reconcile.decision"
	// EventReconcileCompleted signals that a batch finished searching.
	EventReconcileCompleted EventType = "reconcile.completed"
	// EventReconcileCancelled signals that a batch was cancelled.
	EventReconcileCancelled EventType = "reconcile.cancelled"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// SessionID filters delivery to clients watching one batch.
	// Empty means broadcast to all clients.
	SessionID string `json:"-"`
}

// VideoEventData is the data payload for library record events.
type VideoEventData struct {
	Video *domain.Video `json:"video"`
}

// ProgressEventData is the data payload for batch progress events.
type ProgressEventData struct {
	SessionID string `json:"session_id"`
	Done      int    `json:"done"`
	Total     int    `json:"total"`
}

// DecisionEventData is the data payload for per-decision updates.
type DecisionEventData struct {
	SessionID string           `json:"session_id"`
	Decision  *domain.Decision `json:"decision"`
}

// CompletedEventData is the data payload for batch completion.
type CompletedEventData struct {
	CompletedAt time.Time `json:"completed_at"`
	SessionID   string    `json:"session_id"`
	Added       int       `json:"added"`
	Skipped     int       `json:"skipped"`
}

// CancelledEventData is the data payload for batch cancellation.
type CancelledEventData struct {
	CancelledAt time.Time `json:"cancelled_at"`
	SessionID   string    `json:"session_id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewVideoCreatedEvent creates a record creation event.
func NewVideoCreatedEvent(video *domain.Video) Event {
	return Event{
		Type:      EventVideoCreated,
		Timestamp: time.Now(),
		Data:      VideoEventData{Video: video},
	}
}

// NewVideoUpdatedEvent creates a record update event.
func NewVideoUpdatedEvent(video *domain.Video) Event {
	return Event{
		Type:      EventVideoUpdated,
		Timestamp: time.Now(),
		Data:      VideoEventData{Video: video},
	}
}

// NewProgressEvent creates a batch progress event.
func NewProgressEvent(sessionID string, done, total int) Event {
	return Event{
		Type:      EventReconcileProgress,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data: ProgressEventData{
			SessionID: sessionID,
			Done:      done,
			Total:     total,
		},
	}
}

// NewDecisionEvent creates a per-decision update event.
func NewDecisionEvent(sessionID string, decision *domain.Decision) Event {
	return Event{
		Type:      EventReconcileDecision,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data: DecisionEventData{
			SessionID: sessionID,
			Decision:  decision,
		},
	}
}

// NewCompletedEvent creates a batch completion event.
func NewCompletedEvent(sessionID string, added, skipped int) Event {
	return Event{
		Type:      EventReconcileCompleted,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data: CompletedEventData{
			CompletedAt: time.Now(),
			SessionID:   sessionID,
			Added:       added,
			Skipped:     skipped,
		},
	}
}

// NewCancelledEvent creates a batch cancellation event.
func NewCancelledEvent(sessionID string) Event {
	return Event{
		Type:      EventReconcileCancelled,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data: CancelledEventData{
			CancelledAt: time.Now(),
			SessionID:   sessionID,
		},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
